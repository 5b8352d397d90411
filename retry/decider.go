// Copyright 2021 The apitest Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"time"

	"github.com/apitestutils/apitest/request"
	"github.com/apitestutils/apitest/transient"
)

// A Decider decides whether the outcome of the most recent attempt is
// retryable.
//
// A Decider only classifies outcomes. The attempt limit comes from the
// plan (request.Plan.Attempts) and is enforced by the client, which
// reports an *ExhaustedError once a retryable outcome occurs on the
// last permitted attempt.
//
// Implementations of Decider must be safe for concurrent use by
// multiple goroutines.
type Decider interface {
	Decide(e *request.Execution) bool
}

// The DeciderFunc type is an adapter to allow the use of ordinary
// functions as retry deciders. It also provides the logical
// composition methods And, Or and Not.
type DeciderFunc func(e *request.Execution) bool

// RetryableStatusCodes are the status codes DefaultDecider retries:
// 429 (Too Many Requests), 503 (Service Unavailable) and 409
// (Conflict). 409 is included because control planes commonly answer
// it while a previous change to the same resource is still settling.
var RetryableStatusCodes = []int{
	429,
	503,
	409,
}

// DefaultDecider retries any response whose status code is one of
// RetryableStatusCodes. Transport errors are not retried.
var DefaultDecider = StatusCode(RetryableStatusCodes...)

// TransientErr is a decider that indicates a retry if the current
// error is transient according to transient.Categorize. It ignores
// the response entirely, so compose it with StatusCode to cover both.
var TransientErr DeciderFunc = transientErr

// Decide calls f(e).
func (f DeciderFunc) Decide(e *request.Execution) bool {
	return f(e)
}

// And returns a decider that is true when both f and g are. g is not
// evaluated when f is false.
func (f DeciderFunc) And(g DeciderFunc) DeciderFunc {
	return func(e *request.Execution) bool {
		return f(e) && g(e)
	}
}

// Or returns a decider that is true when either f or g is. g is not
// evaluated when f is true.
func (f DeciderFunc) Or(g DeciderFunc) DeciderFunc {
	return func(e *request.Execution) bool {
		return f(e) || g(e)
	}
}

// Not returns a decider that negates f.
func (f DeciderFunc) Not() DeciderFunc {
	return func(e *request.Execution) bool {
		return !f(e)
	}
}

// Times returns a decider that is true while the zero-based attempt
// index is below n, i.e. it allows at most n retries. Since plans
// already cap attempts, Times is mostly useful to tighten the cap for
// one kind of outcome.
func Times(n int) DeciderFunc {
	return func(e *request.Execution) bool {
		return e.Attempt < n
	}
}

// Before returns a decider that is true while less than d has elapsed
// since the execution started.
func Before(d time.Duration) DeciderFunc {
	return func(e *request.Execution) bool {
		return e.Duration() < d
	}
}

// StatusCode returns a decider that is true when the most recent
// attempt got a response with one of the given status codes.
func StatusCode(codes ...int) DeciderFunc {
	set := make(map[int]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return func(e *request.Execution) bool {
		if e.Response == nil {
			return false
		}
		_, ok := set[e.StatusCode()]
		return ok
	}
}

func transientErr(e *request.Execution) bool {
	return transient.Categorize(e.Err) != transient.Not
}
