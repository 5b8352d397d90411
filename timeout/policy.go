// Copyright 2021 The apitest Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timeout

import (
	"time"

	"github.com/apitestutils/apitest/request"
)

// A Policy returns the timeout for the next attempt of an execution.
//
// Implementations of Policy must be safe for concurrent use by multiple
// goroutines.
type Policy interface {
	Timeout(e *request.Execution) time.Duration
}

// DefaultPolicy gives every attempt 30 seconds.
var DefaultPolicy = Fixed(30 * time.Second)

// Infinite never times an attempt out. Only the plan context can then
// stop a slow attempt.
var Infinite = Fixed(1<<63 - 1)

// The PolicyFunc type is an adapter to allow the use of ordinary
// functions as timeout policies.
type PolicyFunc func(e *request.Execution) time.Duration

// Timeout calls f(e).
func (f PolicyFunc) Timeout(e *request.Execution) time.Duration {
	return f(e)
}

// Fixed returns a policy giving every attempt the same timeout d.
func Fixed(d time.Duration) Policy {
	return fixed(d)
}

type fixed time.Duration

func (d fixed) Timeout(_ *request.Execution) time.Duration {
	return time.Duration(d)
}

// Adaptive returns a policy that lengthens the timeout after an
// attempt times out, so that a burst of slowness on the server does
// not turn into a storm of short, doomed attempts.
//
// The usual timeout applies to the first attempt and to any attempt
// following one that did not time out. After the k-th timeout of the
// execution (k counting from one) the next attempt gets after[k-1], or
// the last element of after once k exceeds its length.
//
//	p := Adaptive(200*time.Millisecond, time.Second, 10*time.Second)
//
// Here p uses 200ms normally, 1s right after the first timeout and 10s
// right after any later one.
func Adaptive(usual time.Duration, after ...time.Duration) Policy {
	a := make([]time.Duration, len(after))
	copy(a, after)
	return &adaptive{usual: usual, after: a}
}

type adaptive struct {
	usual time.Duration
	after []time.Duration
}

func (p *adaptive) Timeout(e *request.Execution) time.Duration {
	if !e.Timeout() || len(p.after) == 0 || e.AttemptTimeouts < 1 {
		return p.usual
	}

	i := e.AttemptTimeouts - 1
	if i >= len(p.after) {
		i = len(p.after) - 1
	}

	return p.after[i]
}
