// Copyright 2021 The apitest Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"time"

	"github.com/apitestutils/apitest/request"
)

// A Policy combines the decision whether an outcome is retryable with
// the length of the pause before the next attempt.
//
// Implementations of Policy must be safe for concurrent use by multiple
// goroutines.
type Policy interface {
	Decider
	Waiter
}

// DefaultPolicy retries the status codes in RetryableStatusCodes,
// pausing (2^i - 1) seconds after failed attempt i.
var DefaultPolicy = NewPolicy(DefaultDecider, DefaultWaiter)

// Never is a policy that treats no outcome as retryable, even on plans
// which allow retries.
var Never = NewPolicy(DeciderFunc(func(*request.Execution) bool { return false }), NewFixedWaiter(0))

type policy struct {
	Decider
	Waiter
}

// NewPolicy composes a Decider and a Waiter into a retry Policy.
func NewPolicy(d Decider, w Waiter) Policy {
	if d == nil || w == nil {
		panic("apitest/retry: nil decider or waiter")
	}
	return policy{Decider: d, Waiter: w}
}

// Schedule returns the pauses w would produce between n attempts,
// assuming every attempt fails. The result has n-1 entries.
func Schedule(w Waiter, n int) []time.Duration {
	if n < 2 {
		return nil
	}
	waits := make([]time.Duration, n-1)
	for i := range waits {
		waits[i] = w.Wait(&request.Execution{Attempt: i})
	}
	return waits
}
