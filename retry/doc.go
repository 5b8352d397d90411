// Copyright 2021 The apitest Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package retry decides which attempt outcomes are worth retrying and
// how long to pause before trying again.
//
// A Policy is a Decider plus a Waiter. DefaultPolicy retries 429, 503
// and 409 responses with pauses of 0s, 1s, 3s, 7s, ... between
// attempts. Retries only happen for plans that allow them, and never
// beyond the plan's attempt limit; when the limit is reached on a
// retryable outcome the client returns an *ExhaustedError.
//
// Custom policies are assembled from the building blocks here:
//
//	decider := retry.StatusCode(500, 502).Or(retry.TransientErr).
//		And(retry.Before(30 * time.Second))
//	waiter := retry.NewExpWaiter(100*time.Millisecond, 2*time.Second, time.Now())
//	policy := retry.NewPolicy(decider, waiter)
package retry
