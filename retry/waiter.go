// Copyright 2021 The apitest Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"math/rand"
	"sync"
	"time"

	"github.com/apitestutils/apitest/request"
)

// A Waiter computes the pause between a failed attempt and the next
// one. The client only asks for a wait after the Decider has found the
// outcome retryable and another attempt is permitted.
//
// Implementations of Waiter must be safe for concurrent use by multiple
// goroutines.
type Waiter interface {
	Wait(e *request.Execution) time.Duration
}

// DefaultWaiter pauses (2^i - 1) seconds after failed attempt i,
// giving the sequence 0s, 1s, 3s, 7s, ...
var DefaultWaiter = NewPowWaiter(time.Second)

// The WaiterFunc type is an adapter to allow the use of ordinary
// functions as waiters.
type WaiterFunc func(e *request.Execution) time.Duration

// Wait calls f(e).
func (f WaiterFunc) Wait(e *request.Execution) time.Duration {
	return f(e)
}

// NewPowWaiter returns a Waiter which pauses (2^i - 1) units after the
// attempt with zero-based index i. The first retry therefore happens
// immediately. Waits saturate instead of overflowing.
func NewPowWaiter(unit time.Duration) Waiter {
	if unit < 0 {
		panic("apitest/retry: unit may not be negative")
	}
	return powWaiter(unit)
}

type powWaiter time.Duration

func (w powWaiter) Wait(e *request.Execution) time.Duration {
	const maxWait = time.Duration(1<<63 - 1)
	if e.Attempt <= 0 {
		return 0
	} else if e.Attempt >= 62 {
		if w == 0 {
			return 0
		}
		return maxWait
	}
	factor := int64(1)<<uint(e.Attempt) - 1
	if w != 0 && factor > int64(maxWait)/int64(w) {
		return maxWait
	}
	return time.Duration(factor) * time.Duration(w)
}

// NewFixedWaiter returns a Waiter that always pauses for d.
func NewFixedWaiter(d time.Duration) Waiter {
	return fixedWaiter(d)
}

type fixedWaiter time.Duration

func (w fixedWaiter) Wait(_ *request.Execution) time.Duration {
	return time.Duration(w)
}

// NewExpWaiter returns a Waiter implementing capped exponential backoff
// with optional "Full Jitter", as described in
// https://aws.amazon.com/blogs/architecture/exponential-backoff-and-jitter.
//
// The ceiling after attempt i is min(base * 2^i, max). Base must be
// positive and max at least base.
//
// With a nil jitter the ceiling itself is returned. Otherwise jitter
// seeds a random number generator (a time.Time, int or int64) or is the
// generator itself (a *rand.Rand or rand.Source), and a random duration
// in [0, ceiling) is returned.
func NewExpWaiter(base, max time.Duration, jitter interface{}) Waiter {
	if base < 1 {
		panic("apitest/retry: base must be positive")
	}
	if max < base {
		panic("apitest/retry: max must be at least base")
	}
	return &expWaiter{
		base: base,
		max:  max,
		rand: jitterToRand(jitter),
	}
}

type expWaiter struct {
	base time.Duration
	max  time.Duration
	lock sync.Mutex
	rand *rand.Rand
}

func (w *expWaiter) Wait(e *request.Execution) time.Duration {
	ceil := w.max
	if n := uint(e.Attempt); n < 63 && w.base <= w.max>>n {
		ceil = w.base << n
	}

	if w.rand == nil {
		return ceil
	}

	w.lock.Lock()
	defer w.lock.Unlock()
	return time.Duration(w.rand.Int63n(int64(ceil)))
}

func jitterToRand(jitter interface{}) *rand.Rand {
	var s rand.Source
	switch j := jitter.(type) {
	case nil:
		return nil
	case time.Time:
		s = rand.NewSource(j.UnixNano())
	case int:
		s = rand.NewSource(int64(j))
	case int64:
		s = rand.NewSource(j)
	case *rand.Rand:
		if j == nil {
			panic("apitest/retry: jitter may not be a typed nil")
		}
		return j
	case rand.Source:
		s = j
	default:
		panic("apitest/retry: invalid jitter type")
	}
	return rand.New(s)
}
