// Copyright 2021 The apitest Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package apitest

// An Event identifies a point in a plan execution where handlers run.
type Event int

const (
	// BeforeExecutionStart fires before anything else. Only the
	// execution's Plan is set.
	BeforeExecutionStart Event = iota
	// BeforeAttempt fires before each attempt is sent. The execution's
	// Request is the request about to be sent; handlers may change it,
	// but should clone its URL or Header before modifying them since
	// those are shared with the plan.
	BeforeAttempt
	// BeforeReadBody fires when an attempt got a response, before its
	// body is read. It fires for every status code.
	BeforeReadBody
	// AfterAttemptTimeout fires after an attempt ended in a timeout.
	// AttemptTimeouts has already been incremented.
	AfterAttemptTimeout
	// AfterAttempt fires after every attempt, successful or not, and
	// before the retry policy is consulted. Response or Err (or both,
	// if the body could not be read) is set.
	AfterAttempt
	// BeforeRetryWait fires once an outcome has been found retryable
	// and another attempt is permitted, before the pause. The
	// execution's Wait holds the length of the pause.
	BeforeRetryWait
	// AfterRetryExhausted fires when the last permitted attempt still
	// had a retryable outcome. Err is the *retry.ExhaustedError.
	AfterRetryExhausted
	// AfterPlanTimeout fires when the plan context deadline passed,
	// either during an attempt or during a retry pause.
	AfterPlanTimeout
	// AfterExecutionEnd fires last, once End has been set.
	AfterExecutionEnd

	eventSentinel

	numEvents = int(eventSentinel)
)

var eventNames = [numEvents]string{
	"BeforeExecutionStart",
	"BeforeAttempt",
	"BeforeReadBody",
	"AfterAttemptTimeout",
	"AfterAttempt",
	"BeforeRetryWait",
	"AfterRetryExhausted",
	"AfterPlanTimeout",
	"AfterExecutionEnd",
}

// Events returns all events, in the order in which they can occur.
func Events() []Event {
	events := make([]Event, numEvents)
	for i := range events {
		events[i] = Event(i)
	}
	return events
}

// Name returns the name of the event.
func (evt Event) Name() string {
	return eventNames[int(evt)]
}

// String returns the name of the event.
func (evt Event) String() string {
	return evt.Name()
}
