// Copyright 2021 The apitest Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

// ExhaustedMsg is the message of every ExhaustedError.
const ExhaustedMsg = "Maximum retry limit hit."

// An ExhaustedError is returned by the client when the last attempt a
// plan permits still produced a retryable outcome.
//
// It is a timeout-class error: Timeout reports true, so
// transient.Categorize puts it in the Timeout category.
type ExhaustedError struct {
	// Attempts is the number of attempts made.
	Attempts int
	// StatusCode is the status code of the final response, or zero if
	// the final attempt ended without one.
	StatusCode int
}

func (err *ExhaustedError) Error() string {
	return ExhaustedMsg
}

// Timeout always returns true.
func (err *ExhaustedError) Timeout() bool {
	return true
}
