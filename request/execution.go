// Copyright 2021 The apitest Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/apitestutils/apitest/transient"
)

// An Execution is the state of one Plan being executed by a client.
//
// The client creates the Execution, updates it as attempts are made
// and returns it when the plan is done. Timeout policies, retry
// policies and event handlers receive it along the way; they may stash
// their own data with SetValue but should otherwise treat the exported
// fields as read-only. Handlers may make reasonable changes to Request
// before it is sent, such as signing it.
type Execution struct {
	// Plan is the plan being executed. It is never nil.
	Plan *Plan

	// Start is set when execution starts and never changes afterward.
	Start time.Time

	// End is the zero time until execution ends.
	End time.Time

	// Attempt is the zero-based index of the current attempt. Once the
	// execution has ended it is the index of the last attempt made.
	Attempt int

	// AttemptTimeouts counts the attempts which ended in a timeout.
	AttemptTimeouts int

	// Request is the HTTP request for the current, or most recent,
	// attempt.
	Request *http.Request

	// Response is the HTTP response received by the most recent
	// attempt. It is nil while an attempt is underway and when the
	// attempt failed to get a response.
	//
	// The response body has always been read and closed by the time
	// the execution ends; the content is in Body.
	Response *http.Response

	// Err is the error from the most recent attempt, or the error that
	// ended the execution. Once the execution has ended it is the same
	// value returned by the client.
	Err error

	// Body is the complete, content-decoded response body of the most
	// recent attempt. Body and Err may both be set when reading the
	// body failed part way; in that case Body should not be trusted.
	Body []byte

	// Redirects lists the URLs the most recent attempt was redirected
	// to, in the order they were visited. It stays empty when the HTTP
	// client does not record redirects.
	Redirects []*url.URL

	// Wait is the pause scheduled before the next attempt. It is only
	// meaningful during the BeforeRetryWait event.
	Wait time.Duration

	values map[interface{}]interface{}
}

// StatusCode returns the status code of the most recent response, or
// zero if there is none.
func (e *Execution) StatusCode() int {
	if e.Response == nil {
		return 0
	}

	return e.Response.StatusCode
}

// Header returns the headers of the most recent response, or a nil
// header if there is none. A nil http.Header is safe to read from.
func (e *Execution) Header() http.Header {
	if e.Response == nil {
		return nil
	}

	return e.Response.Header
}

// ContentType returns the lower-cased media type of the most recent
// response, without parameters. If no media type can be parsed out of
// the Content-Type header, its raw lower-cased value is returned.
func (e *Execution) ContentType() string {
	ct := e.Header().Get("Content-Type")
	if ct == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil && mediaType == "" {
		return strings.ToLower(strings.TrimSpace(ct))
	}
	return mediaType
}

// Attempts returns the number of attempts started so far.
func (e *Execution) Attempts() int {
	if !e.Started() {
		return 0
	}
	return e.Attempt + 1
}

// Duration returns how long the execution has been running, or ran
// for if it has ended. It is zero before the execution starts.
func (e *Execution) Duration() time.Duration {
	if !e.Started() {
		return 0
	} else if !e.Ended() {
		return time.Since(e.Start)
	}

	return e.End.Sub(e.Start)
}

// Started indicates whether the execution has started.
func (e *Execution) Started() bool {
	return !e.Start.IsZero()
}

// Ended indicates whether the execution has ended.
func (e *Execution) Ended() bool {
	return !e.End.IsZero()
}

// Timeout indicates whether Err is a timeout, either of the most
// recent attempt or of the plan as a whole. Retry exhaustion is also
// reported as a timeout.
func (e *Execution) Timeout() bool {
	return transient.Categorize(e.Err) == transient.Timeout
}

// SetValue stores arbitrary data in the execution for use by policies
// and event handlers. Keys must be comparable and, as with
// context.WithValue, should be of an unexported type to avoid
// collisions.
func (e *Execution) SetValue(key, value interface{}) {
	if e.values == nil {
		e.values = make(map[interface{}]interface{})
	}

	e.values[key] = value
}

// Value returns the value stored under key, or nil.
func (e *Execution) Value(key interface{}) interface{} {
	return e.values[key]
}
