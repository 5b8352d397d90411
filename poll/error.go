// Copyright 2021 The apitest Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package poll

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// NoResponsesMsg is the message of a TimeoutError with no history.
const NoResponsesMsg = "no responses received"

// A TimeoutError is returned by Until when the poll timeout elapses
// before the predicate is satisfied. It holds every response received
// before the deadline; a request cut short by the deadline is not
// included.
//
// TimeoutError unwraps to context.DeadlineExceeded.
type TimeoutError struct {
	Records []Record
}

// Last returns the most recent record, or nil if there is none.
func (err *TimeoutError) Last() *Record {
	if len(err.Records) == 0 {
		return nil
	}
	return &err.Records[len(err.Records)-1]
}

// Error describes the last response received.
func (err *TimeoutError) Error() string {
	last := err.Last()
	if last == nil {
		return NoResponsesMsg
	}
	return fmt.Sprintf("last status: %d\nlast headers:%v\nlast body:%s",
		last.StatusCode, last.Header, formatBody(last.Body))
}

// Timeout always returns true.
func (err *TimeoutError) Timeout() bool {
	return true
}

// Unwrap returns context.DeadlineExceeded.
func (err *TimeoutError) Unwrap() error {
	return context.DeadlineExceeded
}

func formatBody(body interface{}) string {
	switch b := body.(type) {
	case nil:
		return ""
	case string:
		return b
	case []byte:
		return string(b)
	case *html.Node:
		var sb strings.Builder
		if err := html.Render(&sb, b); err != nil {
			return fmt.Sprintf("%v", b)
		}
		return sb.String()
	default:
		j, err := json.Marshal(b)
		if err != nil {
			return fmt.Sprintf("%v", b)
		}
		return string(j)
	}
}
