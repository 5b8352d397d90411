// Copyright 2021 The apitest Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package apitest

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/apitestutils/apitest/request"
)

// A StatusError reports a response that a test did not expect. Its
// message is a banner carrying everything needed to diagnose the
// failure from test output alone.
type StatusError struct {
	Message    string
	URL        string
	StatusCode int
	Body       string
	Header     http.Header
}

// NewStatusError builds a StatusError from the final state of e.
func NewStatusError(message string, e *request.Execution) *StatusError {
	err := &StatusError{
		Message:    message,
		StatusCode: e.StatusCode(),
		Body:       string(e.Body),
		Header:     e.Header(),
	}
	if e.Request != nil && e.Request.URL != nil {
		err.URL = e.Request.URL.String()
	} else if e.Plan != nil && e.Plan.URL != nil {
		err.URL = e.Plan.URL.String()
	}
	return err
}

func (err *StatusError) Error() string {
	stars := strings.Repeat("*", len(err.Message))
	return fmt.Sprintf("\n%s\nMESSAGE: %s\nURL: %s\nSTATUS CODE: %d\nRESPONSE: %s\nHEADERS: %v\n%s\n",
		stars, err.Message, err.URL, err.StatusCode, err.Body, err.Header, stars)
}

// ExpectStatus returns nil if the execution ended without error and
// with one of the given status codes. It returns the execution's own
// error if there is one, and a *StatusError otherwise.
func ExpectStatus(e *request.Execution, codes ...int) error {
	if e == nil {
		return errors.New("apitest: nil execution")
	}
	if e.Err != nil {
		return e.Err
	}
	got := e.StatusCode()
	for _, code := range codes {
		if got == code {
			return nil
		}
	}
	return NewStatusError(fmt.Sprintf("expected status %v, got %d", codes, got), e)
}
