// Copyright 2021 The apitest Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package apitest

import (
	"github.com/google/uuid"

	"github.com/apitestutils/apitest/request"
)

// CorrelationHeader is the header CorrelationHandler sets by default.
const CorrelationHeader = "X-Correlation-ID"

type correlationKey struct{}

// CorrelationHandler returns a BeforeAttempt handler which tags every
// attempt with a fresh random UUID in the given header, so that server
// logs can be matched against test output. A value already present in
// the request, for example set with request.WithHeader, is kept. An
// empty header name means CorrelationHeader.
func CorrelationHandler(header string) Handler {
	if header == "" {
		header = CorrelationHeader
	}
	return HandlerFunc(func(evt Event, e *request.Execution) {
		if evt != BeforeAttempt || e.Request == nil {
			return
		}
		id := e.Request.Header.Get(header)
		if id == "" {
			id = uuid.NewString()
			e.Request.Header = e.Request.Header.Clone()
			if e.Request.Header == nil {
				e.Request.Header = make(map[string][]string)
			}
			e.Request.Header.Set(header, id)
		}
		e.SetValue(correlationKey{}, id)
	})
}

// Correlate installs CorrelationHandler(header) on BeforeAttempt.
func (g *HandlerGroup) Correlate(header string) {
	g.PushBack(BeforeAttempt, CorrelationHandler(header))
}

// CorrelationID returns the correlation ID of the current or most
// recent attempt, or "" if no correlation handler ran.
func CorrelationID(e *request.Execution) string {
	id, _ := e.Value(correlationKey{}).(string)
	return id
}
