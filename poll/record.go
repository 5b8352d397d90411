// Copyright 2021 The apitest Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package poll

import (
	"net/http"

	"github.com/apitestutils/apitest/request"
)

// A Record is what a poll keeps of one response.
type Record struct {
	// StatusCode is the response status code.
	StatusCode int

	// Header is a copy of the response header.
	Header http.Header

	// Body is the body as produced by the poll's BodyResolver, or nil
	// when body capture is disabled.
	Body interface{}
}

func newRecord(e *request.Execution, resolve BodyResolver) (Record, error) {
	r := Record{
		StatusCode: e.StatusCode(),
		Header:     e.Header().Clone(),
	}
	if resolve == nil {
		return r, nil
	}
	var err error
	r.Body, err = resolve(e)
	return r, err
}
