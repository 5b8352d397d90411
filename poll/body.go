// Copyright 2021 The apitest Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package poll

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/apitestutils/apitest/request"
)

// A BodyResolver turns the body of a response into the value stored
// in Record.Body. The execution's body has already been read and
// content-decoded.
//
// If a BodyResolver returns an error, the poll stops and returns it.
type BodyResolver func(e *request.Execution) (interface{}, error)

// AutoBody picks a representation from the response content type:
//
// • JSON media types are decoded into interface{} values, falling back
// to text when the body is not valid JSON;
//
// • text and XML media types become a string, converted to UTF-8 from
// the declared or detected charset;
//
// • anything else is kept as []byte.
//
// AutoBody never returns an error.
func AutoBody(e *request.Execution) (interface{}, error) {
	ct := e.ContentType()
	switch {
	case strings.Contains(ct, "json"):
		var v interface{}
		if err := json.Unmarshal(e.Body, &v); err == nil {
			return v, nil
		}
		return decodeText(e), nil
	case strings.Contains(ct, "text"), strings.Contains(ct, "xml"):
		return decodeText(e), nil
	default:
		return e.Body, nil
	}
}

// TextBody resolves the body as a UTF-8 string.
func TextBody(e *request.Execution) (interface{}, error) {
	return decodeText(e), nil
}

// JSONBody decodes the body as JSON into interface{} values.
func JSONBody(e *request.Execution) (interface{}, error) {
	var v interface{}
	if err := json.Unmarshal(e.Body, &v); err != nil {
		return nil, fmt.Errorf("apitest/poll: decoding JSON body: %w", err)
	}
	return v, nil
}

// BytesBody keeps the body as []byte.
func BytesBody(e *request.Execution) (interface{}, error) {
	return e.Body, nil
}

// HTMLBody parses the body as an HTML document and resolves to its
// root *html.Node.
func HTMLBody(e *request.Execution) (interface{}, error) {
	r, err := charset.NewReader(bytes.NewReader(e.Body), e.Header().Get("Content-Type"))
	if err != nil {
		r = bytes.NewReader(e.Body)
	}
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("apitest/poll: parsing HTML body: %w", err)
	}
	return doc, nil
}

func decodeText(e *request.Execution) string {
	r, err := charset.NewReader(bytes.NewReader(e.Body), e.Header().Get("Content-Type"))
	if err != nil {
		return string(e.Body)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return string(e.Body)
	}
	return string(b)
}
