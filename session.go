// Copyright 2021 The apitest Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package apitest

import (
	"sort"

	"github.com/apitestutils/apitest/config"
	"github.com/apitestutils/apitest/request"
	"github.com/apitestutils/apitest/timeout"
)

// NewClientFromSession returns a client for the API described by s.
// The session's request timeout, attempt limit and headers apply to
// every call made through the client's Send and verb methods.
func NewClientFromSession(s config.Session) *Client {
	c := NewClient(s.BaseURI)
	if d := s.RequestTimeout.Duration(); d > 0 {
		c.TimeoutPolicy = timeout.Fixed(d)
	}
	if s.MaxRetries > 0 {
		c.Options = append(c.Options, request.WithMaxRetries(s.MaxRetries))
	}
	keys := make([]string, 0, len(s.Headers))
	for k := range s.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		c.Options = append(c.Options, request.WithHeader(k, s.Headers[k]))
	}
	return c
}
