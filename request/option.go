// Copyright 2021 The apitest Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/net/http/httpguts"
)

// An Option adjusts a Plan while it is being built by NewPlan or
// NewPlanWithContext. Options are applied in the order given, so later
// options override earlier ones where they touch the same field.
type Option func(p *Plan) error

// WithHeader adds a header value. Calling it repeatedly with the same
// key sends the header once per value.
func WithHeader(key, value string) Option {
	return func(p *Plan) error {
		if !httpguts.ValidHeaderFieldName(key) {
			return fmt.Errorf("apitest/request: invalid header name %q", key)
		}
		if !httpguts.ValidHeaderFieldValue(value) {
			return fmt.Errorf("apitest/request: invalid value for header %q", key)
		}
		p.Header.Add(key, value)
		return nil
	}
}

// WithHeaders adds every value of every key in h.
func WithHeaders(h http.Header) Option {
	return func(p *Plan) error {
		for k, vs := range h {
			for _, v := range vs {
				if err := WithHeader(k, v)(p); err != nil {
					return err
				}
			}
		}
		return nil
	}
}

// WithQuery appends query string parameters to the plan URL. The query
// already in the URL is kept exactly as written, in its original order.
func WithQuery(key string, values ...string) Option {
	return func(p *Plan) error {
		if len(values) == 0 {
			return nil
		}
		add := url.Values{key: values}.Encode()
		if p.URL.RawQuery == "" {
			p.URL.RawQuery = add
		} else {
			p.URL.RawQuery += "&" + add
		}
		return nil
	}
}

// WithBody sets the request body and, if contentType is not empty,
// the Content-Type header. The body may be any type accepted by
// BodyBytes.
func WithBody(contentType string, body interface{}) Option {
	return func(p *Plan) error {
		b, err := BodyBytes(body)
		if err != nil {
			return err
		}
		p.Body = b
		if contentType != "" {
			p.Header.Set("Content-Type", contentType)
		}
		return nil
	}
}

// WithJSON sets the request body to the JSON encoding of v, with a
// Content-Type of application/json.
func WithJSON(v interface{}) Option {
	return func(p *Plan) error {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("apitest/request: encoding JSON body: %w", err)
		}
		p.Body = b
		p.Header.Set("Content-Type", "application/json")
		return nil
	}
}

// WithForm sets the request body to the URL-encoded form data, with a
// Content-Type of application/x-www-form-urlencoded.
func WithForm(data url.Values) Option {
	return WithBody("application/x-www-form-urlencoded", data.Encode())
}

// WithRedirects sets whether redirects are followed.
func WithRedirects(follow bool) Option {
	return func(p *Plan) error {
		p.FollowRedirects = follow
		return nil
	}
}

// WithRetries sets whether retryable outcomes are retried.
func WithRetries(allow bool) Option {
	return func(p *Plan) error {
		p.AllowRetries = allow
		return nil
	}
}

// WithMaxRetries sets the maximum number of attempts made when retries
// are allowed. The value must be at least one.
func WithMaxRetries(n int) Option {
	return func(p *Plan) error {
		if n < 1 {
			return fmt.Errorf("apitest/request: max retries must be positive, got %d", n)
		}
		p.MaxRetries = n
		return nil
	}
}

// WithBasicAuth sets an HTTP Basic Authorization header.
func WithBasicAuth(username, password string) Option {
	return func(p *Plan) error {
		p.SetBasicAuth(username, password)
		return nil
	}
}

// WithCookie adds a cookie to the plan's Cookie header.
func WithCookie(c *http.Cookie) Option {
	return func(p *Plan) error {
		p.AddCookie(c)
		return nil
	}
}

// WithHost overrides the Host header sent.
func WithHost(host string) Option {
	return func(p *Plan) error {
		p.Host = host
		return nil
	}
}

// WithClose asks for the connection to be closed after each attempt.
func WithClose() Option {
	return func(p *Plan) error {
		p.Close = true
		return nil
	}
}
