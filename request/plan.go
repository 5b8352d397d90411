// Copyright 2021 The apitest Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	urlpkg "net/url"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// DefaultMaxRetries is the maximum number of attempts a plan makes
// when retries are allowed and no other limit has been set.
const DefaultMaxRetries = 5

const (
	nilCtxMsg = "apitest/request: nil context"
)

var (
	template, _ = http.NewRequest("GET", "", nil)
)

// A Plan describes one logical HTTP request: what to send, and how the
// client should behave while sending it.
//
// A Plan is converted into a fresh http.Request for every attempt, so
// the body is held as a pre-buffered []byte rather than a stream. Each
// call builds its own Plan; once handed to a client it should be
// treated as read-only.
type Plan struct {
	// Method specifies the HTTP method (GET, POST, PUT, etc.).
	// An empty string means GET.
	Method string

	// URL specifies the fully resolved URL to access.
	URL *urlpkg.URL

	// Header contains the request header fields. Repeated values for
	// the same key are sent as repeated header lines.
	Header http.Header

	// Body is the pre-buffered request body. A nil or empty body means
	// no body is sent.
	Body []byte

	// Close stipulates whether to close the connection after each
	// attempt, as if Transport.DisableKeepAlives were set.
	Close bool

	// Host optionally overrides the Host header to send. If empty, the
	// value of URL.Host is sent.
	Host string

	// FollowRedirects controls whether 3XX responses are followed.
	// NewPlan sets it to true. When false, the redirect response itself
	// is returned to the caller.
	//
	// The flag is honored by HTTP clients whose CheckRedirect consults
	// FollowsRedirects, such as the one built by apitest.NewHTTPClient.
	FollowRedirects bool

	// AllowRetries enables retries of retryable outcomes. When false,
	// exactly one attempt is made.
	AllowRetries bool

	// MaxRetries is the maximum number of attempts made when
	// AllowRetries is true, counting the first attempt. Values below
	// one mean DefaultMaxRetries.
	MaxRetries int

	// ctx allows the entire Plan exec to be cancelled. It should only
	// be modified by copying the whole Plan using WithContext.
	ctx context.Context
}

// NewPlan wraps NewPlanWithContext using the background context.
func NewPlan(method, url string, opts ...Option) (*Plan, error) {
	return NewPlanWithContext(context.Background(), method, url, opts...)
}

// NewPlanWithContext returns a new Plan for the given method and URL,
// with opts applied in order.
//
// The plan follows redirects, does not retry, and carries an attempt
// limit of DefaultMaxRetries in case retries are switched on later.
// The URL is used as given; resolve relative paths with ResolveURL
// first.
func NewPlanWithContext(ctx context.Context, method, url string, opts ...Option) (*Plan, error) {
	if ctx == nil {
		return nil, errors.New(nilCtxMsg)
	}
	if method == "" {
		method = "GET"
	}
	if !validMethod(method) {
		return nil, fmt.Errorf("apitest/request: invalid method %q", method)
	}
	u, err := urlpkg.Parse(url)
	if err != nil {
		return nil, err
	}
	u.Host = removeEmptyPort(u.Host)
	p := &Plan{
		ctx:             ctx,
		Method:          method,
		URL:             u,
		Header:          make(http.Header),
		Host:            u.Host,
		FollowRedirects: true,
		MaxRetries:      DefaultMaxRetries,
	}
	for _, opt := range opts {
		if err = opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Context returns the request plan's context. The context controls
// cancellation of the overall request plan. To change the context, use
// WithContext.
//
// The returned context is always non-nil; it defaults to the
// background context.
func (p *Plan) Context() context.Context {
	if p.ctx != nil {
		return p.ctx
	}
	return context.Background()
}

// WithContext returns a shallow copy of p with its context changed to
// ctx, which must be non-nil.
//
// The context bounds the whole execution: every attempt, every event
// handler and every retry wait.
func (p *Plan) WithContext(ctx context.Context) *Plan {
	if ctx == nil {
		panic(nilCtxMsg)
	}
	p2 := new(Plan)
	*p2 = *p
	p2.ctx = ctx
	return p2
}

// Attempts returns the maximum number of attempts the plan permits:
// one when retries are not allowed, otherwise MaxRetries (or
// DefaultMaxRetries if MaxRetries is not positive).
func (p *Plan) Attempts() int {
	if !p.AllowRetries {
		return 1
	}
	if p.MaxRetries < 1 {
		return DefaultMaxRetries
	}
	return p.MaxRetries
}

// AddCookie adds a cookie to the request. Per RFC 6265 section 5.4,
// all cookies are written into a single Cookie header separated by
// semicolons.
func (p *Plan) AddCookie(c *http.Cookie) {
	c2 := &http.Cookie{Name: c.Name, Value: c.Value}
	s := c2.String()
	if h := p.Header.Get("Cookie"); h != "" {
		p.Header.Set("Cookie", h+"; "+s)
	} else {
		p.Header.Set("Cookie", s)
	}
}

// SetBasicAuth sets the request plan's Authorization header to use HTTP
// Basic Authentication with the provided username and password.
func (p *Plan) SetBasicAuth(username, password string) {
	auth := username + ":" + password
	p.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(auth)))
}

// ToRequest creates the http.Request for one attempt of the plan. The
// context of the new request is ctx, which may not be nil, augmented
// with the plan's redirect setting.
func (p *Plan) ToRequest(ctx context.Context) *http.Request {
	r := template.WithContext(withRedirects(ctx, p.FollowRedirects))
	r.Method = p.Method
	r.URL = p.URL
	r.Header = p.Header
	if len(p.Body) > 0 {
		r.Body = io.NopCloser(bytes.NewReader(p.Body))
		r.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(p.Body)), nil
		}
		r.ContentLength = int64(len(p.Body))
	}
	r.Close = p.Close
	r.Host = p.Host
	return r
}

func validMethod(method string) bool {
	return strings.IndexFunc(method, func(r rune) bool {
		return !httpguts.IsTokenRune(r)
	}) == -1
}

// hasPort reports whether s, of the form "host", "host:port" or
// "[ipv6::address]:port", includes a port.
func hasPort(s string) bool { return strings.LastIndex(s, ":") > strings.LastIndex(s, "]") }

// removeEmptyPort strips the empty port in ":port" to "" as mandated
// by RFC 3986 Section 6.2.3.
func removeEmptyPort(host string) string {
	if hasPort(host) {
		return strings.TrimSuffix(host, ":")
	}
	return host
}
