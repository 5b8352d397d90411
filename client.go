// Copyright 2021 The apitest Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package apitest

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/apitestutils/apitest/request"
	"github.com/apitestutils/apitest/retry"
	"github.com/apitestutils/apitest/timeout"
)

// An HTTPDoer implements a Do method in the same manner as the Go
// standard library http.Client from the net/http package.
type HTTPDoer interface {
	// Do sends an HTTP request and returns an HTTP response following
	// policy (such as redirects, cookies, auth) configured on the
	// HTTPDoer.
	Do(r *http.Request) (*http.Response, error)
}

var emptyHandlers = HandlerGroup{}

// A Client issues requests against an API under test, retrying
// transient refusals when asked to. Its zero value is usable.
//
// A Client adds the following on top of its HTTPDoer:
//
// • paths given to Send and the verb methods are resolved against
// BaseURI;
//
// • the response body is always read, content-decoded (gzip, deflate,
// br), closed and returned as Execution.Body;
//
// • plans that allow retries are retried according to RetryPolicy, up
// to the plan's attempt limit;
//
// • each attempt gets a deadline from TimeoutPolicy;
//
// • requests can be rate limited on the client side; and
//
// • event handlers run at fixed points of every execution, which is
// how logging and correlation IDs are mixed in.
//
// Client is safe for concurrent use by multiple goroutines. Reuse
// clients rather than creating them per request, since the HTTPDoer
// usually caches connections.
type Client struct {
	// BaseURI is the endpoint relative paths are resolved against by
	// Send and the verb methods. Do uses plan URLs as they are.
	BaseURI string

	// HTTPDoer sends requests and receives responses.
	//
	// If HTTPDoer is nil, an http.Client using http.DefaultTransport
	// and CheckRedirect is used.
	HTTPDoer HTTPDoer

	// RetryPolicy decides which outcomes are retryable and how long to
	// pause between attempts. It is only consulted for plans that
	// allow retries.
	//
	// If RetryPolicy is nil, retry.DefaultPolicy is used.
	RetryPolicy retry.Policy

	// TimeoutPolicy sets the deadline of individual attempts.
	//
	// If TimeoutPolicy is nil, timeout.DefaultPolicy is used.
	TimeoutPolicy timeout.Policy

	// Handlers holds the event handler chains run during executions.
	//
	// If Handlers is nil, no handlers are run.
	Handlers *HandlerGroup

	// Limiter, if not nil, is waited on before every attempt.
	Limiter *rate.Limiter

	// Options are applied to every plan built by Send and the verb
	// methods, before the options given to the call.
	Options []request.Option
}

// NewClient returns a Client for baseURI which sends requests through
// a new HTTP client from NewHTTPClient.
func NewClient(baseURI string) *Client {
	return &Client{
		BaseURI:  baseURI,
		HTTPDoer: NewHTTPClient(),
	}
}

// Do executes a request plan and returns the final execution state.
//
// Plans that do not allow retries get exactly one attempt. Otherwise
// the client keeps retrying while the retry policy finds the outcome
// retryable, pausing as the policy says between attempts, for at most
// p.Attempts() attempts. A retryable outcome on the last permitted
// attempt ends the execution with an *retry.ExhaustedError; the
// Execution then still holds the final response and body.
//
// Any other error is a *url.Error: a transport failure, an attempt
// timeout, a body read failure or the plan context ending. A response
// with a non-2XX status code is not an error.
//
// The returned Execution is never nil. If the error is nil, Response
// and Body are both set (Body may be empty) and the response body has
// been closed.
func (c *Client) Do(p *request.Plan) (*request.Execution, error) {
	e := request.Execution{
		Plan: p,
	}

	doer := c.doer()

	timeoutPolicy := c.TimeoutPolicy
	if timeoutPolicy == nil {
		timeoutPolicy = timeout.DefaultPolicy
	}

	retryPolicy := c.RetryPolicy
	if retryPolicy == nil {
		retryPolicy = retry.DefaultPolicy
	}

	handlers := c.Handlers
	if handlers == nil {
		handlers = &emptyHandlers
	}
	handlers.run(BeforeExecutionStart, &e)
	e.Start = time.Now()
	attempts := p.Attempts()

	for {
		c.sendAndReceive(p, &e, doer, handlers, timeoutPolicy)
		if e.Timeout() {
			e.AttemptTimeouts++
			handlers.run(AfterAttemptTimeout, &e)
		}
		handlers.run(AfterAttempt, &e)
		if err := p.Context().Err(); err != nil {
			if err == context.DeadlineExceeded {
				handlers.run(AfterPlanTimeout, &e)
			}
			break
		}
		if !p.AllowRetries || !retryPolicy.Decide(&e) {
			break
		}
		if e.Attempt+1 >= attempts {
			e.Err = &retry.ExhaustedError{
				Attempts:   e.Attempt + 1,
				StatusCode: e.StatusCode(),
			}
			handlers.run(AfterRetryExhausted, &e)
			break
		}
		e.Wait = retryPolicy.Wait(&e)
		handlers.run(BeforeRetryWait, &e)
		if !sleep(p.Context(), e.Wait) {
			err := p.Context().Err()
			e.Err = urlErrorWrap(p, err)
			if err == context.DeadlineExceeded {
				handlers.run(AfterPlanTimeout, &e)
			}
			break
		}
		e.Response = nil
		e.Err = nil
		e.Body = nil
		e.Redirects = nil
		e.Wait = 0
		e.Attempt++
	}

	e.End = time.Now()
	handlers.run(AfterExecutionEnd, &e)
	return &e, e.Err
}

func (c *Client) sendAndReceive(p *request.Plan, e *request.Execution, doer HTTPDoer, handlers *HandlerGroup, timeoutPolicy timeout.Policy) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(p.Context()); err != nil {
			e.Err = urlErrorWrap(p, err)
			return
		}
	}
	ctx, cancel := context.WithTimeout(p.Context(), timeoutPolicy.Timeout(e))
	defer cancel()
	e.Request = p.ToRequest(withExecution(ctx, e))
	handlers.run(BeforeAttempt, e)
	resp, err := doer.Do(e.Request)
	if err != nil {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		e.Err = urlErrorWrap(p, err)
		return
	}
	e.Response = resp
	readBody(p, e, handlers)
}

func readBody(p *request.Plan, e *request.Execution, handlers *HandlerGroup) {
	defer func() {
		_ = e.Response.Body.Close()
	}()
	handlers.run(BeforeReadBody, e)
	raw, err := io.ReadAll(e.Response.Body)
	if err != nil {
		e.Body = raw
		e.Err = urlErrorWrap(p, err)
		return
	}
	e.Body, err = decodeContent(e.Response, raw)
	if err != nil {
		e.Err = urlErrorWrap(p, err)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// Send resolves url against BaseURI, builds a plan with the client's
// Options followed by opts, and executes it with Do.
func (c *Client) Send(ctx context.Context, method, url string, opts ...request.Option) (*request.Execution, error) {
	return Send(ctx, c, method, request.ResolveURL(c.BaseURI, url), c.options(opts)...)
}

// Get issues a GET to url. See Send.
func (c *Client) Get(ctx context.Context, url string, opts ...request.Option) (*request.Execution, error) {
	return c.Send(ctx, http.MethodGet, url, opts...)
}

// Head issues a HEAD to url. See Send.
func (c *Client) Head(ctx context.Context, url string, opts ...request.Option) (*request.Execution, error) {
	return c.Send(ctx, http.MethodHead, url, opts...)
}

// Post issues a POST to url. Set the body with request.WithBody,
// request.WithJSON or request.WithForm. See Send.
func (c *Client) Post(ctx context.Context, url string, opts ...request.Option) (*request.Execution, error) {
	return c.Send(ctx, http.MethodPost, url, opts...)
}

// PostForm issues a POST to url with data URL-encoded as the body.
func (c *Client) PostForm(ctx context.Context, url string, data url.Values, opts ...request.Option) (*request.Execution, error) {
	return c.Post(ctx, url, append([]request.Option{request.WithForm(data)}, opts...)...)
}

// Put issues a PUT to url. See Send.
func (c *Client) Put(ctx context.Context, url string, opts ...request.Option) (*request.Execution, error) {
	return c.Send(ctx, http.MethodPut, url, opts...)
}

// Patch issues a PATCH to url. See Send.
func (c *Client) Patch(ctx context.Context, url string, opts ...request.Option) (*request.Execution, error) {
	return c.Send(ctx, http.MethodPatch, url, opts...)
}

// Delete issues a DELETE to url. See Send.
func (c *Client) Delete(ctx context.Context, url string, opts ...request.Option) (*request.Execution, error) {
	return c.Send(ctx, http.MethodDelete, url, opts...)
}

// CloseIdleConnections invokes the same method on the client's
// underlying HTTPDoer, if it has one.
func (c *Client) CloseIdleConnections() {
	if ic, ok := c.doer().(IdleCloser); ok {
		ic.CloseIdleConnections()
	}
}

func (c *Client) options(opts []request.Option) []request.Option {
	if len(c.Options) == 0 {
		return opts
	}
	all := make([]request.Option, 0, len(c.Options)+len(opts))
	all = append(all, c.Options...)
	return append(all, opts...)
}

var defaultHTTPDoer = &http.Client{
	CheckRedirect: CheckRedirect,
}

func (c *Client) doer() HTTPDoer {
	if c.HTTPDoer == nil {
		return defaultHTTPDoer
	}

	return c.HTTPDoer
}

func urlErrorWrap(p *request.Plan, err error) error {
	if _, ok := err.(*url.Error); ok {
		return err
	}

	return &url.Error{
		Op:  urlErrorOp(p.Method),
		URL: p.URL.String(),
		Err: err,
	}
}

// urlErrorOp matches the Op net/http puts in its own url.Errors.
func urlErrorOp(method string) string {
	if method == "" {
		return "Get"
	}
	return method[:1] + strings.ToLower(method[1:])
}
