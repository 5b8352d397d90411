// Copyright 2021 The apitest Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package apitest

import (
	"context"
	"net/http"
	"net/url"

	"github.com/apitestutils/apitest/request"
)

// Doer is the interface that wraps the basic Do method.
//
// Do executes a request plan and returns the final execution state
// (and error, if any). Any implementation must behave substantially
// the same as Client.Do.
type Doer interface {
	Do(p *request.Plan) (*request.Execution, error)
}

// Sender is the interface that wraps the Send method.
//
// Send builds a plan for method and url from opts and executes it.
// Client implements Sender, resolving url against its BaseURI. The
// poll package uses Senders to issue the request it repeats.
type Sender interface {
	Send(ctx context.Context, method, url string, opts ...request.Option) (*request.Execution, error)
}

// IdleCloser is the interface that wraps the basic CloseIdleConnections
// method.
type IdleCloser interface {
	CloseIdleConnections()
}

// Executor groups Do, Send, the verb methods and CloseIdleConnections.
// Client implements Executor; Inflate turns any Doer into one.
type Executor interface {
	Doer
	Sender
	Get(ctx context.Context, url string, opts ...request.Option) (*request.Execution, error)
	Head(ctx context.Context, url string, opts ...request.Option) (*request.Execution, error)
	Post(ctx context.Context, url string, opts ...request.Option) (*request.Execution, error)
	PostForm(ctx context.Context, url string, data url.Values, opts ...request.Option) (*request.Execution, error)
	Put(ctx context.Context, url string, opts ...request.Option) (*request.Execution, error)
	Patch(ctx context.Context, url string, opts ...request.Option) (*request.Execution, error)
	Delete(ctx context.Context, url string, opts ...request.Option) (*request.Execution, error)
	IdleCloser
}

// Send builds a plan for method and url with opts, bound to ctx, and
// executes it with d. The url is used as given.
func Send(ctx context.Context, d Doer, method, url string, opts ...request.Option) (*request.Execution, error) {
	p, err := request.NewPlanWithContext(ctx, method, url, opts...)
	if err != nil {
		return nil, err
	}
	return d.Do(p)
}

// Inflate converts any non-nil Doer into an Executor. The verb methods
// of an inflated Doer use URLs as given, since a Doer has no base URI.
func Inflate(d Doer) Executor {
	if d == nil {
		panic("apitest: nil doer")
	}

	if e, ok := d.(Executor); ok {
		return e
	}

	return inflated{d}
}

type inflated struct {
	doer Doer
}

func (i inflated) Do(p *request.Plan) (*request.Execution, error) {
	return i.doer.Do(p)
}

func (i inflated) Send(ctx context.Context, method, url string, opts ...request.Option) (*request.Execution, error) {
	return Send(ctx, i.doer, method, url, opts...)
}

func (i inflated) Get(ctx context.Context, url string, opts ...request.Option) (*request.Execution, error) {
	return i.Send(ctx, http.MethodGet, url, opts...)
}

func (i inflated) Head(ctx context.Context, url string, opts ...request.Option) (*request.Execution, error) {
	return i.Send(ctx, http.MethodHead, url, opts...)
}

func (i inflated) Post(ctx context.Context, url string, opts ...request.Option) (*request.Execution, error) {
	return i.Send(ctx, http.MethodPost, url, opts...)
}

func (i inflated) PostForm(ctx context.Context, url string, data url.Values, opts ...request.Option) (*request.Execution, error) {
	return i.Post(ctx, url, append([]request.Option{request.WithForm(data)}, opts...)...)
}

func (i inflated) Put(ctx context.Context, url string, opts ...request.Option) (*request.Execution, error) {
	return i.Send(ctx, http.MethodPut, url, opts...)
}

func (i inflated) Patch(ctx context.Context, url string, opts ...request.Option) (*request.Execution, error) {
	return i.Send(ctx, http.MethodPatch, url, opts...)
}

func (i inflated) Delete(ctx context.Context, url string, opts ...request.Option) (*request.Execution, error) {
	return i.Send(ctx, http.MethodDelete, url, opts...)
}

func (i inflated) CloseIdleConnections() {
	if ic, ok := i.doer.(IdleCloser); ok {
		ic.CloseIdleConnections()
	}
}
