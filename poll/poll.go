// Copyright 2021 The apitest Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package poll

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/apitestutils/apitest/config"
	"github.com/apitestutils/apitest/request"
)

const (
	// DefaultTimeout bounds a poll when WithTimeout is not given.
	DefaultTimeout = 5 * time.Second

	// DefaultInterval is the pause between requests when WithInterval
	// is not given.
	DefaultInterval = time.Second
)

var errNoExecution = errors.New("apitest/poll: request returned neither execution nor error")

// A RequestFunc issues the request being polled. It is called once per
// iteration with a context carrying the poll deadline, and should
// return a fully-read execution, as apitest.Client does.
//
// Until stops waiting for fn as soon as the context is done, but fn
// keeps running until it returns, so it should give up promptly once
// the context is done.
type RequestFunc func(ctx context.Context) (*request.Execution, error)

// A Sender sends one request. apitest.Client is a Sender.
type Sender interface {
	Send(ctx context.Context, method, url string, opts ...request.Option) (*request.Execution, error)
}

// Request returns a RequestFunc which sends method and url with opts
// through s on every iteration.
func Request(s Sender, method, url string, opts ...request.Option) RequestFunc {
	return func(ctx context.Context) (*request.Execution, error) {
		return s.Send(ctx, method, url, opts...)
	}
}

// An Option configures a poll.
type Option func(s *settings)

type settings struct {
	predicate Predicate
	resolver  BodyResolver
	timeout   time.Duration
	interval  time.Duration
}

// WithPredicate sets the condition ending the poll. The default is
// Is200. A nil predicate restores the default.
func WithPredicate(p Predicate) Option {
	return func(s *settings) {
		if p == nil {
			p = Is200
		}
		s.predicate = p
	}
}

// WithBodyResolver sets how response bodies are recorded. The default
// is AutoBody. A nil resolver disables body capture, leaving every
// Record.Body nil.
func WithBodyResolver(r BodyResolver) Option {
	return func(s *settings) {
		s.resolver = r
	}
}

// WithTimeout bounds the whole poll, including the request in flight
// when the time runs out. The default is DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		s.timeout = d
	}
}

// WithInterval sets the pause between a response which does not
// satisfy the predicate and the next request. The default is
// DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(s *settings) {
		s.interval = d
	}
}

// SessionOptions returns the options matching the poll timeout and
// interval of s. Unset values are left at their defaults.
func SessionOptions(s config.Session) []Option {
	var opts []Option
	if d := s.PollTimeout.Duration(); d > 0 {
		opts = append(opts, WithTimeout(d))
	}
	if d := s.PollInterval.Duration(); d > 0 {
		opts = append(opts, WithInterval(d))
	}
	return opts
}

// Until calls fn repeatedly until a response satisfies the predicate,
// and returns a record of every response received, oldest first. The
// last record is the one that satisfied the predicate.
//
// If the poll timeout elapses first, Until returns the records so far
// with a *TimeoutError. If ctx ends first, it returns the records so
// far with ctx.Err(). If fn fails, the poll stops and the error is
// returned as is; when the failed execution still holds a response,
// as after retry exhaustion, that response is recorded first.
//
// Until logs each response through the zerolog logger attached to ctx,
// if any.
func Until(ctx context.Context, fn RequestFunc, opts ...Option) ([]Record, error) {
	s := settings{
		predicate: Is200,
		resolver:  AutoBody,
		timeout:   DefaultTimeout,
		interval:  DefaultInterval,
	}
	for _, opt := range opts {
		opt(&s)
	}

	pollCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	logger := zerolog.Ctx(ctx)
	var records []Record

	for i := 0; ; i++ {
		if pollCtx.Err() != nil {
			return records, timeoutErr(ctx, records)
		}

		r, ok := call(pollCtx, fn)
		e, err := r.e, r.err
		if !ok || err != nil && pollCtx.Err() != nil {
			return records, timeoutErr(ctx, records)
		}

		if e != nil && e.Response != nil {
			rec, resolveErr := newRecord(e, s.resolver)
			records = append(records, rec)
			if err == nil {
				err = resolveErr
			}
		} else if err == nil {
			err = errNoExecution
		}
		if err != nil {
			logger.Warn().Err(err).Int("iteration", i).Msg("poll request failed")
			return records, err
		}

		done := s.predicate(e)
		logger.Debug().
			Int("iteration", i).
			Int("status", e.StatusCode()).
			Bool("done", done).
			Msg("poll response")
		if done {
			return records, nil
		}

		if !sleep(pollCtx, s.interval) {
			return records, timeoutErr(ctx, records)
		}
	}
}

type result struct {
	e     *request.Execution
	err   error
	panic interface{}
}

// call runs fn on its own goroutine and waits for it or for ctx to end,
// whichever is first. ok is false if ctx ended first. A panic in fn is
// raised again on the calling goroutine.
func call(ctx context.Context, fn RequestFunc) (result, bool) {
	ch := make(chan result, 1)
	go func() {
		var r result
		defer func() {
			r.panic = recover()
			ch <- r
		}()
		r.e, r.err = fn(ctx)
	}()
	select {
	case r := <-ch:
		if r.panic != nil {
			panic(r.panic)
		}
		return r, true
	case <-ctx.Done():
		return result{}, false
	}
}

// timeoutErr reports the end of the poll context: the parent's error if
// the caller gave up, otherwise a TimeoutError.
func timeoutErr(parent context.Context, records []Record) error {
	if err := parent.Err(); err != nil {
		return err
	}
	return &TimeoutError{Records: records}
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
