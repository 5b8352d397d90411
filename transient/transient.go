// Copyright 2021 The apitest Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transient

import (
	"errors"
	"syscall"
)

// A Category is the transience category reported by Categorize.
//
// Not means that sending the same request again is unlikely to have a
// different outcome. Every other category means a later attempt has a
// reasonable prospect of success.
type Category int

const (
	// Not indicates a nil error or a permanent one.
	Not Category = iota
	// Timeout indicates a client-side timeout: the error, or one of
	// the errors it wraps, has a Timeout method reporting true. Retry
	// exhaustion and poll timeouts are reported in this category too.
	Timeout
	// ConnRefused indicates the remote host refused the connection
	// (syscall.ECONNREFUSED). A service which is still starting up
	// produces this error, hence it is treated as transient.
	ConnRefused
	// ConnReset indicates the remote host reset an established
	// connection (syscall.ECONNRESET), typically because a load
	// balancer or a restarting service dropped it mid-response.
	ConnReset
)

var categoryNames = [...]string{
	Not:         "not",
	Timeout:     "timeout",
	ConnRefused: "conn-refused",
	ConnReset:   "conn-reset",
}

// String returns a short lower-case name for the category, suitable
// for use as a structured log field value.
func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return "unknown"
	}
	return categoryNames[c]
}

// Categorize returns the transience category of err, looking through
// any wrapped causes.
//
// A Timeout method on any error in the chain wins over the errno
// checks. Temporary methods are ignored since their meaning has never
// been well defined.
func Categorize(err error) Category {
	if err == nil {
		return Not
	}

	var t timeouter
	if errors.As(err, &t) && t.Timeout() {
		return Timeout
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNRESET:
			return ConnReset
		case syscall.ECONNREFUSED:
			return ConnRefused
		}
	}

	return Not
}

type timeouter interface {
	Timeout() bool
}
