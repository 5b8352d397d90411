// Copyright 2021 The apitest Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package transient sorts the errors produced while sending a request
// into "might succeed if tried again" and "will not". Retry deciders
// and the client's log handler use the category to describe failures.
//
// The package only depends on the standard library, so policies
// written outside this module can import it cheaply.
package transient
