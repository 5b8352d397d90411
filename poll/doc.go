// Copyright 2021 The apitest Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package poll repeats an HTTP request until its response satisfies a
predicate, for APIs whose changes take a while to become visible.

	records, err := poll.Until(ctx,
		poll.Request(client, http.MethodGet, "/orders/42"),
		poll.WithPredicate(poll.JSONField("state", "shipped")),
		poll.WithTimeout(30*time.Second))

Every response received is kept, in order, as a Record. If the poll runs
out of time, the error is a *TimeoutError carrying the same history and
describing the last response, which is usually the most useful thing to
see when a test fails.

Predicates and body resolvers are plain functions; the ones provided
here cover status codes, headers, JSON fields and the common body
formats.
*/
package poll
