// Copyright 2021 The apitest Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package request contains Plan, the description of one logical HTTP
request, and Execution, the state of a Plan while a client runs it.

A Plan is built from a method, a URL and a list of options:

	p, err := request.NewPlanWithContext(ctx, "POST", request.ResolveURL(base, "/apps"),
		request.WithJSON(app),
		request.WithHeader("X-Correlation-ID", id),
		request.WithRetries(true),
	)
	...
	e, err := client.Do(p)

Plans follow redirects and make a single attempt unless told otherwise.
With WithRetries(true) a client makes up to MaxRetries attempts in total
(DefaultMaxRetries unless changed with WithMaxRetries).

The plan context bounds the whole execution. Each attempt gets its own,
shorter deadline from the client's timeout policy.

An Execution is both what a client returns and what it hands to
timeout policies, retry policies and event handlers while it works.
You rarely create one yourself.
*/
package request
