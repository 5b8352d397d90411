// Copyright 2021 The apitest Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package apitest is an HTTP client for testing deployed APIs. It issues
requests against a base URI, retries transient refusals when asked to,
and hands back fully-read responses that tests can assert on.

Create a Client for the API under test to begin making requests.

	client := apitest.NewClient("https://internal-dev.api.example.com/orders")
	ex, err := client.Get(ctx, "/status")
	...
	ex, err := client.Post(ctx, "/orders",
		request.WithJSON(order),
		request.WithRetries(true))
	...
	err = apitest.ExpectStatus(ex, http.StatusCreated)

Relative paths are joined to BaseURI; absolute URLs are used as they
are. Redirects are followed unless request.WithRedirects(false) is
given, and every followed hop is recorded in Execution.Redirects.

Retries are off by default. A call made with request.WithRetries(true)
is repeated while the response status is 429, 503 or 409, pausing
2^i-1 seconds after failed attempt i, for at most five attempts
(request.WithMaxRetries changes the limit). If the last permitted
attempt is still refused, the call fails with a *retry.ExhaustedError:

	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		...
	}

For control over the client's retry decisions and timing, build a
policy from package retry:

	client.RetryPolicy = retry.NewPolicy(
		retry.DefaultDecider.Or(retry.TransientErr),
		retry.NewExpWaiter(250*time.Millisecond, 5*time.Second, time.Now()))

For control over individual attempt timeouts, use package timeout:

	client.TimeoutPolicy = timeout.Fixed(10 * time.Second)

To hook into the client's execution logic, install handlers. Logging
and correlation IDs are provided this way:

	handlers := &apitest.HandlerGroup{}
	handlers.Log(zerolog.New(os.Stderr))
	handlers.Correlate(apitest.CorrelationHeader)
	client.Handlers = handlers

To wait for an eventually-consistent resource, see package poll.
*/
package apitest
