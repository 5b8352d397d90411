// Copyright 2021 The apitest Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/apitestutils/apitest"
	"github.com/apitestutils/apitest/request"
)

type requestFlags struct {
	data        string
	contentType string
	retry       bool
	noRedirects bool
	expect      []int
}

func newRequestCmd(g *globals) *cobra.Command {
	f := &requestFlags{}
	cmd := &cobra.Command{
		Use:   "request METHOD PATH",
		Short: "Send one request and print the response",
		Long: `Send one request and print the status, headers and body of the
response. PATH is resolved against the session's base URI unless it is
an absolute URL.

With --retry, 429, 409 and 503 responses are retried with exponential
backoff up to the attempt limit (--retries, default 5).

Exit codes:
  0 - A response was received (and matched --expect, if given)
  1 - The request failed, retries ran out or the status was unexpected

Example:
  apitest request GET /orders/42
  apitest request POST /orders --data '{"sku":"a1"}' --retry --expect 201`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd, g, f, args[0], args[1])
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.data, "data", "d", "", "request body")
	flags.StringVar(&f.contentType, "content-type", "application/json", "Content-Type of --data")
	flags.BoolVar(&f.retry, "retry", false, "retry 429, 409 and 503 responses")
	flags.BoolVar(&f.noRedirects, "no-redirects", false, "return redirect responses instead of following them")
	flags.IntSliceVar(&f.expect, "expect", nil, "fail unless the status is one of these codes")
	return cmd
}

func runRequest(cmd *cobra.Command, g *globals, f *requestFlags, method, path string) error {
	opts := []request.Option{
		request.WithRetries(f.retry),
		request.WithRedirects(!f.noRedirects),
	}
	if f.data != "" {
		opts = append(opts, request.WithBody(f.contentType, f.data))
	}

	c := g.client()
	defer c.CloseIdleConnections()

	e, err := c.Send(cmd.Context(), strings.ToUpper(method), path, opts...)
	if e != nil && e.Response != nil {
		printExecution(cmd.OutOrStdout(), e)
	}
	if err != nil {
		return err
	}
	if len(f.expect) > 0 {
		return apitest.ExpectStatus(e, f.expect...)
	}
	return nil
}

func printExecution(w io.Writer, e *request.Execution) {
	fmt.Fprintf(w, "%s %s\n", e.Response.Proto, e.Response.Status)
	printHeader(w, e.Header())
	fmt.Fprintln(w)
	if len(e.Body) > 0 {
		fmt.Fprintln(w, string(e.Body))
	}
}

func printHeader(w io.Writer, h http.Header) {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range h[k] {
			fmt.Fprintf(w, "%s: %s\n", k, v)
		}
	}
}
