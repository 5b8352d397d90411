// Copyright 2021 The apitest Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/apitestutils/apitest/poll"
	"github.com/apitestutils/apitest/request"
)

type pollFlags struct {
	method    string
	status    []int
	jsonField []string
	timeout   time.Duration
	interval  time.Duration
	retry     bool
}

func newPollCmd(g *globals) *cobra.Command {
	f := &pollFlags{}
	cmd := &cobra.Command{
		Use:   "poll PATH",
		Short: "Repeat a request until the response satisfies a condition",
		Long: `Repeat a request until the response has one of the --status codes
and every --json-field condition holds, printing each response received.

Exit codes:
  0 - The condition was satisfied
  1 - The poll timed out or a request failed

Example:
  apitest poll /orders/42 --json-field state=done --poll-timeout 30s
  apitest poll /orders/42 --method DELETE --status 404`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPoll(cmd, g, f, args[0])
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.method, "method", "X", "GET", "request method")
	flags.IntSliceVar(&f.status, "status", []int{200}, "status codes that end the poll")
	flags.StringArrayVar(&f.jsonField, "json-field", nil, `required JSON body value as "path=value" (repeatable)`)
	flags.DurationVar(&f.timeout, "poll-timeout", 0, "overall poll timeout (default from session, else 5s)")
	flags.DurationVar(&f.interval, "interval", 0, "pause between requests (default from session, else 1s)")
	flags.BoolVar(&f.retry, "retry", false, "retry 429, 409 and 503 responses within each request")
	return cmd
}

func runPoll(cmd *cobra.Command, g *globals, f *pollFlags, path string) error {
	predicate := poll.StatusCode(f.status...)
	for _, field := range f.jsonField {
		p, err := jsonFieldPredicate(field)
		if err != nil {
			return err
		}
		predicate = predicate.And(p)
	}

	opts := poll.SessionOptions(g.session)
	opts = append(opts,
		poll.WithPredicate(predicate),
		poll.WithBodyResolver(poll.TextBody))
	if f.timeout > 0 {
		opts = append(opts, poll.WithTimeout(f.timeout))
	}
	if f.interval > 0 {
		opts = append(opts, poll.WithInterval(f.interval))
	}

	c := g.client()
	defer c.CloseIdleConnections()

	ctx := g.logger.WithContext(cmd.Context())
	fn := poll.Request(c, strings.ToUpper(f.method), path, request.WithRetries(f.retry))
	records, err := poll.Until(ctx, fn, opts...)
	printRecords(cmd.OutOrStdout(), records)
	return err
}

// jsonFieldPredicate parses "path=value". The value is read as JSON
// when it parses as JSON and as a plain string otherwise.
func jsonFieldPredicate(field string) (poll.Predicate, error) {
	path, raw, ok := strings.Cut(field, "=")
	if !ok || path == "" {
		return nil, fmt.Errorf("invalid --json-field %q: want \"path=value\"", field)
	}
	var want interface{}
	if err := json.Unmarshal([]byte(raw), &want); err != nil {
		want = raw
	}
	return poll.JSONField(path, want), nil
}

func printRecords(w io.Writer, records []poll.Record) {
	for i, r := range records {
		fmt.Fprintf(w, "#%d %d", i+1, r.StatusCode)
		if s, _ := r.Body.(string); s != "" {
			fmt.Fprintf(w, " %s", s)
		}
		fmt.Fprintln(w)
	}
}
