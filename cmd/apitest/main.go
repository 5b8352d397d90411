// Copyright 2021 The apitest Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Command apitest sends requests to, and polls, an API under test from
// the shell, using the same session configuration as the Go tests.
//
// Usage:
//
//	apitest request GET /orders/42 --retry
//	apitest poll /orders/42 --status 200 --poll-timeout 30s
//	apitest version
package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/apitestutils/apitest"
	"github.com/apitestutils/apitest/config"
)

// Set at build time with -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// globals holds the flags shared by every subcommand.
type globals struct {
	configFile string
	envFiles   []string
	baseURI    string
	headers    []string
	retries    int
	timeout    string
	logLevel   string

	session config.Session
	logger  zerolog.Logger
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:   "apitest",
		Short: "Send and poll requests against an API under test",
		Long: `apitest issues HTTP requests against an API under test, retrying
429, 409 and 503 responses and polling until a condition holds.

The session is read from environment variables (API_BASE_URI, or
API_BASE_DOMAIN with APIGEE_ENVIRONMENT and SERVICE_BASE_PATH), after
loading any .env file, or from a YAML file given with --config.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.load(stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVarP(&g.configFile, "config", "c", "", "path to a YAML session file")
	flags.StringSliceVar(&g.envFiles, "env-file", nil, "dotenv files to load (default .env)")
	flags.StringVar(&g.baseURI, "base", "", "base URI, overriding the session")
	flags.StringArrayVarP(&g.headers, "header", "H", nil, `extra request header as "Key: Value" (repeatable)`)
	flags.IntVar(&g.retries, "retries", 0, "attempt limit for retried requests, overriding the session")
	flags.StringVar(&g.timeout, "timeout", "", "per-attempt timeout, overriding the session")
	flags.StringVar(&g.logLevel, "log-level", "warn", "log level (trace, debug, info, warn, error)")

	root.AddCommand(newVersionCmd(), newRequestCmd(g), newPollCmd(g))
	return root
}

func (g *globals) load(stderr io.Writer) error {
	level, err := zerolog.ParseLevel(g.logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	g.logger = zerolog.New(zerolog.ConsoleWriter{Out: stderr}).
		Level(level).
		With().
		Timestamp().
		Logger()

	if err = config.LoadDotEnv(g.envFiles...); err != nil {
		return err
	}
	if g.configFile != "" {
		g.session, err = config.Load(g.configFile)
	} else {
		g.session, err = config.FromEnv()
	}
	if err != nil {
		return fmt.Errorf("invalid session: %w", err)
	}

	if g.baseURI != "" {
		g.session = g.session.WithBaseURI(g.baseURI)
	}
	for _, h := range g.headers {
		k, v, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(k) == "" {
			return fmt.Errorf("invalid header %q: want \"Key: Value\"", h)
		}
		g.session = g.session.WithHeader(strings.TrimSpace(k), strings.TrimSpace(v))
	}
	if g.retries > 0 {
		g.session.MaxRetries = g.retries
	}
	if g.timeout != "" {
		d, err := time.ParseDuration(g.timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout: %w", err)
		}
		g.session.RequestTimeout = config.Duration(d)
	}
	if err = g.session.Validate(); err != nil {
		return fmt.Errorf("invalid session: %w", err)
	}

	g.logger.Debug().
		Str("base_uri", g.session.BaseURI).
		Str("environment", g.session.Environment).
		Str("commit_id", g.session.CommitID).
		Msg("session loaded")
	return nil
}

// client returns a client for the session with logging and correlation
// IDs installed.
func (g *globals) client() *apitest.Client {
	c := apitest.NewClientFromSession(g.session)
	c.Handlers = &apitest.HandlerGroup{}
	c.Handlers.Correlate(apitest.CorrelationHeader)
	c.Handlers.Log(g.logger)
	return c
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// Printing the version needs no session.
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "apitest %s\n", version)
			fmt.Fprintf(out, "  commit: %s\n", commit)
			fmt.Fprintf(out, "  built:  %s\n", date)
		},
	}
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}
