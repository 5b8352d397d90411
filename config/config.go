// Copyright 2021 The apitest Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package config describes the API under test: where it lives, which
// environment it is, which build is deployed, and how patient tests
// should be with it.
//
// A Session can be read from environment variables (optionally seeded
// from .env files) or from a YAML file:
//
//	base_uri: https://${APIGEE_ENVIRONMENT:-internal-dev}.api.example.com/orders
//	environment: ${APIGEE_ENVIRONMENT:-internal-dev}
//	commit_id: ${SOURCE_COMMIT_ID:-}
//	request_timeout: 30s
//	poll_timeout: 5s
//	poll_interval: 1s
//	max_retries: 5
//	headers:
//	  apikey: ${API_KEY}
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables read by FromEnv.
const (
	EnvBaseURI        = "API_BASE_URI"
	EnvBaseDomain     = "API_BASE_DOMAIN"
	EnvBasePath       = "SERVICE_BASE_PATH"
	EnvEnvironment    = "APIGEE_ENVIRONMENT"
	EnvCommitID       = "SOURCE_COMMIT_ID"
	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvPollTimeout    = "POLL_TIMEOUT"
	EnvPollInterval   = "POLL_INTERVAL"
	EnvMaxRetries     = "MAX_RETRIES"
)

// Session is the configuration of one test session. It is a value
// type; the With methods return modified copies and leave the
// receiver alone.
type Session struct {
	// BaseURI is the endpoint relative paths are resolved against.
	BaseURI string `yaml:"base_uri"`

	// Environment names the deployment under test, e.g. "internal-dev".
	Environment string `yaml:"environment"`

	// CommitID identifies the deployed build, when known.
	CommitID string `yaml:"commit_id"`

	// RequestTimeout bounds each request attempt. Zero means the
	// client default.
	RequestTimeout Duration `yaml:"request_timeout"`

	// PollTimeout bounds each poll. Zero means the poll default.
	PollTimeout Duration `yaml:"poll_timeout"`

	// PollInterval is the pause between poll requests. Zero means the
	// poll default.
	PollInterval Duration `yaml:"poll_interval"`

	// MaxRetries is the attempt limit for requests that allow retries.
	// Zero means the request default.
	MaxRetries int `yaml:"max_retries"`

	// Headers are sent with every request.
	Headers map[string]string `yaml:"headers"`
}

// WithBaseURI returns a copy of s with BaseURI replaced.
func (s Session) WithBaseURI(uri string) Session {
	s.Headers = cloneHeaders(s.Headers)
	s.BaseURI = uri
	return s
}

// WithEnvironment returns a copy of s with Environment replaced.
func (s Session) WithEnvironment(env string) Session {
	s.Headers = cloneHeaders(s.Headers)
	s.Environment = env
	return s
}

// WithCommitID returns a copy of s with CommitID replaced.
func (s Session) WithCommitID(id string) Session {
	s.Headers = cloneHeaders(s.Headers)
	s.CommitID = id
	return s
}

// WithHeader returns a copy of s which also sends the given header.
func (s Session) WithHeader(key, value string) Session {
	s.Headers = cloneHeaders(s.Headers)
	if s.Headers == nil {
		s.Headers = make(map[string]string, 1)
	}
	s.Headers[key] = value
	return s
}

func cloneHeaders(h map[string]string) map[string]string {
	if h == nil {
		return nil
	}
	c := make(map[string]string, len(h))
	for k, v := range h {
		c[k] = v
	}
	return c
}

// Validate checks that the session is usable.
func (s Session) Validate() error {
	if s.BaseURI != "" {
		u, err := url.Parse(s.BaseURI)
		if err != nil {
			return fmt.Errorf("base_uri: %w", err)
		}
		if u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("base_uri %q must be absolute (http:// or https://)", s.BaseURI)
		}
	}
	if s.RequestTimeout < 0 {
		return errors.New("request_timeout must not be negative")
	}
	if s.PollTimeout < 0 {
		return errors.New("poll_timeout must not be negative")
	}
	if s.PollInterval < 0 {
		return errors.New("poll_interval must not be negative")
	}
	if s.MaxRetries < 0 {
		return errors.New("max_retries must not be negative")
	}
	return nil
}

// FromEnv builds a Session from environment variables.
//
// The base URI is API_BASE_URI if set. Otherwise, if API_BASE_DOMAIN
// is set, it is https://[APIGEE_ENVIRONMENT.]API_BASE_DOMAIN[/SERVICE_BASE_PATH].
func FromEnv() (Session, error) {
	s := Session{
		BaseURI:     os.Getenv(EnvBaseURI),
		Environment: os.Getenv(EnvEnvironment),
		CommitID:    os.Getenv(EnvCommitID),
	}
	if s.BaseURI == "" {
		s.BaseURI = baseURIFromParts(os.Getenv(EnvBaseDomain), s.Environment, os.Getenv(EnvBasePath))
	}

	var err error
	if s.RequestTimeout, err = envDuration(EnvRequestTimeout); err != nil {
		return Session{}, err
	}
	if s.PollTimeout, err = envDuration(EnvPollTimeout); err != nil {
		return Session{}, err
	}
	if s.PollInterval, err = envDuration(EnvPollInterval); err != nil {
		return Session{}, err
	}
	if v := os.Getenv(EnvMaxRetries); v != "" {
		if s.MaxRetries, err = strconv.Atoi(v); err != nil {
			return Session{}, fmt.Errorf("%s: %w", EnvMaxRetries, err)
		}
	}

	if err = s.Validate(); err != nil {
		return Session{}, err
	}
	return s, nil
}

func baseURIFromParts(domain, env, path string) string {
	if domain == "" {
		return ""
	}
	host := domain
	if env != "" {
		host = env + "." + domain
	}
	uri := "https://" + host
	if path != "" {
		uri += "/" + path
	}
	return uri
}

func envDuration(key string) (Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, v, err)
	}
	return Duration(d), nil
}

// LoadDotEnv loads variables from the given .env files into the
// process environment, without overriding variables that are already
// set. Files that do not exist are skipped, so the same test code runs
// locally and in CI where the variables come from elsewhere. With no
// paths, ".env" in the working directory is tried.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

// Load reads and parses a YAML session file.
func Load(path string) (Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Session{}, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse parses a YAML session document, expanding ${VAR} and
// ${VAR:-default} references in string values, and validates it.
func Parse(data []byte) (Session, error) {
	var s Session
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("parsing config: %w", err)
	}

	var err error
	if s.BaseURI, err = expandEnvVars(s.BaseURI); err != nil {
		return Session{}, fmt.Errorf("base_uri: %w", err)
	}
	if s.Environment, err = expandEnvVars(s.Environment); err != nil {
		return Session{}, fmt.Errorf("environment: %w", err)
	}
	if s.CommitID, err = expandEnvVars(s.CommitID); err != nil {
		return Session{}, fmt.Errorf("commit_id: %w", err)
	}
	for k, v := range s.Headers {
		if s.Headers[k], err = expandEnvVars(v); err != nil {
			return Session{}, fmt.Errorf("headers[%s]: %w", k, err)
		}
	}

	if err = s.Validate(); err != nil {
		return Session{}, err
	}
	return s, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default}.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment
// values. An unset variable without a default is an error.
func expandEnvVars(s string) (string, error) {
	var firstErr error
	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}
		m := envVarPattern.FindStringSubmatch(match)
		if value, ok := os.LookupEnv(m[1]); ok {
			return value
		}
		if m[2] != "" {
			return m[3]
		}
		firstErr = fmt.Errorf("environment variable %q is not set", m[1])
		return match
	})
	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Duration wraps time.Duration for YAML unmarshalling from strings
// such as "500ms" or "5s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
