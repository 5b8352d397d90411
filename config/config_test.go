// Copyright 2021 The apitest Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		EnvBaseURI, EnvBaseDomain, EnvBasePath, EnvEnvironment, EnvCommitID,
		EnvRequestTimeout, EnvPollTimeout, EnvPollInterval, EnvMaxRetries,
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestFromEnv(t *testing.T) {
	testCases := []struct {
		name     string
		env      map[string]string
		expected Session
		err      string
	}{
		{
			name:     "empty",
			expected: Session{},
		},
		{
			name: "base URI wins",
			env: map[string]string{
				EnvBaseURI:     "http://localhost:8080/orders",
				EnvBaseDomain:  "api.example.com",
				EnvEnvironment: "test",
			},
			expected: Session{
				BaseURI:     "http://localhost:8080/orders",
				Environment: "test",
			},
		},
		{
			name: "domain only",
			env: map[string]string{
				EnvBaseDomain: "api.example.com",
			},
			expected: Session{
				BaseURI: "https://api.example.com",
			},
		},
		{
			name: "domain environment and path",
			env: map[string]string{
				EnvBaseDomain:  "api.example.com",
				EnvEnvironment: "internal-dev",
				EnvBasePath:    "orders",
				EnvCommitID:    "abc123",
			},
			expected: Session{
				BaseURI:     "https://internal-dev.api.example.com/orders",
				Environment: "internal-dev",
				CommitID:    "abc123",
			},
		},
		{
			name: "tuning",
			env: map[string]string{
				EnvRequestTimeout: "10s",
				EnvPollTimeout:    "2s",
				EnvPollInterval:   "250ms",
				EnvMaxRetries:     "3",
			},
			expected: Session{
				RequestTimeout: Duration(10 * time.Second),
				PollTimeout:    Duration(2 * time.Second),
				PollInterval:   Duration(250 * time.Millisecond),
				MaxRetries:     3,
			},
		},
		{
			name: "bad duration",
			env: map[string]string{
				EnvPollTimeout: "soon",
			},
			err: `POLL_TIMEOUT: invalid duration "soon"`,
		},
		{
			name: "bad max retries",
			env: map[string]string{
				EnvMaxRetries: "many",
			},
			err: "MAX_RETRIES",
		},
		{
			name: "relative base URI",
			env: map[string]string{
				EnvBaseURI: "/orders",
			},
			err: "must be absolute",
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range testCase.env {
				t.Setenv(k, v)
			}

			s, err := FromEnv()

			if testCase.err != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), testCase.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testCase.expected, s)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	t.Run("missing files skipped", func(t *testing.T) {
		assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
	})
	t.Run("loads without overriding", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(EnvCommitID, "from-process")
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte(
			"API_BASE_URI=http://localhost:9000\nSOURCE_COMMIT_ID=from-file\n"), 0o600))
		t.Cleanup(func() { _ = os.Unsetenv(EnvBaseURI) })

		require.NoError(t, LoadDotEnv(path))

		s, err := FromEnv()
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:9000", s.BaseURI)
		assert.Equal(t, "from-process", s.CommitID)
	})
	t.Run("malformed file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("FOO='unterminated\n"), 0o600))

		err := LoadDotEnv(path)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "loading .env")
	})
}

func TestParse(t *testing.T) {
	t.Run("full document", func(t *testing.T) {
		t.Setenv("TEST_APITEST_ENV", "staging")
		t.Setenv("TEST_APITEST_KEY", "s3cret")
		doc := `
base_uri: https://${TEST_APITEST_ENV}.api.example.com/orders
environment: ${TEST_APITEST_ENV}
commit_id: ${TEST_APITEST_UNSET:-unknown}
request_timeout: 10s
poll_timeout: 3s
poll_interval: 500ms
max_retries: 4
headers:
  apikey: ${TEST_APITEST_KEY}
`
		s, err := Parse([]byte(doc))

		require.NoError(t, err)
		assert.Equal(t, Session{
			BaseURI:        "https://staging.api.example.com/orders",
			Environment:    "staging",
			CommitID:       "unknown",
			RequestTimeout: Duration(10 * time.Second),
			PollTimeout:    Duration(3 * time.Second),
			PollInterval:   Duration(500 * time.Millisecond),
			MaxRetries:     4,
			Headers:        map[string]string{"apikey": "s3cret"},
		}, s)
	})
	t.Run("unset variable", func(t *testing.T) {
		_, err := Parse([]byte("environment: ${TEST_APITEST_DEFINITELY_UNSET}\n"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), `environment variable "TEST_APITEST_DEFINITELY_UNSET" is not set`)
	})
	t.Run("bad duration", func(t *testing.T) {
		_, err := Parse([]byte("poll_timeout: fast\n"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), `invalid duration "fast"`)
	})
	t.Run("negative retries", func(t *testing.T) {
		_, err := Parse([]byte("max_retries: -1\n"))

		assert.EqualError(t, err, "max_retries must not be negative")
	})
	t.Run("not yaml", func(t *testing.T) {
		_, err := Parse([]byte("base_uri: [unclosed\n"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "parsing config")
	})
}

func TestLoad(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "reading config file")
	})
	t.Run("present", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.yaml")
		require.NoError(t, os.WriteFile(path, []byte("base_uri: http://127.0.0.1:8080\n"), 0o600))

		s, err := Load(path)

		require.NoError(t, err)
		assert.Equal(t, "http://127.0.0.1:8080", s.BaseURI)
	})
}

func TestSession_With(t *testing.T) {
	base := Session{
		BaseURI:     "https://a.example.com",
		Environment: "dev",
		Headers:     map[string]string{"apikey": "k"},
	}

	s := base.WithBaseURI("https://b.example.com").
		WithEnvironment("prod").
		WithCommitID("deadbeef").
		WithHeader("x-tenant", "t1")

	assert.Equal(t, "https://b.example.com", s.BaseURI)
	assert.Equal(t, "prod", s.Environment)
	assert.Equal(t, "deadbeef", s.CommitID)
	assert.Equal(t, map[string]string{"apikey": "k", "x-tenant": "t1"}, s.Headers)
	assert.Equal(t, Session{
		BaseURI:     "https://a.example.com",
		Environment: "dev",
		Headers:     map[string]string{"apikey": "k"},
	}, base)
	assert.Equal(t, map[string]string{"h": "v"}, Session{}.WithHeader("h", "v").Headers)
}

func TestDuration_MarshalYAML(t *testing.T) {
	v, err := Duration(1500 * time.Millisecond).MarshalYAML()

	require.NoError(t, err)
	assert.Equal(t, "1.5s", v)
	assert.Equal(t, 1500*time.Millisecond, Duration(1500*time.Millisecond).Duration())
}
