// Copyright 2021 The apitest Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package apitest

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var plainContent = strings.Repeat("the quick brown fox jumps over the lazy dog. ", 20)

func compress(t *testing.T, newWriter func(io.Writer) io.WriteCloser) []byte {
	var buf bytes.Buffer
	w := newWriter(&buf)
	_, err := io.WriteString(w, plainContent)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestDecodeContent(t *testing.T) {
	gzipped := compress(t, func(w io.Writer) io.WriteCloser { return gzip.NewWriter(w) })
	zlibbed := compress(t, func(w io.Writer) io.WriteCloser { return zlib.NewWriter(w) })
	deflated := compress(t, func(w io.Writer) io.WriteCloser {
		fw, _ := flate.NewWriter(w, flate.DefaultCompression)
		return fw
	})
	brotlied := compress(t, func(w io.Writer) io.WriteCloser { return brotli.NewWriter(w) })

	testCases := []struct {
		name     string
		encoding string
		raw      []byte
	}{
		{"gzip", "gzip", gzipped},
		{"x-gzip", "x-gzip", gzipped},
		{"deflate zlib", "deflate", zlibbed},
		{"deflate raw", "deflate", deflated},
		{"br", "br", brotlied},
		{"br upper case", " BR ", brotlied},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			resp := &http.Response{
				Header: http.Header{
					"Content-Encoding": {testCase.encoding},
					"Content-Length":   {"123"},
				},
				ContentLength: 123,
			}

			b, err := decodeContent(resp, testCase.raw)

			require.NoError(t, err)
			assert.Equal(t, plainContent, string(b))
			assert.Empty(t, resp.Header.Get("Content-Encoding"))
			assert.Empty(t, resp.Header.Get("Content-Length"))
			assert.Equal(t, int64(-1), resp.ContentLength)
			assert.True(t, resp.Uncompressed)
		})
	}

	t.Run("identity", func(t *testing.T) {
		resp := &http.Response{Header: http.Header{"Content-Encoding": {"identity"}}}
		b, err := decodeContent(resp, []byte("plain"))
		require.NoError(t, err)
		assert.Equal(t, []byte("plain"), b)
		assert.Equal(t, "identity", resp.Header.Get("Content-Encoding"))
	})
	t.Run("already uncompressed", func(t *testing.T) {
		resp := &http.Response{Header: http.Header{"Content-Encoding": {"gzip"}}, Uncompressed: true}
		b, err := decodeContent(resp, []byte("plain"))
		require.NoError(t, err)
		assert.Equal(t, []byte("plain"), b)
	})
	t.Run("empty", func(t *testing.T) {
		resp := &http.Response{Header: http.Header{"Content-Encoding": {"br"}}}
		b, err := decodeContent(resp, []byte{})
		require.NoError(t, err)
		assert.Equal(t, []byte{}, b)
	})
	t.Run("corrupt", func(t *testing.T) {
		resp := &http.Response{Header: http.Header{"Content-Encoding": {"gzip"}}}
		b, err := decodeContent(resp, gzipped[:len(gzipped)/2])
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decoding gzip body")
		assert.Equal(t, gzipped[:len(gzipped)/2], b)
		assert.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))
	})
}
