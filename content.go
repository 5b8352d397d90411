// Copyright 2021 The apitest Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package apitest

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

// decodeContent undoes the Content-Encoding of a response body the
// transport left encoded. Unknown encodings are returned untouched. On
// success the encoding headers are removed, as net/http does for the
// gzip bodies it decodes itself.
func decodeContent(resp *http.Response, raw []byte) ([]byte, error) {
	if resp.Uncompressed || len(raw) == 0 {
		return raw, nil
	}

	enc := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	var r io.Reader
	switch enc {
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return raw, fmt.Errorf("decoding %s body: %w", enc, err)
		}
		r = zr
	case "deflate":
		// RFC 9110 deflate is zlib-wrapped, but some servers send raw DEFLATE.
		if zr, err := zlib.NewReader(bytes.NewReader(raw)); err == nil {
			r = zr
		} else {
			r = flate.NewReader(bytes.NewReader(raw))
		}
	case "br":
		r = brotli.NewReader(bytes.NewReader(raw))
	default:
		return raw, nil
	}

	b, err := io.ReadAll(r)
	if err != nil {
		return raw, fmt.Errorf("decoding %s body: %w", enc, err)
	}
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return b, nil
}
