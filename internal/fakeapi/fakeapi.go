// Copyright 2021 The apitest Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package fakeapi is a scriptable in-process HTTP service for testing
// clients against. Each path is given a sequence of responses which
// are served in order, the last one repeating forever.
package fakeapi

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// A Chunk is part of a response body. The server pauses for Pause
// while writing Data, spread evenly over its bytes.
type Chunk struct {
	Pause time.Duration
	Data  []byte
}

// A Response tells the server how to answer one request.
type Response struct {
	// HeaderPause delays the status line and headers.
	HeaderPause time.Duration

	// StatusCode is the response status. Zero means 200.
	StatusCode int

	// Header is added to the response header.
	Header http.Header

	// Body is written after the headers, chunk by chunk.
	Body []Chunk

	// Encoding, if set, compresses the body with "gzip", "deflate" or
	// "br" and declares it in Content-Encoding. Chunk pauses are
	// ignored for encoded bodies.
	Encoding string
}

// Status returns a response with the given status and no body.
func Status(code int) Response {
	return Response{StatusCode: code}
}

// Text returns a text/plain response.
func Text(code int, body string) Response {
	return Response{
		StatusCode: code,
		Header:     http.Header{"Content-Type": {"text/plain; charset=utf-8"}},
		Body:       []Chunk{{Data: []byte(body)}},
	}
}

// JSON returns an application/json response with body written as is.
func JSON(code int, body string) Response {
	return Response{
		StatusCode: code,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       []Chunk{{Data: []byte(body)}},
	}
}

// Redirect returns a 302 response pointing at location.
func Redirect(location string) Response {
	return Response{
		StatusCode: http.StatusFound,
		Header:     http.Header{"Location": {location}},
	}
}

// A Request is what the server saw of one request.
type Request struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
	Time   time.Time
}

// A Server is a fake API. Unscripted paths answer 404.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	scripts  map[string][]Response
	requests map[string][]Request
}

// New starts a plain HTTP server.
func New() *Server {
	s := newServer()
	s.Start()
	return s
}

// NewTLS starts an HTTPS server, with HTTP/2 enabled if http2 is true.
// Use the embedded server's Client to talk to it.
func NewTLS(http2 bool) *Server {
	s := newServer()
	s.EnableHTTP2 = http2
	s.StartTLS()
	return s
}

func newServer() *Server {
	s := &Server{
		scripts:  make(map[string][]Response),
		requests: make(map[string][]Request),
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.HandleFunc("/*", s.serve)
	s.Server = httptest.NewUnstartedServer(r)
	return s
}

// Script sets the responses for path, replacing any previous script.
func (s *Server) Script(path string, responses ...Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[path] = append([]Response(nil), responses...)
}

// Requests returns the requests received for path, oldest first.
func (s *Server) Requests(path string) []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests[path]...)
}

// Reset forgets all scripts and received requests.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts = make(map[string][]Response)
	s.requests = make(map[string][]Request)
}

// URL returns the absolute URL of path on the server.
func (s *Server) URL(path string) string {
	return s.Server.URL + path
}

func (s *Server) next(req *http.Request, body []byte) (Response, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := req.URL.Path
	s.requests[path] = append(s.requests[path], Request{
		Method: req.Method,
		Path:   path,
		Query:  req.URL.RawQuery,
		Header: req.Header.Clone(),
		Body:   body,
		Time:   time.Now(),
	})
	script := s.scripts[path]
	if len(script) == 0 {
		return Response{}, false
	}
	r := script[0]
	if len(script) > 1 {
		s.scripts[path] = script[1:]
	}
	return r, true
}

func (s *Server) serve(w http.ResponseWriter, req *http.Request) {
	body, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, fmt.Sprintf("failed to read request: %s", err.Error()))
		return
	}

	r, ok := s.next(req, body)
	if !ok {
		http.NotFound(w, req)
		return
	}
	if r.StatusCode == 0 {
		r.StatusCode = http.StatusOK
	}

	f, ok := w.(http.Flusher)
	if !ok {
		panic("w does not implement Flusher")
	}

	header := w.Header()
	for k, vs := range r.Header {
		for _, v := range vs {
			header.Add(k, v)
		}
	}

	chunks := r.Body
	if r.Encoding != "" {
		encoded, err := encode(r.Encoding, chunks)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, err.Error())
			return
		}
		header.Set("Content-Encoding", r.Encoding)
		chunks = []Chunk{{Data: encoded}}
	}

	contentLength := 0
	for _, chunk := range chunks {
		contentLength += len(chunk.Data)
	}
	header.Set("Content-Length", strconv.Itoa(contentLength))

	time.Sleep(r.HeaderPause)

	w.WriteHeader(r.StatusCode)
	f.Flush()

	for _, chunk := range chunks {
		if err := writeChunk(w, f, chunk); err != nil {
			return
		}
	}
}

// writeChunk writes the chunk one byte at a time, flushing and pausing
// after each byte.
func writeChunk(w io.Writer, f http.Flusher, chunk Chunk) error {
	if len(chunk.Data) == 0 {
		time.Sleep(chunk.Pause)
		return nil
	}
	if chunk.Pause == 0 {
		_, err := w.Write(chunk.Data)
		f.Flush()
		return err
	}

	pause := chunk.Pause
	ppb := chunk.Pause / time.Duration(len(chunk.Data))
	for i := range chunk.Data {
		if _, err := w.Write(chunk.Data[i : i+1]); err != nil {
			return err
		}
		f.Flush()
		time.Sleep(ppb)
		pause -= ppb
	}
	if pause > 0 {
		time.Sleep(pause)
	}
	return nil
}

func encode(encoding string, chunks []Chunk) ([]byte, error) {
	var buf bytes.Buffer
	var w io.WriteCloser
	switch encoding {
	case "gzip":
		w = gzip.NewWriter(&buf)
	case "deflate":
		w = zlib.NewWriter(&buf)
	case "br":
		w = brotli.NewWriter(&buf)
	default:
		return nil, fmt.Errorf("fakeapi: unknown encoding %q", encoding)
	}
	for _, chunk := range chunks {
		if _, err := w.Write(chunk.Data); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
