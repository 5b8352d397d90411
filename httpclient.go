// Copyright 2021 The apitest Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package apitest

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/apitestutils/apitest/request"
)

// MaxRedirects is the number of redirects CheckRedirect follows before
// giving up.
const MaxRedirects = 10

// NewHTTPClient returns an http.Client suitable as a Client's HTTPDoer.
//
// It pools connections, keeps cookies in a jar that respects the public
// suffix list, and uses CheckRedirect so that per-plan redirect
// settings are honored and redirect history is recorded.
func NewHTTPClient() *http.Client {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		panic(fmt.Sprintf("apitest: cookie jar: %v", err))
	}
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
		Jar:           jar,
		CheckRedirect: CheckRedirect,
	}
}

// CheckRedirect is an http.Client CheckRedirect function. It stops at
// the first redirect for plans with FollowRedirects unset, follows at
// most MaxRedirects redirects otherwise, and appends every URL it
// follows to the Redirects of the execution making the request.
func CheckRedirect(req *http.Request, via []*http.Request) error {
	ctx := req.Context()
	if !request.FollowsRedirects(ctx) {
		return http.ErrUseLastResponse
	}
	if len(via) >= MaxRedirects {
		return fmt.Errorf("stopped after %d redirects", MaxRedirects)
	}
	if e, ok := ctx.Value(executionKey{}).(*request.Execution); ok {
		e.Redirects = append(e.Redirects, req.URL)
	}
	return nil
}

type executionKey struct{}

func withExecution(ctx context.Context, e *request.Execution) context.Context {
	return context.WithValue(ctx, executionKey{}, e)
}
