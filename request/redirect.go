// Copyright 2021 The apitest Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import "context"

type noRedirectsKey struct{}

func withRedirects(ctx context.Context, follow bool) context.Context {
	if follow {
		return ctx
	}
	return context.WithValue(ctx, noRedirectsKey{}, true)
}

// FollowsRedirects reports whether a request carrying ctx should have
// its redirects followed. It returns false only for contexts derived
// from an attempt of a plan whose FollowRedirects field is false.
//
// HTTP clients use it from their CheckRedirect function:
//
//	CheckRedirect: func(req *http.Request, via []*http.Request) error {
//		if !request.FollowsRedirects(req.Context()) {
//			return http.ErrUseLastResponse
//		}
//		return nil
//	}
func FollowsRedirects(ctx context.Context) bool {
	v, _ := ctx.Value(noRedirectsKey{}).(bool)
	return !v
}
