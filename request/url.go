// Copyright 2021 The apitest Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import "strings"

// ResolveURL turns a path into a full URL against base.
//
// A path that already carries a scheme followed by "://"
// ("https://host/x") is returned unchanged. Scheme-only forms without
// an authority, such as "mailto:x", are not recognized and are joined
// onto base like any other path. Otherwise base and path are joined with exactly one "/"
// between them; nothing is encoded or normalized beyond that. An
// empty base returns path as is.
//
//	ResolveURL("http://base", "y")   // "http://base/y"
//	ResolveURL("http://base/", "/y") // "http://base/y"
//	ResolveURL("http://base", "http://other/z") // "http://other/z"
func ResolveURL(base, path string) string {
	if hasScheme(path) || base == "" {
		return path
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
}

// hasScheme reports whether s starts with an RFC 3986 scheme followed
// by "://".
func hasScheme(s string) bool {
	i := strings.Index(s, "://")
	if i < 1 {
		return false
	}
	for j, c := range s[:i] {
		switch {
		case 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z':
		case j > 0 && ('0' <= c && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return true
}
