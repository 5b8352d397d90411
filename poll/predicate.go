// Copyright 2021 The apitest Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package poll

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"

	"github.com/apitestutils/apitest/request"
)

// A Predicate reports whether a response ends the poll. It is only
// called for executions that hold a response.
type Predicate func(e *request.Execution) bool

// Is200 is satisfied by a 200 OK response. It is the default predicate.
var Is200 = StatusCode(200)

// Is404 is satisfied by a 404 Not Found response, which is what a poll
// waiting for a deletion to take effect wants to see.
var Is404 = StatusCode(404)

// And returns a predicate satisfied when both p and q are. q is not
// evaluated when p is false.
func (p Predicate) And(q Predicate) Predicate {
	return func(e *request.Execution) bool {
		return p(e) && q(e)
	}
}

// Or returns a predicate satisfied when either p or q is. q is not
// evaluated when p is true.
func (p Predicate) Or(q Predicate) Predicate {
	return func(e *request.Execution) bool {
		return p(e) || q(e)
	}
}

// Not returns the negation of p.
func (p Predicate) Not() Predicate {
	return func(e *request.Execution) bool {
		return !p(e)
	}
}

// StatusCode returns a predicate satisfied by any of the given status
// codes.
func StatusCode(codes ...int) Predicate {
	set := make(map[int]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return func(e *request.Execution) bool {
		_, ok := set[e.StatusCode()]
		return ok
	}
}

// HeaderContains returns a predicate satisfied when any value of the
// response header key contains substr.
func HeaderContains(key, substr string) Predicate {
	return func(e *request.Execution) bool {
		for _, v := range e.Header().Values(key) {
			if strings.Contains(v, substr) {
				return true
			}
		}
		return false
	}
}

// JSONField returns a predicate satisfied when the JSON body holds want
// at path. The path is a dot-separated list of object keys and array
// indexes, e.g. "items.0.state".
//
// want is compared after a round trip through encoding/json, so
// JSONField("count", 3) matches a body of {"count": 3}.
func JSONField(path string, want interface{}) Predicate {
	var parts []string
	if path != "" {
		parts = strings.Split(path, ".")
	}
	normalized, err := normalizeJSON(want)
	if err != nil {
		return func(*request.Execution) bool { return false }
	}
	return func(e *request.Execution) bool {
		var data interface{}
		if err := json.Unmarshal(e.Body, &data); err != nil {
			return false
		}
		got, ok := extractJSONPath(data, parts)
		return ok && reflect.DeepEqual(got, normalized)
	}
}

func normalizeJSON(v interface{}) (interface{}, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var n interface{}
	err = json.Unmarshal(b, &n)
	return n, err
}

func extractJSONPath(data interface{}, parts []string) (interface{}, bool) {
	current := data

	for _, part := range parts {
		switch v := current.(type) {
		case map[string]interface{}:
			next, ok := v[part]
			if !ok {
				return nil, false
			}
			current = next
		case []interface{}:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(v) {
				return nil, false
			}
			current = v[i]
		default:
			return nil, false
		}
	}

	return current, true
}
