// Copyright 2021 The apitest Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package poll

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func TestAutoBody(t *testing.T) {
	testCases := []struct {
		name        string
		contentType string
		body        string
		expected    interface{}
	}{
		{
			name:        "JSON object",
			contentType: "application/json",
			body:        `{"id":"a1","items":[1,2]}`,
			expected:    map[string]interface{}{"id": "a1", "items": []interface{}{float64(1), float64(2)}},
		},
		{
			name:        "JSON suffix",
			contentType: "application/problem+json; charset=utf-8",
			body:        `{"title":"gone"}`,
			expected:    map[string]interface{}{"title": "gone"},
		},
		{
			name:        "invalid JSON",
			contentType: "application/json",
			body:        `{"id":`,
			expected:    `{"id":`,
		},
		{
			name:        "text",
			contentType: "text/plain",
			body:        "hello",
			expected:    "hello",
		},
		{
			name:        "latin-1 text",
			contentType: "text/plain; charset=iso-8859-1",
			body:        "caf\xe9",
			expected:    "café",
		},
		{
			name:        "XML",
			contentType: "application/xml",
			body:        "<a>1</a>",
			expected:    "<a>1</a>",
		},
		{
			name:        "binary",
			contentType: "application/octet-stream",
			body:        "\x00\x01",
			expected:    []byte{0, 1},
		},
		{
			name:     "no content type",
			body:     "raw",
			expected: []byte("raw"),
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			v, err := AutoBody(execution(200, testCase.contentType, testCase.body))

			require.NoError(t, err)
			assert.Equal(t, testCase.expected, v)
		})
	}
}

func TestTextBody(t *testing.T) {
	v, err := TextBody(execution(200, "application/octet-stream", "abc"))

	require.NoError(t, err)
	assert.Equal(t, "abc", v)
}

func TestJSONBody(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		v, err := JSONBody(execution(200, "text/plain", `[true,null]`))

		require.NoError(t, err)
		assert.Equal(t, []interface{}{true, nil}, v)
	})
	t.Run("invalid", func(t *testing.T) {
		v, err := JSONBody(execution(200, "application/json", `nope`))

		assert.Nil(t, v)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "apitest/poll: decoding JSON body: ")
	})
}

func TestBytesBody(t *testing.T) {
	v, err := BytesBody(execution(200, "application/json", `{}`))

	require.NoError(t, err)
	assert.Equal(t, []byte(`{}`), v)
}

func TestHTMLBody(t *testing.T) {
	v, err := HTMLBody(execution(200, "text/html; charset=utf-8",
		"<html><head><title>Status</title></head><body><p>ready</p></body></html>"))

	require.NoError(t, err)
	doc, ok := v.(*html.Node)
	require.True(t, ok)
	title := findElement(doc, atom.Title)
	require.NotNil(t, title)
	require.NotNil(t, title.FirstChild)
	assert.Equal(t, "Status", title.FirstChild.Data)
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}
