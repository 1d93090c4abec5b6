// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package htmlutils provides utility functions for working with HTML.
package htmlutils

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// Node2string appends the whitespace-normalized text content of n to sb.
func Node2string(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		for _, field := range strings.Fields(n.Data) {
			if sb.Len() != 0 {
				sb.WriteByte(' ')
			}

			sb.WriteString(field)
		}

		return
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		Node2string(child, sb)
	}
}

// Text returns the whitespace-normalized text content of n.
func Text(n *html.Node) string {
	sb := strings.Builder{}
	Node2string(n, &sb)

	return sb.String()
}

// Attr returns the value of the attribute key, or "" if n doesn't have it.
func Attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}

	return ""
}

// FindAll returns, in document order, every element named tag that satisfies match.
// A nil match accepts every element.
func FindAll(n *html.Node, tag string, match func(*html.Node) bool) []*html.Node {
	var found []*html.Node

	var walk func(*html.Node)

	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && strings.EqualFold(n.Data, tag) && (match == nil || match(n)) {
			found = append(found, n)
		}

		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)

	return found
}

// Validates that response seems to be an HTML response.
func hasHTMLContentType(media string) bool {
	const expectedMedia = "text/html"

	return strings.EqualFold(
		expectedMedia,
		media[0:min(len(media), len(expectedMedia))],
	)
}

// AsReader converts an HTTP response body to an io.Reader with the correct charset.
func AsReader(resp *http.Response) (io.Reader, error) {
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	media := resp.Header.Get("Content-Type")
	if !hasHTMLContentType(media) {
		return nil, fmt.Errorf("media type is %s", media)
	}

	rr, err := charset.NewReader(resp.Body, media)
	if err != nil {
		return nil, err
	}

	return rr, nil
}

// AsNode parses an io.Reader as an HTML node.
func AsNode(r io.Reader) (*html.Node, error) {
	n, err := html.Parse(r)
	if nil != err {
		return nil, fmt.Errorf("parsing body as HTML: %w", err)
	}

	return n, nil
}

// Parse is AsReader followed by AsNode.
func Parse(resp *http.Response) (*html.Node, error) {
	r, err := AsReader(resp)
	if err != nil {
		return nil, err
	}

	return AsNode(r)
}
