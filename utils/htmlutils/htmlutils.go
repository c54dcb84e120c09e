// Copyright 2025 The ViewerGeo Authors
// SPDX-License-Identifier: Apache-2.0

// Package htmlutils provides utility functions for working with HTML.
package htmlutils

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Node2string appends the text content of n to sb, one space between text
// nodes. Script and style contents are skipped and <br> acts as a separator.
func Node2string(n *html.Node, sb *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		tmp := strings.Join(strings.Fields(n.Data), " ")
		if len(tmp) > 0 {
			if sb.Len() != 0 {
				sb.WriteByte(' ')
			}

			sb.WriteString(tmp)
		}
	case html.ElementNode:
		if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
			return
		}

		fallthrough
	default:
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			Node2string(child, sb)
		}
	}
}

// Text flattens an HTML fragment, such as a comment body rendered by a video
// platform, to plain text. Entities are decoded and whitespace collapsed.
func Text(fragment string) (string, error) {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.Join(strings.Fields(fragment), " "), nil
	}

	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}

	nodes, err := html.ParseFragment(strings.NewReader(fragment), ctx)
	if err != nil {
		return "", fmt.Errorf("parsing HTML fragment: %w", err)
	}

	sb := strings.Builder{}
	for _, n := range nodes {
		Node2string(n, &sb)
	}

	return sb.String(), nil
}
