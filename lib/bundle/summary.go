// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

package bundle

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Summary is a read-only digest of a bundle for display. It is
// derived from the bundle, never fed back into hashing or decisions.
type Summary struct {
	BundleID        string          `json:"bundle_id"`
	Status          Status          `json:"status"`
	OutputCount     int             `json:"output_count"`
	UnresolvedCount int             `json:"unresolved_count"`
	Outputs         []OutputOutline `json:"outputs"`
}

// OutputOutline is the heading structure of one output's markdown.
type OutputOutline struct {
	Path string `json:"path"`

	// Headings lists the document's headings in order.
	Headings []string `json:"headings"`

	// ListItems counts bullet items across the document (constraints
	// plus unresolved questions, for constraint summaries).
	ListItems int `json:"list_items"`

	Confidence int `json:"confidence"`
}

// Summarize digests a bundle for the CLI show command. Each output's
// markdown is parsed and reduced to its heading outline and bullet
// count.
func Summarize(b *Bundle) (*Summary, error) {
	summary := &Summary{
		BundleID:        b.ID,
		Status:          b.Status,
		OutputCount:     len(b.Outputs),
		UnresolvedCount: len(b.UnresolvedQuestions),
	}

	parser := goldmark.New().Parser()
	for _, output := range b.Outputs {
		source := []byte(output.Content)
		document := parser.Parse(text.NewReader(source))

		outline := OutputOutline{
			Path:       output.Path,
			Confidence: int(output.Confidence),
		}
		err := ast.Walk(document, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
			if !entering {
				return ast.WalkContinue, nil
			}
			switch typed := node.(type) {
			case *ast.Heading:
				outline.Headings = append(outline.Headings, headingText(typed, source))
			case *ast.ListItem:
				outline.ListItems++
			}
			return ast.WalkContinue, nil
		})
		if err != nil {
			return nil, err
		}
		summary.Outputs = append(summary.Outputs, outline)
	}

	return summary, nil
}

// headingText flattens a heading's inline children to plain text.
func headingText(heading *ast.Heading, source []byte) string {
	var collected []byte
	for child := heading.FirstChild(); child != nil; child = child.NextSibling() {
		if textNode, ok := child.(*ast.Text); ok {
			collected = append(collected, textNode.Value(source)...)
		}
	}
	return string(collected)
}
