// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

// Package bundle assembles a finished decomposition into the
// immutable, content-addressed bundle that is the kernel's root
// artifact. A bundle is created exactly once and never modified:
// its ID is derived from its full content, so any later change would
// be detectable as an ID mismatch.
package bundle

import (
	"github.com/crucible-foundation/crucible/lib/decompose"
	"github.com/crucible-foundation/crucible/lib/measure"
)

// SchemaVersion is the bundle schema version recorded in every
// bundle. Consumers reject schema versions they do not know.
const SchemaVersion = "1"

// Status is the overall state of a bundle.
type Status string

const (
	// StatusComplete means every node resolved: no unresolved
	// questions anywhere in the tree.
	StatusComplete Status = "complete"

	// StatusIncomplete means decomposition finished but questions
	// remain; the bundle is usable for clarification, not execution.
	StatusIncomplete Status = "incomplete"

	// StatusError means assembly itself failed; such bundles are
	// never emitted past the validation gates.
	StatusError Status = "error"
)

// OutputTypeConstraintSummary is the output type produced for each
// terminal node: a markdown summary of the node's resolved context.
const OutputTypeConstraintSummary = "constraint_summary"

// Output is the concrete artifact emitted for one terminal node.
type Output struct {
	// ID is content-derived (prefix "out").
	ID string `json:"id"`

	// Type identifies the output kind.
	Type string `json:"type"`

	// Path is the relative path the output should be written to.
	// Paths are always under an executor-writable root.
	Path string `json:"path"`

	// Content is the full output body.
	Content string `json:"content"`

	// ContentHash is the canonical content hash of Content.
	ContentHash string `json:"content_hash"`

	// SourceConstraints are the terminal node's constraints, sorted.
	SourceConstraints []string `json:"source_constraints"`

	// Confidence scores how actionable this output is:
	// 0.6·density + 0.4·(100−entropy), clamped.
	Confidence measure.Score `json:"confidence"`
}

// Stats summarizes the tree a bundle was assembled from. Stats are
// always recomputed from the final tree, never cached, and are part
// of the hashed content, so they are computed before the bundle ID
// is derived.
type Stats struct {
	TotalNodes      int           `json:"total_nodes"`
	TerminalNodes   int           `json:"terminal_nodes"`
	MaxDepth        int           `json:"max_depth"`
	OutputCount     int           `json:"output_count"`
	UnresolvedCount int           `json:"unresolved_count"`
	AvgEntropy      measure.Score `json:"avg_entropy"`
	AvgDensity      measure.Score `json:"avg_density"`
}

// Bundle is the immutable root artifact of a decomposition run.
// Nothing inside a bundle may depend on the bundle's own ID: the ID
// is derived from everything else.
type Bundle struct {
	// ID is content-derived (prefix "bundle") over the entire bundle
	// with the ID field blank.
	ID string `json:"id"`

	SchemaVersion string `json:"schema_version"`
	KernelVersion string `json:"kernel_version"`

	// SourceIntentHash is the canonical hash of the normalized intent
	// this bundle was decomposed from.
	SourceIntentHash string `json:"source_intent_hash"`

	Status Status `json:"status"`

	// RootNode is the decomposition root, embedded in full.
	RootNode *decompose.ContextNode `json:"root_node"`

	// TerminalNodes lists every terminal node, sorted by ID.
	TerminalNodes []*decompose.ContextNode `json:"terminal_nodes"`

	// Outputs are sorted by path.
	Outputs []Output `json:"outputs"`

	// UnresolvedQuestions aggregates the whole tree's open questions,
	// sorted by priority descending then ID ascending.
	UnresolvedQuestions []decompose.Question `json:"unresolved_questions"`

	Stats Stats `json:"stats"`
}
