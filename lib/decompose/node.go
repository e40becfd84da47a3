// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

// Package decompose recursively splits an ambiguous intent into a
// tree of context nodes, terminating at nodes concrete enough to act
// on. The tree build is iterative (an explicit breadth-first frontier
// queue, never the call stack) and bounded by hard depth and node
// caps, so a pathological intent can never run away.
//
// Identity is content-derived throughout: node, question, and branch
// IDs are computed from their content, and every ordering (candidate
// questions, branches, children, terminal lists) uses deterministic
// keys. Two runs on identical input produce an identical tree, byte
// for byte.
package decompose

import (
	"github.com/crucible-foundation/crucible/lib/codec"
	"github.com/crucible-foundation/crucible/lib/measure"
)

// NodeStatus is the lifecycle state of a context node.
type NodeStatus string

const (
	// NodePending marks a node created but not yet examined.
	NodePending NodeStatus = "pending"

	// NodeExpanding marks a node that was split into children.
	NodeExpanding NodeStatus = "expanding"

	// NodeTerminal marks a node judged concrete enough to stop.
	NodeTerminal NodeStatus = "terminal"
)

// ContextNode is one node of a decomposition tree. Nodes are
// immutable once the decomposition step that creates them finishes:
// a later step that changes status or children produces a new value,
// never mutates one already placed in a bundle.
type ContextNode struct {
	// ID is content-derived from the node identity (goal,
	// constraints, parent). It never changes across the node's
	// lifecycle, so it is computed from the fields that never change.
	ID string `json:"id"`

	// ParentID is a lookup key into the tree arena, never an
	// ownership pointer. Empty for the root.
	ParentID string `json:"parent_id,omitempty"`

	Status NodeStatus `json:"status"`

	// Goal is inherited unchanged from the root intent; what varies
	// between nodes is the constraint set.
	Goal string `json:"goal"`

	// Constraints are deduplicated and lexicographically sorted.
	Constraints []string `json:"constraints"`

	Entropy measure.EntropyMeasurement `json:"entropy"`
	Density measure.DensityMeasurement `json:"density"`

	// SplittingQuestion is set only on expanding nodes: the question
	// whose branches produced the children.
	SplittingQuestion *SplittingQuestion `json:"splitting_question,omitempty"`

	// Children holds child node IDs, sorted.
	Children []string `json:"children,omitempty"`

	// UnresolvedQuestions are candidate questions this node could not
	// resolve: every candidate on a terminal node that still had
	// ambiguity, sorted by priority descending then ID ascending.
	UnresolvedQuestions []Question `json:"unresolved_questions,omitempty"`
}

// newNode builds a pending node with measurements and a
// content-derived ID. The ID covers only the immutable identity
// fields (goal, constraints, parent), so status and children changes
// never move the node's address.
func newNode(goal string, constraints []string, parentID string) (*ContextNode, error) {
	id, err := codec.DeriveID("node", map[string]any{
		"goal":        goal,
		"constraints": constraints,
		"parent_id":   parentID,
	})
	if err != nil {
		return nil, err
	}
	return &ContextNode{
		ID:          id,
		ParentID:    parentID,
		Status:      NodePending,
		Goal:        goal,
		Constraints: constraints,
		Entropy:     measure.MeasureEntropy(goal, constraints),
		Density:     measure.MeasureDensity(goal, constraints),
	}, nil
}
