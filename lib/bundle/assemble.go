// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

package bundle

import (
	"fmt"
	"sort"
	"strings"

	"github.com/crucible-foundation/crucible/lib/codec"
	"github.com/crucible-foundation/crucible/lib/decompose"
	"github.com/crucible-foundation/crucible/lib/measure"
	"github.com/crucible-foundation/crucible/lib/version"
)

// outputRoot is the relative directory outputs are addressed under.
// It matches the strictest policy's writable roots, so a proposal
// derived from any bundle is executable under any profile.
const outputRoot = "out/context"

// Assemble builds the immutable bundle for a finished decomposition.
// intentHash is the canonical hash of the normalized source intent.
//
// Stats are computed from the final tree before the bundle ID is
// derived; the ID covers everything, so it must come last.
func Assemble(tree *decompose.Tree, intentHash string) (*Bundle, error) {
	if tree == nil || tree.Root() == nil {
		return nil, fmt.Errorf("assemble: empty tree")
	}

	terminals := make([]*decompose.ContextNode, 0, len(tree.TerminalIDs))
	for _, id := range tree.TerminalIDs {
		terminals = append(terminals, tree.Nodes[id])
	}

	outputs := make([]Output, 0, len(terminals))
	for _, node := range terminals {
		output, err := buildOutput(node)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, output)
	}
	sort.Slice(outputs, func(i, j int) bool {
		return outputs[i].Path < outputs[j].Path
	})

	unresolved := tree.UnresolvedQuestions()

	status := StatusComplete
	if len(unresolved) > 0 {
		status = StatusIncomplete
	}

	assembled := &Bundle{
		SchemaVersion:       SchemaVersion,
		KernelVersion:       version.Version,
		SourceIntentHash:    intentHash,
		Status:              status,
		RootNode:            tree.Root(),
		TerminalNodes:       terminals,
		Outputs:             outputs,
		UnresolvedQuestions: unresolved,
		Stats:               computeStats(tree, len(outputs), len(unresolved)),
	}

	id, err := DeriveBundleID(assembled)
	if err != nil {
		return nil, err
	}
	assembled.ID = id
	return assembled, nil
}

// DeriveBundleID computes the content-derived ID of a bundle: the
// derivation covers the entire bundle with the ID field blank. The
// validation gates recompute this to detect tampering.
func DeriveBundleID(b *Bundle) (string, error) {
	identity := *b
	identity.ID = ""
	return codec.DeriveID("bundle", identity)
}

// computeStats recomputes tree statistics from scratch. Averages are
// over terminal nodes, rounded to the nearest integer so they stay on
// the canonical integer Score scale.
func computeStats(tree *decompose.Tree, outputCount, unresolvedCount int) Stats {
	stats := Stats{
		TotalNodes:      len(tree.Nodes),
		TerminalNodes:   len(tree.TerminalIDs),
		MaxDepth:        tree.MaxDepth,
		OutputCount:     outputCount,
		UnresolvedCount: unresolvedCount,
	}

	if len(tree.TerminalIDs) > 0 {
		sumEntropy, sumDensity := 0, 0
		for _, id := range tree.TerminalIDs {
			node := tree.Nodes[id]
			sumEntropy += int(node.Entropy.EntropyScore)
			sumDensity += int(node.Density.DensityScore)
		}
		count := len(tree.TerminalIDs)
		stats.AvgEntropy = measure.ClampScore((sumEntropy + count/2) / count)
		stats.AvgDensity = measure.ClampScore((sumDensity + count/2) / count)
	}

	return stats
}

// buildOutput renders the constraint summary for one terminal node.
func buildOutput(node *decompose.ContextNode) (Output, error) {
	content := renderConstraintSummary(node)
	contentHash, err := codec.Hash(content)
	if err != nil {
		return Output{}, err
	}

	id, err := codec.DeriveID("out", map[string]any{
		"node_id": node.ID,
		"content": content,
	})
	if err != nil {
		return Output{}, err
	}

	return Output{
		ID:                id,
		Type:              OutputTypeConstraintSummary,
		Path:              fmt.Sprintf("%s/%s.md", outputRoot, node.ID),
		Content:           content,
		ContentHash:       contentHash,
		SourceConstraints: node.Constraints,
		Confidence:        outputConfidence(node),
	}, nil
}

// outputConfidence scores an output from its node's measurements:
// 0.6·density + 0.4·(100−entropy), computed in integer arithmetic
// with round-half-up.
func outputConfidence(node *decompose.ContextNode) measure.Score {
	weighted := 6*int(node.Density.DensityScore) + 4*(100-int(node.Entropy.EntropyScore))
	return measure.ClampScore((weighted + 5) / 10)
}

// renderConstraintSummary produces the markdown body of a
// constraint-summary output. The layout is stable: downstream tools
// parse the heading structure.
func renderConstraintSummary(node *decompose.ContextNode) string {
	var builder strings.Builder

	builder.WriteString("# Context Summary\n\n")

	builder.WriteString("## Goal\n\n")
	builder.WriteString(node.Goal)
	builder.WriteString("\n\n")

	builder.WriteString("## Constraints\n\n")
	if len(node.Constraints) == 0 {
		builder.WriteString("(none)\n")
	} else {
		for _, constraint := range node.Constraints {
			fmt.Fprintf(&builder, "- %s\n", constraint)
		}
	}
	builder.WriteString("\n")

	builder.WriteString("## Metrics\n\n")
	fmt.Fprintf(&builder, "- entropy: %d\n", node.Entropy.EntropyScore)
	fmt.Fprintf(&builder, "- density: %d\n", node.Density.DensityScore)
	fmt.Fprintf(&builder, "- unresolved_refs: %d\n", node.Entropy.UnresolvedRefs)
	fmt.Fprintf(&builder, "- schema_gaps: %d\n", node.Entropy.SchemaGaps)
	builder.WriteString("\n")

	builder.WriteString("## Unresolved Questions\n\n")
	if len(node.UnresolvedQuestions) == 0 {
		builder.WriteString("(none)\n")
	} else {
		for _, question := range node.UnresolvedQuestions {
			fmt.Fprintf(&builder, "- [priority %d] %s\n", question.Priority, question.Text)
		}
	}

	return builder.String()
}
