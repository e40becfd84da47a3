// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

// Package gates validates assembled bundles before they are trusted.
// Four independent checks run in a fixed order: schema (structural
// completeness), ordering (canonical sort orders), semantic
// (cross-field consistency and hash recomputation), and determinism
// (ID shapes and codec round-trip). A bundle clears the gates exactly
// once, at assembly time; everything downstream may assume a gated
// bundle without re-checking.
package gates

import (
	"fmt"
	"sort"
	"strings"

	"github.com/crucible-foundation/crucible/lib/bundle"
	"github.com/crucible-foundation/crucible/lib/codec"
	"github.com/crucible-foundation/crucible/lib/decompose"
	"github.com/crucible-foundation/crucible/lib/measure"
)

// Gate names, in execution order.
const (
	GateSchema      = "schema"
	GateOrdering    = "ordering"
	GateSemantic    = "semantic"
	GateDeterminism = "determinism"
)

// Result holds one gate's verdict.
type Result struct {
	Gate     string   `json:"gate"`
	Passed   bool     `json:"passed"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// checker accumulates findings for a single gate.
type checker struct {
	result Result
}

func newChecker(gate string) *checker {
	return &checker{result: Result{Gate: gate, Passed: true}}
}

func (c *checker) fail(format string, args ...any) {
	c.result.Errors = append(c.result.Errors, fmt.Sprintf(format, args...))
	c.result.Passed = false
}

func (c *checker) warn(format string, args ...any) {
	c.result.Warnings = append(c.result.Warnings, fmt.Sprintf(format, args...))
}

// ValidateAll runs every gate against the bundle and returns all four
// results regardless of individual failures.
func ValidateAll(b *bundle.Bundle) []Result {
	return []Result{
		CheckSchema(b),
		CheckOrdering(b),
		CheckSemantic(b),
		CheckDeterminism(b),
	}
}

// Failure is the aggregated error for a bundle that did not clear the
// gates. It lists every gate/error pair so the caller sees the whole
// picture in one report.
type Failure struct {
	BundleID string
	Results  []Result
}

func (f *Failure) Error() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "bundle %s failed validation:", f.BundleID)
	for _, result := range f.Results {
		for _, message := range result.Errors {
			fmt.Fprintf(&builder, "\n  [%s] %s", result.Gate, message)
		}
	}
	return builder.String()
}

// AssertValid runs all gates and returns a single aggregated *Failure
// if any gate failed, nil otherwise. This is the one gate a bundle
// must clear before being handed to the proposal protocol.
func AssertValid(b *bundle.Bundle) error {
	results := ValidateAll(b)
	for _, result := range results {
		if !result.Passed {
			id := ""
			if b != nil {
				id = b.ID
			}
			return &Failure{BundleID: id, Results: results}
		}
	}
	return nil
}

// CheckSchema verifies structural completeness: required fields are
// present and the recorded stats agree with the actual list lengths.
func CheckSchema(b *bundle.Bundle) Result {
	c := newChecker(GateSchema)
	if b == nil {
		c.fail("bundle is nil")
		return c.result
	}

	if b.ID == "" {
		c.fail("missing id")
	}
	if b.SchemaVersion == "" {
		c.fail("missing schema_version")
	} else if b.SchemaVersion != bundle.SchemaVersion {
		c.fail("unknown schema_version %q (want %q)", b.SchemaVersion, bundle.SchemaVersion)
	}
	if b.KernelVersion == "" {
		c.fail("missing kernel_version")
	}
	if b.SourceIntentHash == "" {
		c.fail("missing source_intent_hash")
	}
	switch b.Status {
	case bundle.StatusComplete, bundle.StatusIncomplete, bundle.StatusError:
	default:
		c.fail("unknown status %q", b.Status)
	}
	if b.RootNode == nil {
		c.fail("missing root_node")
	}

	if b.Stats.TerminalNodes != len(b.TerminalNodes) {
		c.fail("stats.terminal_nodes = %d but %d terminal nodes listed", b.Stats.TerminalNodes, len(b.TerminalNodes))
	}
	if b.Stats.OutputCount != len(b.Outputs) {
		c.fail("stats.output_count = %d but %d outputs listed", b.Stats.OutputCount, len(b.Outputs))
	}
	if b.Stats.UnresolvedCount != len(b.UnresolvedQuestions) {
		c.fail("stats.unresolved_count = %d but %d questions listed", b.Stats.UnresolvedCount, len(b.UnresolvedQuestions))
	}
	if b.Stats.TotalNodes < len(b.TerminalNodes) {
		c.fail("stats.total_nodes = %d is below the terminal node count %d", b.Stats.TotalNodes, len(b.TerminalNodes))
	}

	for i, output := range b.Outputs {
		if output.ID == "" {
			c.fail("outputs[%d]: missing id", i)
		}
		if output.Type == "" {
			c.fail("outputs[%d]: missing type", i)
		}
		if output.Path == "" {
			c.fail("outputs[%d]: missing path", i)
		}
		if output.ContentHash == "" {
			c.fail("outputs[%d]: missing content_hash", i)
		}
	}

	return c.result
}

// CheckOrdering verifies every list that claims a canonical order is
// actually sorted: outputs by path, terminal nodes and children by ID,
// unresolved questions by priority descending then ID ascending, and
// constraints lexicographically.
func CheckOrdering(b *bundle.Bundle) Result {
	c := newChecker(GateOrdering)
	if b == nil {
		c.fail("bundle is nil")
		return c.result
	}

	for i := 1; i < len(b.Outputs); i++ {
		if b.Outputs[i-1].Path > b.Outputs[i].Path {
			c.fail("outputs not sorted by path at index %d (%q > %q)", i, b.Outputs[i-1].Path, b.Outputs[i].Path)
		}
	}

	for i := 1; i < len(b.TerminalNodes); i++ {
		if b.TerminalNodes[i-1].ID > b.TerminalNodes[i].ID {
			c.fail("terminal_nodes not sorted by id at index %d", i)
		}
	}

	checkQuestionOrder(c, "unresolved_questions", b.UnresolvedQuestions)

	if b.RootNode != nil {
		checkNodeOrdering(c, "root_node", b.RootNode)
	}
	for _, node := range b.TerminalNodes {
		checkNodeOrdering(c, fmt.Sprintf("terminal_nodes[%s]", node.ID), node)
	}

	return c.result
}

func checkNodeOrdering(c *checker, label string, node *decompose.ContextNode) {
	if !sort.StringsAreSorted(node.Children) {
		c.fail("%s: children not sorted", label)
	}
	if !sort.StringsAreSorted(node.Constraints) {
		c.fail("%s: constraints not sorted", label)
	}
	for i := 1; i < len(node.Constraints); i++ {
		if node.Constraints[i-1] == node.Constraints[i] {
			c.fail("%s: duplicate constraint %q", label, node.Constraints[i])
		}
	}
	checkQuestionOrder(c, label+".unresolved_questions", node.UnresolvedQuestions)
}

func checkQuestionOrder(c *checker, label string, questions []decompose.Question) {
	for i := 1; i < len(questions); i++ {
		previous, current := questions[i-1], questions[i]
		if previous.Priority < current.Priority ||
			(previous.Priority == current.Priority && previous.ID > current.ID) {
			c.fail("%s not sorted by priority desc, id asc at index %d", label, i)
		}
	}
}

// CheckSemantic verifies cross-field consistency: status matches the
// question count, listed terminal nodes really are terminal, scores
// are in range, and every output's content hash recomputes.
func CheckSemantic(b *bundle.Bundle) Result {
	c := newChecker(GateSemantic)
	if b == nil {
		c.fail("bundle is nil")
		return c.result
	}

	hasQuestions := len(b.UnresolvedQuestions) > 0
	switch b.Status {
	case bundle.StatusComplete:
		if hasQuestions {
			c.fail("status complete but %d unresolved questions remain", len(b.UnresolvedQuestions))
		}
	case bundle.StatusIncomplete:
		if !hasQuestions {
			c.fail("status incomplete but no unresolved questions")
		}
	}

	for _, node := range b.TerminalNodes {
		if node.Status != decompose.NodeTerminal {
			c.fail("terminal node %s has status %q", node.ID, node.Status)
		}
		if len(node.Children) > 0 {
			c.fail("terminal node %s has %d children", node.ID, len(node.Children))
		}
		checkNodeScores(c, node)
	}
	if b.RootNode != nil {
		checkNodeScores(c, b.RootNode)
	}

	checkScore(c, "stats.avg_entropy", b.Stats.AvgEntropy)
	checkScore(c, "stats.avg_density", b.Stats.AvgDensity)

	for _, output := range b.Outputs {
		checkScore(c, fmt.Sprintf("output %s confidence", output.ID), output.Confidence)
		recomputed, err := codec.Hash(output.Content)
		if err != nil {
			c.fail("output %s: content not hashable: %v", output.ID, err)
			continue
		}
		if recomputed != output.ContentHash {
			c.fail("output %s: content_hash does not match content", output.ID)
		}
	}

	for _, question := range b.UnresolvedQuestions {
		checkScore(c, fmt.Sprintf("question %s information_gain", question.ID), question.InformationGain)
		checkScore(c, fmt.Sprintf("question %s priority", question.ID), question.Priority)
	}

	return c.result
}

func checkNodeScores(c *checker, node *decompose.ContextNode) {
	checkScore(c, fmt.Sprintf("node %s entropy", node.ID), node.Entropy.EntropyScore)
	checkScore(c, fmt.Sprintf("node %s density", node.ID), node.Density.DensityScore)
}

func checkScore(c *checker, label string, score measure.Score) {
	if score < 0 || score > 100 {
		c.fail("%s out of range: %d", label, score)
	}
}

// CheckDeterminism verifies the content-addressing layer: every
// content-derived ID has the expected shape, the bundle ID recomputes
// from the bundle content, and the whole bundle survives a canonical
// round trip unchanged.
func CheckDeterminism(b *bundle.Bundle) Result {
	c := newChecker(GateDeterminism)
	if b == nil {
		c.fail("bundle is nil")
		return c.result
	}

	if !codec.ValidID(b.ID, "bundle") {
		c.fail("malformed bundle id %q", b.ID)
	} else {
		recomputed, err := bundle.DeriveBundleID(b)
		if err != nil {
			c.fail("bundle id not derivable: %v", err)
		} else if recomputed != b.ID {
			c.fail("bundle id %s does not recompute (got %s): content was altered after assembly", b.ID, recomputed)
		}
	}

	if !codec.ValidHash(b.SourceIntentHash) {
		c.fail("malformed source_intent_hash %q", b.SourceIntentHash)
	}

	if b.RootNode != nil {
		checkNodeIDs(c, b.RootNode)
	}
	for _, node := range b.TerminalNodes {
		checkNodeIDs(c, node)
	}
	for _, output := range b.Outputs {
		if !codec.ValidID(output.ID, "out") {
			c.fail("malformed output id %q", output.ID)
		}
		if !codec.ValidHash(output.ContentHash) {
			c.fail("output %s: malformed content_hash %q", output.ID, output.ContentHash)
		}
	}
	for _, question := range b.UnresolvedQuestions {
		if !codec.ValidID(question.ID, "q") {
			c.fail("malformed question id %q", question.ID)
		}
	}

	if err := codec.VerifyRoundTrip(b); err != nil {
		c.fail("bundle does not round-trip canonically: %v", err)
	}

	return c.result
}

func checkNodeIDs(c *checker, node *decompose.ContextNode) {
	if !codec.ValidID(node.ID, "node") {
		c.fail("malformed node id %q", node.ID)
	}
	if node.ParentID != "" && !codec.ValidID(node.ParentID, "node") {
		c.fail("node %s: malformed parent_id %q", node.ID, node.ParentID)
	}
	for _, child := range node.Children {
		if !codec.ValidID(child, "node") {
			c.fail("node %s: malformed child id %q", node.ID, child)
		}
	}
	if node.SplittingQuestion != nil {
		if !codec.ValidID(node.SplittingQuestion.ID, "q") {
			c.fail("node %s: malformed question id %q", node.ID, node.SplittingQuestion.ID)
		}
		for _, branch := range node.SplittingQuestion.Branches {
			if !codec.ValidID(branch.ID, "branch") {
				c.fail("node %s: malformed branch id %q", node.ID, branch.ID)
			}
		}
	}
}
