// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

package decompose

import (
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/crucible-foundation/crucible/lib/codec"
	"github.com/crucible-foundation/crucible/lib/intent"
)

func mustDecompose(t *testing.T, in intent.Intent, config Config) *Tree {
	t.Helper()
	normalized, err := intent.Normalize(in)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	tree, err := Decompose(normalized, config)
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}
	return tree
}

func TestDecomposeVagueGoalGeneratesTechnologyQuestion(t *testing.T) {
	tree := mustDecompose(t, intent.Intent{Goal: "build a system"}, DefaultConfig())

	root := tree.Root()
	if root.Status == NodeTerminal {
		t.Fatal("vague root must not be terminal")
	}
	if root.SplittingQuestion == nil {
		t.Fatal("expected a splitting question on the root")
	}
	if !strings.Contains(strings.ToLower(root.SplittingQuestion.Text), "technology") {
		t.Errorf("expected a technology-choice question, got %q", root.SplittingQuestion.Text)
	}
	if len(root.Children) == 0 {
		t.Error("expanding root must have children")
	}
}

func TestDecomposeExpansionLeavesQuestionOpen(t *testing.T) {
	tree := mustDecompose(t, intent.Intent{Goal: "build a system"}, DefaultConfig())

	root := tree.Root()
	if root.SplittingQuestion == nil {
		t.Fatal("expected a splitting question on the root")
	}

	// Branch expansion assumes each answer to build children; it must
	// not count as the user having answered. The splitting question
	// stays in the tree's unresolved set.
	found := false
	for _, question := range tree.UnresolvedQuestions() {
		if question.ID == root.SplittingQuestion.ID {
			found = true
		}
	}
	if !found {
		t.Errorf("splitting question %s missing from unresolved questions", root.SplittingQuestion.ID)
	}
}

func TestDecomposeVagueGoalNeverFullyResolves(t *testing.T) {
	// However far expansion gets under the default caps, an intent
	// that pinned nothing down must come back with open questions.
	tree := mustDecompose(t, intent.Intent{
		Goal: "build a system for storing user data with an api",
	}, DefaultConfig())

	if len(tree.UnresolvedQuestions()) == 0 {
		t.Error("vague intent decomposed to zero unresolved questions")
	}
}

func TestDecomposeConcreteIntentSingleNode(t *testing.T) {
	tree := mustDecompose(t, intent.Intent{
		Goal: "Implement an HTTP health endpoint in Go returning JSON on port 8080",
		Constraints: []string{
			"go 1.22, net/http stdlib only",
			"endpoint: /healthz returns 200",
			"response body: {\"status\": \"ok\"}",
			"output: main.go single file",
		},
	}, DefaultConfig())

	if len(tree.Nodes) != 1 {
		t.Fatalf("expected a single-node tree, got %d nodes", len(tree.Nodes))
	}
	root := tree.Root()
	if root.Status != NodeTerminal {
		t.Errorf("root status = %s, want terminal", root.Status)
	}
	if len(root.UnresolvedQuestions) != 0 {
		t.Errorf("expected no unresolved questions, got %d", len(root.UnresolvedQuestions))
	}
}

func TestDecomposeDeterministic(t *testing.T) {
	in := intent.Intent{Goal: "build a system for storing user data"}

	first := mustDecompose(t, in, DefaultConfig())
	second := mustDecompose(t, in, DefaultConfig())

	firstIDs := sortedNodeIDs(first)
	secondIDs := sortedNodeIDs(second)
	if !reflect.DeepEqual(firstIDs, secondIDs) {
		t.Fatalf("node sets differ between runs:\n%v\n%v", firstIDs, secondIDs)
	}

	for _, id := range firstIDs {
		hashA, err := codec.Hash(first.Nodes[id])
		if err != nil {
			t.Fatalf("Hash: %v", err)
		}
		hashB, err := codec.Hash(second.Nodes[id])
		if err != nil {
			t.Fatalf("Hash: %v", err)
		}
		if hashA != hashB {
			t.Errorf("node %s differs between runs", id)
		}
	}
}

func TestDecomposeNodeCap(t *testing.T) {
	config := DefaultConfig()
	config.MaxNodes = 5

	tree := mustDecompose(t, intent.Intent{
		Goal: "build a system for storing user data with an api under load",
	}, config)

	if len(tree.Nodes) > config.MaxNodes {
		t.Errorf("node cap violated: %d > %d", len(tree.Nodes), config.MaxNodes)
	}
	for _, node := range tree.Nodes {
		if node.Status == NodePending {
			t.Errorf("node %s left pending after decomposition", node.ID)
		}
	}
}

func TestDecomposeDepthCap(t *testing.T) {
	config := DefaultConfig()
	config.MaxDepth = 1

	tree := mustDecompose(t, intent.Intent{
		Goal: "build a system for storing user data with an api under load",
	}, config)

	if tree.MaxDepth > config.MaxDepth {
		t.Errorf("depth cap violated: %d > %d", tree.MaxDepth, config.MaxDepth)
	}
}

func TestDecomposeChildOrderingsAreSorted(t *testing.T) {
	tree := mustDecompose(t, intent.Intent{Goal: "build a system"}, DefaultConfig())

	for _, node := range tree.Nodes {
		if !sort.StringsAreSorted(node.Children) {
			t.Errorf("children of %s not sorted: %v", node.ID, node.Children)
		}
		if !sort.StringsAreSorted(node.Constraints) {
			t.Errorf("constraints of %s not sorted: %v", node.ID, node.Constraints)
		}
		if node.SplittingQuestion != nil {
			branches := node.SplittingQuestion.Branches
			for i := 1; i < len(branches); i++ {
				if branches[i-1].ID > branches[i].ID {
					t.Errorf("branches of %s not sorted by id", node.ID)
				}
			}
		}
	}
	if !sort.StringsAreSorted(tree.TerminalIDs) {
		t.Errorf("terminal ids not sorted: %v", tree.TerminalIDs)
	}
}

func TestDecomposeChildConstraintsExtendParent(t *testing.T) {
	tree := mustDecompose(t, intent.Intent{Goal: "build a system"}, DefaultConfig())

	root := tree.Root()
	for _, childID := range root.Children {
		child := tree.Nodes[childID]
		if child.ParentID != root.ID {
			t.Errorf("child %s parent = %q, want %q", childID, child.ParentID, root.ID)
		}
		if len(child.Constraints) <= len(root.Constraints) {
			t.Errorf("child %s gained no constraints", childID)
		}
	}
}

func TestDecomposeIDShapes(t *testing.T) {
	tree := mustDecompose(t, intent.Intent{Goal: "build a system for user data"}, DefaultConfig())

	for id, node := range tree.Nodes {
		if !codec.ValidID(id, "node") {
			t.Errorf("node id %q has wrong shape", id)
		}
		if node.SplittingQuestion != nil {
			if !codec.ValidID(node.SplittingQuestion.ID, "q") {
				t.Errorf("question id %q has wrong shape", node.SplittingQuestion.ID)
			}
			for _, branch := range node.SplittingQuestion.Branches {
				if !codec.ValidID(branch.ID, "branch") {
					t.Errorf("branch id %q has wrong shape", branch.ID)
				}
			}
		}
		for _, question := range node.UnresolvedQuestions {
			if !codec.ValidID(question.ID, "q") {
				t.Errorf("unresolved question id %q has wrong shape", question.ID)
			}
		}
	}
}

func sortedNodeIDs(tree *Tree) []string {
	ids := make([]string, 0, len(tree.Nodes))
	for id := range tree.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
