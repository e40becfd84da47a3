// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

package decompose

import (
	"fmt"
	"sort"

	"github.com/crucible-foundation/crucible/lib/intent"
	"github.com/crucible-foundation/crucible/lib/measure"
)

// Config bounds a decomposition run.
type Config struct {
	// MaxDepth is the deepest level a node may sit at. Frontier nodes
	// at the cap are forced terminal without further expansion.
	MaxDepth int

	// MaxNodes caps the total node count. Expansion that would exceed
	// it forces the rest of the frontier terminal.
	MaxNodes int

	// MinGain discards candidate questions whose estimated
	// information gain falls below it.
	MinGain measure.Score

	// Termination holds the entropy/density thresholds that decide
	// when a node is concrete enough to stop.
	Termination measure.TerminationConfig
}

// DefaultConfig returns the standard decomposition bounds.
func DefaultConfig() Config {
	return Config{
		MaxDepth:    10,
		MaxNodes:    100,
		MinGain:     20,
		Termination: measure.DefaultTermination(),
	}
}

// Tree is a finished decomposition: an arena of immutable nodes keyed
// by content-derived ID. ParentID/Children values are lookup keys
// into Nodes, never pointers.
type Tree struct {
	// RootID addresses the root node in Nodes.
	RootID string

	// Nodes is the arena. Every node is final: pending nodes cannot
	// remain after Decompose returns.
	Nodes map[string]*ContextNode

	// TerminalIDs lists terminal node IDs, sorted.
	TerminalIDs []string

	// MaxDepth is the deepest level observed (root is 0).
	MaxDepth int

	depths map[string]int
}

// Root returns the root node.
func (t *Tree) Root() *ContextNode {
	return t.Nodes[t.RootID]
}

// Depth returns the level of the given node (root is 0).
func (t *Tree) Depth(id string) int {
	return t.depths[id]
}

// UnresolvedQuestions aggregates every question the intent left
// unanswered, deduplicated by question ID and sorted by priority
// descending then ID ascending. That covers the candidate questions
// kept on terminal nodes and the splitting questions of expanding
// nodes: expansion explores each answer as an assumption, it does not
// answer the question on the user's behalf. A question is resolved
// only when the intent's own constraints resolve it, which is why a
// tree with any expansion at all still needs clarification.
func (t *Tree) UnresolvedQuestions() []Question {
	seen := make(map[string]bool)
	var questions []Question
	add := func(question Question) {
		if seen[question.ID] {
			return
		}
		seen[question.ID] = true
		questions = append(questions, question)
	}
	for _, node := range t.Nodes {
		if node.SplittingQuestion != nil {
			add(node.SplittingQuestion.Question)
		}
		for _, question := range node.UnresolvedQuestions {
			add(question)
		}
	}
	sortQuestions(questions)
	return questions
}

// Decompose builds the full decomposition tree for a normalized
// intent. The walk is breadth-first over an explicit frontier queue;
// the language call stack never grows with tree depth.
func Decompose(in intent.Intent, config Config) (*Tree, error) {
	if config.MaxDepth <= 0 || config.MaxNodes <= 0 {
		return nil, fmt.Errorf("decompose: non-positive caps (max_depth=%d, max_nodes=%d)", config.MaxDepth, config.MaxNodes)
	}

	root, err := newNode(in.Goal, in.Constraints, "")
	if err != nil {
		return nil, err
	}

	tree := &Tree{
		RootID: root.ID,
		Nodes:  map[string]*ContextNode{root.ID: root},
		depths: map[string]int{root.ID: 0},
	}

	frontier := []string{root.ID}
	for len(frontier) > 0 {
		id := frontier[0]
		frontier = frontier[1:]
		node := tree.Nodes[id]

		if node.Status == NodeTerminal {
			continue
		}

		if measure.IsTerminal(node.Entropy, node.Density, config.Termination) {
			node.Status = NodeTerminal
			continue
		}

		candidates, err := candidateQuestions(node)
		if err != nil {
			return nil, err
		}
		sortCandidates(candidates)

		surviving := candidates[:0:0]
		for _, candidate := range candidates {
			if candidate.InformationGain >= config.MinGain {
				surviving = append(surviving, candidate)
			}
		}

		if len(surviving) == 0 {
			markTerminalWithQuestions(node, candidates)
			continue
		}

		top := surviving[0]
		branches, err := expandBranches(top)
		if err != nil {
			return nil, err
		}

		// Hard caps: a node at the depth limit, or an expansion that
		// would blow the node budget, terminates instead of splitting.
		// Its candidates stay attached as unresolved questions so the
		// resulting bundle is honest about what was cut short.
		depth := tree.depths[id]
		if depth >= config.MaxDepth || len(tree.Nodes)+len(branches) > config.MaxNodes {
			markTerminalWithQuestions(node, candidates)
			continue
		}

		childIDs := make([]string, 0, len(branches))
		for _, branch := range branches {
			childConstraints := mergeConstraints(node.Constraints, branch.AddedConstraints)
			child, err := newNode(node.Goal, childConstraints, node.ID)
			if err != nil {
				return nil, err
			}
			if _, exists := tree.Nodes[child.ID]; !exists {
				tree.Nodes[child.ID] = child
				tree.depths[child.ID] = depth + 1
				if depth+1 > tree.MaxDepth {
					tree.MaxDepth = depth + 1
				}
				frontier = append(frontier, child.ID)
			}
			childIDs = append(childIDs, child.ID)
		}
		sort.Strings(childIDs)

		node.Status = NodeExpanding
		node.SplittingQuestion = &SplittingQuestion{Question: top, Branches: branches}
		node.Children = childIDs
	}

	for id, node := range tree.Nodes {
		if node.Status == NodeTerminal {
			tree.TerminalIDs = append(tree.TerminalIDs, id)
		}
	}
	sort.Strings(tree.TerminalIDs)

	return tree, nil
}

// markTerminalWithQuestions flips a node to terminal, keeping its
// candidate questions as unresolved.
func markTerminalWithQuestions(node *ContextNode, candidates []Question) {
	node.Status = NodeTerminal
	if len(candidates) > 0 {
		questions := make([]Question, len(candidates))
		copy(questions, candidates)
		sortQuestions(questions)
		node.UnresolvedQuestions = questions
	}
}

// mergeConstraints unions two constraint sets, deduplicated and
// lexicographically sorted.
func mergeConstraints(parent, added []string) []string {
	seen := make(map[string]bool, len(parent)+len(added))
	merged := make([]string, 0, len(parent)+len(added))
	for _, group := range [][]string{parent, added} {
		for _, constraint := range group {
			if constraint == "" || seen[constraint] {
				continue
			}
			seen[constraint] = true
			merged = append(merged, constraint)
		}
	}
	sort.Strings(merged)
	return merged
}
