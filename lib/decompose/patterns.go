// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

package decompose

import (
	"strings"

	"github.com/crucible-foundation/crucible/lib/measure"
)

// answerOption is one candidate answer for a choice pattern, with the
// constraints that picking it contributes to the child node. Added
// constraints deliberately include the vocabulary the pattern's
// resolvers match on, so a resolved topic never re-fires below the
// node that resolved it.
type answerOption struct {
	answer           string
	addedConstraints []string
}

// ambiguityPattern is one entry in the fixed, ordered pattern set the
// decomposer matches against a node's combined goal+constraints text.
// A pattern fires when any trigger appears and no resolver does.
type ambiguityPattern struct {
	name       string
	triggers   []string
	resolvers  []string
	text       string
	whyNeeded  string
	answerType AnswerType
	options    []answerOption

	// gainBias and priorityBias shift the node-level information gain
	// for this specific question: resolving the technology choice is
	// worth more than resolving error-handling style at the same node.
	gainBias     int
	priorityBias int
}

// ambiguityPatterns is the fixed pattern set, in canonical order.
// Order matters only for reproducibility of candidate generation;
// selection itself sorts by information gain and ID.
var ambiguityPatterns = []ambiguityPattern{
	{
		name:     "technology choice",
		triggers: []string{"build", "implement", "create", "system", "app", "service", "tool"},
		resolvers: []string{
			"golang", "go 1.", "python", "rust", "typescript", "javascript",
			"java ", "node", "c++", "stdlib", "language:",
		},
		text:       "Which implementation technology should be used?",
		whyNeeded:  "The goal names no language or runtime, so every downstream choice is blocked on this.",
		answerType: AnswerChoice,
		options: []answerOption{
			{answer: "go", addedConstraints: []string{"language: golang"}},
			{answer: "python", addedConstraints: []string{"language: python"}},
			{answer: "typescript", addedConstraints: []string{"language: typescript"}},
		},
		gainBias:     10,
		priorityBias: 10,
	},
	{
		name:      "user type",
		triggers:  []string{"user", "customer", "operator", "people", "audience"},
		resolvers: []string{"audience:", "end users", "internal operators", "developers only"},
		text:      "Is this intended for external end users rather than internal operators?",
		whyNeeded: "External and internal audiences imply different interfaces, hardening, and documentation.",
		answerType: AnswerBoolean,
		options: []answerOption{
			{answer: "yes", addedConstraints: []string{"audience: end users"}},
			{answer: "no", addedConstraints: []string{"audience: internal operators"}},
		},
		gainBias:     4,
		priorityBias: 4,
	},
	{
		name:      "data storage",
		triggers:  []string{"store", "storage", "persist", "database", "data ", "save"},
		resolvers: []string{"postgres", "sqlite", "mysql", "redis", "in-memory", "filesystem", "file-based", "db:"},
		text:      "Where should the data live?",
		whyNeeded: "Storage choice drives schema design, durability guarantees, and operational cost.",
		answerType: AnswerChoice,
		options: []answerOption{
			{answer: "postgres", addedConstraints: []string{"db: postgres"}},
			{answer: "sqlite", addedConstraints: []string{"db: sqlite"}},
			{answer: "in-memory", addedConstraints: []string{"db: in-memory"}},
		},
		gainBias:     6,
		priorityBias: 6,
	},
	{
		name:      "authentication",
		triggers:  []string{"auth", "login", "account", "permission", "access control"},
		resolvers: []string{"oauth", "jwt", "api key", "no auth", "anonymous", "basic auth", "auth:"},
		text:      "How should callers authenticate?",
		whyNeeded: "Authentication cannot be bolted on later without reworking every entry point.",
		answerType: AnswerChoice,
		options: []answerOption{
			{answer: "oauth", addedConstraints: []string{"auth: oauth2"}},
			{answer: "api key", addedConstraints: []string{"auth: api key"}},
			{answer: "none", addedConstraints: []string{"auth: none (trusted network)"}},
		},
		gainBias:     5,
		priorityBias: 5,
	},
	{
		name:      "scale",
		triggers:  []string{"scale", "traffic", "load", "concurrent", "many "},
		resolvers: []string{"qps", "rps", "per second", "single user", "scale:"},
		text:      "What scale should the design target?",
		whyNeeded: "A single-user tool and a high-traffic service are different systems with the same name.",
		answerType: AnswerText,
		options: []answerOption{
			{answer: "unspecified", addedConstraints: []string{"scale: assume single user baseline"}},
		},
		gainBias:     3,
		priorityBias: 3,
	},
	{
		name:      "api style",
		triggers:  []string{"api", "endpoint", "interface", "client"},
		resolvers: []string{"rest", "grpc", "graphql", "http", "json-rpc", "websocket", "cli", "api style:"},
		text:      "What interface style should be exposed?",
		whyNeeded: "The wire contract shapes everything from routing to error reporting.",
		answerType: AnswerChoice,
		options: []answerOption{
			{answer: "rest", addedConstraints: []string{"api style: rest"}},
			{answer: "grpc", addedConstraints: []string{"api style: grpc"}},
			{answer: "cli", addedConstraints: []string{"api style: cli"}},
		},
		gainBias:     5,
		priorityBias: 5,
	},
	{
		name:      "error handling",
		triggers:  []string{"error", "failure", "fault", "retry", "recover"},
		resolvers: []string{"fail-fast", "graceful", "retries:", "error handling:"},
		text:      "Should failures fail fast or degrade gracefully?",
		whyNeeded: "Recovery strategy decides what partial results mean and who sees them.",
		answerType: AnswerChoice,
		options: []answerOption{
			{answer: "fail-fast", addedConstraints: []string{"error handling: fail-fast"}},
			{answer: "graceful", addedConstraints: []string{"error handling: graceful degradation"}},
		},
		gainBias:     2,
		priorityBias: 2,
	},
}

// candidateQuestions generates the candidate clarifying questions for
// a node by matching the fixed pattern set against its combined
// goal+constraints text. Candidates come back unsorted; callers
// order them with sortCandidates or sortQuestions.
func candidateQuestions(node *ContextNode) ([]Question, error) {
	parts := append([]string{node.Goal}, node.Constraints...)
	text := strings.ToLower(strings.Join(parts, "\n"))

	baseGain := int(measure.InformationGain(node.Entropy, node.Density))

	var candidates []Question
	for _, pattern := range ambiguityPatterns {
		if !containsAny(text, pattern.triggers) || containsAny(text, pattern.resolvers) {
			continue
		}
		id, err := deriveQuestionID(pattern.text, pattern.answerType)
		if err != nil {
			return nil, err
		}
		question := Question{
			ID:                 id,
			Text:               pattern.text,
			ExpectedAnswerType: pattern.answerType,
			WhyNeeded:          pattern.whyNeeded,
			InformationGain:    measure.ClampScore(baseGain + pattern.gainBias),
			Priority:           measure.ClampScore(baseGain + pattern.priorityBias),
		}
		if pattern.answerType == AnswerChoice {
			for _, option := range pattern.options {
				question.Options = append(question.Options, option.answer)
			}
		}
		candidates = append(candidates, question)
	}
	return candidates, nil
}

// expandBranches turns the selected question into branches: one per
// option for choice questions, yes/no for boolean, and a single
// placeholder branch for free-text. Branches come back sorted by
// their content-derived ID.
func expandBranches(question Question) ([]Branch, error) {
	pattern, ok := patternByQuestionText(question.Text)
	if !ok {
		// A question with no backing pattern (handcrafted input)
		// expands into a single placeholder branch.
		id, err := deriveBranchID(question.ID, "unspecified", []string{"assumption: " + question.Text + " left unresolved"})
		if err != nil {
			return nil, err
		}
		return []Branch{{
			ID:               id,
			Answer:           "unspecified",
			AddedConstraints: []string{"assumption: " + question.Text + " left unresolved"},
		}}, nil
	}

	branches := make([]Branch, 0, len(pattern.options))
	for _, option := range pattern.options {
		id, err := deriveBranchID(question.ID, option.answer, option.addedConstraints)
		if err != nil {
			return nil, err
		}
		branches = append(branches, Branch{
			ID:               id,
			Answer:           option.answer,
			AddedConstraints: option.addedConstraints,
		})
	}
	sortBranches(branches)
	return branches, nil
}

func patternByQuestionText(text string) (ambiguityPattern, bool) {
	for _, pattern := range ambiguityPatterns {
		if pattern.text == text {
			return pattern, true
		}
	}
	return ambiguityPattern{}, false
}

func containsAny(text string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}
