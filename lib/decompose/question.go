// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

package decompose

import (
	"sort"

	"github.com/crucible-foundation/crucible/lib/codec"
	"github.com/crucible-foundation/crucible/lib/measure"
)

// AnswerType classifies what kind of answer a clarifying question
// expects, which in turn determines how it expands into branches.
type AnswerType string

const (
	// AnswerChoice expects one of the listed options.
	AnswerChoice AnswerType = "choice"

	// AnswerBoolean expects yes or no.
	AnswerBoolean AnswerType = "boolean"

	// AnswerText expects free text; it expands into a single
	// placeholder branch carrying a stated default assumption.
	AnswerText AnswerType = "text"
)

// Question is a candidate clarifying question generated for an
// ambiguous node.
type Question struct {
	// ID is content-derived from the question text and answer type.
	ID string `json:"id"`

	// Text is the question as it would be put to the user.
	Text string `json:"text"`

	ExpectedAnswerType AnswerType `json:"expected_answer_type"`

	// WhyNeeded explains what stays ambiguous until this is answered.
	WhyNeeded string `json:"why_needed"`

	// InformationGain estimates how much answering would reduce
	// ambiguity at the node that generated the question.
	InformationGain measure.Score `json:"information_gain"`

	// Priority orders unresolved questions for presentation.
	Priority measure.Score `json:"priority"`

	// Options lists the candidate answers for choice questions.
	Options []string `json:"options,omitempty"`
}

// Branch is one possible answer to a splitting question, carrying the
// constraints that answer contributes to the child node.
type Branch struct {
	// ID is content-derived from the question, answer, and added
	// constraints.
	ID string `json:"id"`

	// Answer is the literal answer this branch assumes.
	Answer string `json:"answer"`

	// AddedConstraints are appended to the parent's constraint set
	// to form the child's. Never empty: a branch that adds nothing
	// would recreate its parent.
	AddedConstraints []string `json:"added_constraints"`
}

// SplittingQuestion is the selected question on an expanding node,
// with one branch per answer. Branches are sorted by branch ID.
type SplittingQuestion struct {
	Question
	Branches []Branch `json:"branches"`
}

func deriveQuestionID(text string, answerType AnswerType) (string, error) {
	return codec.DeriveID("q", map[string]any{
		"text":                 text,
		"expected_answer_type": string(answerType),
	})
}

func deriveBranchID(questionID, answer string, addedConstraints []string) (string, error) {
	return codec.DeriveID("branch", map[string]any{
		"question_id":       questionID,
		"answer":            answer,
		"added_constraints": addedConstraints,
	})
}

// sortQuestions orders questions by priority descending, then ID
// ascending. This is the canonical order for every unresolved
// question list in the system.
func sortQuestions(questions []Question) {
	sort.Slice(questions, func(i, j int) bool {
		if questions[i].Priority != questions[j].Priority {
			return questions[i].Priority > questions[j].Priority
		}
		return questions[i].ID < questions[j].ID
	})
}

// sortBranches orders branches by their content-derived ID.
func sortBranches(branches []Branch) {
	sort.Slice(branches, func(i, j int) bool {
		return branches[i].ID < branches[j].ID
	})
}

// sortCandidates orders candidate questions for selection: highest
// information gain first, ties broken by ID ascending.
func sortCandidates(questions []Question) {
	sort.Slice(questions, func(i, j int) bool {
		if questions[i].InformationGain != questions[j].InformationGain {
			return questions[i].InformationGain > questions[j].InformationGain
		}
		return questions[i].ID < questions[j].ID
	})
}
