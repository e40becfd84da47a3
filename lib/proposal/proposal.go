// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

// Package proposal encodes the trust boundary between the kernel and
// anything that touches the real world: the kernel derives a Proposal
// from a validated bundle, an untrusted executor carries it out and
// returns ExecutionEvidence, and the kernel judges the evidence
// against the proposal. The kernel side of this package is pure; it
// never executes anything itself.
package proposal

import (
	"fmt"
	"sort"

	"github.com/crucible-foundation/crucible/lib/bundle"
	"github.com/crucible-foundation/crucible/lib/codec"
	"github.com/crucible-foundation/crucible/lib/measure"
)

// SchemaVersion is the proposal schema version.
const SchemaVersion = "1"

// ApprovalThreshold is the confidence below which a proposal always
// requires human approval.
const ApprovalThreshold measure.Score = 70

// ActionType enumerates what an executor may be asked to do.
type ActionType string

const (
	ActionCreateFile     ActionType = "create_file"
	ActionModifyFile     ActionType = "modify_file"
	ActionDeleteFile     ActionType = "delete_file"
	ActionExecuteCommand ActionType = "execute_command"
	ActionValidate       ActionType = "validate"
	ActionTest           ActionType = "test"
)

// ProposedAction is one step of a proposal. Actions are executed in
// Order; ties are broken by ID.
type ProposedAction struct {
	// ID is content-derived (prefix "act").
	ID string `json:"id"`

	Type  ActionType `json:"type"`
	Order int        `json:"order"`

	// Path is the sandbox-relative target for file actions.
	Path string `json:"path,omitempty"`

	// Content is required for create_file and modify_file, forbidden
	// for delete_file.
	Content string `json:"content,omitempty"`

	// ExpectedHash, when set, is the canonical hash the written file
	// content must produce.
	ExpectedHash string `json:"expected_hash,omitempty"`

	// Command is the argv for execute_command actions. The executable
	// name must clear the policy allow-list at execution time.
	Command []string `json:"command,omitempty"`

	// Required actions must appear in evidence with status success for
	// the evidence to validate.
	Required bool `json:"required"`
}

// TestType enumerates acceptance test kinds.
type TestType string

const (
	TestHashMatch      TestType = "hash_match"
	TestFileExists     TestType = "file_exists"
	TestCommandSuccess TestType = "command_success"
	TestContentMatch   TestType = "content_match"
)

// AcceptanceTest is a post-execution check run inside the sandbox.
type AcceptanceTest struct {
	// ID is content-derived (prefix "test").
	ID string `json:"id"`

	Type TestType `json:"type"`

	// ActionID links the test to the action it verifies, when any.
	ActionID string `json:"action_id,omitempty"`

	Path            string   `json:"path,omitempty"`
	ExpectedHash    string   `json:"expected_hash,omitempty"`
	ExpectedContent string   `json:"expected_content,omitempty"`
	Command         []string `json:"command,omitempty"`

	// Required tests must appear in evidence with passed=true.
	Required bool `json:"required"`
}

// Proposal is the kernel's complete, ordered statement of what should
// happen. Like every kernel artifact it is content-addressed and
// immutable once derived.
type Proposal struct {
	// ID is content-derived (prefix "prop") over the proposal with the
	// ID field blank.
	ID string `json:"id"`

	SchemaVersion string `json:"schema_version"`

	// SourceBundleID and SourceBundleHash pin the proposal to the exact
	// bundle it was derived from.
	SourceBundleID   string `json:"source_bundle_id"`
	SourceBundleHash string `json:"source_bundle_hash"`

	// Actions are sorted by (order, id).
	Actions []ProposedAction `json:"actions"`

	// AcceptanceTests are sorted by id.
	AcceptanceTests []AcceptanceTest `json:"acceptance_tests"`

	Summary string `json:"summary"`

	// RequiresApproval is forced true when Confidence is below
	// ApprovalThreshold or the source bundle is incomplete.
	RequiresApproval bool `json:"requires_approval"`

	// Confidence is the lowest confidence among the source outputs:
	// a proposal is only as trustworthy as its weakest part.
	Confidence measure.Score `json:"confidence"`
}

// Generate derives the proposal for a gated bundle: one create_file
// action per output carrying the output's content and hash, and one
// hash_match acceptance test per action.
func Generate(b *bundle.Bundle) (*Proposal, error) {
	if b == nil {
		return nil, fmt.Errorf("proposal: nil bundle")
	}

	bundleHash, err := codec.Hash(b)
	if err != nil {
		return nil, err
	}

	actions := make([]ProposedAction, 0, len(b.Outputs))
	tests := make([]AcceptanceTest, 0, len(b.Outputs))
	for i, output := range b.Outputs {
		action := ProposedAction{
			Type:         ActionCreateFile,
			Order:        i,
			Path:         output.Path,
			Content:      output.Content,
			ExpectedHash: output.ContentHash,
			Required:     true,
		}
		action.ID, err = deriveActionID(action)
		if err != nil {
			return nil, err
		}
		actions = append(actions, action)

		test := AcceptanceTest{
			Type:         TestHashMatch,
			ActionID:     action.ID,
			Path:         output.Path,
			ExpectedHash: output.ContentHash,
			Required:     true,
		}
		test.ID, err = deriveTestID(test)
		if err != nil {
			return nil, err
		}
		tests = append(tests, test)
	}

	sort.Slice(actions, func(i, j int) bool {
		if actions[i].Order != actions[j].Order {
			return actions[i].Order < actions[j].Order
		}
		return actions[i].ID < actions[j].ID
	})
	sort.Slice(tests, func(i, j int) bool {
		return tests[i].ID < tests[j].ID
	})

	confidence := proposalConfidence(b)
	derived := &Proposal{
		SchemaVersion:    SchemaVersion,
		SourceBundleID:   b.ID,
		SourceBundleHash: bundleHash,
		Actions:          actions,
		AcceptanceTests:  tests,
		Summary:          fmt.Sprintf("write %d context output(s) from bundle %s", len(actions), b.ID),
		RequiresApproval: confidence < ApprovalThreshold || b.Status != bundle.StatusComplete,
		Confidence:       confidence,
	}

	derived.ID, err = DeriveProposalID(derived)
	if err != nil {
		return nil, err
	}
	return derived, nil
}

// DeriveProposalID computes the content-derived ID of a proposal over
// its content with the ID field blank.
func DeriveProposalID(p *Proposal) (string, error) {
	identity := *p
	identity.ID = ""
	return codec.DeriveID("prop", identity)
}

// HashProposal is the canonical hash an executor must echo back in
// evidence, proving which exact proposal it executed.
func HashProposal(p *Proposal) (string, error) {
	return codec.Hash(p)
}

func deriveActionID(action ProposedAction) (string, error) {
	return codec.DeriveID("act", map[string]any{
		"type":    string(action.Type),
		"order":   action.Order,
		"path":    action.Path,
		"content": action.Content,
		"command": action.Command,
	})
}

func deriveTestID(test AcceptanceTest) (string, error) {
	return codec.DeriveID("test", map[string]any{
		"type":          string(test.Type),
		"action_id":     test.ActionID,
		"path":          test.Path,
		"expected_hash": test.ExpectedHash,
		"command":       test.Command,
	})
}

// proposalConfidence is the minimum output confidence, zero for a
// bundle with no outputs.
func proposalConfidence(b *bundle.Bundle) measure.Score {
	if len(b.Outputs) == 0 {
		return 0
	}
	lowest := measure.Score(100)
	for _, output := range b.Outputs {
		if output.Confidence < lowest {
			lowest = output.Confidence
		}
	}
	return lowest
}

// CheckAction verifies the structural rules for a single action:
// create/modify require content, delete must not carry content, and
// file actions need a path.
func CheckAction(action ProposedAction) error {
	switch action.Type {
	case ActionCreateFile, ActionModifyFile:
		if action.Path == "" {
			return fmt.Errorf("action %s: %s requires a path", action.ID, action.Type)
		}
		if action.Content == "" {
			return fmt.Errorf("action %s: %s requires content", action.ID, action.Type)
		}
	case ActionDeleteFile:
		if action.Path == "" {
			return fmt.Errorf("action %s: delete_file requires a path", action.ID)
		}
		if action.Content != "" {
			return fmt.Errorf("action %s: delete_file must not carry content", action.ID)
		}
	case ActionExecuteCommand:
		if len(action.Command) == 0 {
			return fmt.Errorf("action %s: execute_command requires a command", action.ID)
		}
	case ActionValidate, ActionTest:
	default:
		return fmt.Errorf("action %s: unknown type %q", action.ID, action.Type)
	}
	return nil
}
