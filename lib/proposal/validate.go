// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

package proposal

import "fmt"

// Recommendation is the validator's verdict on a piece of evidence.
type Recommendation string

const (
	RecommendAccept Recommendation = "accept"
	RecommendReview Recommendation = "review"
	RecommendReject Recommendation = "reject"
)

// ValidationReport is the full output of evidence validation.
type ValidationReport struct {
	Errors         []string       `json:"errors,omitempty"`
	Warnings       []string       `json:"warnings,omitempty"`
	Recommendation Recommendation `json:"recommendation"`
}

// Validate judges evidence against the proposal it claims to satisfy.
// It fails closed: every required action must appear with status
// success and a matching hash, every required test must appear and
// pass, and the evidence must name the exact proposal by hash. Any
// error yields reject; warnings alone, or a proposal that requires
// approval, yield review; a clean pass yields accept.
//
// This is pure evaluation of data the kernel was handed. Nothing here
// re-executes or retries.
func Validate(p *Proposal, e *ExecutionEvidence) (*ValidationReport, error) {
	if p == nil {
		return nil, fmt.Errorf("validate evidence: nil proposal")
	}
	report := &ValidationReport{}
	if e == nil {
		report.Errors = append(report.Errors, "no evidence supplied")
		report.Recommendation = RecommendReject
		return report, nil
	}

	if e.ProposalID != p.ID {
		report.Errors = append(report.Errors,
			fmt.Sprintf("evidence names proposal %s, expected %s", e.ProposalID, p.ID))
	}
	expectedHash, err := HashProposal(p)
	if err != nil {
		return nil, err
	}
	if e.ProposalHash != expectedHash {
		report.Errors = append(report.Errors,
			"proposal_hash does not match the proposal: evidence was produced against different content")
	}

	actionResults := make(map[string]ActionResult, len(e.ActionResults))
	for _, result := range e.ActionResults {
		if _, dup := actionResults[result.ActionID]; dup {
			report.Errors = append(report.Errors,
				fmt.Sprintf("duplicate result for action %s", result.ActionID))
			continue
		}
		actionResults[result.ActionID] = result
	}

	knownActions := make(map[string]bool, len(p.Actions))
	for _, action := range p.Actions {
		knownActions[action.ID] = true
		result, present := actionResults[action.ID]
		if !present {
			if action.Required {
				report.Errors = append(report.Errors,
					fmt.Sprintf("required action %s has no result", action.ID))
			} else {
				report.Warnings = append(report.Warnings,
					fmt.Sprintf("optional action %s has no result", action.ID))
			}
			continue
		}
		if action.Required && result.Status != ActionSuccess {
			report.Errors = append(report.Errors,
				fmt.Sprintf("required action %s finished %s: %s", action.ID, result.Status, result.Error))
			continue
		}
		if action.ExpectedHash != "" && result.Status == ActionSuccess && result.ActualHash != action.ExpectedHash {
			report.Errors = append(report.Errors,
				fmt.Sprintf("action %s produced hash %s, expected %s", action.ID, result.ActualHash, action.ExpectedHash))
		}
	}
	for id := range actionResults {
		if !knownActions[id] {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("evidence reports unknown action %s", id))
		}
	}

	testResults := make(map[string]TestResult, len(e.TestResults))
	for _, result := range e.TestResults {
		testResults[result.TestID] = result
	}
	for _, test := range p.AcceptanceTests {
		result, present := testResults[test.ID]
		if !present {
			if test.Required {
				report.Errors = append(report.Errors,
					fmt.Sprintf("required test %s has no result", test.ID))
			} else {
				report.Warnings = append(report.Warnings,
					fmt.Sprintf("optional test %s has no result", test.ID))
			}
			continue
		}
		if test.Required && !result.Passed {
			report.Errors = append(report.Errors,
				fmt.Sprintf("required test %s failed: %s", test.ID, result.Detail))
		}
	}

	if e.Status == EvidencePartial {
		report.Warnings = append(report.Warnings, "executor reported a partial run")
	}
	if e.Status == EvidenceFailed {
		report.Errors = append(report.Errors, "executor reported a failed run")
	}

	switch {
	case len(report.Errors) > 0:
		report.Recommendation = RecommendReject
	case len(report.Warnings) > 0 || p.RequiresApproval:
		report.Recommendation = RecommendReview
	default:
		report.Recommendation = RecommendAccept
	}
	return report, nil
}
