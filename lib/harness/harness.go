// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

// Package harness orchestrates one full kernel run: load policy, read
// and normalize the intent, decompose, assemble, clear the validation
// gates, and optionally hand a proposal to an executor and judge the
// evidence. The output is a single RunResult suitable as an audit
// record: canonical, free of absolute paths, and carrying the resolved
// policy verbatim.
//
// The harness owns sequencing, not capability: it performs no
// filesystem mutation and spawns no processes. Execution happens only
// through an injected proposal.Executor.
package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/crucible-foundation/crucible/lib/bundle"
	"github.com/crucible-foundation/crucible/lib/decompose"
	"github.com/crucible-foundation/crucible/lib/gates"
	"github.com/crucible-foundation/crucible/lib/intent"
	"github.com/crucible-foundation/crucible/lib/policy"
	"github.com/crucible-foundation/crucible/lib/proposal"
)

// Mode selects how far a run goes.
type Mode string

const (
	// ModePlanOnly stops after gating: decompose, assemble, validate.
	ModePlanOnly Mode = "plan-only"

	// ModeExecuteSandbox additionally generates a proposal, executes it
	// through the injected executor, and validates the evidence.
	ModeExecuteSandbox Mode = "execute-sandbox"
)

// ResultKind classifies a run's outcome.
type ResultKind string

const (
	// KindBundle means a complete bundle cleared the gates.
	KindBundle ResultKind = "BUNDLE"

	// KindClarify means the bundle is incomplete: questions remain for
	// the user before execution makes sense.
	KindClarify ResultKind = "CLARIFY"

	// KindRefuse means the intent itself was rejected before a bundle
	// could be built.
	KindRefuse ResultKind = "REFUSE"
)

// Options configures a run.
type Options struct {
	// IntentPath is the JSONC intent file. The path is sanitized to a
	// relative form before appearing in the result.
	IntentPath string

	// PolicyName selects the profile: strict, default, or dev.
	PolicyName string

	Mode Mode

	// Executor is required for ModeExecuteSandbox. The harness never
	// constructs one itself.
	Executor proposal.Executor

	Logger *slog.Logger
}

// IntentRecord identifies the intent a run consumed.
type IntentRecord struct {
	// Path is always relative; sanitization strips any absolute or
	// traversing prefix so the audit record never leaks host layout.
	Path string `json:"path"`

	// SHA256 is the canonical hash of the normalized intent.
	SHA256 string `json:"sha256"`
}

// ExecutionRecord summarizes the execute-sandbox phase.
type ExecutionRecord struct {
	ProposalID       string                  `json:"proposal_id"`
	ProposalHash     string                  `json:"proposal_hash"`
	RequiresApproval bool                    `json:"requires_approval"`
	EvidenceHash     string                  `json:"evidence_hash"`
	EvidenceStatus   proposal.EvidenceStatus `json:"evidence_status"`
	Recommendation   proposal.Recommendation `json:"recommendation"`
	Errors           []string                `json:"errors,omitempty"`
	Warnings         []string                `json:"warnings,omitempty"`
}

// Decision is the run's verdict.
type Decision struct {
	Accepted bool     `json:"accepted"`
	Reasons  []string `json:"reasons"`

	// ValidatedByKernel is always true: no result leaves the harness
	// without having passed the gates (or been refused before any
	// artifact existed).
	ValidatedByKernel bool `json:"validated_by_kernel"`
}

// RunResult is the harness's terminal artifact.
type RunResult struct {
	Policy       policy.Profile   `json:"policy"`
	Intent       IntentRecord     `json:"intent"`
	Bundle       *bundle.Bundle   `json:"bundle"`
	KernelResult ResultKind       `json:"kernel_result_kind"`
	Execution    *ExecutionRecord `json:"execution"`
	Decision     Decision         `json:"decision"`
}

// Run performs one full pipeline pass. Gate failure is fatal and
// returned as an error (it means the kernel itself produced a bad
// artifact); intent problems are not errors but REFUSE results.
func Run(ctx context.Context, options Options) (*RunResult, error) {
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	profile, err := policy.Load(options.PolicyName)
	if err != nil {
		return nil, err
	}

	switch options.Mode {
	case ModePlanOnly, ModeExecuteSandbox:
	default:
		return nil, fmt.Errorf("harness: unknown mode %q", options.Mode)
	}
	if options.Mode == ModeExecuteSandbox && options.Executor == nil {
		return nil, fmt.Errorf("harness: execute-sandbox mode requires an executor")
	}

	result := &RunResult{
		Policy: profile,
		Intent: IntentRecord{Path: intent.SanitizePath(options.IntentPath)},
		Decision: Decision{
			ValidatedByKernel: true,
		},
	}

	logger.Info("run starting",
		"intent", result.Intent.Path,
		"policy", profile.Name,
		"mode", string(options.Mode))

	normalized, refusal := prepareIntent(options.IntentPath)
	if refusal != "" {
		logger.Warn("intent refused", "reason", refusal)
		result.KernelResult = KindRefuse
		result.Decision.Reasons = []string{refusal}
		return result, nil
	}

	result.Intent.SHA256, err = intent.Hash(*normalized)
	if err != nil {
		return nil, err
	}

	tree, err := decompose.Decompose(*normalized, decompose.DefaultConfig())
	if err != nil {
		logger.Warn("decomposition refused", "error", err)
		result.KernelResult = KindRefuse
		result.Decision.Reasons = []string{err.Error()}
		return result, nil
	}

	assembled, err := bundle.Assemble(tree, result.Intent.SHA256)
	if err != nil {
		return nil, err
	}

	if err := gates.AssertValid(assembled); err != nil {
		// A gate failure here is a kernel defect, not a user problem.
		return nil, err
	}
	result.Bundle = assembled

	if assembled.Status == bundle.StatusComplete {
		result.KernelResult = KindBundle
	} else {
		result.KernelResult = KindClarify
	}
	logger.Info("bundle gated",
		"bundle", assembled.ID,
		"status", string(assembled.Status),
		"outputs", len(assembled.Outputs),
		"unresolved", len(assembled.UnresolvedQuestions))

	if options.Mode == ModeExecuteSandbox && result.KernelResult == KindBundle {
		record, err := executePhase(ctx, logger, options.Executor, assembled)
		if err != nil {
			return nil, err
		}
		result.Execution = record
	}

	result.Decision = decide(result)
	return result, nil
}

// prepareIntent reads, parses, and normalizes the intent file. Any
// failure is a refusal reason, never an error: bad input is a judged
// outcome, not a crash.
func prepareIntent(path string) (*intent.Intent, string) {
	parsed, err := intent.ReadFile(path)
	if err != nil {
		return nil, err.Error()
	}
	normalized, err := intent.Normalize(*parsed)
	if err != nil {
		var refusal *intent.RefusalError
		if errors.As(err, &refusal) {
			return nil, refusal.Reason
		}
		return nil, err.Error()
	}
	return &normalized, ""
}

func executePhase(ctx context.Context, logger *slog.Logger, executor proposal.Executor, assembled *bundle.Bundle) (*ExecutionRecord, error) {
	generated, err := proposal.Generate(assembled)
	if err != nil {
		return nil, err
	}
	proposalHash, err := proposal.HashProposal(generated)
	if err != nil {
		return nil, err
	}

	logger.Info("executing proposal",
		"proposal", generated.ID,
		"actions", len(generated.Actions),
		"requires_approval", generated.RequiresApproval)

	evidence, err := executor.Execute(ctx, generated)
	if err != nil {
		return nil, fmt.Errorf("executor infrastructure failure: %w", err)
	}

	report, err := proposal.Validate(generated, evidence)
	if err != nil {
		return nil, err
	}
	evidenceHash, err := proposal.HashEvidence(evidence)
	if err != nil {
		return nil, err
	}

	logger.Info("evidence validated",
		"recommendation", string(report.Recommendation),
		"errors", len(report.Errors),
		"warnings", len(report.Warnings))

	return &ExecutionRecord{
		ProposalID:       generated.ID,
		ProposalHash:     proposalHash,
		RequiresApproval: generated.RequiresApproval,
		EvidenceHash:     evidenceHash,
		EvidenceStatus:   evidence.Status,
		Recommendation:   report.Recommendation,
		Errors:           report.Errors,
		Warnings:         report.Warnings,
	}, nil
}

// decide derives the final verdict from everything above it. Accepted
// requires a complete, gated bundle and, when execution happened, a
// clean accept recommendation; anything less fails closed.
func decide(result *RunResult) Decision {
	decision := Decision{ValidatedByKernel: true}

	switch result.KernelResult {
	case KindClarify:
		decision.Reasons = append(decision.Reasons,
			fmt.Sprintf("%d unresolved question(s) require clarification", len(result.Bundle.UnresolvedQuestions)))
		return decision
	case KindRefuse:
		decision.Reasons = append(decision.Reasons, "intent was refused")
		return decision
	}

	if result.Execution == nil {
		decision.Accepted = true
		decision.Reasons = append(decision.Reasons, "complete bundle passed all validation gates")
		return decision
	}

	switch result.Execution.Recommendation {
	case proposal.RecommendAccept:
		decision.Accepted = true
		decision.Reasons = append(decision.Reasons, "execution evidence validated against the proposal")
	case proposal.RecommendReview:
		decision.Reasons = append(decision.Reasons, "evidence requires review before acceptance")
		decision.Reasons = append(decision.Reasons, result.Execution.Warnings...)
	default:
		decision.Reasons = append(decision.Reasons, "execution evidence was rejected")
		decision.Reasons = append(decision.Reasons, result.Execution.Errors...)
	}
	return decision
}
