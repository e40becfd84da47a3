// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

package proposal

import (
	"context"

	"github.com/crucible-foundation/crucible/lib/codec"
)

// ActionStatus is the recorded outcome of one executed action.
type ActionStatus string

const (
	ActionSuccess ActionStatus = "success"
	ActionFailure ActionStatus = "failure"
	ActionSkipped ActionStatus = "skipped"
	ActionTimeout ActionStatus = "timeout"
)

// ActionResult records what actually happened for one action. Failures
// and timeouts live here as data; the executor never raises them as
// errors, because the kernel judges evidence, it does not catch
// executor exceptions.
type ActionResult struct {
	ActionID string       `json:"action_id"`
	Status   ActionStatus `json:"status"`

	// ActualHash is the canonical hash of the file content the action
	// produced, for file actions.
	ActualHash string `json:"actual_hash,omitempty"`

	ExitCode *int   `json:"exit_code,omitempty"`
	Stdout   string `json:"stdout,omitempty"`
	Stderr   string `json:"stderr,omitempty"`
	Error    string `json:"error,omitempty"`

	// DurationMS is timing telemetry, excluded from evidence hashing.
	DurationMS int64 `json:"duration_ms"`
}

// TestResult records one acceptance test's outcome.
type TestResult struct {
	TestID string `json:"test_id"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// CollectedFile is one output file harvested from the sandbox after a
// run. Path is relative to the sandbox root with forward slashes; Hash
// is a raw-byte digest of the file as it sat on disk.
type CollectedFile struct {
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
	Hash      string `json:"hash"`
}

// OutputCollection is the hardened harvest of the sandbox after all
// actions and tests ran. Quota breaches and refused paths accumulate
// in SecurityViolations instead of aborting the run; the kernel sees
// the safe subset plus a record of everything that was refused.
type OutputCollection struct {
	Files              []CollectedFile `json:"files"`
	TotalBytes         int64           `json:"total_bytes"`
	Truncated          bool            `json:"truncated"`
	SecurityViolations []string        `json:"security_violations,omitempty"`
}

// EvidenceStatus is the executor's overall verdict on a run.
type EvidenceStatus string

const (
	EvidenceComplete EvidenceStatus = "complete"
	EvidencePartial  EvidenceStatus = "partial"
	EvidenceFailed   EvidenceStatus = "failed"
)

// ExecutionEvidence is the untrusted executor's full report. The
// kernel never modifies evidence, only validates it.
type ExecutionEvidence struct {
	ProposalID string `json:"proposal_id"`

	// ProposalHash must equal the canonical hash of the proposal the
	// executor was handed; it proves which proposal this evidence is
	// about.
	ProposalHash string `json:"proposal_hash"`

	ActionResults []ActionResult `json:"action_results"`
	TestResults   []TestResult   `json:"test_results"`

	Status EvidenceStatus `json:"status"`

	// Collection is what the executor harvested from the sandbox. It is
	// part of the hashable core: paths are sandbox-relative and hashes
	// are content-derived, so identical runs collect identically.
	Collection *OutputCollection `json:"collection,omitempty"`

	// Everything below is ephemeral: it identifies when, where, and by
	// whom the run happened, and is excluded from evidence hashing so
	// that two identical runs hash identically.
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at"`
	ExecutorID  string `json:"executor_id"`
	WorkingDir  string `json:"working_dir"`
}

// coreActionResult is ActionResult minus timing.
type coreActionResult struct {
	ActionID   string       `json:"action_id"`
	Status     ActionStatus `json:"status"`
	ActualHash string       `json:"actual_hash,omitempty"`
	ExitCode   *int         `json:"exit_code,omitempty"`
	Stdout     string       `json:"stdout,omitempty"`
	Stderr     string       `json:"stderr,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// EvidenceCore is the hashable subset of ExecutionEvidence: what
// happened, stripped of when/where/who.
type EvidenceCore struct {
	ProposalID    string             `json:"proposal_id"`
	ProposalHash  string             `json:"proposal_hash"`
	ActionResults []coreActionResult `json:"action_results"`
	TestResults   []TestResult       `json:"test_results"`
	Status        EvidenceStatus     `json:"status"`
	Collection    *OutputCollection  `json:"collection,omitempty"`
}

// Core projects evidence onto its hashable subset.
func (e *ExecutionEvidence) Core() EvidenceCore {
	core := EvidenceCore{
		ProposalID:   e.ProposalID,
		ProposalHash: e.ProposalHash,
		TestResults:  e.TestResults,
		Status:       e.Status,
		Collection:   e.Collection,
	}
	for _, result := range e.ActionResults {
		core.ActionResults = append(core.ActionResults, coreActionResult{
			ActionID:   result.ActionID,
			Status:     result.Status,
			ActualHash: result.ActualHash,
			ExitCode:   result.ExitCode,
			Stdout:     result.Stdout,
			Stderr:     result.Stderr,
			Error:      result.Error,
		})
	}
	return core
}

// HashEvidence hashes the evidence core. Two runs that differ only in
// timing, executor identity, or sandbox location hash identically.
func HashEvidence(e *ExecutionEvidence) (string, error) {
	return codec.Hash(e.Core())
}

// Executor is the kernel's only view of anything that can touch the
// filesystem or spawn processes. The kernel depends on this interface
// alone; no kernel package links in process or filesystem mutation
// capability.
type Executor interface {
	// Execute carries out a proposal and reports evidence. The error
	// return is for executor-infrastructure failures only (sandbox
	// creation, catastrophic I/O); action and test failures are data
	// inside the evidence, never errors.
	Execute(ctx context.Context, p *Proposal) (*ExecutionEvidence, error)
}
