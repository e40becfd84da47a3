// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/crucible-foundation/crucible/lib/binhash"
	"github.com/crucible-foundation/crucible/lib/policy"
	"github.com/crucible-foundation/crucible/lib/proposal"
)

// Executor runs proposals inside isolated temp directories under a
// policy profile. It satisfies the kernel's proposal.Executor
// interface; it is the untrusted half of the protocol.
type Executor struct {
	policy policy.Profile
	logger *slog.Logger

	// keepDir leaves the sandbox directory in place after a run, for
	// debugging. Cleanup is best-effort either way and never
	// security-relevant.
	keepDir bool
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger enables structured logging of sandbox activity.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) { e.logger = logger }
}

// KeepSandboxDir disables best-effort cleanup after a run.
func KeepSandboxDir() Option {
	return func(e *Executor) { e.keepDir = true }
}

// New creates an executor bound to a policy profile.
func New(profile policy.Profile, options ...Option) *Executor {
	executor := &Executor{policy: profile}
	for _, option := range options {
		option(executor)
	}
	if executor.logger == nil {
		executor.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return executor
}

// Execute carries out a proposal and reports evidence. The error
// return covers executor-infrastructure failure only (sandbox
// creation); every action or test outcome, including failures and
// timeouts, is data inside the evidence.
func (e *Executor) Execute(ctx context.Context, p *proposal.Proposal) (*proposal.ExecutionEvidence, error) {
	// The temp directory name is deliberately the one non-deterministic
	// value in the whole pipeline; it is excluded from evidence hashing.
	root, err := os.MkdirTemp("", "crucible-run-")
	if err != nil {
		return nil, err
	}
	if !e.keepDir {
		defer os.RemoveAll(root)
	}

	e.logger.Info("sandbox run starting",
		"proposal", p.ID,
		"policy", e.policy.Name,
		"actions", len(p.Actions))

	evidence := &proposal.ExecutionEvidence{
		ProposalID: p.ID,
		StartedAt:  time.Now().UTC().Format(time.RFC3339),
		WorkingDir: root,
	}

	evidence.ProposalHash, err = proposal.HashProposal(p)
	if err != nil {
		return nil, err
	}
	if executorID, err := binhash.Self(); err == nil {
		evidence.ExecutorID = executorID
	}

	failures := 0
	for _, action := range p.Actions {
		result := e.runAction(ctx, root, action)
		evidence.ActionResults = append(evidence.ActionResults, result)
		if result.Status != proposal.ActionSuccess && result.Status != proposal.ActionSkipped {
			failures++
			e.logger.Warn("action did not succeed",
				"action", action.ID, "status", string(result.Status), "error", result.Error)
		}
	}

	for _, test := range p.AcceptanceTests {
		result := e.runTest(ctx, root, test)
		evidence.TestResults = append(evidence.TestResults, result)
		if !result.Passed {
			e.logger.Warn("acceptance test failed", "test", test.ID, "detail", result.Detail)
		}
	}

	// Harvest whatever landed in the sandbox, under the profile's
	// quotas. The collection rides inside the evidence so the kernel
	// judges the harvest alongside the action results.
	collection, err := Collect(root, e.policy)
	if err != nil {
		return nil, err
	}
	evidence.Collection = collection
	if len(collection.SecurityViolations) > 0 {
		e.logger.Warn("output collection recorded violations",
			"violations", len(collection.SecurityViolations), "truncated", collection.Truncated)
	}

	switch {
	case failures == 0:
		evidence.Status = proposal.EvidenceComplete
	case failures == len(p.Actions):
		evidence.Status = proposal.EvidenceFailed
	default:
		evidence.Status = proposal.EvidencePartial
	}
	evidence.CompletedAt = time.Now().UTC().Format(time.RFC3339)

	e.logger.Info("sandbox run finished",
		"proposal", p.ID, "status", string(evidence.Status),
		"failures", failures, "collected_files", len(collection.Files))
	return evidence, nil
}
