// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"context"
	"strings"
	"testing"

	"github.com/crucible-foundation/crucible/lib/bundle"
	"github.com/crucible-foundation/crucible/lib/decompose"
	"github.com/crucible-foundation/crucible/lib/intent"
	"github.com/crucible-foundation/crucible/lib/policy"
	"github.com/crucible-foundation/crucible/lib/proposal"
)

func mustProfile(t *testing.T, name string) policy.Profile {
	t.Helper()
	profile, err := policy.Load(name)
	if err != nil {
		t.Fatalf("Load(%q): %v", name, err)
	}
	return profile
}

func fixtureProposal(t *testing.T) *proposal.Proposal {
	t.Helper()
	normalized, err := intent.Normalize(intent.Intent{
		Goal: "Implement an HTTP health endpoint in Go returning JSON on port 8080",
		Constraints: []string{
			"endpoint: /healthz returns 200",
			"go 1.22, net/http stdlib only",
			"output: main.go single file",
		},
	})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	tree, err := decompose.Decompose(normalized, decompose.DefaultConfig())
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}
	intentHash, err := intent.Hash(normalized)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	assembled, err := bundle.Assemble(tree, intentHash)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	generated, err := proposal.Generate(assembled)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return generated
}

func TestExecuteGeneratedProposal(t *testing.T) {
	p := fixtureProposal(t)
	executor := New(mustProfile(t, policy.ProfileStrict))

	evidence, err := executor.Execute(context.Background(), p)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if evidence.Status != proposal.EvidenceComplete {
		t.Errorf("evidence status = %s, want complete", evidence.Status)
	}
	if evidence.ProposalID != p.ID {
		t.Errorf("evidence proposal id = %s, want %s", evidence.ProposalID, p.ID)
	}
	if len(evidence.ActionResults) != len(p.Actions) {
		t.Fatalf("action results = %d, want %d", len(evidence.ActionResults), len(p.Actions))
	}
	for i, result := range evidence.ActionResults {
		if result.Status != proposal.ActionSuccess {
			t.Errorf("action %d status = %s: %s", i, result.Status, result.Error)
		}
		if result.ActualHash != p.Actions[i].ExpectedHash {
			t.Errorf("action %d actual hash does not match expected", i)
		}
	}
	for _, result := range evidence.TestResults {
		if !result.Passed {
			t.Errorf("test %s failed: %s", result.TestID, result.Detail)
		}
	}

	report, err := proposal.Validate(p, evidence)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(report.Errors) != 0 {
		t.Errorf("kernel rejected honest evidence: %v", report.Errors)
	}
}

func TestExecuteCollectsOutputs(t *testing.T) {
	p := fixtureProposal(t)
	executor := New(mustProfile(t, policy.ProfileStrict))

	evidence, err := executor.Execute(context.Background(), p)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	collection := evidence.Collection
	if collection == nil {
		t.Fatal("evidence carries no output collection")
	}
	if collection.Truncated {
		t.Error("unexpected truncation")
	}
	if len(collection.SecurityViolations) != 0 {
		t.Errorf("unexpected violations: %v", collection.SecurityViolations)
	}

	collected := make(map[string]bool, len(collection.Files))
	for _, file := range collection.Files {
		collected[file.Path] = true
		if !strings.HasPrefix(file.Hash, "sha256:") {
			t.Errorf("collected file %s hash %q malformed", file.Path, file.Hash)
		}
	}
	for _, action := range p.Actions {
		if !collected[action.Path] {
			t.Errorf("written file %s missing from the collection", action.Path)
		}
	}

	// The harvest is part of what the kernel judges: evidence that
	// differs only in its collection must hash differently.
	baseline, err := proposal.HashEvidence(evidence)
	if err != nil {
		t.Fatalf("HashEvidence: %v", err)
	}
	mutated := *evidence
	mutated.Collection = &proposal.OutputCollection{Truncated: true}
	altered, err := proposal.HashEvidence(&mutated)
	if err != nil {
		t.Fatalf("HashEvidence: %v", err)
	}
	if baseline == altered {
		t.Error("collection is not reflected in the evidence hash")
	}
}

func TestExecuteRejectsDisallowedWritePath(t *testing.T) {
	p := fixtureProposal(t)
	action := proposal.ProposedAction{
		ID:       "act_0000000000000001",
		Type:     proposal.ActionCreateFile,
		Order:    99,
		Path:     "secrets/creds.txt",
		Content:  "nope",
		Required: true,
	}
	p.Actions = append(p.Actions, action)

	executor := New(mustProfile(t, policy.ProfileStrict))
	evidence, err := executor.Execute(context.Background(), p)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	last := evidence.ActionResults[len(evidence.ActionResults)-1]
	if last.Status != proposal.ActionFailure {
		t.Fatalf("write outside allowed roots finished %s", last.Status)
	}
	if !strings.Contains(last.Error, "POLICY_VIOLATION") {
		t.Errorf("error %q does not carry the policy violation marker", last.Error)
	}
	if evidence.Status != proposal.EvidencePartial {
		t.Errorf("evidence status = %s, want partial", evidence.Status)
	}
}

func TestExecuteRejectsTraversal(t *testing.T) {
	executor := New(mustProfile(t, policy.ProfileStrict))
	p := &proposal.Proposal{
		ID:            "prop_0000000000000000",
		SchemaVersion: proposal.SchemaVersion,
		Actions: []proposal.ProposedAction{{
			ID:       "act_0000000000000002",
			Type:     proposal.ActionCreateFile,
			Path:     "out/../../../tmp/escape.txt",
			Content:  "nope",
			Required: true,
		}},
	}

	evidence, err := executor.Execute(context.Background(), p)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if evidence.ActionResults[0].Status != proposal.ActionFailure {
		t.Fatal("traversal path was written")
	}
	if evidence.Status != proposal.EvidenceFailed {
		t.Errorf("evidence status = %s, want failed", evidence.Status)
	}
}

func TestExecuteRejectsDisallowedCommand(t *testing.T) {
	executor := New(mustProfile(t, policy.ProfileStrict))
	p := &proposal.Proposal{
		ID:            "prop_0000000000000001",
		SchemaVersion: proposal.SchemaVersion,
		Actions: []proposal.ProposedAction{{
			ID:       "act_0000000000000003",
			Type:     proposal.ActionExecuteCommand,
			Command:  []string{"bash", "-c", "id"},
			Required: true,
		}},
	}

	evidence, err := executor.Execute(context.Background(), p)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	result := evidence.ActionResults[0]
	if result.Status != proposal.ActionFailure {
		t.Fatalf("disallowed command finished %s", result.Status)
	}
	if !strings.Contains(result.Error, "PL1") {
		t.Errorf("error %q does not carry the PL1 code", result.Error)
	}
}

func TestExecuteCommandTimeout(t *testing.T) {
	profile := mustProfile(t, policy.ProfileDev)
	profile.TimeoutMS = 100
	executor := New(profile)

	p := &proposal.Proposal{
		ID:            "prop_0000000000000002",
		SchemaVersion: proposal.SchemaVersion,
		Actions: []proposal.ProposedAction{{
			ID:       "act_0000000000000004",
			Type:     proposal.ActionExecuteCommand,
			Command:  []string{"sleep", "5"},
			Required: true,
		}},
	}

	evidence, err := executor.Execute(context.Background(), p)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	result := evidence.ActionResults[0]
	if result.Status != proposal.ActionTimeout {
		t.Fatalf("status = %s, want timeout", result.Status)
	}
}

func TestExecuteCommandCapture(t *testing.T) {
	executor := New(mustProfile(t, policy.ProfileDev))
	p := &proposal.Proposal{
		ID:            "prop_0000000000000003",
		SchemaVersion: proposal.SchemaVersion,
		Actions: []proposal.ProposedAction{{
			ID:       "act_0000000000000005",
			Type:     proposal.ActionExecuteCommand,
			Command:  []string{"sh", "-c", "echo captured; echo complaint >&2"},
			Required: true,
		}},
	}

	evidence, err := executor.Execute(context.Background(), p)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	result := evidence.ActionResults[0]
	if result.Status != proposal.ActionSuccess {
		t.Fatalf("status = %s: %s", result.Status, result.Error)
	}
	if !strings.Contains(result.Stdout, "captured") {
		t.Errorf("stdout = %q", result.Stdout)
	}
	if !strings.Contains(result.Stderr, "complaint") {
		t.Errorf("stderr = %q", result.Stderr)
	}
	if result.ExitCode == nil || *result.ExitCode != 0 {
		t.Errorf("exit code = %v, want 0", result.ExitCode)
	}
}

func TestDeleteFileAction(t *testing.T) {
	executor := New(mustProfile(t, policy.ProfileStrict))
	p := &proposal.Proposal{
		ID:            "prop_0000000000000004",
		SchemaVersion: proposal.SchemaVersion,
		Actions: []proposal.ProposedAction{
			{
				ID:       "act_0000000000000006",
				Type:     proposal.ActionCreateFile,
				Order:    0,
				Path:     "out/scratch.txt",
				Content:  "temporary",
				Required: true,
			},
			{
				ID:       "act_0000000000000007",
				Type:     proposal.ActionDeleteFile,
				Order:    1,
				Path:     "out/scratch.txt",
				Required: true,
			},
		},
		AcceptanceTests: []proposal.AcceptanceTest{{
			ID:       "test_0000000000000000",
			Type:     proposal.TestFileExists,
			Path:     "out/scratch.txt",
			Required: false,
		}},
	}

	evidence, err := executor.Execute(context.Background(), p)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for i, result := range evidence.ActionResults {
		if result.Status != proposal.ActionSuccess {
			t.Errorf("action %d status = %s: %s", i, result.Status, result.Error)
		}
	}
	if evidence.TestResults[0].Passed {
		t.Error("file_exists passed for a deleted file")
	}
}

func TestCappedBuffer(t *testing.T) {
	buffer := &cappedBuffer{limit: 8}
	n, err := buffer.Write([]byte("0123456789abcdef"))
	if err != nil || n != 16 {
		t.Fatalf("Write = %d, %v", n, err)
	}
	if got := buffer.String(); got != "01234567" {
		t.Errorf("buffer = %q, want first 8 bytes", got)
	}
}
