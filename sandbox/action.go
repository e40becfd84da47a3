// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/crucible-foundation/crucible/lib/codec"
	"github.com/crucible-foundation/crucible/lib/policy"
	"github.com/crucible-foundation/crucible/lib/proposal"
)

// maxCaptureBytes caps stdout/stderr capture per stream. Command
// output beyond the cap is dropped, not buffered.
const maxCaptureBytes = 64 * 1024

// runAction executes one action and records the outcome. Every
// failure mode ends up in the result; nothing escapes as a panic or
// error.
func (e *Executor) runAction(ctx context.Context, root string, action proposal.ProposedAction) proposal.ActionResult {
	started := time.Now()
	result := e.performAction(ctx, root, action)
	result.ActionID = action.ID
	result.DurationMS = time.Since(started).Milliseconds()
	return result
}

func (e *Executor) performAction(ctx context.Context, root string, action proposal.ProposedAction) proposal.ActionResult {
	if err := proposal.CheckAction(action); err != nil {
		return proposal.ActionResult{Status: proposal.ActionFailure, Error: err.Error()}
	}

	switch action.Type {
	case proposal.ActionCreateFile, proposal.ActionModifyFile:
		return e.writeFile(root, action)
	case proposal.ActionDeleteFile:
		return e.deleteFile(root, action)
	case proposal.ActionExecuteCommand:
		return e.runCommand(ctx, root, action.Command)
	case proposal.ActionValidate, proposal.ActionTest:
		// Declarative markers for downstream tooling; nothing for the
		// sandbox to do.
		return proposal.ActionResult{Status: proposal.ActionSkipped}
	default:
		return proposal.ActionResult{
			Status: proposal.ActionFailure,
			Error:  fmt.Sprintf("unknown action type %q", action.Type),
		}
	}
}

// resolvePath maps a sandbox-relative path to an absolute one,
// enforcing both the policy write roots and containment in the
// sandbox. Two independent checks on purpose: policy expresses what
// the profile permits, containment is a hard floor that no profile
// can lift.
func (e *Executor) resolvePath(root, relative string) (string, error) {
	if !e.policy.IsWritePathAllowed(relative) {
		return "", &policy.Violation{
			Code:    "PL2",
			Message: fmt.Sprintf("path %q is outside the profile's writable roots", relative),
		}
	}
	resolved := filepath.Join(root, filepath.FromSlash(relative))
	if resolved != root && !strings.HasPrefix(resolved, root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the sandbox", relative)
	}
	return resolved, nil
}

func (e *Executor) writeFile(root string, action proposal.ProposedAction) proposal.ActionResult {
	target, err := e.resolvePath(root, action.Path)
	if err != nil {
		return proposal.ActionResult{Status: proposal.ActionFailure, Error: err.Error()}
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return proposal.ActionResult{Status: proposal.ActionFailure, Error: err.Error()}
	}
	if err := os.WriteFile(target, []byte(action.Content), 0o644); err != nil {
		return proposal.ActionResult{Status: proposal.ActionFailure, Error: err.Error()}
	}

	// The recorded hash is computed from what landed on disk, not from
	// the proposal content: the point is to prove the write, not echo
	// the request.
	written, err := os.ReadFile(target)
	if err != nil {
		return proposal.ActionResult{Status: proposal.ActionFailure, Error: err.Error()}
	}
	actualHash, err := codec.Hash(string(written))
	if err != nil {
		return proposal.ActionResult{Status: proposal.ActionFailure, Error: err.Error()}
	}
	return proposal.ActionResult{Status: proposal.ActionSuccess, ActualHash: actualHash}
}

func (e *Executor) deleteFile(root string, action proposal.ProposedAction) proposal.ActionResult {
	target, err := e.resolvePath(root, action.Path)
	if err != nil {
		return proposal.ActionResult{Status: proposal.ActionFailure, Error: err.Error()}
	}
	if err := os.Remove(target); err != nil {
		return proposal.ActionResult{Status: proposal.ActionFailure, Error: err.Error()}
	}
	return proposal.ActionResult{Status: proposal.ActionSuccess}
}

// runCommand spawns one allow-listed command with the profile timeout
// and capped output capture. A timeout is its own status: the kernel
// distinguishes "it failed" from "it never finished".
func (e *Executor) runCommand(ctx context.Context, root string, argv []string) proposal.ActionResult {
	if !e.policy.IsCommandAllowed(argv[0]) {
		violation := &policy.Violation{
			Code:    "PL1",
			Message: fmt.Sprintf("command %q is not in the profile's allow-list", argv[0]),
		}
		return proposal.ActionResult{Status: proposal.ActionFailure, Error: violation.Error()}
	}

	timeout := time.Duration(e.policy.TimeoutMS) * time.Millisecond
	commandCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	command := exec.CommandContext(commandCtx, argv[0], argv[1:]...)
	command.Dir = root
	command.SysProcAttr = sysProcAttr()
	// A minimal environment: no network proxies, no caller secrets.
	command.Env = []string{
		"PATH=/usr/local/bin:/usr/bin:/bin",
		"HOME=" + root,
	}

	stdout := &cappedBuffer{limit: maxCaptureBytes}
	stderr := &cappedBuffer{limit: maxCaptureBytes}
	command.Stdout = stdout
	command.Stderr = stderr

	err := command.Run()

	result := proposal.ActionResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if code := command.ProcessState; code != nil {
		exitCode := code.ExitCode()
		result.ExitCode = &exitCode
	}

	switch {
	case commandCtx.Err() == context.DeadlineExceeded:
		result.Status = proposal.ActionTimeout
		result.Error = fmt.Sprintf("command exceeded the %s policy timeout", timeout)
	case err != nil:
		result.Status = proposal.ActionFailure
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			result.Error = err.Error()
		}
	default:
		result.Status = proposal.ActionSuccess
	}
	return result
}

// cappedBuffer stores at most limit bytes and discards the rest. It
// never reports an error to the writer; overflow is silent because a
// chatty command must not be able to fail its own capture.
type cappedBuffer struct {
	buffer bytes.Buffer
	limit  int
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	remaining := b.limit - b.buffer.Len()
	if remaining > 0 {
		if len(p) > remaining {
			b.buffer.Write(p[:remaining])
		} else {
			b.buffer.Write(p)
		}
	}
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	return b.buffer.String()
}
