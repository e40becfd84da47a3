// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"context"
	"fmt"
	"os"

	"github.com/crucible-foundation/crucible/lib/codec"
	"github.com/crucible-foundation/crucible/lib/proposal"
)

// runTest evaluates one acceptance test against the sandbox. Tests
// never mutate the sandbox except command_success, which runs its
// command under the same policy limits as actions.
func (e *Executor) runTest(ctx context.Context, root string, test proposal.AcceptanceTest) proposal.TestResult {
	result := proposal.TestResult{TestID: test.ID}

	switch test.Type {
	case proposal.TestFileExists:
		_, err := e.statFile(root, test.Path)
		if err != nil {
			result.Detail = err.Error()
			return result
		}
		result.Passed = true

	case proposal.TestHashMatch:
		actual, err := e.hashFile(root, test.Path)
		if err != nil {
			result.Detail = err.Error()
			return result
		}
		if actual != test.ExpectedHash {
			result.Detail = fmt.Sprintf("hash %s, expected %s", actual, test.ExpectedHash)
			return result
		}
		result.Passed = true

	case proposal.TestContentMatch:
		content, err := e.readFile(root, test.Path)
		if err != nil {
			result.Detail = err.Error()
			return result
		}
		if content != test.ExpectedContent {
			result.Detail = "content does not match"
			return result
		}
		result.Passed = true

	case proposal.TestCommandSuccess:
		if len(test.Command) == 0 {
			result.Detail = "command_success test has no command"
			return result
		}
		outcome := e.runCommand(ctx, root, test.Command)
		if outcome.Status != proposal.ActionSuccess {
			result.Detail = fmt.Sprintf("command finished %s: %s", outcome.Status, outcome.Error)
			return result
		}
		result.Passed = true

	default:
		result.Detail = fmt.Sprintf("unknown test type %q", test.Type)
	}
	return result
}

func (e *Executor) statFile(root, relative string) (os.FileInfo, error) {
	target, err := e.resolvePath(root, relative)
	if err != nil {
		return nil, err
	}
	return os.Stat(target)
}

func (e *Executor) readFile(root, relative string) (string, error) {
	target, err := e.resolvePath(root, relative)
	if err != nil {
		return "", err
	}
	content, err := os.ReadFile(target)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

func (e *Executor) hashFile(root, relative string) (string, error) {
	content, err := e.readFile(root, relative)
	if err != nil {
		return "", err
	}
	// Hashed as a canonical value, matching how output content hashes
	// are derived on the kernel side.
	return codec.Hash(content)
}
