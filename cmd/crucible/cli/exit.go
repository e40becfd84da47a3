// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// ExitError signals a non-zero exit code without an extra error line.
// Commands that already printed their result (a rejected run, a failed
// gate report) return it so main exits with the code and nothing else.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode is checked by main to distinguish a handled non-zero exit
// from an unexpected error that needs displaying.
func (e *ExitError) ExitCode() int {
	return e.Code
}
