// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import "fmt"

// ModelMode selects how model-backed collaborators are driven during
// a run. The kernel itself never calls a model; the mode is policed
// here so restricted profiles cannot smuggle in record/replay state.
type ModelMode string

const (
	// ModeNone disables model recording and replay. The only mode the
	// restricted profiles permit.
	ModeNone ModelMode = "none"

	// ModeRecord captures model interactions to a recording file.
	ModeRecord ModelMode = "record"

	// ModeReplay replays a previously recorded interaction file.
	ModeReplay ModelMode = "replay"
)

// Violation is a policy violation with a stable, deterministic
// message. The message text is part of the contract: callers and
// tests match on it, so it must be identical on every occurrence.
type Violation struct {
	Code    string
	Message string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("POLICY_VIOLATION: %s: %s", v.Code, v.Message)
}

// ValidateModelMode enforces the mode rules for a profile: strict and
// default permit only none; dev permits record and replay only with a
// recording path.
func ValidateModelMode(mode ModelMode, profile Profile, recordingPath string) error {
	switch mode {
	case ModeNone:
		return nil
	case ModeRecord, ModeReplay:
	default:
		return &Violation{
			Code:    "PL4",
			Message: fmt.Sprintf("unknown model mode %q", mode),
		}
	}

	if profile.Name != ProfileDev {
		return &Violation{
			Code:    "PL4",
			Message: fmt.Sprintf("model mode %q is not permitted under the %q profile; only \"none\" is allowed", mode, profile.Name),
		}
	}

	if recordingPath == "" {
		return &Violation{
			Code:    "PL5",
			Message: fmt.Sprintf("model mode %q requires a recording path", mode),
		}
	}
	return nil
}
