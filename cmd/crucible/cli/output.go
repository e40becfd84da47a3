// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/crucible-foundation/crucible/lib/codec"
)

// WriteJSON writes value as indented JSON to stdout, for human-facing
// command output.
func WriteJSON(value any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

// WriteCanonical writes value in canonical form to stdout. Kernel
// artifacts (run results, bundles) are emitted this way so that piping
// the output through sha256sum reproduces their content hash scheme.
func WriteCanonical(value any) error {
	canonical, err := codec.Canonicalize(value)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, canonical)
	return err
}
