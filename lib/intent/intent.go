// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

// Package intent turns raw user input into the canonical Intent the
// kernel decomposes. Intents are authored on disk as JSONC files
// (JSON extended with comments and trailing commas); this package
// handles parsing, normalization, and the always-relative path
// sanitization applied before any path is embedded in a public
// artifact.
//
// The typical flow:
//
//  1. ReadFile or Parse: JSONC bytes → Intent
//  2. Normalize: Unicode NFC, line endings, whitespace, constraint
//     dedup/sort: the canonical form everything downstream hashes
//  3. Hash: the source_intent_hash recorded in every bundle
package intent

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"

	"github.com/crucible-foundation/crucible/lib/codec"
)

// Intent is a user goal plus optional constraints and free-form
// context. The zero value is invalid: a goal is required.
type Intent struct {
	// Goal is the natural-language objective.
	Goal string `json:"goal"`

	// Constraints are requirements the decomposition must honor.
	// After Normalize they are deduplicated and sorted.
	Constraints []string `json:"constraints,omitempty"`

	// Context carries free-form structured hints. It participates in
	// the intent hash but the kernel never interprets it.
	Context map[string]any `json:"context,omitempty"`
}

// Parse strips JSONC comments and trailing commas from data, then
// unmarshals the result into an Intent.
func Parse(data []byte) (*Intent, error) {
	stripped := jsonc.ToJSON(data)

	var parsed Intent
	if err := json.Unmarshal(stripped, &parsed); err != nil {
		return nil, fmt.Errorf("parsing intent: %w", err)
	}
	return &parsed, nil
}

// ReadFile reads a JSONC intent file from disk and parses it.
func ReadFile(path string) (*Intent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	parsed, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return parsed, nil
}

// Hash computes the canonical content hash of a (normalized) intent.
// This is the source_intent_hash bound into every bundle derived from
// the intent.
func Hash(in Intent) (string, error) {
	return codec.Hash(map[string]any{
		"goal":        in.Goal,
		"constraints": stringsToAny(in.Constraints),
		"context":     in.Context,
	})
}

func stringsToAny(values []string) []any {
	result := make([]any, len(values))
	for i, v := range values {
		result[i] = v
	}
	return result
}
