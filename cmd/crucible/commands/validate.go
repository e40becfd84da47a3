// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/crucible-foundation/crucible/cmd/crucible/cli"
	"github.com/crucible-foundation/crucible/lib/bundle"
	"github.com/crucible-foundation/crucible/lib/gates"
)

// loadBundle reads a bundle previously emitted by the run command.
func loadBundle(path string) (*bundle.Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading bundle: %w", err)
	}
	var b bundle.Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parsing bundle %s: %w", path, err)
	}
	return &b, nil
}

func validateCommand() *cli.Command {
	var asJSON bool
	return &cli.Command{
		Name:    "validate",
		Summary: "Run a saved bundle through all validation gates",
		Description: `Validate a bundle file against the four gates: schema, ordering,
semantic, and determinism. The determinism gate recomputes every
content hash and the bundle identity, so a tampered file always
fails.`,
		Usage: "crucible validate <bundle-file> [flags]",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("validate", pflag.ContinueOnError)
			flags.BoolVar(&asJSON, "json", false, "output gate results as JSON")
			return flags
		},
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one bundle file argument")
			}
			b, err := loadBundle(args[0])
			if err != nil {
				return err
			}

			results := gates.ValidateAll(b)
			failed := 0
			for _, result := range results {
				if !result.Passed {
					failed++
				}
			}

			if asJSON {
				if err := cli.WriteJSON(results); err != nil {
					return err
				}
			} else {
				for _, result := range results {
					verdict := "PASS"
					if !result.Passed {
						verdict = "FAIL"
					}
					fmt.Printf("%s  %s\n", verdict, result.Gate)
					for _, message := range result.Errors {
						fmt.Printf("      error: %s\n", message)
					}
					for _, message := range result.Warnings {
						fmt.Printf("      warning: %s\n", message)
					}
				}
				fmt.Printf("%d/%d gates passed\n", len(results)-failed, len(results))
			}

			if failed > 0 {
				logger.Warn("bundle failed validation", "bundle", b.ID, "failed_gates", failed)
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}
