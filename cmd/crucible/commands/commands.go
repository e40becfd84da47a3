// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the crucible CLI command tree. Each leaf
// wires flags to a kernel entry point; all kernel behavior lives in
// lib/ and sandbox/, never here.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/crucible-foundation/crucible/cmd/crucible/cli"
	"github.com/crucible-foundation/crucible/lib/version"
)

// Root builds and returns the complete CLI command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "crucible",
		Description: `Crucible: deterministic context kernel.

Decompose an intent into a content-addressed context bundle, gate it,
and optionally execute the derived proposal in a policy-constrained
sandbox. Identical inputs always produce identical artifacts.`,
		Subcommands: []*cli.Command{
			runCommand(),
			validateCommand(),
			showCommand(),
			policyCommand(),
			exportCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, _ []string, _ *slog.Logger) error {
					fmt.Printf("crucible %s\n", version.Info())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Plan a run without executing anything",
				Command:     "crucible run --intent intent.jsonc",
			},
			{
				Description: "Execute the derived proposal in the sandbox under the strict profile",
				Command:     "crucible run --intent intent.jsonc --policy strict --mode execute-sandbox",
			},
			{
				Description: "Re-validate a saved bundle against all four gates",
				Command:     "crucible validate bundle.json",
			},
			{
				Description: "Outline a bundle's outputs",
				Command:     "crucible show bundle.json",
			},
			{
				Description: "Seal a run result for transfer",
				Command:     "crucible export result.json --out result.pack --key-file pack.key",
			},
		},
	}
}
