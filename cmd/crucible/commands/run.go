// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/crucible-foundation/crucible/cmd/crucible/cli"
	"github.com/crucible-foundation/crucible/lib/harness"
	"github.com/crucible-foundation/crucible/lib/policy"
	"github.com/crucible-foundation/crucible/lib/runstore"
	"github.com/crucible-foundation/crucible/sandbox"
)

type runParams struct {
	intentPath  string
	policyName  string
	mode        string
	modelMode   string
	recording   string
	storeDir    string
	keepSandbox bool
}

func runCommand() *cli.Command {
	params := &runParams{}
	return &cli.Command{
		Name:    "run",
		Summary: "Run the kernel pipeline on an intent file",
		Description: `Run the full pipeline: normalize the intent, decompose it,
assemble a bundle, clear the validation gates, and classify the
outcome. With --mode execute-sandbox a proposal is derived from the
bundle, executed in the sandbox, and its evidence validated.

The run result is written to stdout in canonical form. Exit code 0
means the result was accepted; 1 means refused, awaiting
clarification, or rejected after execution.`,
		Usage: "crucible run --intent <file> [flags]",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
			flags.StringVar(&params.intentPath, "intent", "", "intent file (JSONC)")
			flags.StringVar(&params.policyName, "policy", policy.ProfileDefault, "policy profile: strict, default, or dev")
			flags.StringVar(&params.mode, "mode", string(harness.ModePlanOnly), "run mode: plan-only or execute-sandbox")
			flags.StringVar(&params.modelMode, "model-mode", string(policy.ModeNone), "model interaction mode: none, record, or replay")
			flags.StringVar(&params.recording, "recording", "", "recording file for --model-mode record/replay")
			flags.StringVar(&params.storeDir, "store", "", "persist the run result to this store directory")
			flags.BoolVar(&params.keepSandbox, "keep-sandbox", false, "keep the sandbox directory for inspection")
			return flags
		},
		Examples: []cli.Example{
			{
				Description: "Plan only, under the default profile",
				Command:     "crucible run --intent intent.jsonc",
			},
			{
				Description: "Execute and persist the result",
				Command:     "crucible run --intent intent.jsonc --mode execute-sandbox --store ./runs",
			},
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if params.intentPath == "" {
				return fmt.Errorf("--intent is required")
			}
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument %q", args[0])
			}

			profile, err := policy.Load(params.policyName)
			if err != nil {
				return err
			}
			if err := policy.ValidateModelMode(policy.ModelMode(params.modelMode), profile, params.recording); err != nil {
				return err
			}

			options := harness.Options{
				IntentPath: params.intentPath,
				PolicyName: params.policyName,
				Mode:       harness.Mode(params.mode),
				Logger:     logger,
			}
			if options.Mode == harness.ModeExecuteSandbox {
				sandboxOptions := []sandbox.Option{sandbox.WithLogger(logger)}
				if params.keepSandbox {
					sandboxOptions = append(sandboxOptions, sandbox.KeepSandboxDir())
				}
				options.Executor = sandbox.New(profile, sandboxOptions...)
			}

			result, err := harness.Run(ctx, options)
			if err != nil {
				return err
			}

			if params.storeDir != "" {
				store, err := runstore.Open(params.storeDir)
				if err != nil {
					return err
				}
				ref, err := store.Put(result)
				if err != nil {
					return err
				}
				logger.Info("run result stored", "ref", string(ref), "store", params.storeDir)
			}

			if err := cli.WriteCanonical(result); err != nil {
				return err
			}
			if !result.Decision.Accepted {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}
