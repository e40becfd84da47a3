// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/crucible-foundation/crucible/cmd/crucible/cli"
	"github.com/crucible-foundation/crucible/lib/harness"
	"github.com/crucible-foundation/crucible/lib/runstore"
)

// readPackKey loads a pack key file: either 32 raw bytes or 64 hex
// characters (surrounding whitespace ignored).
func readPackKey(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading key file: %w", err)
	}
	if len(data) == runstore.PackKeySize {
		return data, nil
	}
	trimmed := strings.TrimSpace(string(data))
	key, err := hex.DecodeString(trimmed)
	if err != nil || len(key) != runstore.PackKeySize {
		return nil, fmt.Errorf("key file %s must hold %d raw bytes or %d hex characters",
			path, runstore.PackKeySize, 2*runstore.PackKeySize)
	}
	return key, nil
}

func exportCommand() *cli.Command {
	var outPath, keyFile string
	return &cli.Command{
		Name:    "export",
		Summary: "Seal a run result into an encrypted pack",
		Description: `Seal a run result file into a portable, authenticated pack. The
pack is bound to the result's content reference; the reference is
printed to stdout and must accompany the pack to open it.`,
		Usage: "crucible export <result-file> --out <pack> --key-file <file>",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("export", pflag.ContinueOnError)
			flags.StringVar(&outPath, "out", "", "pack file to write")
			flags.StringVar(&keyFile, "key-file", "", "file holding the 32-byte pack key")
			return flags
		},
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one result file argument")
			}
			if outPath == "" || keyFile == "" {
				return fmt.Errorf("--out and --key-file are required")
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading result: %w", err)
			}
			var result harness.RunResult
			if err := json.Unmarshal(data, &result); err != nil {
				return fmt.Errorf("parsing result %s: %w", args[0], err)
			}

			key, err := readPackKey(keyFile)
			if err != nil {
				return err
			}

			ref, err := runstore.SealPack(outPath, key, &result)
			if err != nil {
				return err
			}
			logger.Info("pack sealed", "pack", outPath)
			fmt.Println(string(ref))
			return nil
		},
	}
}
