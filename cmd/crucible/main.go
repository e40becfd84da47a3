// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/crucible-foundation/crucible/cmd/crucible/commands"
)

func main() {
	if err := run(); err != nil {
		// Commands that already printed their outcome (a rejected run,
		// a failed gate report) return an exit code without a message.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := newLogger()
	return commands.Root().Execute(context.Background(), os.Args[1:], logger)
}

// newLogger builds the process logger. Output goes to stderr so that
// stdout stays reserved for command results; CRUCIBLE_DEBUG=1 lowers
// the level to debug.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("CRUCIBLE_DEBUG") != "" {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}
