// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExecuteDispatchesToSubcommand(t *testing.T) {
	var called string
	root := &Command{
		Name: "crucible",
		Subcommands: []*Command{
			{
				Name: "run",
				Run: func(_ context.Context, _ []string, _ *slog.Logger) error {
					called = "run"
					return nil
				},
			},
			{
				Name: "validate",
				Run: func(_ context.Context, _ []string, _ *slog.Logger) error {
					called = "validate"
					return nil
				},
			},
		},
	}

	if err := root.Execute(context.Background(), []string{"validate"}, testLogger()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if called != "validate" {
		t.Errorf("dispatched to %q, want validate", called)
	}
}

func TestExecuteNestedSubcommands(t *testing.T) {
	var receivedArgs []string
	root := &Command{
		Name: "crucible",
		Subcommands: []*Command{
			{
				Name: "policy",
				Subcommands: []*Command{
					{
						Name: "show",
						Run: func(_ context.Context, args []string, _ *slog.Logger) error {
							receivedArgs = args
							return nil
						},
					},
				},
			},
		},
	}

	if err := root.Execute(context.Background(), []string{"policy", "show", "strict"}, testLogger()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(receivedArgs) != 1 || receivedArgs[0] != "strict" {
		t.Errorf("leaf received args %v, want [strict]", receivedArgs)
	}
}

func TestExecuteSuggestsNearMiss(t *testing.T) {
	root := &Command{
		Name: "crucible",
		Subcommands: []*Command{
			{Name: "validate", Run: func(context.Context, []string, *slog.Logger) error { return nil }},
		},
	}

	err := root.Execute(context.Background(), []string{"validte"}, testLogger())
	if err == nil {
		t.Fatal("unknown command accepted")
	}
	if !strings.Contains(err.Error(), `did you mean "validate"`) {
		t.Errorf("error carries no suggestion: %v", err)
	}
}

func TestExecuteParsesFlags(t *testing.T) {
	var intentPath string
	command := &Command{
		Name: "run",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
			flags.StringVar(&intentPath, "intent", "", "intent file")
			return flags
		},
		Run: func(context.Context, []string, *slog.Logger) error { return nil },
	}

	if err := command.Execute(context.Background(), []string{"--intent", "goal.jsonc"}, testLogger()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if intentPath != "goal.jsonc" {
		t.Errorf("intent flag = %q, want goal.jsonc", intentPath)
	}
}

func TestExecuteSuggestsFlagTypo(t *testing.T) {
	command := &Command{
		Name: "run",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
			flags.String("intent", "", "intent file")
			return flags
		},
		Run: func(context.Context, []string, *slog.Logger) error { return nil },
	}

	err := command.Execute(context.Background(), []string{"--intnet", "goal.jsonc"}, testLogger())
	if err == nil {
		t.Fatal("unknown flag accepted")
	}
	if !strings.Contains(err.Error(), "--intent") {
		t.Errorf("error carries no flag suggestion: %v", err)
	}
}

func TestExecuteRequiresSubcommand(t *testing.T) {
	root := &Command{
		Name: "crucible",
		Subcommands: []*Command{
			{Name: "run", Run: func(context.Context, []string, *slog.Logger) error { return nil }},
		},
	}
	if err := root.Execute(context.Background(), nil, testLogger()); err == nil {
		t.Fatal("bare dispatcher succeeded without a subcommand")
	}
}

func TestPrintHelpListsSubcommands(t *testing.T) {
	root := &Command{
		Name:    "crucible",
		Summary: "deterministic context kernel",
		Subcommands: []*Command{
			{Name: "run", Summary: "Run the kernel pipeline"},
			{Name: "validate", Summary: "Validate a bundle"},
		},
	}

	var buffer bytes.Buffer
	root.PrintHelp(&buffer)
	help := buffer.String()
	for _, expected := range []string{"run", "validate", "Commands:", "crucible <command> --help"} {
		if !strings.Contains(help, expected) {
			t.Errorf("help output missing %q:\n%s", expected, help)
		}
	}
}
