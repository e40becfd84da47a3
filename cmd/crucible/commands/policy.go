// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/crucible-foundation/crucible/cmd/crucible/cli"
	"github.com/crucible-foundation/crucible/lib/policy"
)

func policyCommand() *cli.Command {
	return &cli.Command{
		Name:    "policy",
		Summary: "Inspect execution policy profiles",
		Subcommands: []*cli.Command{
			{
				Name:    "list",
				Summary: "List the built-in policy profiles",
				Run: func(_ context.Context, _ []string, _ *slog.Logger) error {
					tw := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
					for _, name := range policy.Names() {
						profile, err := policy.Load(name)
						if err != nil {
							return err
						}
						fmt.Fprintf(tw, "%s\ttimeout %dms\tmax files %d\tmax bytes %d\n",
							profile.Name, profile.TimeoutMS, profile.MaxOutputFiles, profile.MaxTotalOutputBytes)
					}
					return tw.Flush()
				},
			},
			{
				Name:    "show",
				Summary: "Show one profile in full",
				Usage:   "crucible policy show <name>",
				Run: func(_ context.Context, args []string, _ *slog.Logger) error {
					if len(args) != 1 {
						return fmt.Errorf("expected exactly one profile name (one of: %v)", policy.Names())
					}
					profile, err := policy.Load(args[0])
					if err != nil {
						return err
					}
					return cli.WriteJSON(profile)
				},
			},
		},
	}
}
