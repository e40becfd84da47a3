// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/crucible-foundation/crucible/cmd/crucible/cli"
	"github.com/crucible-foundation/crucible/lib/bundle"
)

func showCommand() *cli.Command {
	var asJSON bool
	return &cli.Command{
		Name:    "show",
		Summary: "Outline a bundle's outputs",
		Description: `Digest a bundle file for reading: status, counts, and the heading
outline of each output document.`,
		Usage: "crucible show <bundle-file> [flags]",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("show", pflag.ContinueOnError)
			flags.BoolVar(&asJSON, "json", false, "output the summary as JSON")
			return flags
		},
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one bundle file argument")
			}
			b, err := loadBundle(args[0])
			if err != nil {
				return err
			}
			summary, err := bundle.Summarize(b)
			if err != nil {
				return err
			}

			if asJSON {
				return cli.WriteJSON(summary)
			}

			fmt.Printf("bundle   %s\n", summary.BundleID)
			fmt.Printf("status   %s\n", summary.Status)
			fmt.Printf("outputs  %d  unresolved questions  %d\n\n", summary.OutputCount, summary.UnresolvedCount)

			tw := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			for _, outline := range summary.Outputs {
				fmt.Fprintf(tw, "%s\tconfidence %d\t%d list items\n", outline.Path, outline.Confidence, outline.ListItems)
				for _, heading := range outline.Headings {
					fmt.Fprintf(tw, "  %s\t\t\n", heading)
				}
			}
			return tw.Flush()
		},
	}
}
