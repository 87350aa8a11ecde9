package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fapiao/internal/importer"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scan <path> [path ...]",
		Short: "List the invoice files a path or glob would import",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := importer.Scan(args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(paths) == 0 {
				fmt.Fprintln(out, "No importable invoice files found.")
				return nil
			}
			rows := make([][]string, 0, len(paths))
			for i, path := range paths {
				rows = append(rows, []string{fmt.Sprintf("%d", i+1), path})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "File"},
				rows,
				[]columnAlignment{alignRight, alignLeft},
			))
			fmt.Fprintf(out, "%d files\n", len(paths))
			return nil
		},
	}
}
