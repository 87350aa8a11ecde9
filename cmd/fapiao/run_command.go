package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"fapiao/internal/api"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var template string
	var commit bool

	cmd := &cobra.Command{
		Use:   "run <path> [path ...]",
		Short: "Import invoices, recognize them, and preview or apply renames",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.ensureService()
			if err != nil {
				return err
			}

			view, err := svc.ImportTask(cmd.Context(), args)
			if err != nil {
				return err
			}
			view, err = svc.Recognize(cmd.Context(), view.ID, nil, "")
			if err != nil {
				return err
			}
			if strings.TrimSpace(template) != "" {
				view, err = svc.PreviewNames(cmd.Context(), view.ID, template, nil)
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			printItems(out, view, colorize)

			plan, err := svc.BuildPlan(cmd.Context(), view.ID, nil, !commit)
			if err != nil {
				return err
			}
			printPlan(out, plan, colorize)

			if !commit {
				fmt.Fprintln(out, "Dry run only; pass --commit to rename files.")
				return nil
			}

			results, err := svc.CommitRename(cmd.Context(), view.ID, nil)
			if err != nil {
				return err
			}
			printResults(out, results, colorize)

			view, err = svc.GetTask(cmd.Context(), view.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Renamed %d of %d files (%d skipped, %d failed)\n",
				view.Summary.Renamed, view.Summary.Total, view.Summary.Skipped, view.Summary.Failed)
			return nil
		},
	}

	cmd.Flags().StringVarP(&template, "template", "t", "", "Filename template override, e.g. {date}-{category}-{amount}")
	cmd.Flags().BoolVar(&commit, "commit", false, "Rename files on disk instead of previewing")
	return cmd
}

func printItems(out io.Writer, view api.TaskView, colorize bool) {
	rows := make([][]string, 0, len(view.Items))
	for i, item := range view.Items {
		name := item.SuggestedName
		if item.ManualName != "" {
			name = item.ManualName
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			item.OldName,
			name,
			colorizeStatus(item.Status, colorize),
			item.Amount,
			item.Category,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"#", "File", "Suggested", "Status", "Amount", "Category"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	))
}

func printPlan(out io.Writer, plan api.PlanResponse, colorize bool) {
	if len(plan.Plan) == 0 {
		fmt.Fprintln(out, "Nothing to rename.")
		return
	}
	rows := make([][]string, 0, len(plan.Plan))
	for _, entry := range plan.Plan {
		detail := entry.Reason
		if detail == "" && entry.ConflictType != "none" {
			detail = entry.ConflictType
		}
		rows = append(rows, []string{
			entry.OldName,
			entry.TargetName,
			colorizeStatus(entry.Action, colorize),
			detail,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"From", "To", "Action", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
	))
}

func printResults(out io.Writer, resp api.CommitResponse, colorize bool) {
	rows := make([][]string, 0, len(resp.Results))
	for _, result := range resp.Results {
		rows = append(rows, []string{
			result.SourcePath,
			result.TargetPath,
			colorizeStatus(result.Result, colorize),
			result.Message,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Source", "Target", "Result", "Message"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
	))
}
