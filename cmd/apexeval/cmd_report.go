package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/apex-evals/apexeval/internal/reporting"
	"github.com/apex-evals/apexeval/internal/results"
	"github.com/spf13/cobra"
)

var reportOutputFormat string

func newReportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <results.csv>",
		Short: "Summarize an evaluation results file",
		Long: `Summarize a results CSV: per model and run the graded-task count, mean
score, spread and 95% confidence interval, plus generation failures and
task status tallies.

With --format junit the per-task outcomes are written as JUnit XML so CI
systems can track evaluation runs like test runs.`,
		Args: cobra.ExactArgs(1),
		RunE: reportCommandE,
	}

	cmd.Flags().StringVarP(&reportOutputFormat, "format", "f", "table", "Output format: table, json, or junit")

	return cmd
}

func reportCommandE(cmd *cobra.Command, args []string) error {
	switch reportOutputFormat {
	case "table", "json", "junit":
	default:
		return fmt.Errorf("unsupported format %q: must be table, json, or junit", reportOutputFormat)
	}

	path := args[0]
	headers, rows, err := results.NewStore(path).Read()
	if err != nil {
		return fmt.Errorf("failed to load results: %w", err)
	}

	switch reportOutputFormat {
	case "json":
		return printResultsJSON(reporting.BuildResultsReport(path, headers, rows))
	case "junit":
		return reporting.WriteJUnit(cmd.OutOrStdout(), reporting.ConvertToJUnit(path, headers, rows))
	}
	printResultsTable(reporting.BuildResultsReport(path, headers, rows))
	return nil
}

func printResultsTable(r *reporting.ResultsReport) {
	fmt.Println(strings.Repeat("=", 70))
	fmt.Println(" RESULTS REPORT")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Println()

	fmt.Printf("  File:       %s\n", r.File)
	fmt.Printf("  Tasks:      %d  (%d completed, %d errors)\n", r.Tasks, r.Completed, r.Errors)
	fmt.Println()

	fmt.Println(strings.Repeat("-", 70))
	fmt.Println(" PER MODEL AND RUN")
	fmt.Println(strings.Repeat("-", 70))

	fmt.Printf("  %-28s  %-3s  %6s  %7s  %7s  %s\n", "Model", "Run", "Graded", "Mean", "StdDev", "95% CI")
	for _, mr := range r.ModelRuns {
		name := mr.Model
		if len(name) > 28 {
			name = name[:25] + "..."
		}
		if mr.Graded == 0 {
			fmt.Printf("  %-28s  %-3d  %6d  %7s  %7s  %s\n", name, mr.Run, 0, "-", "-", "-")
		} else {
			fmt.Printf("  %-28s  %-3d  %6d  %7.2f  %7.2f  [%.2f, %.2f]\n",
				name, mr.Run, mr.Graded, mr.Stats.Mean, mr.Stats.StdDev, mr.Stats.Lo95, mr.Stats.Hi95)
		}
		if mr.GenerationFailures > 0 || mr.Ungraded > 0 {
			fmt.Printf("  %-28s       %d generation failure(s), %d ungraded\n", "", mr.GenerationFailures, mr.Ungraded)
		}
	}
	fmt.Println()
}

func printResultsJSON(r *reporting.ResultsReport) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results report: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
