package main

import (
	"log/slog"

	"github.com/apex-evals/apexeval/cmd/apexeval/dev"
	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apexeval",
		Short: "apexeval - rubric-graded LLM evaluations",
		Long: `apexeval runs rubric-graded evaluations against LLM providers.

It generates one response per (model, run) pair for every task in a task
list, grades each response against the task's JSON rubric with a grading
model, and appends one row per task to a resumable CSV results file.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	// Add subcommands
	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newGradeCommand())
	cmd.AddCommand(newInitCommand())
	cmd.AddCommand(newReportCommand())
	cmd.AddCommand(newCompareCommand())
	cmd.AddCommand(newCheckCommand())
	cmd.AddCommand(newNewCommand())
	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newMCPCommand())
	cmd.AddCommand(newUploadCommand())
	cmd.AddCommand(newCacheCommand())
	cmd.AddCommand(newLogCommand())
	cmd.AddCommand(dev.NewCommand())

	return cmd
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}
