package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/apex-evals/apexeval/internal/runlog"
)

func newLogCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "log [file]",
		Short: "List run logs or show a run timeline",
		Long: `Log lists the structured run logs in a directory, or renders one log
as a human-readable timeline.

With no arguments it lists the *-run.jsonl files found in --dir, newest
first. With a file argument it prints every event from that log.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return listRunLogs(cmd, dir)
			}
			return showRunLog(cmd, dir, args[0])
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "Directory to search for run logs")

	return cmd
}

func listRunLogs(cmd *cobra.Command, dir string) error {
	logs, err := runlog.ListLogs(dir)
	if err != nil {
		return err
	}

	printLogList(cmd.OutOrStdout(), dir, logs)
	return nil
}

//nolint:errcheck
func printLogList(w writer, dir string, logs []runlog.LogFile) {
	if len(logs) == 0 {
		fmt.Fprintf(w, "No run logs found in %s\n", dir)
		return
	}

	fmt.Fprintf(w, "%s %s %s  %s\n",
		padRight("NAME", 40), padRight("EVENTS", 7), padRight("SIZE", 9), "MODIFIED")
	for _, lf := range logs {
		fmt.Fprintf(w, "%s %s %s  %s\n",
			padRight(truncateName(lf.Name, 40), 40),
			padRight(fmt.Sprintf("%d", lf.NumEvents), 7),
			padRight(formatBytes(lf.Size), 9),
			lf.ModTime.Format("2006-01-02 15:04:05"))
	}
}

func showRunLog(cmd *cobra.Command, dir, name string) error {
	path := name
	if _, err := os.Stat(path); err != nil {
		path = filepath.Join(dir, name)
	}

	events, err := runlog.ReadEvents(path)
	if err != nil {
		return err
	}

	runlog.RenderTimeline(cmd.OutOrStdout(), events)
	return nil
}
