package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/apex-evals/apexeval/internal/projectconfig"
	"github.com/apex-evals/apexeval/internal/webserver"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	var (
		resultsDir string
		port       int
		noBrowser  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the results dashboard",
		Long: `Serve a local dashboard over the results CSV files in a directory.

The dashboard lists every results file, its per-model score summaries, and
per-task drill-downs. Files are re-read on request, so a dashboard left
open tracks a run in progress.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if pc, err := projectconfig.Load("."); err == nil {
				if !cmd.Flags().Changed("port") {
					port = pc.Server.Port
				}
				if !cmd.Flags().Changed("results-dir") {
					resultsDir = pc.Server.ResultsDir
				}
			}

			srv, err := webserver.New(webserver.Config{
				Port:       port,
				ResultsDir: resultsDir,
				NoBrowser:  noBrowser,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&resultsDir, "results-dir", ".", "Directory holding results CSV files")
	cmd.Flags().IntVar(&port, "port", 3000, "Port to listen on")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Do not open the dashboard in a browser")

	return cmd
}
