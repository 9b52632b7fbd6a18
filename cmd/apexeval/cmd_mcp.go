package main

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/apex-evals/apexeval/internal/jsonrpc"
	"github.com/apex-evals/apexeval/internal/mcp"
	"github.com/spf13/cobra"
)

func newMCPCommand() *cobra.Command {
	var tcpAddr string
	var tcpAllowRemote bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the evaluation tools over the Model Context Protocol",
		Long: `Serve the evaluation tools over the Model Context Protocol so coding
agents and editors can call them directly.

By default the server speaks newline-delimited JSON-RPC on stdin/stdout,
the framing MCP clients expect from a local server. Use --tcp to listen
on a TCP address instead, which helps when debugging with a raw client.
TCP binds loopback only unless --tcp-allow-remote is set.

Tools:
  apexeval_validate_eval   Validate an eval spec and its task list
  apexeval_list_tasks      List the tasks in a dataset
  apexeval_grade_response  Grade one response against a rubric
  apexeval_results_report  Summarize a results CSV`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.Default()
			server := mcp.NewServer(version, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if tcpAddr != "" {
				addr := resolveTCPAddr(tcpAddr, tcpAllowRemote, logger)
				listener, err := jsonrpc.ListenTCP(addr, jsonrpc.NewServer(server.Registry(), logger))
				if err != nil {
					return fmt.Errorf("failed to start TCP server: %w", err)
				}
				defer listener.Close() //nolint:errcheck
				fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on %s\n", listener.Addr()) //nolint:errcheck
				return listener.Serve(ctx)
			}

			fmt.Fprintln(cmd.ErrOrStderr(), "MCP server running on stdio") //nolint:errcheck
			server.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().StringVar(&tcpAddr, "tcp", "", "TCP address to listen on (e.g. :9000)")
	cmd.Flags().BoolVar(&tcpAllowRemote, "tcp-allow-remote", false,
		"Allow binding to non-loopback addresses (WARNING: exposes the server to the network with no authentication)")

	return cmd
}

// resolveTCPAddr defaults TCP addresses to loopback unless allowRemote is
// set.
func resolveTCPAddr(addr string, allowRemote bool, logger *slog.Logger) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		// Likely a bare port like "9000"; treat it as ":9000".
		host = ""
		port = addr
	}

	if allowRemote {
		logger.Warn("TCP server binding to all interfaces without authentication", "address", addr)
		return addr
	}

	if host == "" || host == "0.0.0.0" || host == "::" {
		return net.JoinHostPort("127.0.0.1", port)
	}

	return addr
}
