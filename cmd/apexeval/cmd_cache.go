package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/apex-evals/apexeval/internal/cache"
)

var cacheDir string

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the generation response cache",
		Long: `Manage the generation response cache.

The cache stores model responses to speed up repeated runs with the same
inputs. Cached responses are keyed by model profile, rendered prompt, and
attachment file contents.`,
	}

	cmd.AddCommand(newCacheClearCommand())
	cmd.AddCommand(newCacheStatsCommand())

	return cmd
}

func newCacheClearCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the generation response cache",
		Long: `Clear all cached generation responses.

This removes all cached model responses. The next run will call the model
for every task again.`,
		RunE: cacheClearE,
	}

	cmd.Flags().StringVar(&cacheDir, "cache-dir", ".apexeval-cache", "Cache directory to clear")

	return cmd
}

func newCacheStatsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache entry count and size",
		RunE:  cacheStatsE,
	}

	cmd.Flags().StringVar(&cacheDir, "cache-dir", ".apexeval-cache", "Cache directory to inspect")

	return cmd
}

func cacheClearE(cmd *cobra.Command, args []string) error {
	absDir, err := filepath.Abs(cacheDir)
	if err != nil {
		return fmt.Errorf("resolving cache directory: %w", err)
	}

	c := cache.New(absDir)
	if err := c.Clear(); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Cache cleared: %s\n", absDir) //nolint:errcheck
	return nil
}

func cacheStatsE(cmd *cobra.Command, args []string) error {
	absDir, err := filepath.Abs(cacheDir)
	if err != nil {
		return fmt.Errorf("resolving cache directory: %w", err)
	}

	c := cache.New(absDir)
	stats, err := c.Stats()
	if err != nil {
		return fmt.Errorf("reading cache stats: %w", err)
	}

	printCacheStats(cmd.OutOrStdout(), absDir, stats)
	return nil
}

//nolint:errcheck
func printCacheStats(w writer, dir string, stats cache.Stats) {
	fmt.Fprintf(w, "Cache directory: %s\n", dir)
	fmt.Fprintf(w, "Entries:         %d\n", stats.Entries)
	fmt.Fprintf(w, "Total size:      %s\n", formatBytes(stats.TotalBytes))
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
