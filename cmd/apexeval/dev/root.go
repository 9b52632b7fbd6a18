package dev

import (
	"github.com/spf13/cobra"
)

// NewCommand returns the `apexeval dev` sub-command tree. These commands
// support working on apexeval itself and are hidden from top-level help.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "dev",
		Short:  "Developer utilities for working on apexeval",
		Hidden: true,
	}
	cmd.AddCommand(newDocsCommand())
	return cmd
}
