package main

import (
	"fmt"
	"path"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/apex-evals/apexeval/internal/config"
	"github.com/apex-evals/apexeval/internal/projectconfig"
	"github.com/apex-evals/apexeval/internal/results"
)

func newUploadCommand() *cobra.Command {
	var (
		container string
		prefix    string
		account   string
	)

	cmd := &cobra.Command{
		Use:   "upload <results.csv>",
		Short: "Upload a results file to Azure Blob Storage",
		Long: `Upload copies a results CSV to Azure Blob Storage so runs executed on
ephemeral machines keep their output. Credentials come from the environment:
set AZURE_STORAGE_CONNECTION (a connection string) or AZURE_STORAGE_ACCOUNT
(an account name resolved with the ambient Azure identity).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := args[0]

			if pc, err := projectconfig.Load("."); err == nil {
				if !cmd.Flags().Changed("container") {
					container = pc.Upload.Container
				}
				if !cmd.Flags().Changed("prefix") {
					prefix = pc.Upload.Prefix
				}
			}

			env := config.LoadEnv()
			if account != "" {
				env.AzureStorageAccount = account
			}

			uploader, err := results.NewUploader(env)
			if err != nil {
				return err
			}

			blobName := path.Join(prefix, filepath.Base(file))

			if err := uploader.Upload(cmd.Context(), container, blobName, file); err != nil {
				return &RunFailureError{Message: fmt.Sprintf("upload failed: %v", err)}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s to %s/%s\n", file, container, blobName) //nolint:errcheck
			return nil
		},
	}

	cmd.Flags().StringVar(&container, "container", "apexeval-results", "Blob container to upload into")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Prefix prepended to the blob name")
	cmd.Flags().StringVar(&account, "account", "", "Storage account name (overrides AZURE_STORAGE_ACCOUNT)")

	return cmd
}
