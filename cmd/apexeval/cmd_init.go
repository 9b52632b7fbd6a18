package main

import (
	"fmt"

	"github.com/apex-evals/apexeval/internal/config"
	"github.com/apex-evals/apexeval/internal/taskstore"
	"github.com/spf13/cobra"
)

func newInitCommand() *cobra.Command {
	var (
		domain       string
		dsn          string
		overwrite    bool
		withCriteria bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the task table from the criteria table",
		Long: `Initialize the task table for one domain by collapsing the criteria table
into one row per task.

Existing task rows are kept unless --overwrite is given. With
--with-criteria each task row also gets its serialized criteria list, which
BuildRubric turns into the rubric the grading model reads. The database is
taken from --dsn or DATABASE_URL.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				dsn = config.LoadEnv().DatabaseURL
			}
			if dsn == "" {
				return fmt.Errorf("no database configured: pass --dsn or set DATABASE_URL")
			}

			db, err := taskstore.Connect(dsn)
			if err != nil {
				return err
			}
			if err := taskstore.Migrate(db); err != nil {
				return fmt.Errorf("migrating task tables: %w", err)
			}

			ctx := cmd.Context()
			store := taskstore.NewStore(db)

			seeds, err := store.FetchTasks(ctx, domain)
			if err != nil {
				return err
			}
			if len(seeds) == 0 {
				fmt.Printf("No tasks found for domain %q.\n", domain)
				return nil
			}

			summary, err := store.InitializeTasks(ctx, domain, seeds, overwrite)
			if err != nil {
				return err
			}

			criteriaErrors := 0
			if withCriteria {
				for _, seed := range seeds {
					criteria, err := store.CriteriaForTask(ctx, domain, seed.TaskID)
					if err != nil {
						fmt.Printf("  ✗ %s: %v\n", seed.TaskID, err)
						criteriaErrors++
						continue
					}
					if len(criteria) == 0 {
						continue
					}
					if err := store.SaveCriteria(ctx, domain, seed.TaskID, seed.Prompt, criteria); err != nil {
						fmt.Printf("  ✗ %s: %v\n", seed.TaskID, err)
						criteriaErrors++
					}
				}
			}

			fmt.Printf("Domain:      %s\n", domain)
			fmt.Printf("Initialized: %d\n", summary.Initialized)
			fmt.Printf("Skipped:     %d\n", summary.Skipped)
			fmt.Printf("Errors:      %d\n", summary.Errors+criteriaErrors)

			if summary.Errors+criteriaErrors > 0 {
				return &RunFailureError{
					Message: fmt.Sprintf("task initialization completed with %d error(s)", summary.Errors+criteriaErrors),
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&domain, "domain", "", "Domain whose tasks should be initialized (required)")
	cmd.Flags().StringVar(&dsn, "dsn", "", "Postgres DSN (defaults to DATABASE_URL)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite task rows that already exist")
	cmd.Flags().BoolVar(&withCriteria, "with-criteria", false, "Also store each task's serialized criteria list")
	_ = cmd.MarkFlagRequired("domain") //nolint:errcheck

	return cmd
}
