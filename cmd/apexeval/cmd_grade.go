package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/apex-evals/apexeval/internal/config"
	"github.com/apex-evals/apexeval/internal/execution"
	"github.com/apex-evals/apexeval/internal/grading"
	"github.com/apex-evals/apexeval/internal/models"
	"github.com/apex-evals/apexeval/internal/spinner"
	"github.com/spf13/cobra"
)

func newGradeCommand() *cobra.Command {
	var (
		evalPath     string
		responsePath string
		rubricPath   string
	)

	cmd := &cobra.Command{
		Use:   "grade",
		Short: "Grade a single response against a rubric",
		Long: `Grade one response file against one rubric file using the spec's
grading model. Useful for debugging rubrics without a full pipeline run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := models.LoadEvalSpec(evalPath)
			if err != nil {
				return fmt.Errorf("failed to load eval spec: %w", err)
			}

			response, err := os.ReadFile(responsePath)
			if err != nil {
				return fmt.Errorf("reading response file: %w", err)
			}
			rubricJSON, err := os.ReadFile(rubricPath)
			if err != nil {
				return fmt.Errorf("reading rubric file: %w", err)
			}

			router := execution.NewRouter(config.LoadEnv())
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = router.Shutdown(shutdownCtx)
			}()

			grader := grading.NewGrader(grading.NewLLMJudge(router, spec.GradingProfile()))

			spin := spinner.New(cmd.ErrOrStderr(), "Grading with "+spec.Grading.ModelID+"...")
			outcome, err := grader.Grade(cmd.Context(), string(response), string(rubricJSON))
			spin.Stop()
			if err != nil {
				return &RunFailureError{Message: fmt.Sprintf("grading failed: %v", err)}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Score: %s\n\n", models.FormatScore(outcome.Score)) //nolint:errcheck
			fmt.Fprintln(out, outcome.ScoreSummary)                              //nolint:errcheck
			return nil
		},
	}

	cmd.Flags().StringVar(&evalPath, "eval", "", "Path to the eval spec YAML (required)")
	cmd.Flags().StringVar(&responsePath, "response", "", "File holding the model response to grade (required)")
	cmd.Flags().StringVar(&rubricPath, "rubric", "", "File holding the rubric JSON (required)")
	_ = cmd.MarkFlagRequired("eval")     //nolint:errcheck
	_ = cmd.MarkFlagRequired("response") //nolint:errcheck
	_ = cmd.MarkFlagRequired("rubric")   //nolint:errcheck

	return cmd
}
