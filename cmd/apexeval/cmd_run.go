package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/apex-evals/apexeval/internal/cache"
	"github.com/apex-evals/apexeval/internal/config"
	"github.com/apex-evals/apexeval/internal/dataset"
	"github.com/apex-evals/apexeval/internal/execution"
	"github.com/apex-evals/apexeval/internal/grading"
	"github.com/apex-evals/apexeval/internal/models"
	"github.com/apex-evals/apexeval/internal/orchestration"
	"github.com/apex-evals/apexeval/internal/projectconfig"
	"github.com/apex-evals/apexeval/internal/results"
	"github.com/apex-evals/apexeval/internal/runlog"
	"github.com/apex-evals/apexeval/internal/template"
	"github.com/apex-evals/apexeval/internal/utils"
	"github.com/spf13/cobra"
)

var (
	runEvalPath   string
	runInputDir   string
	runOutputPath string
	runStartIndex int
	runLimit      int
	runResume     bool
	runCacheDir   string
	runLogPath    string
	runPromptPath string
	runEngine     string
	runVerbose    bool
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an evaluation pipeline",
		Long: `Run the evaluation pipeline for one eval spec.

Tasks are read from <input-dir>/data/train.csv. For every task, each model
profile in the spec is executed runs times; each response with a rubric is
graded by the grading model; one row per task is appended to the results
CSV as soon as the task finishes, so an interrupted run can resume with
--resume.`,
		Args: cobra.NoArgs,
		RunE: runCommandE,
	}

	cmd.Flags().StringVar(&runEvalPath, "eval", "", "Path to the eval spec YAML (required)")
	cmd.Flags().StringVar(&runInputDir, "input-dir", ".", "Input directory holding data/train.csv and attachments")
	cmd.Flags().StringVarP(&runOutputPath, "output", "o", "apex_results.csv", "Results CSV file")
	cmd.Flags().IntVar(&runStartIndex, "start-index", 0, "Zero-based index of the first task to process")
	cmd.Flags().IntVar(&runLimit, "limit", 5, "Maximum number of tasks to process (0 = no limit)")
	cmd.Flags().BoolVar(&runResume, "resume", false, "Skip tasks whose IDs already appear in the results file")
	cmd.Flags().StringVar(&runCacheDir, "cache-dir", "", "Directory for the generation response cache (empty = disabled)")
	cmd.Flags().StringVar(&runLogPath, "log-path", "", "Run log file or directory (empty = no run log)")
	cmd.Flags().StringVar(&runPromptPath, "prompt", "", "Prompt template file (overrides the spec's prompt_template)")
	cmd.Flags().StringVar(&runEngine, "engine", "", "Force one engine for all profiles (e.g. mock)")
	cmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Verbose output with per-pair progress")
	_ = cmd.MarkFlagRequired("eval") //nolint:errcheck

	return cmd
}

func runCommandE(cmd *cobra.Command, args []string) error {
	spec, err := models.LoadEvalSpec(runEvalPath)
	if err != nil {
		return fmt.Errorf("failed to load eval spec: %w", err)
	}

	specDir := filepath.Dir(runEvalPath)
	if abs, err := filepath.Abs(specDir); err == nil {
		specDir = abs
	}
	inputDir := runInputDir
	if abs, err := filepath.Abs(inputDir); err == nil {
		inputDir = abs
	}

	// --engine forces every profile, grading included, onto one provider.
	// Used for dry runs (mock) and gateway endpoints.
	if runEngine != "" {
		for i := range spec.Models {
			spec.Models[i].Provider = runEngine
		}
		spec.Grading.Provider = runEngine
	}

	promptTemplate, err := resolvePromptTemplate(spec, specDir)
	if err != nil {
		return err
	}

	// The flag wins over .apexeval.yaml, including an explicit --cache-dir "".
	cacheDir := runCacheDir
	if !cmd.Flags().Changed("cache-dir") {
		if pc, err := projectconfig.Load("."); err == nil && pc.CacheEnabled() {
			cacheDir = pc.Cache.Dir
		}
	}

	cfg := config.NewRunConfig(spec,
		config.WithSpecDir(specDir),
		config.WithInputDir(inputDir),
		config.WithOutputPath(runOutputPath),
		config.WithStartIndex(runStartIndex),
		config.WithLimit(runLimit),
		config.WithResume(runResume),
		config.WithCacheDir(cacheDir),
		config.WithLogPath(runLogPath),
		config.WithVerbose(runVerbose),
	)

	tasks, err := dataset.LoadTasksRange(cfg.TaskCSVPath(), cfg.StartIndex(), cfg.Limit())
	if err != nil {
		return &RunFailureError{Message: fmt.Sprintf("failed to load tasks from %s: %v", cfg.TaskCSVPath(), err)}
	}
	if len(tasks) == 0 {
		fmt.Println("No tasks to process.")
		return nil
	}

	env := config.LoadEnv()
	router := execution.NewRouter(env)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = router.Shutdown(shutdownCtx)
	}()

	var genOpts []execution.GeneratorOption
	if cfg.CacheDir() != "" {
		absCacheDir, err := filepath.Abs(cfg.CacheDir())
		if err != nil {
			return fmt.Errorf("resolving cache directory: %w", err)
		}
		genOpts = append(genOpts, execution.WithCache(cache.New(absCacheDir)))
		if runVerbose {
			fmt.Printf("Cache enabled: %s\n", absCacheDir)
		}
	}
	generator := execution.NewGenerator(router, genOpts...)

	grader := grading.NewGrader(grading.NewLLMJudge(router, spec.GradingProfile()))

	store := results.NewStore(cfg.OutputPath())

	runnerOpts := []orchestration.RunnerOption{
		orchestration.WithResume(cfg.Resume()),
	}
	if promptTemplate != "" {
		runnerOpts = append(runnerOpts, orchestration.WithPromptTemplate(promptTemplate))
	}
	if cfg.LogPath() != "" {
		logger, err := openRunLog(cfg.LogPath())
		if err != nil {
			return fmt.Errorf("opening run log: %w", err)
		}
		defer logger.Close() //nolint:errcheck
		runnerOpts = append(runnerOpts, orchestration.WithRunLog(logger))
		if runVerbose {
			fmt.Printf("Run log: %s\n", logger.Path())
		}
	}

	runner := orchestration.NewRunner(spec, store, generator, grader, cfg.AttachmentRoot(), runnerOpts...)

	if runVerbose {
		runner.OnProgress(verboseProgressListener)
	} else {
		runner.OnProgress(simpleProgressListener)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Running evaluation: %s\n", spec.Name)
	fmt.Printf("Tasks: %s (%d task(s), start index %d)\n", cfg.TaskCSVPath(), len(tasks), cfg.StartIndex())
	fmt.Printf("Models: %s\n", modelList(spec))
	fmt.Printf("Runs per model: %d\n", spec.Runs)
	fmt.Printf("Grading model: %s\n", spec.Grading.ModelID)
	fmt.Printf("Output: %s\n", cfg.OutputPath())
	if cfg.Resume() {
		fmt.Println("Resume: enabled")
	}
	fmt.Println()

	summary, err := runner.Run(ctx, tasks)
	if err != nil {
		return &RunFailureError{Message: fmt.Sprintf("evaluation aborted: %v", err)}
	}

	printRunSummary(summary, cfg.OutputPath())

	if summary.Failed > 0 {
		return &RunFailureError{
			Message: fmt.Sprintf("evaluation completed with %d task(s) in error status", summary.Failed),
		}
	}
	return nil
}

// resolvePromptTemplate picks the generation prompt: the --prompt flag wins,
// then the spec's prompt_template file (relative to the spec), then the
// built-in default (returned as "" so the runner uses its own).
func resolvePromptTemplate(spec *models.EvalSpec, specDir string) (string, error) {
	switch {
	case runPromptPath != "":
		text, err := template.Load(runPromptPath)
		if err != nil {
			return "", fmt.Errorf("loading prompt template: %w", err)
		}
		return text, nil
	case spec.PromptTemplate != "":
		text, err := template.Load(utils.ResolvePath(spec.PromptTemplate, specDir))
		if err != nil {
			return "", fmt.Errorf("loading prompt_template from spec: %w", err)
		}
		return text, nil
	}
	return "", nil
}

// openRunLog opens a JSON run log at path. A path naming an existing
// directory gets a timestamped file inside it.
func openRunLog(path string) (*runlog.JSONLogger, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = runlog.DefaultLogPath(path)
	}
	return runlog.NewJSONLogger(path)
}

func modelList(spec *models.EvalSpec) string {
	ids := make([]string, 0, len(spec.Models))
	for _, m := range spec.Models {
		ids = append(ids, m.ModelID)
	}
	return strings.Join(ids, ", ")
}

func verboseProgressListener(event orchestration.ProgressEvent) {
	switch event.EventType {
	case orchestration.EventRunStart:
		fmt.Printf("Starting evaluation with %d task(s)...\n\n", event.TotalTasks)
	case orchestration.EventTaskStart:
		fmt.Printf("[%d/%d] Task: %s\n", event.TaskNum, event.TotalTasks, event.TaskID)
	case orchestration.EventTaskSkipped:
		fmt.Printf("[%d/%d] Task: %s [already completed]\n\n", event.TaskNum, event.TotalTasks, event.TaskID)
	case orchestration.EventGeneration:
		ok, _ := event.Details["succeeded"].(bool)
		cached, _ := event.Details["from_cache"].(bool)
		durationMs, _ := event.Details["duration_ms"].(int64)
		icon := "✗"
		if ok {
			icon = "✓"
		}
		suffix := ""
		if cached {
			suffix = " [cached]"
		}
		fmt.Printf("  %s generated %s run %d/%d (%dms)%s\n", icon, event.ModelID, event.RunNum, event.TotalRuns, durationMs, suffix)
	case orchestration.EventGrading:
		score, _ := event.Details["score"].(float64)
		fmt.Printf("  ⚖ graded %s run %d/%d score=%.1f\n", event.ModelID, event.RunNum, event.TotalRuns, score)
	case orchestration.EventTaskComplete:
		fmt.Printf("  Task %s: %s\n\n", event.TaskID, event.Status)
	case orchestration.EventRunComplete:
		duration := time.Duration(event.DurationMs) * time.Millisecond
		fmt.Printf("Evaluation completed in %v\n\n", duration)
	}
}

func simpleProgressListener(event orchestration.ProgressEvent) {
	switch event.EventType {
	case orchestration.EventTaskSkipped:
		fmt.Printf("⏭ [%d/%d] %s [skipped]\n", event.TaskNum, event.TotalTasks, event.TaskID)
	case orchestration.EventTaskComplete:
		status := "✓"
		if event.Status != models.StatusCompleted {
			status = "✗"
		}
		fmt.Printf("%s [%d/%d] %s\n", status, event.TaskNum, event.TotalTasks, event.TaskID)
	}
}

func printRunSummary(summary *orchestration.Summary, outputPath string) {
	fmt.Println()
	fmt.Println(strings.Repeat("═", 51))
	fmt.Println(" EVALUATION SUMMARY")
	fmt.Println(strings.Repeat("═", 51))
	fmt.Println()
	fmt.Printf("Processed:  %d\n", summary.Processed)
	fmt.Printf("Skipped:    %d\n", summary.Skipped)
	fmt.Printf("Errors:     %d\n", summary.Failed)
	fmt.Printf("\nResults saved to: %s\n", outputPath)
}
