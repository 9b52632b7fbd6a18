// Package orchestration drives an evaluation end to end: it walks the task
// list in order, collects one response per (model, run) pair, grades the
// responses that have a rubric, and appends one row per task to the results
// store as soon as the task finishes.
package orchestration

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/apex-evals/apexeval/internal/execution"
	"github.com/apex-evals/apexeval/internal/grading"
	"github.com/apex-evals/apexeval/internal/models"
	"github.com/apex-evals/apexeval/internal/results"
	"github.com/apex-evals/apexeval/internal/runlog"
	"github.com/apex-evals/apexeval/internal/template"
)

// Generator produces one model response per (task, model, run) attempt.
// *execution.Generator satisfies it.
type Generator interface {
	Generate(ctx context.Context, taskID string, prompt string, profile models.ModelProfile, attachments []models.Attachment) execution.GenerationOutcome
}

// Grader scores a model response against a task rubric.
// *grading.Grader satisfies it.
type Grader interface {
	Grade(ctx context.Context, response string, rubricJSON string) (*grading.Outcome, error)
}

// Runner executes the evaluation pipeline
type Runner struct {
	spec      *models.EvalSpec
	store     *results.Store
	generator Generator
	grader    Grader

	// Attachment references in task rows resolve against this directory.
	baseDir string

	promptTemplate string
	resume         bool

	runLog runlog.Logger

	// Progress tracking
	progressMu sync.Mutex
	listeners  []ProgressListener
}

// ProgressListener receives progress updates
type ProgressListener func(event ProgressEvent)

// EventType represents the type of progress event
type EventType string

// EventType constants
const (
	EventRunStart     EventType = "run_start"
	EventRunComplete  EventType = "run_complete"
	EventTaskStart    EventType = "task_start"
	EventTaskComplete EventType = "task_complete"
	EventTaskSkipped  EventType = "task_skipped"
	EventGeneration   EventType = "generation_complete"
	EventGrading      EventType = "grading_complete"
)

// ProgressEvent represents a progress update
type ProgressEvent struct {
	EventType  EventType
	TaskID     string
	TaskNum    int
	TotalTasks int
	ModelID    string
	RunNum     int
	TotalRuns  int
	Status     models.Status
	DurationMs int64
	Details    map[string]any
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithResume skips tasks whose IDs already appear in the results store
// instead of starting the store over.
func WithResume(resume bool) RunnerOption {
	return func(r *Runner) {
		r.resume = resume
	}
}

// WithPromptTemplate overrides the built-in prompt template.
func WithPromptTemplate(tmpl string) RunnerOption {
	return func(r *Runner) {
		r.promptTemplate = tmpl
	}
}

// WithRunLog records pipeline events to the given log.
func WithRunLog(l runlog.Logger) RunnerOption {
	return func(r *Runner) {
		r.runLog = l
	}
}

// NewRunner creates a runner for one evaluation. Attachment references in
// task rows resolve against baseDir.
func NewRunner(spec *models.EvalSpec, store *results.Store, generator Generator, grader Grader, baseDir string, opts ...RunnerOption) *Runner {
	r := &Runner{
		spec:           spec,
		store:          store,
		generator:      generator,
		grader:         grader,
		baseDir:        baseDir,
		promptTemplate: template.DefaultPrompt,
		runLog:         runlog.NopLogger{},
		listeners:      []ProgressListener{},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// OnProgress registers a progress listener
func (r *Runner) OnProgress(listener ProgressListener) {
	r.progressMu.Lock()
	defer r.progressMu.Unlock()
	r.listeners = append(r.listeners, listener)
}

func (r *Runner) notifyProgress(event ProgressEvent) {
	r.progressMu.Lock()
	listeners := make([]ProgressListener, len(r.listeners))
	copy(listeners, r.listeners)
	r.progressMu.Unlock()

	for _, listener := range listeners {
		listener(event)
	}
}

func (r *Runner) logEvent(ev runlog.Event) {
	if err := r.runLog.Log(ev); err != nil {
		slog.Warn("failed to write run log event", "type", ev.Type, "error", err)
	}
}

// Summary totals one pipeline run.
type Summary struct {
	Processed int
	Skipped   int
	Failed    int
}

// Run processes the given tasks in order. Every processed task yields exactly
// one appended row, including tasks that end in an error status. A row that
// cannot be appended aborts the run: continuing would silently drop results.
func (r *Runner) Run(ctx context.Context, tasks []models.Task) (*Summary, error) {
	startTime := time.Now()

	headers := results.Headers(r.spec)

	completed := map[string]bool{}
	if r.resume {
		completed = r.store.LoadCompleted()
	}

	// A fresh run, or a resume pointed at a missing file, starts the store
	// over with a header row.
	if !r.resume || !r.store.Exists() {
		if err := r.store.Reset(headers); err != nil {
			return nil, err
		}
	}

	slog.Info("starting evaluation",
		"spec", r.spec.Name,
		"tasks", len(tasks),
		"models", len(r.spec.Models),
		"runs", r.spec.Runs,
		"resume", r.resume,
		"output", r.store.Path())

	r.logEvent(runlog.NewEvent(runlog.EventRunStart, runlog.RunStartData(r.spec.Name, r.store.Path(), len(tasks), r.resume)))
	r.notifyProgress(ProgressEvent{
		EventType:  EventRunStart,
		TotalTasks: len(tasks),
	})

	summary := &Summary{}
	for i, task := range tasks {
		if r.resume && completed[task.TaskID] {
			slog.Info("skipping task (already done)", "task_id", task.TaskID)
			summary.Skipped++
			r.logEvent(runlog.NewEvent(runlog.EventTaskSkipped, runlog.TaskSkippedData(task.TaskID)))
			r.notifyProgress(ProgressEvent{
				EventType:  EventTaskSkipped,
				TaskID:     task.TaskID,
				TaskNum:    i + 1,
				TotalTasks: len(tasks),
			})
			continue
		}

		record := r.ProcessTask(ctx, task, i+1, len(tasks))
		if err := r.store.Append(headers, record); err != nil {
			return nil, err
		}
		summary.Processed++
		if strings.HasPrefix(record.Status(), models.ErrorStatusPrefix) {
			summary.Failed++
		}
	}

	durationMs := time.Since(startTime).Milliseconds()
	slog.Info("evaluation finished",
		"processed", summary.Processed,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"output", r.store.Path())

	r.logEvent(runlog.NewEvent(runlog.EventRunEnd, runlog.RunCompleteData(summary.Processed, summary.Skipped, summary.Failed, durationMs)))
	r.notifyProgress(ProgressEvent{
		EventType:  EventRunComplete,
		DurationMs: durationMs,
	})

	return summary, nil
}
