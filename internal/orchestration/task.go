package orchestration

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/apex-evals/apexeval/internal/attachment"
	"github.com/apex-evals/apexeval/internal/models"
	"github.com/apex-evals/apexeval/internal/results"
	"github.com/apex-evals/apexeval/internal/runlog"
	"github.com/apex-evals/apexeval/internal/template"
	"github.com/apex-evals/apexeval/internal/utils"
)

// Cell values for pairs that produce no grade. Readers of existing result
// files match on these strings, so they are load-bearing.
const (
	scoreZero = "0"

	// GenerationFailedPrefix starts the score-summary cell of every pair
	// whose generation errored.
	GenerationFailedPrefix = "Generation failed: "

	// NoRubricOrEmptyResponse fills the score-summary cell of pairs that
	// could not be graded because there was nothing to grade against.
	NoRubricOrEmptyResponse = "No rubric or empty response"
)

// ProcessTask collects responses and grades for one task across every
// (model, run) pair and returns the assembled row. Failures inside a pair
// stay in that pair's cells; anything that escapes the pair loop puts the
// task into an error status instead. The returned record is always complete
// enough to append.
func (r *Runner) ProcessTask(ctx context.Context, task models.Task, taskNum, totalTasks int) (record models.ResultRecord) {
	log := utils.TaskLogger(task.TaskID)
	log.Info("processing task", "task_num", taskNum, "total_tasks", totalTasks)

	record = models.NewResultRecord(task.TaskID, task.Domain)
	startTime := time.Now()

	defer func() {
		if p := recover(); p != nil {
			log.Error("task processing panicked", "panic", p)
			record.SetErrorStatus(fmt.Sprint(p))
		}
		durationMs := time.Since(startTime).Milliseconds()
		r.logEvent(runlog.NewEvent(runlog.EventTaskComplete, runlog.TaskCompleteData(task.TaskID, record.Status(), durationMs)))
		r.notifyProgress(ProgressEvent{
			EventType:  EventTaskComplete,
			TaskID:     task.TaskID,
			TaskNum:    taskNum,
			TotalTasks: totalTasks,
			Status:     models.Status(record.Status()),
			DurationMs: durationMs,
		})
	}()

	r.logEvent(runlog.NewEvent(runlog.EventTaskStart, runlog.TaskStartData(task.TaskID, taskNum, totalTasks)))
	r.notifyProgress(ProgressEvent{
		EventType:  EventTaskStart,
		TaskID:     task.TaskID,
		TaskNum:    taskNum,
		TotalTasks: totalTasks,
	})

	prompt, err := template.Render(r.promptTemplate, &template.Context{
		Domain: task.Domain,
		Prompt: task.Prompt,
	})
	if err != nil {
		log.Error("task failed", "error", err)
		record.SetErrorStatus(err.Error())
		return record
	}

	// Resolved once here so every pair sees the same attachment set.
	attachments := attachment.Resolve(task.FileAttachments, r.baseDir)

	for _, profile := range r.spec.Models {
		for run := 1; run <= r.spec.Runs; run++ {
			r.processPair(ctx, record, task, prompt, attachments, profile, run)
		}
	}

	record.SetStatus(models.StatusCompleted)
	return record
}

// processPair fills the three result cells for one (model, run) pair. The
// response cell is always written; the score and summary cells are written
// together or, after a grading error, not at all.
func (r *Runner) processPair(ctx context.Context, record models.ResultRecord, task models.Task, prompt string, attachments []models.Attachment, profile models.ModelProfile, run int) {
	log := utils.PairLogger(task.TaskID, profile.ModelID, run)
	log.Info("generating response", "total_runs", r.spec.Runs)

	responseCol, scoreCol, summaryCol := results.ColumnsFor(profile.ModelID, run)

	outcome := r.generator.Generate(ctx, task.TaskID, prompt, profile, attachments)
	record[responseCol] = outcome.Response

	r.logEvent(runlog.NewEvent(runlog.EventGeneration, runlog.GenerationData(task.TaskID, profile.ModelID, run, outcome.Succeeded, outcome.FromCache, outcome.DurationMs)))
	r.notifyProgress(ProgressEvent{
		EventType: EventGeneration,
		TaskID:    task.TaskID,
		ModelID:   profile.ModelID,
		RunNum:    run,
		TotalRuns: r.spec.Runs,
		Details: map[string]any{
			"succeeded":   outcome.Succeeded,
			"from_cache":  outcome.FromCache,
			"duration_ms": outcome.DurationMs,
		},
	})

	if !outcome.Succeeded {
		record[scoreCol] = scoreZero
		record[summaryCol] = GenerationFailedPrefix + models.TruncateMessage(outcome.Err, 100)
		return
	}

	if !task.HasRubric() || strings.TrimSpace(outcome.Response) == "" {
		record[scoreCol] = scoreZero
		record[summaryCol] = NoRubricOrEmptyResponse
		return
	}

	grade, err := r.grader.Grade(ctx, outcome.Response, task.RubricJSON)
	if err != nil {
		// Leaving both cells unset marks a grading failure; a "0" here
		// would read as a real score.
		log.Error("grading failed", "error", err)
		r.logEvent(runlog.NewEvent(runlog.EventError, runlog.ErrorData("grading failed: "+err.Error(), map[string]any{
			"task_id": task.TaskID,
			"model":   profile.ModelID,
			"run":     run,
		})))
		return
	}

	record[scoreCol] = models.FormatScore(grade.Score)
	record[summaryCol] = grade.ScoreSummary
	log.Info("graded response", "score", grade.Score)

	r.logEvent(runlog.NewEvent(runlog.EventGrading, runlog.GradingData(task.TaskID, profile.ModelID, run, grade.Score)))
	r.notifyProgress(ProgressEvent{
		EventType: EventGrading,
		TaskID:    task.TaskID,
		ModelID:   profile.ModelID,
		RunNum:    run,
		TotalRuns: r.spec.Runs,
		Details:   map[string]any{"score": grade.Score},
	})
}
