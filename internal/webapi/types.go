package webapi

import (
	"time"

	"github.com/apex-evals/apexeval/internal/metrics"
)

// RunSummary is the API response for a single results file in the list.
type RunSummary struct {
	Name      string    `json:"name"`
	TaskCount int       `json:"taskCount"`
	Completed int       `json:"completed"`
	Errored   int       `json:"errored"`
	Models    []string  `json:"models"`
	MeanScore float64   `json:"meanScore"`
	Size      int64     `json:"size"`
	Modified  time.Time `json:"modified"`
}

// RunDetail is the API response for a single results file with per-task rows
// and per-column score aggregates.
type RunDetail struct {
	RunSummary
	ModelStats []ModelStats `json:"modelStats"`
	Tasks      []TaskResult `json:"tasks"`
}

// ModelStats aggregates the scores in one result column. Column is the
// sanitized <model>_<run> base the results file uses.
type ModelStats struct {
	Column string `json:"column"`
	metrics.ScoreSummary
}

// TaskResult is one task row. Scores maps score columns (minus the _score
// suffix) to parsed values; columns left unset by grading errors are absent.
type TaskResult struct {
	TaskID string             `json:"taskId"`
	Domain string             `json:"domain"`
	Status string             `json:"status"`
	Scores map[string]float64 `json:"scores"`
}

// SummaryResponse is the aggregate KPI response across all result files.
type SummaryResponse struct {
	TotalRuns  int     `json:"totalRuns"`
	TotalTasks int     `json:"totalTasks"`
	Completed  int     `json:"completed"`
	Errored    int     `json:"errored"`
	MeanScore  float64 `json:"meanScore"`
}

// LogSummary describes one run log file.
type LogSummary struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Events   int       `json:"events"`
	Modified time.Time `json:"modified"`
}

// LogTailResponse carries the trailing events of one run log.
type LogTailResponse struct {
	Name   string         `json:"name"`
	Total  int            `json:"total"`
	Events []LogEventJSON `json:"events"`
}

// LogEventJSON is one run log event in API form.
type LogEventJSON struct {
	Timestamp time.Time      `json:"ts"`
	Type      string         `json:"event"`
	Data      map[string]any `json:"data,omitempty"`
}

// HealthResponse is the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ErrorResponse is returned for errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}
