package reporting

import (
	"strconv"
	"strings"

	"github.com/apex-evals/apexeval/internal/metrics"
	"github.com/apex-evals/apexeval/internal/models"
	"github.com/apex-evals/apexeval/internal/orchestration"
)

// ModelRunReport aggregates one (model, run) column group.
type ModelRunReport struct {
	Model              string               `json:"model"`
	Run                int                  `json:"run"`
	Graded             int                  `json:"graded"`
	GenerationFailures int                  `json:"generation_failures"`
	Ungraded           int                  `json:"ungraded"`
	Stats              metrics.ScoreSummary `json:"stats"`
}

// ResultsReport is the full summary for one results file.
type ResultsReport struct {
	File      string           `json:"file"`
	Tasks     int              `json:"tasks"`
	Completed int              `json:"completed"`
	Errors    int              `json:"errors"`
	ModelRuns []ModelRunReport `json:"model_runs"`
}

// BuildResultsReport tallies task statuses and per-column-group score
// statistics for a results file. The placeholder "0" cells written for
// failed or skipped grading are classified by their summary cell and stay
// out of the score statistics.
func BuildResultsReport(path string, headers []string, rows []models.ResultRecord) *ResultsReport {
	report := &ResultsReport{
		File:  path,
		Tasks: len(rows),
	}

	for _, row := range rows {
		if row.Status() == string(models.StatusCompleted) {
			report.Completed++
		} else if strings.HasPrefix(row.Status(), models.ErrorStatusPrefix) {
			report.Errors++
		}
	}

	for _, header := range headers {
		m := scoreColumn.FindStringSubmatch(header)
		if m == nil {
			continue
		}
		run, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}

		mr := ModelRunReport{Model: m[1], Run: run}
		summaryCol := header + "_summary"

		var scores []float64
		for _, row := range rows {
			summary := row[summaryCol]
			switch {
			case strings.HasPrefix(summary, orchestration.GenerationFailedPrefix):
				mr.GenerationFailures++
			case summary == orchestration.NoRubricOrEmptyResponse || summary == "":
				mr.Ungraded++
			default:
				if score, err := strconv.ParseFloat(row[header], 64); err == nil {
					mr.Graded++
					scores = append(scores, score)
				} else {
					mr.Ungraded++
				}
			}
		}
		mr.Stats = metrics.Summarize(scores)
		report.ModelRuns = append(report.ModelRuns, mr)
	}

	return report
}
