// Package dataset reads evaluation tasks from the task CSV.
package dataset

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/apex-evals/apexeval/internal/models"
)

// Column names of the task CSV.
const (
	ColumnTaskID      = "Task ID"
	ColumnDomain      = "Domain"
	ColumnPrompt      = "Prompt"
	ColumnAttachments = "File Attachments"
	ColumnRubric      = "Rubric JSON"
)

// Row represents a single CSV row with column name to value mapping.
type Row map[string]string

// LoadCSV reads a CSV file and returns rows as maps of column to value.
// The first row is treated as headers (column names).
func LoadCSV(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: parse %s: %w", path, err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("csv: %s is empty (no header row)", path)
	}

	headers := records[0]
	rows := make([]Row, 0, len(records)-1)

	for i, record := range records[1:] {
		if len(record) != len(headers) {
			return nil, fmt.Errorf("csv: row %d has %d columns, expected %d", i+2, len(record), len(headers))
		}
		row := make(Row, len(headers))
		for j, h := range headers {
			row[h] = record[j]
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// LoadTasks reads the full task list from path in record order.
func LoadTasks(path string) ([]models.Task, error) {
	rows, err := LoadCSV(path)
	if err != nil {
		return nil, err
	}

	tasks := make([]models.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, taskFromRow(row))
	}
	return tasks, nil
}

// LoadTasksRange reads tasks[start : start+limit] (0-based start). A limit
// of zero or less means "to the end". A start beyond the last task yields an
// empty slice rather than an error.
func LoadTasksRange(path string, start, limit int) ([]models.Task, error) {
	if start < 0 {
		return nil, fmt.Errorf("csv: range start must be >= 0, got %d", start)
	}

	tasks, err := LoadTasks(path)
	if err != nil {
		return nil, err
	}

	if start >= len(tasks) {
		return []models.Task{}, nil
	}

	end := len(tasks)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	return tasks[start:end], nil
}

func taskFromRow(row Row) models.Task {
	taskID := row[ColumnTaskID]
	if taskID == "" {
		taskID = "unknown"
	}
	return models.Task{
		TaskID:          taskID,
		Domain:          row[ColumnDomain],
		Prompt:          row[ColumnPrompt],
		FileAttachments: row[ColumnAttachments],
		RubricJSON:      row[ColumnRubric],
	}
}
