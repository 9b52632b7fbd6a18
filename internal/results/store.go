// Package results persists evaluation rows to the output CSV store and
// reads them back for resume checks and reporting.
package results

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/apex-evals/apexeval/internal/models"
)

// Fixed leading columns of every results file.
const (
	ColumnTaskID = "task_id"
	ColumnDomain = "domain"
	ColumnStatus = "status"
)

var sanitizer = strings.NewReplacer("-", "_", ".", "_", "/", "_")

// Sanitize normalizes a model ID into a column-name segment. Hyphens, dots
// and slashes all become underscores, so "gpt-4.1" and "org/model" stay
// unambiguous single tokens.
func Sanitize(modelID string) string {
	return sanitizer.Replace(modelID)
}

// ColumnsFor returns the response, score and score-summary column names for
// one (model, run) pair.
func ColumnsFor(modelID string, run int) (response, score, summary string) {
	base := fmt.Sprintf("%s_%d", Sanitize(modelID), run)
	return base + "_response", base + "_score", base + "_score_summary"
}

// Headers returns the output header row for spec: the fixed columns, then
// one (response, score, score_summary) triplet per model and run, in
// profile-list order with run indexes ascending from 1.
func Headers(spec *models.EvalSpec) []string {
	headers := []string{ColumnTaskID, ColumnDomain, ColumnStatus}
	for _, profile := range spec.Models {
		for run := 1; run <= spec.Runs; run++ {
			response, score, summary := ColumnsFor(profile.ModelID, run)
			headers = append(headers, response, score, summary)
		}
	}
	return headers
}

// Store reads and writes one results CSV file.
type Store struct {
	path string
}

// NewStore creates a store over path. The file itself is not touched until
// Reset or Append.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the location of the results file.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether the results file is already on disk.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// LoadCompleted returns the task IDs already recorded in the store. Any
// problem reading the file (absent, unreadable, malformed) yields an empty
// set: resume then reprocesses everything rather than failing the run.
func (s *Store) LoadCompleted() map[string]bool {
	completed := make(map[string]bool)

	headers, rows, err := s.Read()
	if err != nil {
		slog.Debug("no prior results loaded", "path", s.path, "error", err)
		return completed
	}

	idx := -1
	for i, h := range headers {
		if h == ColumnTaskID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return completed
	}

	for _, row := range rows {
		if id := row[ColumnTaskID]; id != "" {
			completed[id] = true
		}
	}
	return completed
}

// Reset truncates the store and writes the header row, discarding any prior
// rows.
func (s *Store) Reset(headers []string) error {
	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("results: create %s: %w", s.path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(headers); err != nil {
		f.Close() //nolint:errcheck
		return fmt.Errorf("results: write header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close() //nolint:errcheck
		return fmt.Errorf("results: write header: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("results: close %s: %w", s.path, err)
	}
	return nil
}

// Append writes one record and syncs it to disk before returning, so a
// crash mid-run loses at most the row being written. Record keys that are
// not in headers are dropped; header columns the record lacks are written
// as empty cells.
func (s *Store) Append(headers []string, record models.ResultRecord) error {
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("results: open %s for append: %w", s.path, err)
	}

	row := make([]string, len(headers))
	for i, h := range headers {
		row[i] = record[h]
	}

	w := csv.NewWriter(f)
	if err := w.Write(row); err != nil {
		f.Close() //nolint:errcheck
		return fmt.Errorf("results: append row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close() //nolint:errcheck
		return fmt.Errorf("results: append row: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close() //nolint:errcheck
		return fmt.Errorf("results: sync %s: %w", s.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("results: close %s: %w", s.path, err)
	}
	return nil
}

// Read returns the header row and every record in file order.
func (s *Store) Read() ([]string, []models.ResultRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, nil, fmt.Errorf("results: open %s: %w", s.path, err)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	// Rows written against an older header may be shorter.
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("results: parse %s: %w", s.path, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("results: %s is empty (no header row)", s.path)
	}

	headers := records[0]
	rows := make([]models.ResultRecord, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(models.ResultRecord, len(headers))
		for i, h := range headers {
			if i < len(record) {
				row[h] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return headers, rows, nil
}
