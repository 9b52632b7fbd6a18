package webapi

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/apex-evals/apexeval/internal/metrics"
	"github.com/apex-evals/apexeval/internal/models"
	"github.com/apex-evals/apexeval/internal/results"
	"github.com/apex-evals/apexeval/internal/runlog"
)

// ErrRunNotFound is returned when a run name does not match any results file.
var ErrRunNotFound = errors.New("run not found")

// ErrLogNotFound is returned when a log name does not match any run log file.
var ErrLogNotFound = errors.New("run log not found")

// RunStore provides access to evaluation results and run logs.
type RunStore interface {
	// ListRuns returns all result files, sorted by the given field and order.
	ListRuns(sortField, order string) ([]RunSummary, error)
	// GetRun returns a single result file with rows and score aggregates.
	GetRun(name string) (*RunDetail, error)
	// Summary returns aggregate metrics across all result files.
	Summary() (*SummaryResponse, error)
	// ListLogs returns all run log files, newest first.
	ListLogs() ([]LogSummary, error)
	// TailLog returns the trailing events of one run log.
	TailLog(name string, n int) (*LogTailResponse, error)
}

// scoreColumn matches result score columns: <sanitized model>_<run>_score.
var scoreColumn = regexp.MustCompile(`^(.+)_(\d+)_score$`)

// FileStore reads result CSV files and run logs from a directory.
type FileStore struct {
	dir string

	mu     sync.RWMutex
	runs   map[string]*runData
	loaded bool
}

type runData struct {
	name     string
	size     int64
	modified time.Time
	headers  []string
	records  []models.ResultRecord
}

// NewFileStore creates a FileStore that reads results from dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{
		dir:  dir,
		runs: make(map[string]*runData),
	}
}

// load reads all result CSV files from the configured directory.
func (fs *FileStore) load() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.runs = make(map[string]*runData)

	if fs.dir == "" {
		fs.loaded = true
		return nil
	}

	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		if os.IsNotExist(err) {
			fs.loaded = true
			return nil
		}
		return err
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		path := filepath.Join(fs.dir, e.Name())
		headers, records, err := results.NewStore(path).Read()
		if err != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".csv")
		fs.runs[name] = &runData{
			name:     name,
			size:     info.Size(),
			modified: info.ModTime(),
			headers:  headers,
			records:  records,
		}
	}

	fs.loaded = true
	return nil
}

// ensureLoaded loads data if not already loaded.
func (fs *FileStore) ensureLoaded() error {
	fs.mu.RLock()
	if fs.loaded {
		fs.mu.RUnlock()
		return nil
	}
	fs.mu.RUnlock()
	return fs.load()
}

// Reload forces a fresh reload of all result files from disk.
func (fs *FileStore) Reload() error {
	return fs.load()
}

// scoreColumns returns the score column names in header order.
func scoreColumns(headers []string) []string {
	var cols []string
	for _, h := range headers {
		if scoreColumn.MatchString(h) {
			cols = append(cols, h)
		}
	}
	return cols
}

// modelNames derives the distinct sanitized model names from score columns,
// in header order.
func modelNames(headers []string) []string {
	var names []string
	seen := map[string]bool{}
	for _, h := range headers {
		m := scoreColumn.FindStringSubmatch(h)
		if m == nil || seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		names = append(names, m[1])
	}
	return names
}

func runToSummary(r *runData) RunSummary {
	s := RunSummary{
		Name:      r.name,
		TaskCount: len(r.records),
		Models:    modelNames(r.headers),
		Size:      r.size,
		Modified:  r.modified,
	}
	if s.Models == nil {
		s.Models = []string{}
	}

	var scores []float64
	cols := scoreColumns(r.headers)
	for _, rec := range r.records {
		switch {
		case rec.Status() == string(models.StatusCompleted):
			s.Completed++
		case strings.HasPrefix(rec.Status(), models.ErrorStatusPrefix):
			s.Errored++
		}
		for _, col := range cols {
			if v, err := strconv.ParseFloat(rec[col], 64); err == nil {
				scores = append(scores, v)
			}
		}
	}
	s.MeanScore = metrics.Mean(scores)
	return s
}

func runToDetail(r *runData) *RunDetail {
	detail := &RunDetail{RunSummary: runToSummary(r)}

	cols := scoreColumns(r.headers)
	byColumn := make(map[string][]float64, len(cols))

	for _, rec := range r.records {
		tr := TaskResult{
			TaskID: rec.TaskID(),
			Domain: rec["domain"],
			Status: rec.Status(),
			Scores: map[string]float64{},
		}
		for _, col := range cols {
			v, err := strconv.ParseFloat(rec[col], 64)
			if err != nil {
				continue
			}
			tr.Scores[strings.TrimSuffix(col, "_score")] = v
			byColumn[col] = append(byColumn[col], v)
		}
		detail.Tasks = append(detail.Tasks, tr)
	}
	if detail.Tasks == nil {
		detail.Tasks = []TaskResult{}
	}

	for _, col := range cols {
		detail.ModelStats = append(detail.ModelStats, ModelStats{
			Column:       strings.TrimSuffix(col, "_score"),
			ScoreSummary: metrics.Summarize(byColumn[col]),
		})
	}
	if detail.ModelStats == nil {
		detail.ModelStats = []ModelStats{}
	}

	return detail
}

// ListRuns returns all result files sorted by the given field and order.
func (fs *FileStore) ListRuns(sortField, order string) ([]RunSummary, error) {
	if err := fs.ensureLoaded(); err != nil {
		return nil, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	runs := make([]RunSummary, 0, len(fs.runs))
	for _, r := range fs.runs {
		runs = append(runs, runToSummary(r))
	}

	sortRuns(runs, sortField, order)
	return runs, nil
}

// GetRun returns a single result file with rows and score aggregates.
func (fs *FileStore) GetRun(name string) (*RunDetail, error) {
	if err := fs.ensureLoaded(); err != nil {
		return nil, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	r, ok := fs.runs[name]
	if !ok {
		return nil, ErrRunNotFound
	}

	return runToDetail(r), nil
}

// Summary returns aggregate metrics across all result files.
func (fs *FileStore) Summary() (*SummaryResponse, error) {
	if err := fs.ensureLoaded(); err != nil {
		return nil, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	resp := &SummaryResponse{}
	var scoreTotal float64
	var scoreCount int

	for _, r := range fs.runs {
		s := runToSummary(r)
		resp.TotalRuns++
		resp.TotalTasks += s.TaskCount
		resp.Completed += s.Completed
		resp.Errored += s.Errored

		cols := scoreColumns(r.headers)
		for _, rec := range r.records {
			for _, col := range cols {
				if v, err := strconv.ParseFloat(rec[col], 64); err == nil {
					scoreTotal += v
					scoreCount++
				}
			}
		}
	}

	if scoreCount > 0 {
		resp.MeanScore = scoreTotal / float64(scoreCount)
	}
	return resp, nil
}

// ListLogs returns all run log files, newest first.
func (fs *FileStore) ListLogs() ([]LogSummary, error) {
	files, err := runlog.ListLogs(fs.dir)
	if err != nil {
		return nil, err
	}

	logs := make([]LogSummary, 0, len(files))
	for _, f := range files {
		logs = append(logs, LogSummary{
			Name:     f.Name,
			Size:     f.Size,
			Events:   f.NumEvents,
			Modified: f.ModTime,
		})
	}
	return logs, nil
}

// TailLog returns the trailing n events of one run log. Names are matched
// against the log directory listing, never joined from request input.
func (fs *FileStore) TailLog(name string, n int) (*LogTailResponse, error) {
	files, err := runlog.ListLogs(fs.dir)
	if err != nil {
		return nil, err
	}

	var path string
	for _, f := range files {
		if f.Name == name {
			path = f.Path
			break
		}
	}
	if path == "" {
		return nil, ErrLogNotFound
	}

	events, err := runlog.ReadEvents(path)
	if err != nil {
		return nil, err
	}

	resp := &LogTailResponse{Name: name, Total: len(events)}
	if n > 0 && len(events) > n {
		events = events[len(events)-n:]
	}
	for _, ev := range events {
		resp.Events = append(resp.Events, LogEventJSON{
			Timestamp: ev.Timestamp,
			Type:      string(ev.Type),
			Data:      ev.Data,
		})
	}
	if resp.Events == nil {
		resp.Events = []LogEventJSON{}
	}
	return resp, nil
}

func sortRuns(runs []RunSummary, field, order string) {
	less := func(i, j int) bool {
		switch field {
		case "name":
			return runs[i].Name < runs[j].Name
		case "tasks":
			return runs[i].TaskCount < runs[j].TaskCount
		case "score":
			return runs[i].MeanScore < runs[j].MeanScore
		default: // "modified" or empty
			return runs[i].Modified.Before(runs[j].Modified)
		}
	}

	if order == "asc" {
		sort.Slice(runs, less)
	} else {
		sort.Slice(runs, func(i, j int) bool { return less(j, i) })
	}
}

// Ensure FileStore satisfies RunStore.
var _ RunStore = (*FileStore)(nil)
