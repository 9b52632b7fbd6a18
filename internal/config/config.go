package config

import (
	"path/filepath"

	"github.com/apex-evals/apexeval/internal/models"
)

// Task lists live at data/train.csv under the dataset root, matching the
// layout of the exported evaluation datasets.
const taskListRelPath = "data/train.csv"

// RunConfig carries everything an evaluation run needs beyond the spec
// itself: where the dataset lives, where results and logs go, and which
// slice of the task list to cover.
type RunConfig struct {
	spec       *models.EvalSpec
	specDir    string
	inputDir   string
	taskCSV    string
	outputPath string
	logPath    string
	cacheDir   string
	startIndex int
	limit      int
	resume     bool
	verbose    bool
}

// Option mutates a RunConfig during construction.
type Option func(*RunConfig)

// NewRunConfig builds a RunConfig for spec with the given options applied
// in order. Later options win. A nil option panics.
func NewRunConfig(spec *models.EvalSpec, opts ...Option) *RunConfig {
	cfg := &RunConfig{spec: spec}
	for _, opt := range opts {
		if opt == nil {
			panic("config: nil option")
		}
		opt(cfg)
	}
	return cfg
}

// WithSpecDir records the directory the eval spec was loaded from.
func WithSpecDir(dir string) Option {
	return func(c *RunConfig) { c.specDir = dir }
}

// WithInputDir sets the dataset root. The task list and attachment paths
// resolve relative to it.
func WithInputDir(dir string) Option {
	return func(c *RunConfig) { c.inputDir = dir }
}

// WithAttachmentRoot is an alias for WithInputDir: attachments resolve
// against the dataset root.
func WithAttachmentRoot(dir string) Option {
	return WithInputDir(dir)
}

// WithTaskCSV overrides the derived data/train.csv location.
func WithTaskCSV(path string) Option {
	return func(c *RunConfig) { c.taskCSV = path }
}

// WithOutputPath sets where the results CSV is written.
func WithOutputPath(path string) Option {
	return func(c *RunConfig) { c.outputPath = path }
}

// WithLogPath sets where the session event log is written.
func WithLogPath(path string) Option {
	return func(c *RunConfig) { c.logPath = path }
}

// WithCacheDir sets the generation cache directory. Empty disables caching.
func WithCacheDir(dir string) Option {
	return func(c *RunConfig) { c.cacheDir = dir }
}

// WithStartIndex sets the zero-based index of the first task to process.
func WithStartIndex(n int) Option {
	return func(c *RunConfig) { c.startIndex = n }
}

// WithLimit caps how many tasks are processed. Zero or less means all.
func WithLimit(n int) Option {
	return func(c *RunConfig) { c.limit = n }
}

// WithResume controls whether completed rows in an existing results file
// are kept and skipped.
func WithResume(resume bool) Option {
	return func(c *RunConfig) { c.resume = resume }
}

// WithVerbose enables debug-level progress output.
func WithVerbose(verbose bool) Option {
	return func(c *RunConfig) { c.verbose = verbose }
}

func (c *RunConfig) Spec() *models.EvalSpec { return c.spec }

func (c *RunConfig) SpecDir() string { return c.specDir }

func (c *RunConfig) InputDir() string { return c.inputDir }

// AttachmentRoot returns the directory attachment references resolve
// against. It is always the dataset root.
func (c *RunConfig) AttachmentRoot() string { return c.inputDir }

// TaskCSVPath returns the task list location: the explicit override when
// set, otherwise data/train.csv under the dataset root.
func (c *RunConfig) TaskCSVPath() string {
	if c.taskCSV != "" {
		return c.taskCSV
	}
	return filepath.Join(c.inputDir, taskListRelPath)
}

func (c *RunConfig) OutputPath() string { return c.outputPath }

func (c *RunConfig) LogPath() string { return c.logPath }

func (c *RunConfig) CacheDir() string { return c.cacheDir }

func (c *RunConfig) StartIndex() int { return c.startIndex }

func (c *RunConfig) Limit() int { return c.limit }

func (c *RunConfig) Resume() bool { return c.resume }

func (c *RunConfig) Verbose() bool { return c.verbose }
