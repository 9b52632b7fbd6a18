package config

import (
	"path/filepath"
	"testing"

	"github.com/apex-evals/apexeval/internal/models"
)

func TestNewRunConfig_DefaultValues(t *testing.T) {
	spec := &models.EvalSpec{SpecIdentity: models.SpecIdentity{Name: "test-spec"}}

	cfg := NewRunConfig(spec)

	if cfg.Spec() != spec {
		t.Fatalf("Spec() = %p, want %p", cfg.Spec(), spec)
	}
	if cfg.SpecDir() != "" {
		t.Fatalf("SpecDir() = %q, want empty", cfg.SpecDir())
	}
	if cfg.InputDir() != "" {
		t.Fatalf("InputDir() = %q, want empty", cfg.InputDir())
	}
	if cfg.AttachmentRoot() != "" {
		t.Fatalf("AttachmentRoot() = %q, want empty", cfg.AttachmentRoot())
	}
	if cfg.OutputPath() != "" {
		t.Fatalf("OutputPath() = %q, want empty", cfg.OutputPath())
	}
	if cfg.LogPath() != "" {
		t.Fatalf("LogPath() = %q, want empty", cfg.LogPath())
	}
	if cfg.CacheDir() != "" {
		t.Fatalf("CacheDir() = %q, want empty", cfg.CacheDir())
	}
	if cfg.StartIndex() != 0 {
		t.Fatalf("StartIndex() = %d, want 0", cfg.StartIndex())
	}
	if cfg.Limit() != 0 {
		t.Fatalf("Limit() = %d, want 0", cfg.Limit())
	}
	if cfg.Resume() {
		t.Fatalf("Resume() = true, want false")
	}
	if cfg.Verbose() {
		t.Fatalf("Verbose() = true, want false")
	}
}

func TestNewRunConfig_AppliesFunctionalOptions(t *testing.T) {
	spec := &models.EvalSpec{}

	cfg := NewRunConfig(
		spec,
		WithSpecDir("/tmp/specs"),
		WithInputDir("/tmp/dataset"),
		WithOutputPath("results.csv"),
		WithLogPath("logs/run.ndjson"),
		WithCacheDir("/tmp/cache"),
		WithStartIndex(3),
		WithLimit(10),
		WithResume(true),
		WithVerbose(true),
	)

	if cfg.SpecDir() != "/tmp/specs" {
		t.Fatalf("SpecDir() = %q, want %q", cfg.SpecDir(), "/tmp/specs")
	}
	if cfg.InputDir() != "/tmp/dataset" {
		t.Fatalf("InputDir() = %q, want %q", cfg.InputDir(), "/tmp/dataset")
	}
	if cfg.AttachmentRoot() != "/tmp/dataset" {
		t.Fatalf("AttachmentRoot() = %q, want %q", cfg.AttachmentRoot(), "/tmp/dataset")
	}
	if cfg.OutputPath() != "results.csv" {
		t.Fatalf("OutputPath() = %q, want %q", cfg.OutputPath(), "results.csv")
	}
	if cfg.LogPath() != "logs/run.ndjson" {
		t.Fatalf("LogPath() = %q, want %q", cfg.LogPath(), "logs/run.ndjson")
	}
	if cfg.CacheDir() != "/tmp/cache" {
		t.Fatalf("CacheDir() = %q, want %q", cfg.CacheDir(), "/tmp/cache")
	}
	if cfg.StartIndex() != 3 {
		t.Fatalf("StartIndex() = %d, want 3", cfg.StartIndex())
	}
	if cfg.Limit() != 10 {
		t.Fatalf("Limit() = %d, want 10", cfg.Limit())
	}
	if !cfg.Resume() {
		t.Fatalf("Resume() = false, want true")
	}
	if !cfg.Verbose() {
		t.Fatalf("Verbose() = false, want true")
	}
}

func TestWithAttachmentRoot_Alias(t *testing.T) {
	cfg := NewRunConfig(&models.EvalSpec{}, WithAttachmentRoot("dataset"))

	if cfg.InputDir() != "dataset" {
		t.Fatalf("InputDir() = %q, want %q", cfg.InputDir(), "dataset")
	}
	if cfg.AttachmentRoot() != "dataset" {
		t.Fatalf("AttachmentRoot() = %q, want %q", cfg.AttachmentRoot(), "dataset")
	}
}

func TestOptionOrder_LastOptionWins(t *testing.T) {
	cfg := NewRunConfig(
		&models.EvalSpec{},
		WithResume(true),
		WithResume(false),
		WithInputDir("first"),
		WithAttachmentRoot("second"),
	)

	if cfg.Resume() {
		t.Fatalf("Resume() = true, want false")
	}
	if cfg.InputDir() != "second" {
		t.Fatalf("InputDir() = %q, want %q", cfg.InputDir(), "second")
	}
	if cfg.AttachmentRoot() != "second" {
		t.Fatalf("AttachmentRoot() = %q, want %q", cfg.AttachmentRoot(), "second")
	}
}

func TestTaskCSVPath(t *testing.T) {
	cfg := NewRunConfig(&models.EvalSpec{}, WithInputDir("/data/apex"))
	want := filepath.Join("/data/apex", "data", "train.csv")
	if cfg.TaskCSVPath() != want {
		t.Fatalf("TaskCSVPath() = %q, want %q", cfg.TaskCSVPath(), want)
	}

	cfg = NewRunConfig(&models.EvalSpec{}, WithInputDir("/data/apex"), WithTaskCSV("/elsewhere/tasks.csv"))
	if cfg.TaskCSVPath() != "/elsewhere/tasks.csv" {
		t.Fatalf("TaskCSVPath() = %q, want %q", cfg.TaskCSVPath(), "/elsewhere/tasks.csv")
	}

	cfg = NewRunConfig(&models.EvalSpec{})
	want = filepath.Join("data", "train.csv")
	if cfg.TaskCSVPath() != want {
		t.Fatalf("TaskCSVPath() = %q, want %q", cfg.TaskCSVPath(), want)
	}
}

func TestNewRunConfig_NilSpecAllowed(t *testing.T) {
	cfg := NewRunConfig(nil, WithOutputPath(""), WithLogPath(""))

	if cfg.Spec() != nil {
		t.Fatalf("Spec() = %v, want nil", cfg.Spec())
	}
	if cfg.OutputPath() != "" {
		t.Fatalf("OutputPath() = %q, want empty", cfg.OutputPath())
	}
	if cfg.LogPath() != "" {
		t.Fatalf("LogPath() = %q, want empty", cfg.LogPath())
	}
}

func TestNewRunConfig_NilOptionPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic for nil option, got none")
		}
	}()

	_ = NewRunConfig(&models.EvalSpec{}, nil)
}
