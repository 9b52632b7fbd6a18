package models

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSpecFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "eval.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadEvalSpec(t *testing.T) {
	path := writeSpecFile(t, `
name: extended-eval
description: rubric-scored responses
models:
  - model_id: claude-opus-4-5-20251101
    temperature: 1
    top_p: 0.9
    max_tokens: 64000
    max_input_tokens: 200000
    model_configs:
      reasoning_effort: high
  - model_id: gemini-3-pro-preview
    temperature: 0.7
    top_p: 0.9
    max_tokens: 65535
    max_input_tokens: 1048576
grading:
  model_id: gemini-2.5-flash
runs: 2
`)

	spec, err := LoadEvalSpec(path)
	require.NoError(t, err)

	assert.Equal(t, "extended-eval", spec.Name)
	require.Len(t, spec.Models, 2)
	assert.Equal(t, "claude-opus-4-5-20251101", spec.Models[0].ModelID)
	assert.Equal(t, 1.0, spec.Models[0].Temperature)
	assert.Equal(t, 64000, spec.Models[0].MaxTokens)
	assert.Equal(t, 200000, spec.Models[0].MaxInputTokens)
	assert.Equal(t, "high", spec.Models[0].ModelConfigs["reasoning_effort"])
	assert.Equal(t, 2, spec.Runs)

	// grading defaults
	assert.Equal(t, "gemini-2.5-flash", spec.Grading.ModelID)
	assert.Equal(t, 65535, spec.Grading.MaxTokens)
	require.NotNil(t, spec.Grading.Temperature)
	assert.Equal(t, 0.1, *spec.Grading.Temperature)
}

func TestLoadEvalSpecDefaultsRuns(t *testing.T) {
	path := writeSpecFile(t, `
models:
  - model_id: gpt-5
    temperature: 0.7
    top_p: 0.9
    max_tokens: 128000
grading:
  model_id: gemini-2.5-flash
`)

	spec, err := LoadEvalSpec(path)
	require.NoError(t, err)
	assert.Equal(t, 1, spec.Runs)
}

func TestLoadEvalSpecMissingFile(t *testing.T) {
	_, err := LoadEvalSpec(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestEvalSpecValidate(t *testing.T) {
	valid := func() *EvalSpec {
		s := &EvalSpec{
			Models: []ModelProfile{{
				ModelID:     "gpt-5",
				Temperature: 0.7,
				TopP:        0.9,
				MaxTokens:   128000,
			}},
			Grading: GradingConfig{ModelID: "gemini-2.5-flash"},
		}
		s.ApplyDefaults()
		return s
	}

	tests := []struct {
		name    string
		mutate  func(*EvalSpec)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(*EvalSpec) {},
		},
		{
			name:    "no models",
			mutate:  func(s *EvalSpec) { s.Models = nil },
			wantErr: "at least one model profile",
		},
		{
			name:    "zero runs",
			mutate:  func(s *EvalSpec) { s.Runs = 0 },
			wantErr: "runs must be at least 1",
		},
		{
			name:    "missing model id",
			mutate:  func(s *EvalSpec) { s.Models[0].ModelID = "" },
			wantErr: "model_id is required",
		},
		{
			name: "duplicate model id",
			mutate: func(s *EvalSpec) {
				s.Models = append(s.Models, s.Models[0])
			},
			wantErr: "duplicate model_id",
		},
		{
			name:    "temperature out of range",
			mutate:  func(s *EvalSpec) { s.Models[0].Temperature = 2.5 },
			wantErr: "temperature must be in [0, 2]",
		},
		{
			name:    "top_p out of range",
			mutate:  func(s *EvalSpec) { s.Models[0].TopP = 1.2 },
			wantErr: "top_p must be in [0, 1]",
		},
		{
			name:    "zero max_tokens",
			mutate:  func(s *EvalSpec) { s.Models[0].MaxTokens = 0 },
			wantErr: "max_tokens must be at least 1",
		},
		{
			name:    "negative max_input_tokens",
			mutate:  func(s *EvalSpec) { s.Models[0].MaxInputTokens = -1 },
			wantErr: "max_input_tokens must not be negative",
		},
		{
			name:    "missing grading model",
			mutate:  func(s *EvalSpec) { s.Grading.ModelID = "" },
			wantErr: "grading.model_id is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := valid()
			tt.mutate(spec)
			err := spec.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGradingProfile(t *testing.T) {
	temp := 0.3
	spec := &EvalSpec{
		Grading: GradingConfig{
			ModelID:     "gemini-2.5-flash",
			MaxTokens:   65535,
			Temperature: &temp,
		},
	}

	p := spec.GradingProfile()
	assert.Equal(t, "gemini-2.5-flash", p.ModelID)
	assert.Equal(t, 65535, p.MaxTokens)
	assert.Equal(t, 0.3, p.Temperature)
}

func TestTaskHasRubric(t *testing.T) {
	assert.False(t, (&Task{}).HasRubric())
	assert.False(t, (&Task{RubricJSON: "  \n "}).HasRubric())
	assert.True(t, (&Task{RubricJSON: `{"c1": {}}`}).HasRubric())
}
