package models

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EvalSpec represents a complete evaluation specification.
type EvalSpec struct {
	SpecIdentity   `yaml:",inline"`
	Models         []ModelProfile `yaml:"models"`
	Grading        GradingConfig  `yaml:"grading"`
	Runs           int            `yaml:"runs"`
	PromptTemplate string         `yaml:"prompt_template,omitempty"`
}

type SpecIdentity struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// ModelProfile describes one generation target. Each profile is exercised
// Runs times per task, every attempt graded independently.
type ModelProfile struct {
	ModelID        string         `yaml:"model_id" json:"model_id"`
	Provider       string         `yaml:"provider,omitempty" json:"provider,omitempty"`
	Temperature    float64        `yaml:"temperature" json:"temperature"`
	TopP           float64        `yaml:"top_p" json:"top_p"`
	MaxTokens      int            `yaml:"max_tokens" json:"max_tokens"`
	MaxInputTokens int            `yaml:"max_input_tokens,omitempty" json:"max_input_tokens,omitempty"`
	ModelConfigs   map[string]any `yaml:"model_configs,omitempty" json:"model_configs,omitempty"`
}

// GradingConfig selects the judge model used to score responses.
type GradingConfig struct {
	ModelID     string   `yaml:"model_id" json:"model_id"`
	Provider    string   `yaml:"provider,omitempty" json:"provider,omitempty"`
	MaxTokens   int      `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
	Temperature *float64 `yaml:"temperature,omitempty" json:"temperature,omitempty"`
}

const (
	defaultRuns               = 1
	defaultGradingMaxTokens   = 65535
	defaultGradingTemperature = 0.1
)

// LoadEvalSpec loads a spec from a YAML file, applies defaults and validates it.
func LoadEvalSpec(path string) (*EvalSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var spec EvalSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, err
	}

	spec.ApplyDefaults()

	if err := spec.Validate(); err != nil {
		return nil, err
	}

	return &spec, nil
}

// ApplyDefaults fills zero-valued optional fields.
func (s *EvalSpec) ApplyDefaults() {
	if s.Runs == 0 {
		s.Runs = defaultRuns
	}
	if s.Grading.MaxTokens == 0 {
		s.Grading.MaxTokens = defaultGradingMaxTokens
	}
	if s.Grading.Temperature == nil {
		t := defaultGradingTemperature
		s.Grading.Temperature = &t
	}
}

// Validate checks that the spec is valid.
func (s *EvalSpec) Validate() error {
	if len(s.Models) == 0 {
		return fmt.Errorf("at least one model profile is required")
	}
	if s.Runs < 1 {
		return fmt.Errorf("runs must be at least 1, got %d", s.Runs)
	}
	seen := make(map[string]struct{}, len(s.Models))
	for i, m := range s.Models {
		if m.ModelID == "" {
			return fmt.Errorf("models[%d]: model_id is required", i)
		}
		if _, dup := seen[m.ModelID]; dup {
			return fmt.Errorf("models[%d]: duplicate model_id %q", i, m.ModelID)
		}
		seen[m.ModelID] = struct{}{}
		if m.Temperature < 0 || m.Temperature > 2 {
			return fmt.Errorf("models[%d]: temperature must be in [0, 2], got %v", i, m.Temperature)
		}
		if m.TopP < 0 || m.TopP > 1 {
			return fmt.Errorf("models[%d]: top_p must be in [0, 1], got %v", i, m.TopP)
		}
		if m.MaxTokens < 1 {
			return fmt.Errorf("models[%d]: max_tokens must be at least 1, got %d", i, m.MaxTokens)
		}
		if m.MaxInputTokens < 0 {
			return fmt.Errorf("models[%d]: max_input_tokens must not be negative, got %d", i, m.MaxInputTokens)
		}
	}
	if s.Grading.ModelID == "" {
		return fmt.Errorf("grading.model_id is required")
	}
	if s.Grading.MaxTokens < 1 {
		return fmt.Errorf("grading.max_tokens must be at least 1, got %d", s.Grading.MaxTokens)
	}
	if t := s.Grading.Temperature; t != nil && (*t < 0 || *t > 2) {
		return fmt.Errorf("grading.temperature must be in [0, 2], got %v", *t)
	}
	return nil
}

// GradingProfile converts the grading config into a ModelProfile so the judge
// runs through the same engine layer as generation.
func (s *EvalSpec) GradingProfile() ModelProfile {
	temp := defaultGradingTemperature
	if s.Grading.Temperature != nil {
		temp = *s.Grading.Temperature
	}
	return ModelProfile{
		ModelID:     s.Grading.ModelID,
		Provider:    s.Grading.Provider,
		Temperature: temp,
		MaxTokens:   s.Grading.MaxTokens,
	}
}
