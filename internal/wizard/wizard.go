// Package wizard collects eval details through an interactive form and
// renders the starter eval.yaml.
package wizard

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/template"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/apex-evals/apexeval/internal/projectconfig"
	"github.com/apex-evals/apexeval/internal/scaffold"
)

// EvalDraft holds all fields collected during the interactive wizard.
type EvalDraft struct {
	Name         string
	Description  string
	Models       []string
	Runs         int
	GradingModel string
}

const evalYAMLTemplate = `# {{ .Name }} evaluation spec for apexeval.
# Run it with:
#   apexeval run --eval eval.yaml --input-dir .

name: {{ .Name }}
{{- if .Description }}
description: {{ .Description }}
{{- end }}

# Every profile below answers each task. The provider is inferred from the
# model id prefix; set provider: explicitly to override it.
models:
{{- range .Models }}
  - model_id: {{ . }}
    temperature: 0.7
    top_p: 0.9
    max_tokens: 65535
{{- end }}

# Attempts per model per task. Each run is graded independently.
runs: {{ .Runs }}

# Judge model that scores responses against each task's rubric.
grading:
  model_id: {{ .GradingModel }}
`

// RunEvalWizard runs an interactive huh form to collect eval details.
// If initialName is non-empty, it pre-populates the name field. Project
// defaults from .apexeval.yaml pre-populate the model fields.
func RunEvalWizard(in io.Reader, out io.Writer, initialName string) (*EvalDraft, error) {
	cfg, err := projectconfig.Load(".")
	if err != nil {
		cfg = projectconfig.New()
	}

	var (
		name         = initialName
		description  string
		modelsRaw    = cfg.Defaults.Model
		runsRaw      = strconv.Itoa(cfg.Defaults.Runs)
		gradingModel = cfg.Defaults.GradingModel
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Eval name").
				Description("A kebab-case name for this eval").
				Placeholder("coding-evals").
				Value(&name).
				Validate(func(s string) error {
					return scaffold.ValidateName(strings.TrimSpace(s))
				}),
			huh.NewInput().
				Title("Description").
				Description("One line about what this eval measures (optional)").
				Value(&description),
			huh.NewInput().
				Title("Models").
				Description("Comma-separated model ids to evaluate").
				Value(&modelsRaw).
				Validate(func(s string) error {
					if len(splitAndTrim(s)) == 0 {
						return fmt.Errorf("at least one model id is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Runs per model").
				Description("How many times each model answers each task").
				Value(&runsRaw).
				Validate(validateRuns),
			huh.NewInput().
				Title("Grading model").
				Description("Judge model that scores responses").
				Value(&gradingModel).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("grading model is required")
					}
					return nil
				}),
		),
	).
		WithInput(in).
		WithOutput(out)

	// Use accessible mode for non-TTY input (e.g., tests, piped input).
	if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		form = form.WithAccessible(true)
	}

	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("wizard failed: %w", err)
	}

	runs, err := strconv.Atoi(strings.TrimSpace(runsRaw))
	if err != nil {
		return nil, fmt.Errorf("invalid runs value %q: %w", runsRaw, err)
	}

	return &EvalDraft{
		Name:         strings.TrimSpace(name),
		Description:  strings.TrimSpace(description),
		Models:       splitAndTrim(modelsRaw),
		Runs:         runs,
		GradingModel: strings.TrimSpace(gradingModel),
	}, nil
}

// GenerateEvalYAML renders a commented starter eval.yaml from the draft.
func GenerateEvalYAML(draft *EvalDraft) (string, error) {
	tmpl, err := template.New("evalyaml").Parse(evalYAMLTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, draft); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return buf.String(), nil
}

func validateRuns(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("runs must be a number")
	}
	if n < 1 {
		return fmt.Errorf("runs must be at least 1")
	}
	return nil
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
