package grading

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/apex-evals/apexeval/internal/execution"
	"github.com/apex-evals/apexeval/internal/models"
	"github.com/apex-evals/apexeval/internal/validation"
)

// Verdict is the grading model's structured assessment of one response.
type Verdict struct {
	PercentageScore float64           `json:"percentage_score"`
	CriteriaResults []CriterionResult `json:"criteria_results"`
}

// CriterionResult is the judge's ruling on a single rubric criterion.
// Autorating is left untyped because grading models return it as a bool,
// a string, a number or null depending on provider and mood.
type CriterionResult struct {
	CriterionKey string `json:"criterion_key"`
	Autorating   any    `json:"autorating"`
	Reason       string `json:"reason"`
}

// Judge produces a Verdict for a response measured against a rubric.
type Judge interface {
	Judge(ctx context.Context, response string, rubricJSON string) (*Verdict, error)
}

// engineSource hands out engines per profile. Satisfied by [execution.Router].
type engineSource interface {
	Engine(ctx context.Context, profile models.ModelProfile) (execution.Engine, error)
}

// LLMJudge grades by prompting a model profile for a JSON verdict.
type LLMJudge struct {
	engines engineSource
	profile models.ModelProfile
	timeout time.Duration
}

// NewLLMJudge creates a judge that grades through router using profile.
func NewLLMJudge(router *execution.Router, profile models.ModelProfile) *LLMJudge {
	return &LLMJudge{
		engines: router,
		profile: profile,
		timeout: execution.DefaultTimeout,
	}
}

// Judge implements [Judge].
func (j *LLMJudge) Judge(ctx context.Context, response string, rubricJSON string) (*Verdict, error) {
	eng, err := j.engines.Engine(ctx, j.profile)
	if err != nil {
		return nil, err
	}

	result, err := eng.Execute(ctx, &execution.Request{
		Prompt:    buildJudgePrompt(response, rubricJSON),
		Profile:   j.profile,
		ForceJSON: true,
		Timeout:   j.timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("grading call failed: %w", err)
	}

	return parseVerdict(result.Content)
}

func buildJudgePrompt(response, rubricJSON string) string {
	var sb strings.Builder
	sb.WriteString("You are a strict grader evaluating a model's answer against a rubric.\n\n")
	sb.WriteString("## Rubric\n```json\n")
	sb.WriteString(rubricJSON)
	sb.WriteString("\n```\n\n")
	sb.WriteString("## Answer\n```\n")
	sb.WriteString(response)
	sb.WriteString("\n```\n\n")
	sb.WriteString("Judge every criterion in the rubric. Criteria weighted \"Primary objective(s)\" count more than \"Secondary objective(s)\" when computing the overall score.\n")
	sb.WriteString("Respond with only a JSON object of this exact shape:\n")
	sb.WriteString(`{"percentage_score": <number 0-100>, "criteria_results": [{"criterion_key": "<key from the rubric>", "autorating": <true|false>, "reason": "<one sentence>"}]}`)
	sb.WriteString("\n")
	return sb.String()
}

// parseVerdict decodes a judge reply into a Verdict, checking it against the
// verdict schema first so a malformed reply fails loudly instead of grading
// with zero values.
func parseVerdict(content string) (*Verdict, error) {
	raw := extractJSON(content)

	var instance any
	if err := json.Unmarshal([]byte(raw), &instance); err != nil {
		return nil, fmt.Errorf("grading response is not valid JSON: %w", err)
	}

	if issues := validation.ValidateVerdict(instance); len(issues) > 0 {
		return nil, fmt.Errorf("grading response failed validation: %s", strings.Join(issues, "; "))
	}

	var verdict Verdict
	if err := json.Unmarshal([]byte(raw), &verdict); err != nil {
		return nil, fmt.Errorf("grading response is not valid JSON: %w", err)
	}

	return &verdict, nil
}

// extractJSON pulls the JSON object out of a judge reply. Providers without
// a JSON mode tend to wrap the object in markdown fences or a sentence of
// prose, so take everything between the first '{' and the last '}'.
func extractJSON(text string) string {
	trimmed := strings.TrimSpace(text)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		return trimmed[start : end+1]
	}
	return trimmed
}
