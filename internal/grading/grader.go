// Package grading scores model responses against task rubrics. A Judge
// (normally a grading model) produces a per-criterion verdict; the Grader
// folds that verdict back into the rubric and emits the annotated rubric as
// the score summary.
package grading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/apex-evals/apexeval/internal/rubric"
)

var (
	// ErrEmptyResponse reports that a blank model response reached grading.
	ErrEmptyResponse = errors.New("empty model response for grading")

	// ErrNoCriteriaResults reports a verdict with no per-criterion results.
	ErrNoCriteriaResults = errors.New("grading model returned no criteria results")
)

// Outcome is a successful grading of one response.
type Outcome struct {
	// Score is the judge's percentage score, passed through untouched.
	Score float64

	// ScoreSummary is the rubric re-encoded with autorating and reason set
	// on every criterion the judge ruled on.
	ScoreSummary string
}

// Grader runs the grading flow for one (response, rubric) pair.
type Grader struct {
	judge Judge
}

// NewGrader creates a Grader backed by judge.
func NewGrader(judge Judge) *Grader {
	return &Grader{judge: judge}
}

// Grade scores response against rubricJSON. Any failure leaves the caller
// with no score at all; there are no partial outcomes.
func (g *Grader) Grade(ctx context.Context, response string, rubricJSON string) (*Outcome, error) {
	if strings.TrimSpace(response) == "" {
		return nil, ErrEmptyResponse
	}

	rub, err := rubric.Decode(rubricJSON)
	if err != nil {
		return nil, err
	}

	verdict, err := g.judge.Judge(ctx, response, rubricJSON)
	if err != nil {
		return nil, err
	}

	if len(verdict.CriteriaResults) == 0 {
		return nil, ErrNoCriteriaResults
	}

	for _, cr := range verdict.CriteriaResults {
		if !rub.Annotate(cr.CriterionKey, coerceBool(cr.Autorating), cr.Reason) {
			slog.Debug("verdict names a criterion the rubric does not have", "criterion_key", cr.CriterionKey)
		}
	}

	summary, err := rub.Encode()
	if err != nil {
		return nil, fmt.Errorf("encoding annotated rubric: %w", err)
	}

	return &Outcome{
		Score:        verdict.PercentageScore,
		ScoreSummary: summary,
	}, nil
}

// coerceBool maps the autorating field, which judges return as a bool but
// occasionally as a string, number or null, onto a pass/fail bool.
func coerceBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "yes", "pass":
			return true
		}
		return false
	case float64:
		return t != 0
	}
	return false
}
