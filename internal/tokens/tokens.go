// Package tokens provides rough token accounting for prompt budgets.
package tokens

import (
	"math"
)

const charsPerToken = 4

// Counter counts tokens in text.
type Counter interface {
	Count(text string) int
}

// EstimatingCounter approximates token count as ~4 characters per token,
// close enough for input-budget enforcement across providers.
type EstimatingCounter struct{}

func NewEstimatingCounter() *EstimatingCounter {
	return &EstimatingCounter{}
}

func (*EstimatingCounter) Count(text string) int {
	return Estimate(text)
}

func Estimate(text string) int {
	return int(math.Ceil(float64(len(text)) / float64(charsPerToken)))
}

// WithinBudget reports whether text fits budget. A budget of zero or less
// means unlimited.
func WithinBudget(text string, budget int) bool {
	if budget <= 0 {
		return true
	}
	return Estimate(text) <= budget
}
