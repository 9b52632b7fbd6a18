package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/apex-evals/apexeval/internal/models"
)

// mockVerdictJSON is returned for JSON-mode requests so grading flows can run
// end to end without a live provider.
const mockVerdictJSON = `{"percentage_score": 100, "criteria_results": [{"criterion_key": "criterion_1", "autorating": true, "reason": "mock"}]}`

// MockEngine is a simple mock implementation for dry runs and tests
type MockEngine struct{}

// NewMockEngine creates a new mock engine
func NewMockEngine() *MockEngine {
	return &MockEngine{}
}

func (m *MockEngine) Initialize(ctx context.Context) error {
	return nil
}

func (m *MockEngine) Execute(ctx context.Context, req *Request) (*models.GenerationResult, error) {
	start := time.Now()

	modelID := req.Profile.ModelID
	if modelID == "" {
		modelID = "mock"
	}

	// Simple mock response
	output := fmt.Sprintf("Mock response for: %s", req.Prompt)

	// Add some context if files are present
	if len(req.Attachments) > 0 {
		output += fmt.Sprintf("\nAnalyzed %d file(s)", len(req.Attachments))
	}

	if req.ForceJSON {
		output = mockVerdictJSON
	}

	return &models.GenerationResult{
		Content:    output,
		ModelID:    modelID,
		DurationMs: time.Since(start).Milliseconds(),
	}, nil
}

func (m *MockEngine) Shutdown(ctx context.Context) error {
	return nil
}
