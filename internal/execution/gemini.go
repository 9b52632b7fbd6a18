package execution

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/apex-evals/apexeval/internal/config"
	"github.com/apex-evals/apexeval/internal/models"
	"github.com/apex-evals/apexeval/internal/utils"
)

// geminiModelsClient is just an interface over [genai.Models]
type geminiModelsClient interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiEngine serves Gemini models through the Google GenAI API.
//
// The underlying client dials during Initialize because the SDK needs a
// context to construct.
type GeminiEngine struct {
	env    config.Env
	models geminiModelsClient
}

// NewGeminiEngine builds an engine from environment credentials.
func NewGeminiEngine(env config.Env) (*GeminiEngine, error) {
	if env.GeminiAPIKey == "" {
		return nil, fmt.Errorf("gemini: GEMINI_API_KEY is not set")
	}
	return &GeminiEngine{env: env}, nil
}

func (e *GeminiEngine) Initialize(ctx context.Context) error {
	if e.models != nil {
		return nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: e.env.GeminiAPIKey,
	})
	if err != nil {
		return fmt.Errorf("gemini: create client: %w", err)
	}
	e.models = client.Models
	return nil
}

func (e *GeminiEngine) Execute(ctx context.Context, req *Request) (*models.GenerationResult, error) {
	if e.models == nil {
		return nil, fmt.Errorf("gemini: engine not initialized")
	}

	cfg, err := decodeTuning(req.Profile.ModelConfigs)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	budget, err := thinkingBudget(cfg.ReasoningEffort, req.Profile.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}

	ctx, cancel := withTimeout(ctx, req)
	defer cancel()

	config := &genai.GenerateContentConfig{
		Temperature:     utils.Ptr(float32(req.Profile.Temperature)),
		MaxOutputTokens: int32(req.Profile.MaxTokens),
	}
	if req.Profile.TopP > 0 {
		config.TopP = utils.Ptr(float32(req.Profile.TopP))
	}
	if budget > 0 {
		config.ThinkingConfig = &genai.ThinkingConfig{
			ThinkingBudget: utils.Ptr(int32(budget)),
		}
	}
	if req.ForceJSON {
		config.ResponseMIMEType = "application/json"
	}

	contents := genai.Text(req.Prompt + inlineAttachments(req.Attachments))

	start := time.Now()
	resp, err := e.models.GenerateContent(ctx, req.Profile.ModelID, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini: generate content: %w", err)
	}

	var usage models.TokenUsage
	if resp.UsageMetadata != nil {
		usage.InputTokens = int64(resp.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int64(resp.UsageMetadata.CandidatesTokenCount)
	}

	return &models.GenerationResult{
		Content:    resp.Text(),
		ModelID:    req.Profile.ModelID,
		DurationMs: time.Since(start).Milliseconds(),
		Usage:      usage,
	}, nil
}

func (e *GeminiEngine) Shutdown(ctx context.Context) error {
	return nil
}
