package execution

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/apex-evals/apexeval/internal/config"
	"github.com/apex-evals/apexeval/internal/models"
)

// openaiChatClient is just an interface over [*openai.Client]
type openaiChatClient interface {
	// CreateChatCompletion maps to [openai.Client.CreateChatCompletion]
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIEngine serves OpenAI models, plus anything behind an
// OpenAI-compatible gateway selected through OPENAI_BASE_URL.
type OpenAIEngine struct {
	client openaiChatClient
}

// NewOpenAIEngine builds an engine from environment credentials.
func NewOpenAIEngine(env config.Env) (*OpenAIEngine, error) {
	if env.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("openai: OPENAI_API_KEY is not set")
	}

	cfg := openai.DefaultConfig(env.OpenAIAPIKey)
	if env.OpenAIBaseURL != "" {
		cfg.BaseURL = env.OpenAIBaseURL
	}
	return &OpenAIEngine{client: openai.NewClientWithConfig(cfg)}, nil
}

func (e *OpenAIEngine) Initialize(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func (e *OpenAIEngine) Execute(ctx context.Context, req *Request) (*models.GenerationResult, error) {
	cfg, err := decodeTuning(req.Profile.ModelConfigs)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}

	ctx, cancel := withTimeout(ctx, req)
	defer cancel()

	request := openai.ChatCompletionRequest{
		Model:       req.Profile.ModelID,
		MaxTokens:   req.Profile.MaxTokens,
		Temperature: float32(req.Profile.Temperature),
		TopP:        float32(req.Profile.TopP),
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: req.Prompt + inlineAttachments(req.Attachments),
			},
		},
	}
	if cfg.ReasoningEffort != "" {
		request.ReasoningEffort = cfg.ReasoningEffort
	}
	if req.ForceJSON {
		request.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	start := time.Now()
	resp, err := e.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: no choices returned")
	}

	return &models.GenerationResult{
		Content:    resp.Choices[0].Message.Content,
		ModelID:    req.Profile.ModelID,
		DurationMs: time.Since(start).Milliseconds(),
		Usage: models.TokenUsage{
			InputTokens:  int64(resp.Usage.PromptTokens),
			OutputTokens: int64(resp.Usage.CompletionTokens),
		},
	}, nil
}

func (e *OpenAIEngine) Shutdown(ctx context.Context) error {
	return nil
}
