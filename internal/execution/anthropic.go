package execution

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/apex-evals/apexeval/internal/config"
	"github.com/apex-evals/apexeval/internal/models"
)

// anthropicMessagesClient is just an interface over [anthropic.MessageService]
type anthropicMessagesClient interface {
	New(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// AnthropicEngine serves Claude models through the Messages API.
type AnthropicEngine struct {
	messages anthropicMessagesClient
}

// NewAnthropicEngine builds an engine from environment credentials.
func NewAnthropicEngine(env config.Env) (*AnthropicEngine, error) {
	if env.AnthropicAPIKey == "" {
		return nil, fmt.Errorf("anthropic: ANTHROPIC_API_KEY is not set")
	}

	client := anthropic.NewClient(option.WithAPIKey(env.AnthropicAPIKey))
	return &AnthropicEngine{messages: &client.Messages}, nil
}

func (e *AnthropicEngine) Initialize(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func (e *AnthropicEngine) Execute(ctx context.Context, req *Request) (*models.GenerationResult, error) {
	cfg, err := decodeTuning(req.Profile.ModelConfigs)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}
	budget, err := thinkingBudget(cfg.ReasoningEffort, req.Profile.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	ctx, cancel := withTimeout(ctx, req)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Profile.ModelID),
		MaxTokens: int64(req.Profile.MaxTokens),
		Messages: []anthropic.MessageParam{
			{
				Role: anthropic.MessageParamRoleUser,
				Content: []anthropic.ContentBlockParamUnion{
					anthropic.NewTextBlock(req.Prompt + inlineAttachments(req.Attachments)),
				},
			},
		},
	}
	if budget > 0 {
		// The Messages API requires temperature 1 and no top_p while
		// extended thinking is enabled.
		params.Thinking = anthropic.ThinkingConfigParamUnion{
			OfEnabled: &anthropic.ThinkingConfigEnabledParam{BudgetTokens: budget},
		}
		params.Temperature = anthropic.Float(1.0)
	} else {
		params.Temperature = anthropic.Float(req.Profile.Temperature)
		if req.Profile.TopP > 0 {
			params.TopP = anthropic.Float(req.Profile.TopP)
		}
	}

	start := time.Now()
	message, err := e.messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic: create message: %w", err)
	}

	var text strings.Builder
	for _, content := range message.Content {
		if content.Type == "text" {
			text.WriteString(content.Text)
		}
	}

	return &models.GenerationResult{
		Content:    text.String(),
		ModelID:    req.Profile.ModelID,
		DurationMs: time.Since(start).Milliseconds(),
		Usage: models.TokenUsage{
			InputTokens:  message.Usage.InputTokens,
			OutputTokens: message.Usage.OutputTokens,
		},
	}, nil
}

func (e *AnthropicEngine) Shutdown(ctx context.Context) error {
	return nil
}
