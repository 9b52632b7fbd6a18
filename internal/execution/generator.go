package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/apex-evals/apexeval/internal/cache"
	"github.com/apex-evals/apexeval/internal/models"
	"github.com/apex-evals/apexeval/internal/tokens"
	"github.com/apex-evals/apexeval/internal/utils"
)

// DefaultTimeout bounds a single provider call.
const DefaultTimeout = 10 * time.Minute

// GenerationOutcome is the terminal result of one generation attempt. A
// failed attempt carries the provider error as text rather than an error
// value, because failures become result cells instead of aborting the run.
type GenerationOutcome struct {
	Response   string
	Succeeded  bool
	Err        string
	FromCache  bool
	DurationMs int64
	Usage      models.TokenUsage
}

// Generator turns (task, profile) pairs into model responses. Provider and
// budget failures are absorbed into the outcome.
type Generator struct {
	router  *Router
	cache   *cache.Cache
	counter tokens.Counter
	timeout time.Duration
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithCache stores generation results keyed by profile, prompt and
// attachment content, and serves repeat requests from disk.
func WithCache(c *cache.Cache) GeneratorOption {
	return func(g *Generator) {
		g.cache = c
	}
}

// WithTimeout overrides the per-call provider timeout.
func WithTimeout(d time.Duration) GeneratorOption {
	return func(g *Generator) {
		g.timeout = d
	}
}

// WithCounter overrides the token counter used for input budgets.
func WithCounter(c tokens.Counter) GeneratorOption {
	return func(g *Generator) {
		g.counter = c
	}
}

// NewGenerator creates a Generator routing requests through router.
func NewGenerator(router *Router, opts ...GeneratorOption) *Generator {
	g := &Generator{
		router:  router,
		counter: tokens.NewEstimatingCounter(),
		timeout: DefaultTimeout,
	}

	for _, opt := range opts {
		if opt == nil {
			panic("execution: nil option")
		}
		opt(g)
	}

	return g
}

// Generate produces a model response for one (task, profile, run) pair.
func (g *Generator) Generate(ctx context.Context, taskID string, prompt string, profile models.ModelProfile, attachments []models.Attachment) GenerationOutcome {
	log := utils.TaskLogger(taskID).With("model_id", profile.ModelID)

	if profile.MaxInputTokens > 0 {
		input := prompt + inlineAttachments(attachments)
		if count := g.counter.Count(input); count > profile.MaxInputTokens {
			log.Warn("prompt exceeds input budget", "estimated_tokens", count, "max_input_tokens", profile.MaxInputTokens)
			return GenerationOutcome{
				Err: fmt.Sprintf("prompt exceeds input budget: ~%d tokens over %d", count, profile.MaxInputTokens),
			}
		}
	}

	var key string

	if g.cache != nil {
		k, err := cache.Key(profile, prompt, attachments)
		if err != nil {
			log.Warn("cache key could not be derived", "error", err)
		} else if cached, ok := g.cache.Get(k); ok {
			log.Debug("generation served from cache")
			return GenerationOutcome{
				Response:   cached.Content,
				Succeeded:  true,
				FromCache:  true,
				DurationMs: cached.DurationMs,
				Usage:      cached.Usage,
			}
		} else {
			key = k
		}
	}

	eng, err := g.router.Engine(ctx, profile)
	if err != nil {
		log.Warn("engine unavailable", "error", err)
		return GenerationOutcome{Err: err.Error()}
	}

	result, err := eng.Execute(ctx, &Request{
		TaskID:      taskID,
		Prompt:      prompt,
		Profile:     profile,
		Attachments: attachments,
		Timeout:     g.timeout,
	})

	if err != nil {
		log.Warn("generation failed", "error", err)
		return GenerationOutcome{Err: err.Error()}
	}

	if result == nil {
		return GenerationOutcome{Err: "no results returned"}
	}

	if key != "" {
		if err := g.cache.Put(key, result); err != nil {
			log.Warn("caching generation result failed", "error", err)
		}
	}

	return GenerationOutcome{
		Response:   result.Content,
		Succeeded:  true,
		DurationMs: result.DurationMs,
		Usage:      result.Usage,
	}
}
