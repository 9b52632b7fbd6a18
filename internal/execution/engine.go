package execution

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/apex-evals/apexeval/internal/config"
	"github.com/apex-evals/apexeval/internal/models"
)

// Engine is the interface for running prompts against a model provider.
type Engine interface {
	// Initialize sets up the engine
	Initialize(ctx context.Context) error

	// Execute runs one generation request
	Execute(ctx context.Context, req *Request) (*models.GenerationResult, error)

	// Shutdown cleans up resources
	Shutdown(ctx context.Context) error
}

// Request represents one generation request.
type Request struct {
	TaskID      string
	Prompt      string
	Profile     models.ModelProfile
	Attachments []models.Attachment

	// ForceJSON asks the provider for a JSON object response where the API
	// supports it. Providers without a JSON mode ignore it.
	ForceJSON bool

	// Timeout bounds the provider call. Zero means the caller's context
	// governs.
	Timeout time.Duration
}

// Providers understood by the engine factory.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderCopilot   = "copilot"
	ProviderMock      = "mock"
)

// InferProvider returns the provider serving a profile. An explicit provider
// field wins; otherwise the model ID prefix decides. Anything unrecognized
// goes to the OpenAI-compatible engine, which also covers gateway endpoints
// reached through OPENAI_BASE_URL.
func InferProvider(profile models.ModelProfile) string {
	if profile.Provider != "" {
		return profile.Provider
	}
	id := strings.ToLower(profile.ModelID)
	switch {
	case strings.HasPrefix(id, "claude"):
		return ProviderAnthropic
	case strings.HasPrefix(id, "gemini"):
		return ProviderGemini
	}
	return ProviderOpenAI
}

func defaultEngineFactory(provider string, env config.Env) (Engine, error) {
	switch provider {
	case ProviderOpenAI:
		return NewOpenAIEngine(env)
	case ProviderAnthropic:
		return NewAnthropicEngine(env)
	case ProviderGemini:
		return NewGeminiEngine(env)
	case ProviderCopilot:
		return NewCopilotEngineBuilder("", nil).Build(), nil
	case ProviderMock:
		return NewMockEngine(), nil
	}
	return nil, fmt.Errorf("unknown provider %q", provider)
}

// Router constructs one engine per provider on demand and reuses it for
// every profile served by that provider.
type Router struct {
	env     config.Env
	factory func(provider string, env config.Env) (Engine, error)

	mu      sync.Mutex
	engines map[string]Engine
}

// NewRouter creates a router that builds engines from env credentials.
func NewRouter(env config.Env) *Router {
	return &Router{
		env:     env,
		factory: defaultEngineFactory,
		engines: make(map[string]Engine),
	}
}

// Engine returns the engine serving profile, constructing and initializing
// it on first use.
func (r *Router) Engine(ctx context.Context, profile models.ModelProfile) (Engine, error) {
	provider := InferProvider(profile)

	r.mu.Lock()
	defer r.mu.Unlock()

	if eng, ok := r.engines[provider]; ok {
		return eng, nil
	}

	eng, err := r.factory(provider, r.env)
	if err != nil {
		return nil, fmt.Errorf("engine for provider %q: %w", provider, err)
	}
	if err := eng.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("initializing %q engine: %w", provider, err)
	}

	r.engines[provider] = eng
	return eng, nil
}

// Shutdown stops every engine the router has constructed. All engines are
// attempted; the first error is returned.
func (r *Router) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	engines := r.engines
	r.engines = make(map[string]Engine)
	r.mu.Unlock()

	var firstErr error
	for provider, eng := range engines {
		if err := eng.Shutdown(ctx); err != nil {
			slog.Warn("engine shutdown failed", "provider", provider, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// inlineAttachments renders attachments as text sections appended to the
// prompt, for providers without a file transport. Files that are missing or
// not valid text are logged and skipped.
func inlineAttachments(attachments []models.Attachment) string {
	if len(attachments) == 0 {
		return ""
	}

	var b strings.Builder
	for _, att := range attachments {
		path := strings.TrimPrefix(att.URL, "file://")
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("attachment could not be read, skipping", "filename", att.Filename, "error", err)
			continue
		}
		if !isTextContent(data) {
			slog.Warn("attachment is not text, skipping inline transfer", "filename", att.Filename)
			continue
		}
		b.WriteString("\n\n--- Attachment: ")
		b.WriteString(att.Filename)
		b.WriteString(" ---\n")
		b.Write(data)
	}
	return b.String()
}

func isTextContent(data []byte) bool {
	return utf8.Valid(data) && !bytes.ContainsRune(data, 0)
}

// withTimeout applies the request timeout when one is set.
func withTimeout(ctx context.Context, req *Request) (context.Context, context.CancelFunc) {
	if req.Timeout > 0 {
		return context.WithTimeout(ctx, req.Timeout)
	}
	return context.WithCancel(ctx)
}
