package execution

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	copilot "github.com/github/copilot-sdk/go"

	"github.com/apex-evals/apexeval/internal/models"
	"github.com/apex-evals/apexeval/internal/utils"
)

// CopilotEngine integrates with GitHub Copilot SDK
type CopilotEngine struct {
	defaultModelID string

	client copilotClient

	startOnce sync.Once

	workspacesMu sync.Mutex
	workspaces   []string // workspaces to clean up at Shutdown
}

// CopilotEngineBuilder builds a CopilotEngine with options
type CopilotEngineBuilder struct {
	engine *CopilotEngine
}

type CopilotEngineBuilderOptions struct {
	NewCopilotClient func(clientOptions *copilot.ClientOptions) copilotClient
}

// NewCopilotEngineBuilder creates a builder for CopilotEngine
//   - defaultModelID - used when a profile carries no model ID. Can be blank, which means the copilot
//     CLI will choose its own fallback model.
func NewCopilotEngineBuilder(defaultModelID string, options *CopilotEngineBuilderOptions) *CopilotEngineBuilder {
	var client copilotClient

	copilotOptions := &copilot.ClientOptions{
		// workspace is set at the session level, instead of at the client.
		LogLevel:  "error",
		AutoStart: copilot.Bool(false),
	}

	if options == nil || options.NewCopilotClient == nil {
		client = newCopilotClient(copilotOptions)
	} else {
		client = options.NewCopilotClient(copilotOptions)
	}

	builder := &CopilotEngineBuilder{
		engine: &CopilotEngine{
			defaultModelID: defaultModelID,
		},
	}

	builder.engine.client = client
	return builder
}

func (b *CopilotEngineBuilder) Build() *CopilotEngine {
	return b.engine
}

// Initialize sets up the Copilot client
func (e *CopilotEngine) Initialize(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// Execute runs one generation request through a fresh Copilot session. The
// task's attachments are staged into a throwaway workspace that becomes the
// session's working directory.
func (e *CopilotEngine) Execute(ctx context.Context, req *Request) (*models.GenerationResult, error) {
	if req == nil {
		return nil, fmt.Errorf("nil req was passed to CopilotEngine.Execute")
	}

	var startErr error

	e.startOnce.Do(func() {
		// NOTE: this is a workaround, copilot client has an 'autostart' feature, but it runs into issues
		// when it tries to autostart from separate goroutines.
		startErr = e.client.Start(ctx)
	})

	if startErr != nil {
		return nil, fmt.Errorf("copilot failed to start: %w", startErr)
	}

	modelID := e.defaultModelID

	if req.Profile.ModelID != "" {
		modelID = req.Profile.ModelID
	}

	start := time.Now()

	workspaceDir, err := e.setupWorkspace(req.Attachments)

	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, req)
	defer cancel()

	session, err := e.client.CreateSession(ctx, &copilot.SessionConfig{
		Model: modelID,

		OnPermissionRequest: allowAllTools,

		WorkingDirectory: workspaceDir,
	})

	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	collector := newSessionCollector()

	unsubscribe := session.On(collector.On)
	defer unsubscribe()

	unsubscribe = session.On(utils.SessionToSlog)
	defer unsubscribe()

	_, err = session.SendAndWait(ctx, copilot.MessageOptions{
		Prompt: copilotPrompt(req),
	})

	if err != nil {
		return nil, fmt.Errorf("copilot session failed: %w", err)
	}

	if msg := collector.ErrorMessage(); msg != "" {
		return nil, fmt.Errorf("copilot session failed: %s", msg)
	}

	slog.Debug("copilot session completed", "session_id", session.SessionID())

	return &models.GenerationResult{
		Content:    collector.Output(),
		ModelID:    modelID,
		DurationMs: time.Since(start).Milliseconds(),
	}, nil
}

// Shutdown cleans up resources
func (e *CopilotEngine) Shutdown(ctx context.Context) error {
	if err := e.client.Stop(); err != nil {
		// Log but continue cleanup
		slog.Info("failed to stop client", "error", err)
	}

	// remove the workspace folders - should be safe now that all the copilot sessions
	// are shut down and the run is complete.
	workspaces := func() []string {
		e.workspacesMu.Lock()
		defer e.workspacesMu.Unlock()
		workspaces := e.workspaces
		e.workspaces = nil
		return workspaces
	}()

	for _, ws := range workspaces {
		if ws != "" {
			if err := os.RemoveAll(ws); err != nil {
				slog.Warn("failed to cleanup stale workspace", "path", ws, "error", err)
			}
		}
	}

	return nil
}

func (e *CopilotEngine) setupWorkspace(attachments []models.Attachment) (string, error) {
	workspaceDir, err := os.MkdirTemp("", "apexeval-*")

	if err != nil {
		return "", fmt.Errorf("failed to create temp workspace: %w", err)
	}

	e.workspacesMu.Lock()
	e.workspaces = append(e.workspaces, workspaceDir)
	e.workspacesMu.Unlock()

	if err := stageAttachments(workspaceDir, attachments); err != nil {
		return "", fmt.Errorf("failed to stage attachments at workspace %s: %w", workspaceDir, err)
	}

	return workspaceDir, nil
}

// copilotPrompt points the agent at the staged attachment files, since they
// arrive as workspace files rather than message content.
func copilotPrompt(req *Request) string {
	if len(req.Attachments) == 0 {
		return req.Prompt
	}

	names := make([]string, 0, len(req.Attachments))

	for _, att := range req.Attachments {
		names = append(names, att.Filename)
	}

	return req.Prompt + "\n\nAttached files are available in the working directory: " + strings.Join(names, ", ")
}

func joinStrings(parts []string) string {
	var builder strings.Builder
	for _, p := range parts {
		builder.WriteString(p)
	}
	return builder.String()
}

func allowAllTools(request copilot.PermissionRequest, invocation copilot.PermissionInvocation) (copilot.PermissionRequestResult, error) {
	// value for 'Kind' came from the permissions_test.go in the Copilot SDK.
	return copilot.PermissionRequestResult{Kind: "approved"}, nil
}
