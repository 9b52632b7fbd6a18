package models

// GenerationResult is one model response produced for a task attempt. It is
// also the unit stored by the response cache.
type GenerationResult struct {
	Content    string     `json:"content"`
	ModelID    string     `json:"model_id"`
	DurationMs int64      `json:"duration_ms"`
	Usage      TokenUsage `json:"usage"`

	// FromCache marks responses served from the cache. Never persisted.
	FromCache bool `json:"-"`
}

// TokenUsage reports token consumption for a single model call. Providers
// that do not report usage leave it zeroed.
type TokenUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}
