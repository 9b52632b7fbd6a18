package execution

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// tuning holds the provider-tunable knobs carried in a profile's
// model_configs bag. Keys a provider does not understand are ignored.
type tuning struct {
	ReasoningEffort string `mapstructure:"reasoning_effort"`
}

func decodeTuning(configs map[string]any) (tuning, error) {
	var t tuning
	if len(configs) == 0 {
		return t, nil
	}
	if err := mapstructure.Decode(configs, &t); err != nil {
		return t, fmt.Errorf("decoding model_configs: %w", err)
	}
	return t, nil
}

const minThinkingBudget = 1024

// thinkingBudget maps a reasoning effort level to a thinking token budget
// inside maxTokens. Providers that express reasoning as a token budget
// (Anthropic, Gemini) use this; OpenAI-style APIs take the effort string
// directly. The budget always stays below maxTokens since providers reject
// budgets that leave no room for output.
func thinkingBudget(effort string, maxTokens int) (int64, error) {
	var frac int64
	switch strings.ToLower(effort) {
	case "":
		return 0, nil
	case "low":
		frac = 8
	case "medium":
		frac = 4
	case "high":
		frac = 2
	default:
		return 0, fmt.Errorf("unknown reasoning_effort %q", effort)
	}

	budget := int64(maxTokens) / frac
	if budget < minThinkingBudget {
		budget = minThinkingBudget
	}
	if budget >= int64(maxTokens) {
		budget = int64(maxTokens) / 2
	}
	return budget, nil
}
