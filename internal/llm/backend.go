package llm

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"mailsweep/internal/config"
)

// defaultTemperature keeps classifications near-deterministic.
const defaultTemperature = 0.1

// maxTokens bounds every completion request.
const maxTokens = 1000

// Backend is one LLM API. Call sends a single-turn prompt and returns the raw
// completion text.
type Backend interface {
	Name() string
	Call(ctx context.Context, prompt string, temperature float64) (string, error)
}

type backendFactory func(cfg config.LLMConfig, client *http.Client) (Backend, error)

var backendFactories = map[string]backendFactory{
	"groq":      newGroq,
	"gemini":    newGemini,
	"openai":    newOpenAI,
	"anthropic": newAnthropic,
}

// NewBackend constructs the named backend. An unknown name or a backend with
// no API key configured is an error at construction, not at first call.
func NewBackend(name string, cfg config.LLMConfig) (Backend, error) {
	factory, ok := backendFactories[name]
	if !ok {
		names := make([]string, 0, len(backendFactories))
		for n := range backendFactories {
			names = append(names, n)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("unknown llm backend %q (available: %s)", name, strings.Join(names, ", "))
	}
	client := &http.Client{Timeout: 60 * time.Second}
	return factory(cfg, client)
}
