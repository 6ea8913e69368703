package llm

import (
	"fmt"
	"net/http"

	"mailsweep/internal/config"
)

const (
	groqBaseURL = "https://api.groq.com/openai/v1"
	groqModel   = "llama-3.1-8b-instant"
)

func newGroq(cfg config.LLMConfig, client *http.Client) (Backend, error) {
	if cfg.GroqAPIKey == "" {
		return nil, fmt.Errorf("groq backend requires llm.groq_api_key")
	}
	return &chatBackend{
		name:    "groq",
		baseURL: groqBaseURL,
		model:   groqModel,
		apiKey:  cfg.GroqAPIKey,
		http:    client,
	}, nil
}
