package llm

import (
	"fmt"
	"net/http"

	"mailsweep/internal/config"
)

const (
	openAIBaseURL = "https://api.openai.com/v1"
	openAIModel   = "gpt-4o-mini"
)

func newOpenAI(cfg config.LLMConfig, client *http.Client) (Backend, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("openai backend requires llm.openai_api_key")
	}
	return &chatBackend{
		name:    "openai",
		baseURL: openAIBaseURL,
		model:   openAIModel,
		apiKey:  cfg.OpenAIAPIKey,
		http:    client,
	}, nil
}
