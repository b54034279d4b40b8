package llm

import (
	"context"
	"fmt"

	"github.com/floramind/floramind/internal/config"
)

// Message is one turn of a chat completion request.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// Request holds the messages and sampling parameters for one completion.
type Request struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Response holds the result of a completion.
type Response struct {
	Content    string
	Provider   string
	TokensUsed int
}

// Client is the interface for text-generation providers.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// NewClient creates a text-generation client based on the config provider setting.
func NewClient(cfg config.LLMConfig) (Client, error) {
	switch cfg.Provider {
	case "deepseek":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("deepseek provider requires DEEPSEEK_API_KEY or config")
		}
		model := cfg.Model
		if model == "" {
			model = "deepseek-chat"
		}
		return NewDeepSeek(cfg.APIKey, model, cfg.BaseURL), nil
	case "ollama":
		url := cfg.OllamaURL
		if url == "" {
			url = "http://localhost:11434"
		}
		model := cfg.OllamaModel
		if model == "" {
			model = "llama3.2"
		}
		return NewOllama(url, model), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
}
