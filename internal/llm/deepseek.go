package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const deepSeekAPI = "https://api.deepseek.com/chat/completions"

// DeepSeek calls the DeepSeek chat completions API directly.
type DeepSeek struct {
	apiKey string
	model  string
	url    string
	client *http.Client
}

// NewDeepSeek creates a new DeepSeek API client. An empty baseURL uses the
// public endpoint.
func NewDeepSeek(apiKey, model, baseURL string) *DeepSeek {
	url := baseURL
	if url == "" {
		url = deepSeekAPI
	}
	return &DeepSeek{
		apiKey: apiKey,
		model:  model,
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Complete sends a chat completion request to the DeepSeek API.
func (d *DeepSeek) Complete(ctx context.Context, req Request) (*Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2048
	}

	reqBody := map[string]any{
		"model":       d.model,
		"messages":    req.Messages,
		"max_tokens":  maxTokens,
		"temperature": req.Temperature,
		"stream":      false,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", d.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+d.apiKey)

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("deepseek api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("deepseek api status %d: %s", resp.StatusCode, respBody)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	text := ""
	if len(result.Choices) > 0 {
		text = result.Choices[0].Message.Content
	}

	return &Response{
		Content:    text,
		Provider:   "deepseek",
		TokensUsed: result.Usage.PromptTokens + result.Usage.CompletionTokens,
	}, nil
}
