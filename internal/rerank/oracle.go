// Package rerank reorders retrieved candidates with an external ranking oracle (an LLM).
// The oracle is untrusted: its answer is applied only if it is an exact permutation of the
// candidates, and every failure falls back to the original order.
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Oracle proposes an ordering for numbered summaries. The answer is free text that is
// expected to hold 1-based positions separated by whitespace.
type Oracle interface {
	Rank(ctx context.Context, query string, summaries []string) (string, error)
}

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultModel   = "x-ai/grok-4.1-fast"

	systemPrompt = "You are a ranking assistant."
)

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// ChatOracle asks an OpenAI-compatible /chat/completions endpoint (OpenRouter by default).
type ChatOracle struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	client      *http.Client
}

// Option configures a ChatOracle.
type Option func(*ChatOracle)

// WithModel overrides the model name.
func WithModel(model string) Option {
	return func(o *ChatOracle) {
		if model != "" {
			o.model = model
		}
	}
}

// WithTemperature sets the sampling temperature (0 by default).
func WithTemperature(t float64) Option {
	return func(o *ChatOracle) { o.temperature = t }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *ChatOracle) {
		if c != nil {
			o.client = c
		}
	}
}

// NewChatOracle creates an oracle for baseURL (DefaultBaseURL when empty).
func NewChatOracle(apiKey, baseURL string, opts ...Option) *ChatOracle {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	o := &ChatOracle{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   DefaultModel,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Rank sends one chat completion request and returns the trimmed answer text.
func (o *ChatOracle) Rank(ctx context.Context, query string, summaries []string) (string, error) {
	reqBody := chatRequest{
		Model: o.model,
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: BuildPrompt(query, summaries)},
		},
		Temperature: o.temperature,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("oracle api error (status %d): %s", resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("oracle api returned error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("empty choices from oracle api")
	}
	return strings.TrimSpace(chatResp.Choices[0].Message.Content), nil
}

// BuildPrompt renders the user prompt: the query, the summaries numbered from 1, and the
// instruction to answer with space-separated numbers only.
func BuildPrompt(query string, summaries []string) string {
	var items strings.Builder
	for i, s := range summaries {
		if i > 0 {
			items.WriteByte('\n')
		}
		fmt.Fprintf(&items, "%d. %s", i+1, s)
	}
	return fmt.Sprintf(`Отсортируй следующие короткие описания по релевантности поисковому запросу:

Запрос: "%s"

Список текстов:
%s

Требования:
1. Верни только список номеров (индексов), разделенных пробелами, например: "3 1 2 4".
2. Не добавляй объяснений, комментариев, текста.`, query, items.String())
}
