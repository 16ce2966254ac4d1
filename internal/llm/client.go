// Package llm talks to an OpenAI-compatible chat completions endpoint on behalf
// of the Zentra assistant.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL    = "https://api.openai.com/v1"
	defaultModel      = "gpt-4o-mini"
	defaultMaxTokens  = 1024
	defaultCharBudget = 12000
)

const persona = "You are Zentra, an AI financial copilot for India. " +
	"You help users with budgeting, savings, taxes (Indian context), and financial decisions. " +
	"Be concise, practical, and use INR when mentioning money."

// Message follows the role/content chat schema.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Config holds configuration for the client.
type Config struct {
	APIKey         string
	BaseURL        string // optional, defaults to https://api.openai.com/v1
	Model          string // optional, defaults to gpt-4o-mini
	MaxTokens      int
	CharBudget     int // characters of document text sent for summarization
	RequestTimeout time.Duration
}

// Client sends chat completion requests.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	maxTokens  int
	charBudget int
	httpClient *http.Client
}

type completionRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("llm: api key required")
	}
	baseURL := strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	budget := cfg.CharBudget
	if budget <= 0 {
		budget = defaultCharBudget
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		model:      model,
		maxTokens:  maxTokens,
		charBudget: budget,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Chat prepends the assistant persona, plus userContext when non-empty, to the
// conversation and returns the assistant's reply text.
func (c *Client) Chat(ctx context.Context, messages []Message, userContext string) (string, error) {
	if len(messages) == 0 {
		return "", errors.New("llm: no messages provided")
	}
	system := persona
	if strings.TrimSpace(userContext) != "" {
		system += "\n\nRelevant context:\n" + userContext
	}
	full := make([]Message, 0, len(messages)+1)
	full = append(full, Message{Role: "system", Content: system})
	full = append(full, messages...)
	return c.complete(ctx, full)
}

// Summarize asks for a structured summary of extracted document text. Text beyond
// the configured character budget is dropped.
func (c *Client) Summarize(ctx context.Context, text, fileType string) (string, error) {
	prompt := fmt.Sprintf("Summarize the following %s content in a structured way for a financial copilot. "+
		"Include: key numbers, dates, categories, and any financial metrics. "+
		"Keep it under 800 words.", fileType)
	content := prompt + "\n\n" + Truncate(text, c.charBudget)
	return c.Chat(ctx, []Message{{Role: "user", Content: content}}, "")
}

// Truncate returns at most n characters (runes) of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

func (c *Client) complete(ctx context.Context, messages []Message) (string, error) {
	body, err := json.Marshal(completionRequest{Model: c.model, Messages: messages, MaxTokens: c.maxTokens})
	if err != nil {
		return "", fmt.Errorf("llm: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llm: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm: send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("llm: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error.Message != "" {
			return "", fmt.Errorf("llm: %s (type=%s, status=%d)", errResp.Error.Message, errResp.Error.Type, resp.StatusCode)
		}
		return "", fmt.Errorf("llm: http %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var completion completionResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return "", fmt.Errorf("llm: unmarshal response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("llm: response has no choices")
	}
	return completion.Choices[0].Message.Content, nil
}
