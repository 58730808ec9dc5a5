// Package llm talks to an OpenAI-compatible chat completions API.
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
	DefaultBaseURL     = "https://api.openai.com"
	DefaultModel       = "gpt-4o"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 800
)

var ErrEmptyCompletion = errors.New("completion contained no choices")

type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is a single chat message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Completer produces the assistant reply to a conversation.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// OpenAIClient implements Completer against the chat completions endpoint.
type OpenAIClient struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	client      *http.Client
}

type Option func(*OpenAIClient)

func WithBaseURL(baseURL string) Option {
	return func(c *OpenAIClient) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

func WithModel(model string) Option {
	return func(c *OpenAIClient) {
		c.model = model
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *OpenAIClient) {
		c.client = client
	}
}

// NewOpenAIClient returns a client using apiKey for bearer authentication.
func NewOpenAIClient(apiKey string, opts ...Option) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("api key must not be empty")
	}

	c := &OpenAIClient{
		apiKey:      apiKey,
		baseURL:     DefaultBaseURL,
		model:       DefaultModel,
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
		client:      &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.model == "" {
		c.model = DefaultModel
	}

	return c, nil
}

// Model returns the model name sent with every request.
func (c *OpenAIClient) Model() string {
	return c.model
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends messages and returns the content of the first choice.
func (c *OpenAIClient) Complete(ctx context.Context, messages []Message) (string, error) {
	jsonData, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling chat completions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("chat completions returned status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		return "", fmt.Errorf("chat completions returned status %d", resp.StatusCode)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	return chatResp.Choices[0].Message.Content, nil
}
