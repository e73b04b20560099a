package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/keyxmakerx/moodwise/internal/config"
)

// Completion request parameters.
const (
	completionTemperature = 0.7
	completionMaxTokens   = 800

	// maxResponseBytes bounds how much of an upstream body is read.
	maxResponseBytes = 1 << 20
)

// CompletionClient sends a message list to a chat-completion API and
// returns the assistant's reply.
type CompletionClient interface {
	Complete(ctx context.Context, messages []Message) (string, error)

	// IsConfigured reports whether an API key is present.
	IsConfigured() bool
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type completionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// httpCompletionClient talks to an OpenAI-compatible endpoint.
type httpCompletionClient struct {
	http   *http.Client
	url    string
	apiKey string
	model  string
}

// NewCompletionClient creates a client from the chat configuration.
func NewCompletionClient(cfg config.ChatConfig) CompletionClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &httpCompletionClient{
		http:   &http.Client{Timeout: timeout},
		url:    cfg.APIURL,
		apiKey: cfg.APIKey,
		model:  cfg.Model,
	}
}

func (c *httpCompletionClient) IsConfigured() bool {
	return c.apiKey != ""
}

// Complete posts the messages and returns the first choice's content.
// Transport errors, non-2xx statuses, undecodable bodies and empty choice
// lists all wrap ErrUpstream.
func (c *httpCompletionClient) Complete(ctx context.Context, messages []Message) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNotConfigured
	}

	body, err := json.Marshal(completionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: completionTemperature,
		MaxTokens:   completionMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("encoding completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("%w: reading body: %v", ErrUpstream, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, snippet(raw))
	}

	var out completionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%w: decoding body: %v", ErrUpstream, err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrUpstream)
	}
	return out.Choices[0].Message.Content, nil
}

// snippet trims an upstream error body for logging.
func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
