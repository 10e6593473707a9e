// ABOUTME: Anthropic Messages API client implementing Completer
// ABOUTME: Sends system + alternating history, maps HTTP failures onto error kinds

package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/2389/coven-chatops/internal/conversation"
)

const (
	// DefaultAnthropicURL is the public Messages API base URL.
	DefaultAnthropicURL = "https://api.anthropic.com"

	// DefaultAnthropicModel is used when no model is configured.
	DefaultAnthropicModel = "claude-3-opus-20240229"

	anthropicVersion = "2023-06-01"
)

// AnthropicClient talks to the Anthropic Messages API.
type AnthropicClient struct {
	apiKey    string
	baseURL   string
	model     string
	maxTokens int
	client    *http.Client
}

// NewAnthropicClient creates a client. Empty baseURL/model fall back to defaults.
func NewAnthropicClient(apiKey, baseURL, model string, maxTokens int) *AnthropicClient {
	if baseURL == "" {
		baseURL = DefaultAnthropicURL
	}
	if model == "" {
		model = DefaultAnthropicModel
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &AnthropicClient{
		apiKey:    apiKey,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		model:     model,
		maxTokens: maxTokens,
		client:    &http.Client{},
	}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

type anthropicError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends one Messages request and returns the first text block.
func (c *AnthropicClient) Complete(ctx context.Context, system string, messages []conversation.Message) (string, error) {
	req := anthropicRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    system,
		Messages:  make([]anthropicMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, anthropicMessage{Role: string(m.Role), Content: m.Content})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", c.fail(KindMalformed, 0, fmt.Errorf("marshaling request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", c.fail(KindTransport, 0, fmt.Errorf("creating request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", c.fail(KindTransport, 0, fmt.Errorf("sending request: %w", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", c.fail(KindTransport, resp.StatusCode, fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return "", c.fail(kindForStatus(resp.StatusCode), resp.StatusCode, errors.New(anthropicErrorText(data)))
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", c.fail(KindMalformed, resp.StatusCode, fmt.Errorf("parsing response: %w", err))
	}
	if len(parsed.Content) == 0 || parsed.Content[0].Type != "text" || parsed.Content[0].Text == "" {
		return "", c.fail(KindMalformed, resp.StatusCode, errors.New("response has no text content"))
	}

	return parsed.Content[0].Text, nil
}

func (c *AnthropicClient) fail(kind Kind, status int, err error) *Error {
	return &Error{Kind: kind, Provider: "anthropic", Status: status, Err: err}
}

// anthropicErrorText extracts the API error message, falling back to the raw body.
func anthropicErrorText(body []byte) string {
	var e anthropicError
	if json.Unmarshal(body, &e) == nil && e.Error.Message != "" {
		return e.Error.Type + ": " + e.Error.Message
	}
	return truncate(string(body), 400)
}
