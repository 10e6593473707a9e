// ABOUTME: OpenAI-compatible chat completions client implementing Completer
// ABOUTME: Works with OpenAI, OpenRouter, Ollama and other /chat/completions servers

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

// DefaultOpenAIURL is the public OpenAI API base URL.
const DefaultOpenAIURL = "https://api.openai.com/v1"

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	apiKey    string
	baseURL   string
	model     string
	maxTokens int
	client    *http.Client
}

// NewOpenAIClient creates a client. Empty baseURL falls back to OpenAI.
func NewOpenAIClient(apiKey, baseURL, model string, maxTokens int) *OpenAIClient {
	if baseURL == "" {
		baseURL = DefaultOpenAIURL
	}
	return &OpenAIClient{
		apiKey:    apiKey,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		model:     model,
		maxTokens: maxTokens,
		client:    &http.Client{},
	}
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model     string          `json:"model"`
	Messages  []openAIMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends one chat completion. The system instruction travels as a
// leading system-role message, which is how these APIs expect it.
func (c *OpenAIClient) Complete(ctx context.Context, system string, messages []conversation.Message) (string, error) {
	req := openAIRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages:  make([]openAIMessage, 0, len(messages)+1),
	}
	if system != "" {
		req.Messages = append(req.Messages, openAIMessage{Role: string(conversation.RoleSystem), Content: system})
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openAIMessage{Role: string(m.Role), Content: m.Content})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", c.fail(KindMalformed, 0, fmt.Errorf("marshaling request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", c.fail(KindTransport, 0, fmt.Errorf("creating request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", c.fail(KindTransport, 0, fmt.Errorf("sending request: %w", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", c.fail(KindTransport, resp.StatusCode, fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", c.fail(kindForStatus(resp.StatusCode), resp.StatusCode, errors.New(truncate(string(data), 400)))
	}

	var parsed openAIResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", c.fail(KindMalformed, resp.StatusCode, fmt.Errorf("parsing response: %w", err))
	}
	if len(parsed.Choices) == 0 {
		return "", c.fail(KindMalformed, resp.StatusCode, errors.New("response has no choices"))
	}
	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", c.fail(KindMalformed, resp.StatusCode, errors.New("empty model response"))
	}
	return content, nil
}

func (c *OpenAIClient) fail(kind Kind, status int, err error) *Error {
	return &Error{Kind: kind, Provider: "openai", Status: status, Err: err}
}
