package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kru-ai/kru/pkg/apperrors"
	"github.com/kru-ai/kru/pkg/models"
)

// CompletionRequest is one call to the completion service.
type CompletionRequest struct {
	Model       string
	Messages    []models.ChatMessage
	MaxTokens   int
	Temperature float64
}

// Completion is the service's answer plus its reported token usage.
type Completion struct {
	Text  string
	Model string
	Usage models.Usage
}

// Completer turns a prompt into generated text. Implemented by the OpenAI
// client in production and by fakes in tests.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}

// ClientConfig configures the OpenAI-compatible client.
type ClientConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client calls an OpenAI-compatible chat-completion endpoint.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a completion client. A zero timeout defaults to 30s,
// the ceiling a single upstream call may block a request handler.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Model       string               `json:"model"`
	Messages    []models.ChatMessage `json:"messages"`
	MaxTokens   int                  `json:"max_tokens,omitempty"`
	Temperature float64              `json:"temperature,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message models.ChatMessage `json:"message"`
	} `json:"choices"`
	Usage *models.Usage `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete sends the chat request and returns the first choice. Upstream
// failures map onto the closed error kinds: 429 is a quota rejection, 4xx a
// malformed request, everything else a service failure.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (Completion, error) {
	body, err := json.Marshal(chatRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return Completion{}, apperrors.Wrap(apperrors.InvalidAIRequest, "encode completion request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Completion{}, apperrors.Wrap(apperrors.AIService, "create completion request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Completion{}, apperrors.Wrap(apperrors.AIService, "completion service unreachable", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Completion{}, apperrors.Wrap(apperrors.AIService, "read completion response", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil && resp.StatusCode == http.StatusOK {
		return Completion{}, apperrors.Wrap(apperrors.AIService, "decode completion response", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("completion service returned %d", resp.StatusCode)
		if parsed.Error != nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return Completion{}, apperrors.New(apperrors.AIQuota, msg)
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			return Completion{}, apperrors.New(apperrors.InvalidAIRequest, msg)
		default:
			return Completion{}, apperrors.New(apperrors.AIService, msg)
		}
	}

	if len(parsed.Choices) == 0 {
		return Completion{}, apperrors.New(apperrors.AIProcessing, "completion returned no choices")
	}

	out := Completion{
		Text:  parsed.Choices[0].Message.Content,
		Model: parsed.Model,
	}
	if parsed.Usage != nil {
		out.Usage = *parsed.Usage
	}
	return out, nil
}
