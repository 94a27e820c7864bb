package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"NewsPress/internal/config"
	"NewsPress/internal/ports"
)

// OpenAIClient implements ports.ChatCompleter against OpenAI-compatible
// chat-completion endpoints.
type OpenAIClient struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
}

var _ ports.ChatCompleter = (*OpenAIClient)(nil)

// NewOpenAIClient builds a client from configuration.
func NewOpenAIClient(cfg config.RewriteConfig) *OpenAIClient {
	return &OpenAIClient{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
	}
}

// Complete posts one chat-completion request and returns the assistant text.
// Upstream rejections come back as *ports.APIError so callers can inspect
// the status and error code.
func (c *OpenAIClient) Complete(ctx context.Context, req ports.ChatRequest) (string, error) {
	if c == nil {
		return "", fmt.Errorf("openai client is nil")
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return "", fmt.Errorf("openai client misconfigured")
	}

	payload := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": req.System},
			{"role": "user", "content": req.User},
		},
	}
	tokenParam := req.TokenParam
	if tokenParam == "" {
		tokenParam = "max_tokens"
	}
	if req.MaxTokens > 0 {
		payload[tokenParam] = req.MaxTokens
	}
	if req.Temperature != nil {
		payload["temperature"] = *req.Temperature
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal chat payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("complete chat: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return "", decodeAPIError(resp.StatusCode, raw)
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &completion); err != nil {
		return "", fmt.Errorf("decode completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("completion has no choices")
	}

	return completion.Choices[0].Message.Content, nil
}

func decodeAPIError(status int, raw []byte) error {
	var failure struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &failure); err != nil || failure.Error.Message == "" {
		return &ports.APIError{
			Status:  status,
			Message: strings.TrimSpace(string(raw)),
		}
	}

	code := failure.Error.Code
	if code == "" {
		code = failure.Error.Type
	}
	return &ports.APIError{
		Status:  status,
		Code:    code,
		Message: failure.Error.Message,
	}
}
