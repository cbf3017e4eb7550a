package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/pageza/recipe-catalog/backend/config"
)

const structuredSystemPrompt = "You are a recipe data assistant. Reply with a single JSON object only, no prose."

// LLMService talks to an OpenAI-compatible chat completions endpoint
type LLMService struct {
	client *resty.Client
	cfg    config.LLMConfig
	logger *zap.Logger
}

// Message represents a message in the chat
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request represents a chat completions request
type Request struct {
	Model          string            `json:"model"`
	Messages       []Message         `json:"messages"`
	Temperature    float64           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// NewLLMService creates a new LLMService instance
func NewLLMService(cfg config.LLMConfig, logger *zap.Logger) *LLMService {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}

	return &LLMService{
		client: client,
		cfg:    cfg,
		logger: logger,
	}
}

// Complete returns the free-text reply for instruction
func (s *LLMService) Complete(ctx context.Context, instruction string) (string, error) {
	return s.chat(ctx, Request{
		Model:       s.cfg.Model,
		Messages:    []Message{{Role: "user", Content: instruction}},
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
	})
}

// CompleteStructured asks for a JSON reply and returns the first object in it.
// A reply that arrives but holds no object yields ErrMalformedPayload.
func (s *LLMService) CompleteStructured(ctx context.Context, instruction string) (json.RawMessage, error) {
	content, err := s.chat(ctx, Request{
		Model: s.cfg.Model,
		Messages: []Message{
			{Role: "system", Content: structuredSystemPrompt},
			{Role: "user", Content: instruction},
		},
		Temperature:    s.cfg.StructuredTemperature,
		MaxTokens:      s.cfg.StructuredMaxTokens,
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return nil, err
	}

	obj, err := ExtractJSONObject(content)
	if err != nil {
		s.logger.Warn("structured reply was not usable JSON",
			zap.Int("length", len(content)),
			zap.Error(err),
		)
		return nil, err
	}
	return obj, nil
}

func (s *LLMService) chat(ctx context.Context, req Request) (string, error) {
	start := time.Now()

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		Post("/chat/completions")
	if err != nil {
		s.logger.Warn("llm request failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return "", fmt.Errorf("%w: %v", ErrGenerationUnavailable, err)
	}

	switch {
	case resp.StatusCode() == http.StatusTooManyRequests:
		return "", ErrRateLimited
	case resp.StatusCode() != http.StatusOK:
		s.logger.Warn("llm returned error status",
			zap.Int("status", resp.StatusCode()),
			zap.String("body", truncate(resp.String(), 200)),
		)
		return "", fmt.Errorf("%w: status %d", ErrGenerationUnavailable, resp.StatusCode())
	}

	var result chatResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrGenerationUnavailable, err)
	}
	if len(result.Choices) == 0 || strings.TrimSpace(result.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%w: empty reply", ErrGenerationUnavailable)
	}

	s.logger.Debug("llm request completed", zap.Duration("elapsed", time.Since(start)))
	return result.Choices[0].Message.Content, nil
}

// ExtractJSONObject finds the JSON object in a reply that may be wrapped in code
// fences or prose. A top-level array yields its first object element.
func ExtractJSONObject(text string) (json.RawMessage, error) {
	text = strings.TrimSpace(stripCodeFence(text))

	start := strings.IndexAny(text, "{[")
	end := strings.LastIndexAny(text, "}]")
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON value found", ErrMalformedPayload)
	}
	candidate := []byte(text[start : end+1])

	if !json.Valid(candidate) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedPayload)
	}

	if candidate[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(candidate, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		for _, item := range items {
			item = bytes.TrimSpace(item)
			if len(item) > 0 && item[0] == '{' {
				return item, nil
			}
		}
		return nil, fmt.Errorf("%w: array holds no object", ErrMalformedPayload)
	}

	return candidate, nil
}

// stripCodeFence returns the body of the first ``` fenced block, if any
func stripCodeFence(text string) string {
	open := strings.Index(text, "```")
	if open < 0 {
		return text
	}
	body := text[open+3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], "{[") {
		// drop the language tag line, e.g. ```json
		body = body[nl+1:]
	}
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return body
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
