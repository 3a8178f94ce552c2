// Package openai adapts any OpenAI-compatible chat completion API (OpenAI,
// Groq and similar gateways) to ai.ModelClient.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/spigell/cv-builder/internal/ai"
	"github.com/spigell/cv-builder/internal/logger"
	"github.com/spigell/cv-builder/internal/utils"
)

const (
	Provider = "openai"

	defaultMaxTokens    = 4096
	defaultMaxLogLength = 200
)

// DefaultModels is the fallback order used with Groq's OpenAI-compatible API.
func DefaultModels() ai.ModelList {
	return ai.NewModelList("llama-3.3-70b-versatile", "llama-3.1-8b-instant", "mixtral-8x7b-32768")
}

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, request goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error)
}

type Client struct {
	chat      chatCompleter
	maxTokens int
	maxLogLen int
	logger    *zap.Logger
}

type Options struct {
	// BaseURL overrides the API endpoint, e.g. https://api.groq.com/openai/v1.
	BaseURL      string
	MaxTokens    int
	MaxLogLength int
}

func NewClient(apiKey string, opts Options, log *zap.Logger) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}

	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL := strings.TrimSpace(opts.BaseURL); baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}

	return newClient(goopenai.NewClientWithConfig(cfg), opts, log), nil
}

func newClient(chat chatCompleter, opts Options, log *zap.Logger) *Client {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.MaxLogLength <= 0 {
		opts.MaxLogLength = defaultMaxLogLength
	}

	return &Client{
		chat:      chat,
		maxTokens: opts.MaxTokens,
		maxLogLen: opts.MaxLogLength,
		logger:    logger.WithFields(log),
	}
}

func (c *Client) Provider() string { return Provider }

func (c *Client) Invoke(ctx context.Context, messages ai.Messages, model string, temperature float32) (string, error) {
	if c == nil || c.chat == nil {
		return "", &ai.ModelInvocationError{Model: model, Err: errors.New("openai client is not initialized")}
	}

	model = strings.TrimSpace(model)
	if model == "" {
		return "", &ai.ModelInvocationError{Err: errors.New("model is required")}
	}

	req := goopenai.ChatCompletionRequest{
		Model:       model,
		Messages:    toChatMessages(messages),
		Temperature: temperature,
		MaxTokens:   c.maxTokens,
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	log := logger.WithModel(c.logger, Provider, model)
	log.Debug("chat completion request",
		zap.Int("messages", len(req.Messages)),
		zap.Float32("temperature", temperature),
		zap.Int("max_tokens", c.maxTokens),
	)

	resp, err := c.chat.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", &ai.ModelInvocationError{Model: model, Err: fmt.Errorf("create chat completion: %w", err)}
	}

	if len(resp.Choices) == 0 {
		return "", &ai.ModelInvocationError{Model: model, Err: ai.ErrEmptyCompletion}
	}

	output := strings.TrimSpace(resp.Choices[0].Message.Content)

	log.Debug("chat completion response",
		zap.Int("response_length", utf8.RuneCountInString(output)),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.String("response_preview", utils.TruncateForLog(output, c.maxLogLen)),
	)

	return output, nil
}

func toChatMessages(messages ai.Messages) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		role := goopenai.ChatMessageRoleUser
		switch msg.Role {
		case ai.RoleSystem:
			role = goopenai.ChatMessageRoleSystem
		case ai.RoleAssistant:
			role = goopenai.ChatMessageRoleAssistant
		}
		out = append(out, goopenai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}
	return out
}
