package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/cv-builder/internal/ai"
	"github.com/spigell/cv-builder/internal/logger"
	"github.com/spigell/cv-builder/internal/utils"
)

const (
	// Provider is the name used for this backend in configuration and logs.
	Provider = "gemini"

	defaultMaxOutputTokens = 4096
	defaultMaxLogLength    = 200
	jsonMIMEType           = "application/json"
)

// DefaultModels is the fallback order for Gemini: best quality first, then the
// fast model, then the long-context alternative.
func DefaultModels() ai.ModelList {
	return ai.NewModelList("gemini-2.5-pro", "gemini-2.5-flash", "gemini-2.0-flash")
}

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client is the single-call adapter for the Gemini API.
type Client struct {
	models          contentGenerator
	maxOutputTokens int32
	maxLogLen       int
	logger          *zap.Logger
}

// Options tunes the generation requests sent by Client.
type Options struct {
	MaxOutputTokens int32
	MaxLogLength    int
}

// NewClient creates a Client configured for the Gemini API backend.
func NewClient(ctx context.Context, apiKey string, opts Options, log *zap.Logger) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newClient(client.Models, opts, log), nil
}

func newClient(models contentGenerator, opts Options, log *zap.Logger) *Client {
	if opts.MaxOutputTokens <= 0 {
		opts.MaxOutputTokens = defaultMaxOutputTokens
	}
	if opts.MaxLogLength <= 0 {
		opts.MaxLogLength = defaultMaxLogLength
	}

	return &Client{
		models:          models,
		maxOutputTokens: opts.MaxOutputTokens,
		maxLogLen:       opts.MaxLogLength,
		logger:          logger.WithFields(log),
	}
}

func (c *Client) Provider() string { return Provider }

// Invoke sends the messages to the given model and returns the completion text.
func (c *Client) Invoke(ctx context.Context, messages ai.Messages, model string, temperature float32) (string, error) {
	if c == nil || c.models == nil {
		return "", &ai.ModelInvocationError{Model: model, Err: errors.New("gemini client is not initialized")}
	}

	model = strings.TrimSpace(model)
	if model == "" {
		return "", &ai.ModelInvocationError{Err: errors.New("model is required")}
	}

	contents := toContents(messages.Conversation())
	if len(contents) == 0 {
		return "", &ai.ModelInvocationError{Model: model, Err: errors.New("no user message to send")}
	}

	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(temperature),
		MaxOutputTokens:  c.maxOutputTokens,
		ResponseMIMEType: jsonMIMEType,
	}
	if system := messages.System(); system != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}

	log := logger.WithModel(c.logger, Provider, model)
	log.Debug("gemini generate content request",
		zap.Int("messages", len(contents)),
		zap.Float32("temperature", temperature),
		zap.Int32("max_output_tokens", c.maxOutputTokens),
	)

	resp, err := c.models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return "", &ai.ModelInvocationError{Model: model, Err: fmt.Errorf("generate content: %w", err)}
	}

	output, ok := responseText(resp)
	if !ok {
		return "", &ai.ModelInvocationError{Model: model, Err: ai.ErrEmptyCompletion}
	}

	log.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(output)),
		zap.String("response_preview", utils.TruncateForLog(output, c.maxLogLen)),
	)

	return output, nil
}

func toContents(messages ai.Messages) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		role := genai.Role(genai.RoleUser)
		if msg.Role == ai.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}
	return contents
}

// responseText joins the text parts of the first candidate. The boolean is
// false when the response carries no candidate content at all.
func responseText(resp *genai.GenerateContentResponse) (string, bool) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", false
	}

	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return "", false
	}

	var builder strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		builder.WriteString(part.Text)
	}

	return strings.TrimSpace(builder.String()), true
}
