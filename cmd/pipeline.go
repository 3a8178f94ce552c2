package cmd

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/cv-builder/internal/ai"
	"github.com/spigell/cv-builder/internal/ai/gemini"
	"github.com/spigell/cv-builder/internal/ai/openai"
	"github.com/spigell/cv-builder/internal/cv"
	"github.com/spigell/cv-builder/internal/logger"
	"github.com/spigell/cv-builder/internal/secrets"
)

// pipeline is the wired generation stack. When the model API key is not
// configured builder is nil and missing names the environment variables to set.
type pipeline struct {
	provider string
	models   ai.ModelList
	builder  *cv.Builder
	missing  []string
}

func newPipeline(ctx context.Context, cfg *AIConfig, log *zap.Logger) (*pipeline, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider == "" {
		provider = gemini.Provider
	}

	source, defaults, err := providerSetup(provider, cfg)
	if err != nil {
		return nil, err
	}

	models := defaults
	if configured := ai.NewModelList(cfg.Models...); configured.Len() > 0 {
		models = configured
	}

	p := &pipeline{provider: provider, models: models}

	if missing := secrets.Missing(source); len(missing) > 0 {
		p.missing = missing
		return p, nil
	}

	apiKey, err := secrets.Load(source)
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.%s.api-key-file or %s)", err, provider, source.Env)
	}

	client, err := newModelClient(ctx, provider, apiKey, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", provider, err)
	}

	orchestrator := ai.NewOrchestrator(client, models, logger.WithFields(log, zap.String(logger.FieldProvider, provider)))
	p.builder = cv.NewBuilder(orchestrator, cfg.Temperature, cfg.MaxLogLength, log)

	return p, nil
}

func providerSetup(provider string, cfg *AIConfig) (secrets.Source, ai.ModelList, error) {
	switch provider {
	case gemini.Provider:
		return secrets.Source{
			Name:  "gemini api key",
			Value: cfg.Gemini.APIKey,
			File:  cfg.Gemini.APIKeyFile,
			Env:   "GEMINI_API_KEY",
		}, gemini.DefaultModels(), nil
	case openai.Provider:
		return secrets.Source{
			Name:  "openai api key",
			Value: cfg.OpenAI.APIKey,
			File:  cfg.OpenAI.APIKeyFile,
			Env:   "OPENAI_API_KEY",
		}, openai.DefaultModels(), nil
	default:
		return secrets.Source{}, ai.ModelList{}, fmt.Errorf("unsupported ai provider: %s", provider)
	}
}

func newModelClient(ctx context.Context, provider, apiKey string, cfg *AIConfig, log *zap.Logger) (ai.ModelClient, error) {
	switch provider {
	case gemini.Provider:
		client, err := gemini.NewClient(ctx, apiKey, gemini.Options{
			MaxOutputTokens: int32(cfg.MaxOutputTokens),
			MaxLogLength:    cfg.MaxLogLength,
		}, log)
		if err != nil {
			return nil, err
		}
		return client, nil
	case openai.Provider:
		client, err := openai.NewClient(apiKey, openai.Options{
			BaseURL:      cfg.OpenAI.BaseURL,
			MaxTokens:    cfg.MaxOutputTokens,
			MaxLogLength: cfg.MaxLogLength,
		}, log)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", provider)
	}
}
