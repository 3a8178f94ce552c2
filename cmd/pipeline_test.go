package cmd

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func testAIConfig(provider string) *AIConfig {
	return &AIConfig{
		Provider: provider,
		Gemini:   &GeminiConfig{},
		OpenAI:   &OpenAIConfig{},
	}
}

func TestNewPipelineReportsMissingKey(t *testing.T) {
	tests := []struct {
		provider string
		missing  string
	}{
		{provider: "", missing: "GEMINI_API_KEY"},
		{provider: "Gemini", missing: "GEMINI_API_KEY"},
		{provider: "openai", missing: "OPENAI_API_KEY"},
	}

	for _, tt := range tests {
		p, err := newPipeline(context.Background(), testAIConfig(tt.provider), zap.NewNop())
		if err != nil {
			t.Fatalf("unexpected error for provider %q: %v", tt.provider, err)
		}
		if p.builder != nil {
			t.Fatalf("expected no builder without a key")
		}
		if !reflect.DeepEqual(p.missing, []string{tt.missing}) {
			t.Fatalf("expected missing %s, got %v", tt.missing, p.missing)
		}
	}
}

func TestNewPipelineUnsupportedProvider(t *testing.T) {
	_, err := newPipeline(context.Background(), testAIConfig("anthropic"), zap.NewNop())
	if err == nil || !strings.Contains(err.Error(), "unsupported ai provider") {
		t.Fatalf("expected unsupported provider error, got %v", err)
	}
}

func TestNewPipelineModels(t *testing.T) {
	cfg := testAIConfig("openai")
	cfg.OpenAI.APIKey = "test-key"

	p, err := newPipeline(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.builder == nil || len(p.missing) != 0 {
		t.Fatalf("expected a ready pipeline, got %+v", p)
	}
	if got := p.models.IDs(); got[0] != "llama-3.3-70b-versatile" || len(got) != 3 {
		t.Fatalf("unexpected default models %v", got)
	}

	cfg.Models = []string{" gpt-4o ", "gpt-4o-mini"}
	p, err = newPipeline(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := p.models.IDs(); !reflect.DeepEqual(got, []string{"gpt-4o", "gpt-4o-mini"}) {
		t.Fatalf("unexpected configured models %v", got)
	}
}

func TestNewPipelineKeyFile(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty")
	if err := os.WriteFile(empty, []byte("\n"), 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}

	cfg := testAIConfig("openai")
	cfg.OpenAI.APIKeyFile = empty
	if _, err := newPipeline(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Fatalf("expected an error for an empty key file")
	}

	valid := filepath.Join(dir, "key")
	if err := os.WriteFile(valid, []byte("secret\n"), 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}
	cfg.OpenAI.APIKeyFile = valid

	p, err := newPipeline(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.builder == nil {
		t.Fatalf("expected a builder")
	}
}
