package openai

import (
	"context"
	"errors"
	"net/http"
	"testing"

	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/spigell/cv-builder/internal/ai"
)

type fakeChat struct {
	resp     goopenai.ChatCompletionResponse
	err      error
	requests []goopenai.ChatCompletionRequest
}

func (f *fakeChat) CreateChatCompletion(_ context.Context, req goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error) {
	f.requests = append(f.requests, req)
	return f.resp, f.err
}

func choice(content string) goopenai.ChatCompletionResponse {
	return goopenai.ChatCompletionResponse{
		Choices: []goopenai.ChatCompletionChoice{{
			Message:      goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleAssistant, Content: content},
			FinishReason: goopenai.FinishReasonStop,
		}},
	}
}

func TestClientInvokeBuildsRequest(t *testing.T) {
	chat := &fakeChat{resp: choice(`{"fullName":"Ada"}`)}
	c := newClient(chat, Options{MaxTokens: 3000}, zap.NewNop())

	msgs := ai.Messages{
		{Role: ai.RoleSystem, Content: "system"},
		{Role: ai.RoleUser, Content: "user"},
	}

	out, err := c.Invoke(context.Background(), msgs, "llama-3.3-70b-versatile", 0.7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != `{"fullName":"Ada"}` {
		t.Fatalf("unexpected output %q", out)
	}

	if len(chat.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(chat.requests))
	}
	req := chat.requests[0]
	if req.Model != "llama-3.3-70b-versatile" || req.MaxTokens != 3000 || req.Temperature != 0.7 {
		t.Fatalf("unexpected request settings: %+v", req)
	}
	if req.ResponseFormat == nil || req.ResponseFormat.Type != goopenai.ChatCompletionResponseFormatTypeJSONObject {
		t.Fatalf("expected json object response format")
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != goopenai.ChatMessageRoleSystem || req.Messages[1].Content != "user" {
		t.Fatalf("unexpected messages: %+v", req.Messages)
	}
}

func TestClientInvokeWrapsAPIError(t *testing.T) {
	apiErr := &goopenai.APIError{HTTPStatusCode: http.StatusServiceUnavailable, Message: "overloaded"}
	c := newClient(&fakeChat{err: apiErr}, Options{}, zap.NewNop())

	_, err := c.Invoke(context.Background(), ai.Messages{{Role: ai.RoleUser, Content: "x"}}, "llama-3.1-8b-instant", 0.7)

	var invocation *ai.ModelInvocationError
	if !errors.As(err, &invocation) || invocation.Model != "llama-3.1-8b-instant" {
		t.Fatalf("expected ModelInvocationError for the model, got %v", err)
	}

	var got *goopenai.APIError
	if !errors.As(err, &got) || got.HTTPStatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected underlying api error, got %v", err)
	}
}

func TestClientInvokeNoChoicesIsError(t *testing.T) {
	c := newClient(&fakeChat{}, Options{}, zap.NewNop())

	_, err := c.Invoke(context.Background(), ai.Messages{{Role: ai.RoleUser, Content: "x"}}, "m", 0.7)
	if !errors.Is(err, ai.ErrEmptyCompletion) {
		t.Fatalf("expected ErrEmptyCompletion, got %v", err)
	}
}

func TestClientInvokeEmptyContentIsSuccess(t *testing.T) {
	c := newClient(&fakeChat{resp: choice("")}, Options{}, zap.NewNop())

	out, err := c.Invoke(context.Background(), ai.Messages{{Role: ai.RoleUser, Content: "x"}}, "m", 0.7)
	if err != nil || out != "" {
		t.Fatalf("expected empty success, got %q, %v", out, err)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient("  ", Options{}, zap.NewNop()); err == nil {
		t.Fatal("expected error for blank api key")
	}
}
