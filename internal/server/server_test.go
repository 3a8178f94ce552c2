package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/cv-builder/internal/ai"
	"github.com/spigell/cv-builder/internal/cv"
)

type stubGenerator struct {
	mu       sync.Mutex
	result   cv.Result
	requests []cv.GenerationRequest
	deadline bool
	left     time.Duration
}

func (s *stubGenerator) Build(ctx context.Context, req cv.GenerationRequest) cv.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, req)
	var at time.Time
	at, s.deadline = ctx.Deadline()
	s.left = time.Until(at)
	return s.result
}

func sampleDocument() *cv.Document {
	return &cv.Document{
		FullName:    "Alex Morgan",
		JobTitle:    "Senior React Developer",
		ContactInfo: map[string]string{},
		Experiences: []cv.ExperienceEntry{{
			JobTitle:         "Senior Frontend Engineer",
			Company:          "Brightline",
			Responsibilities: []string{"Led the hooks migration"},
		}},
		Education:          []cv.EducationEntry{},
		Certifications:     []string{},
		CoreSkills:         []string{},
		TechnicalSkills:    []string{"React"},
		SoftSkills:         []string{},
		Languages:          []string{},
		Projects:           []cv.ProjectEntry{},
		AdditionalSections: []cv.AdditionalSection{},
	}
}

func doRequest(t *testing.T, srv *Server, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(raw, &payload), "body: %s", raw)
	return resp, payload
}

func TestHealth(t *testing.T) {
	srv := New(Config{}, nil, zap.NewNop())

	resp, payload := doRequest(t, srv, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", payload["status"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestGenerateSuccess(t *testing.T) {
	gen := &stubGenerator{result: cv.Result{Document: sampleDocument()}}
	srv := New(Config{RequestTimeout: time.Minute}, gen, zap.NewNop())

	resp, payload := doRequest(t, srv, http.MethodPost, "/cv/generate",
		`{"prompt": "Generate a CV for a Senior React Developer", "language": "English", "targetIndustry": "SaaS"}`)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, ok := payload["data"].(map[string]any)
	require.True(t, ok, "payload: %v", payload)
	assert.Equal(t, "Alex Morgan", data["fullName"])
	assert.Equal(t, []any{}, data["projects"])

	require.Len(t, gen.requests, 1)
	assert.Equal(t, "SaaS", gen.requests[0].TargetIndustry)
	assert.True(t, gen.deadline, "generation must run with a deadline")
}

func TestGenerateUsesConfiguredTimeout(t *testing.T) {
	gen := &stubGenerator{result: cv.Result{Document: sampleDocument()}}
	srv := New(Config{RequestTimeout: 5 * time.Second}, gen, zap.NewNop())

	resp, _ := doRequest(t, srv, http.MethodPost, "/cv/generate", `{"prompt": "Engineer"}`)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, gen.deadline)
	assert.LessOrEqual(t, gen.left, 5*time.Second)
	assert.Greater(t, gen.left, time.Duration(0))
}

func TestGenerateRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `prompt=hello`},
		{name: "empty body", body: ``},
		{name: "missing prompt", body: `{"language": "English"}`},
		{name: "blank prompt", body: `{"prompt": "   "}`},
		{name: "wrong type", body: `{"prompt": 42}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &stubGenerator{result: cv.Result{Document: sampleDocument()}}
			srv := New(Config{}, gen, zap.NewNop())

			resp, payload := doRequest(t, srv, http.MethodPost, "/cv/generate", tt.body)

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.NotEmpty(t, payload["error"])
			assert.Empty(t, gen.requests)
		})
	}
}

func TestGenerateReportsMissingConfiguration(t *testing.T) {
	gen := &stubGenerator{result: cv.Result{Document: sampleDocument()}}
	srv := New(Config{MissingEnv: []string{"GEMINI_API_KEY"}}, gen, zap.NewNop())

	resp, payload := doRequest(t, srv, http.MethodPost, "/cv/generate", `{"prompt": "Engineer"}`)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, []any{"GEMINI_API_KEY"}, payload["missing"])
	assert.NotEmpty(t, payload["error"])
	assert.Empty(t, gen.requests)
}

func TestGenerateHidesPipelineErrors(t *testing.T) {
	providerErr := &ai.AllModelsFailedError{
		Attempted: []string{"gemini-2.5-pro", "gemini-2.5-flash"},
		Last:      &ai.ModelInvocationError{Model: "gemini-2.5-flash", Err: errors.New("quota exceeded for project 1234")},
	}

	tests := []struct {
		name   string
		err    *cv.BuildError
		status int
	}{
		{
			name:   "generate",
			err:    &cv.BuildError{Stage: cv.StageGenerate, Message: "all models failed: quota exceeded for project 1234", Err: providerErr},
			status: http.StatusInternalServerError,
		},
		{
			name:   "timeout",
			err:    &cv.BuildError{Stage: cv.StageGenerate, Message: "generation timed out", Err: context.DeadlineExceeded},
			status: http.StatusInternalServerError,
		},
		{
			name:   "validate",
			err:    &cv.BuildError{Stage: cv.StageValidate, Message: "missing fullName", Err: &cv.SchemaValidationError{Kind: cv.KindMissingRequiredField, Field: "fullName"}},
			status: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := New(Config{}, &stubGenerator{result: cv.Result{Err: tt.err}}, zap.NewNop())

			resp, payload := doRequest(t, srv, http.MethodPost, "/cv/generate", `{"prompt": "Engineer"}`)

			assert.Equal(t, tt.status, resp.StatusCode)
			message, _ := payload["error"].(string)
			assert.NotEmpty(t, message)
			assert.NotContains(t, message, "gemini")
			assert.NotContains(t, message, "quota")
			assert.Nil(t, payload["data"])
		})
	}
}

func TestRequestIDIsPropagated(t *testing.T) {
	srv := New(Config{}, nil, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-42")

	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "req-42", resp.Header.Get("X-Request-ID"))
}

func TestUnknownRouteReturnsJSONError(t *testing.T) {
	srv := New(Config{}, nil, zap.NewNop())

	resp, payload := doRequest(t, srv, http.MethodGet, "/missing", "")

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.NotEmpty(t, payload["error"])
}

func TestRunStopsOnContextCancel(t *testing.T) {
	srv := New(Config{Listen: "127.0.0.1:0", ShutdownTimeout: time.Second}, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
