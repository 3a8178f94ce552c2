package cv

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/cv-builder/internal/ai"
	"github.com/spigell/cv-builder/internal/logger"
	"github.com/spigell/cv-builder/internal/utils"
)

const (
	// DefaultTemperature is used when the configured temperature is not positive.
	DefaultTemperature float32 = 0.7

	defaultMaxLogLength = 200
)

type generator interface {
	InvokeWithFallback(ctx context.Context, messages ai.Messages, temperature float32) (string, error)
}

// Result is the outcome of Build: exactly one of Document and Err is set.
type Result struct {
	Document *Document
	Err      *BuildError
}

func (r Result) OK() bool {
	return r.Err == nil && r.Document != nil
}

// Builder composes the prompt, runs the model fallback chain and validates the
// response. It holds no per-request state and is safe for concurrent use.
type Builder struct {
	generator   generator
	temperature float32
	maxLogLen   int
	logger      *zap.Logger
}

func NewBuilder(gen generator, temperature float32, maxLogLength int, log *zap.Logger) *Builder {
	if temperature <= 0 {
		temperature = DefaultTemperature
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Builder{
		generator:   gen,
		temperature: temperature,
		maxLogLen:   maxLogLength,
		logger:      logger.WithFields(log),
	}
}

// Build runs the whole pipeline for one request. It never panics and never
// returns a partial document.
func (b *Builder) Build(ctx context.Context, req GenerationRequest) (result Result) {
	started := time.Now()
	stage := StageRequest

	defer func() {
		if r := recover(); r != nil {
			result = failure(stage, fmt.Sprintf("unexpected failure: %v", r), fmt.Errorf("panic: %v", r))
		}

		if result.OK() {
			b.logger.Info("cv generated",
				zap.String("full_name", result.Document.FullName),
				zap.Int("experiences", len(result.Document.Experiences)),
				zap.Duration("elapsed", time.Since(started)),
			)
			return
		}

		b.logger.Warn("cv generation failed",
			zap.String(logger.FieldStage, string(result.Err.Stage)),
			zap.String("reason", result.Err.Message),
			zap.Duration("elapsed", time.Since(started)),
		)
	}()

	if err := req.Validate(); err != nil {
		return failure(StageRequest, err.Error(), err)
	}
	req = req.Normalized()

	stage = StageCompose
	messages, err := Compose(req)
	if err != nil {
		return failure(StageCompose, err.Error(), err)
	}

	b.logger.Debug("cv generation request",
		zap.Int("prompt_length", utf8.RuneCountInString(req.Prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(req.Prompt, b.maxLogLen)),
		zap.String("language", req.Language),
		zap.String("target_job_title", req.TargetJobTitle),
		zap.String("target_industry", req.TargetIndustry),
	)

	stage = StageGenerate
	if b.generator == nil {
		return failure(StageGenerate, "model generator is not configured", errors.New("nil generator"))
	}

	raw, err := b.generator.InvokeWithFallback(ctx, messages, b.temperature)
	if err != nil {
		return failure(StageGenerate, generateMessage(err), err)
	}

	b.logger.Debug("cv generation response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, b.maxLogLen)),
	)

	stage = StageValidate
	doc, err := ParseAndRepair(raw)
	if err != nil {
		return failure(StageValidate, err.Error(), err)
	}

	return Result{Document: doc}
}

func failure(stage Stage, message string, err error) Result {
	return Result{Err: &BuildError{Stage: stage, Message: message, Err: err}}
}

// generateMessage describes a fallback failure by its last underlying error.
func generateMessage(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "generation timed out"
	case errors.Is(err, context.Canceled):
		return "generation was cancelled"
	}

	var allFailed *ai.AllModelsFailedError
	if errors.As(err, &allFailed) {
		return fmt.Sprintf("all models failed: %v", allFailed.Cause())
	}

	return err.Error()
}
