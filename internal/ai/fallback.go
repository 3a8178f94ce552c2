package ai

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/cv-builder/internal/logger"
)

// ModelList is an immutable, ordered list of model identifiers. The first
// entry is tried first.
type ModelList struct {
	ids []string
}

// NewModelList copies the given ids, dropping blanks and duplicates while
// keeping the order of first appearance.
func NewModelList(ids ...string) ModelList {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || slices.Contains(out, id) {
			continue
		}
		out = append(out, id)
	}
	return ModelList{ids: out}
}

// IDs returns a copy of the identifiers in preference order.
func (l ModelList) IDs() []string {
	return slices.Clone(l.ids)
}

func (l ModelList) Len() int {
	return len(l.ids)
}

// Orchestrator tries each model of its list once, in order, until one succeeds.
type Orchestrator struct {
	client ModelClient
	models ModelList
	logger *zap.Logger
}

func NewOrchestrator(client ModelClient, models ModelList, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		client: client,
		models: models,
		logger: logger.WithFields(log),
	}
}

func (o *Orchestrator) Models() ModelList {
	return o.models
}

// InvokeWithFallback returns the output of the first model that succeeds.
// Models are attempted sequentially, exactly once each, without delay. A
// cancelled context stops the walk and its error is returned.
func (o *Orchestrator) InvokeWithFallback(ctx context.Context, messages Messages, temperature float32) (string, error) {
	if o == nil || o.client == nil {
		return "", ErrNoClient
	}

	var lastErr error
	attempted := make([]string, 0, o.models.Len())

	for i, model := range o.models.ids {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("model fallback aborted before %s: %w", model, err)
		}

		log := logger.WithModel(o.logger, o.client.Provider(), model)
		started := time.Now()

		output, err := o.client.Invoke(ctx, messages, model, temperature)
		if err == nil {
			log.Info("model invocation succeeded",
				zap.Int("attempt", i+1),
				zap.Duration("elapsed", time.Since(started)),
			)
			return output, nil
		}

		attempted = append(attempted, model)
		lastErr = err

		log.Warn("model invocation failed",
			zap.Int("attempt", i+1),
			zap.Int("remaining", o.models.Len()-i-1),
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(err),
		)

		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("model fallback aborted after %s: %w", model, ctxErr)
		}
	}

	if lastErr == nil {
		lastErr = ErrAllModelsFailed
	}

	return "", &AllModelsFailedError{Attempted: attempted, Last: lastErr}
}
