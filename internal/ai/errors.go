package ai

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAllModelsFailed is reported when the fallback list finished without
	// capturing any underlying error, e.g. because it was empty.
	ErrAllModelsFailed = errors.New("all models failed")
	// ErrEmptyCompletion is reported when the backend answers without any
	// completion content.
	ErrEmptyCompletion = errors.New("model returned no completion content")
	// ErrNoClient is returned by an Orchestrator built without a model client.
	ErrNoClient = errors.New("model client is not configured")
)

// ModelInvocationError is a failed call to a single model.
type ModelInvocationError struct {
	Model string
	Err   error
}

func (e *ModelInvocationError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("invoke model: %v", e.Err)
	}
	return fmt.Sprintf("invoke model %s: %v", e.Model, e.Err)
}

func (e *ModelInvocationError) Unwrap() error {
	return e.Err
}

// AllModelsFailedError is returned when every model in the fallback list failed.
type AllModelsFailedError struct {
	Attempted []string
	Last      error
}

func (e *AllModelsFailedError) Error() string {
	if len(e.Attempted) == 0 {
		return fmt.Sprintf("all models failed: %v", e.Last)
	}
	return fmt.Sprintf("all models failed (%s): %v", strings.Join(e.Attempted, ", "), e.Last)
}

func (e *AllModelsFailedError) Unwrap() error {
	return e.Last
}

// Cause returns the innermost provider error of the last attempt, skipping the
// per-model wrapper.
func (e *AllModelsFailedError) Cause() error {
	var invocation *ModelInvocationError
	if errors.As(e.Last, &invocation) && invocation.Err != nil {
		return invocation.Err
	}
	return e.Last
}
