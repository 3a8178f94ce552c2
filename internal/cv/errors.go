package cv

import "fmt"

// InvalidRequestError reports malformed caller input. It is never retried.
type InvalidRequestError struct {
	Field string
	Rule  string
}

func (e *InvalidRequestError) Error() string {
	switch e.Rule {
	case "required":
		return fmt.Sprintf("invalid request: %s is required", e.Field)
	case "max":
		return fmt.Sprintf("invalid request: %s is too long", e.Field)
	}
	if e.Field == "" {
		return fmt.Sprintf("invalid request: %s", e.Rule)
	}
	return fmt.Sprintf("invalid request: %s failed %q", e.Field, e.Rule)
}

// SchemaErrorKind classifies why a model response could not become a Document.
type SchemaErrorKind string

const (
	KindMalformedJSON        SchemaErrorKind = "malformed_json"
	KindMissingRequiredField SchemaErrorKind = "missing_required_field"
	KindTypeMismatch         SchemaErrorKind = "type_mismatch"
)

// SchemaValidationError is returned when the model output is unusable even
// after repair.
type SchemaValidationError struct {
	Kind   SchemaErrorKind
	Field  string
	Detail string
	Err    error
}

func (e *SchemaValidationError) Error() string {
	switch e.Kind {
	case KindMalformedJSON:
		if e.Err != nil {
			return fmt.Sprintf("model response is not valid JSON: %v", e.Err)
		}
		return fmt.Sprintf("model response is not valid JSON: %s", e.Detail)
	case KindMissingRequiredField:
		return fmt.Sprintf("model response is missing required field %q", e.Field)
	default:
		return fmt.Sprintf("model response field %q has the wrong type: %s", e.Field, e.Detail)
	}
}

func (e *SchemaValidationError) Unwrap() error {
	return e.Err
}

// Stage names the pipeline step a BuildError originated in.
type Stage string

const (
	StageRequest  Stage = "request"
	StageCompose  Stage = "compose"
	StageGenerate Stage = "generate"
	StageValidate Stage = "validate"
)

// BuildError is the single failure type returned by Builder.Build.
type BuildError struct {
	Stage   Stage
	Message string
	Err     error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("%s: %s", e.Stage, e.Message)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}
