package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldProvider is the structured log field key for the model backend name.
	FieldProvider = "ai_provider"
	// FieldModel is the structured log field key for the model identifier.
	FieldModel = "ai_model"
	// FieldRequestID is the structured log field key for the generation request id.
	FieldRequestID = "request_id"
	// FieldStage is the structured log field key for the pipeline stage.
	FieldStage = "stage"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields returns a child logger carrying fields. Components built without a
// logger get a no-op one, so they never need a nil check.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// ModelFields returns the fields that identify a model backend and model id.
func ModelFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}

// WithModel attaches the provider and model fields to the provided logger.
func WithModel(logger *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(logger, ModelFields(provider, model)...)
}

// WithRequest attaches the request id to the logger. Empty ids are skipped.
func WithRequest(logger *zap.Logger, requestID string) *zap.Logger {
	return WithFields(logger, StringFields(StringField{Key: FieldRequestID, Value: requestID})...)
}
