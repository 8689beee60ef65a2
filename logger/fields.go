package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for structured logging across ontomap.
// Use these constants instead of raw strings.
const (
	// Identity and context
	FieldRequestID = "request_id"
	FieldComponent = "component"
	FieldService   = "service"

	// Operations
	FieldOperation  = "operation"
	FieldDurationMS = "duration_ms"
	FieldError      = "error"
	FieldCount      = "count"
	FieldFile       = "file"
	FieldAddress    = "address"

	// Match stage
	FieldSentence   = "sentence"
	FieldLanguage   = "lang"
	FieldHead       = "head"
	FieldTail       = "tail"
	FieldRelation   = "relation"
	FieldPath       = "path"
	FieldConfidence = "confidence"

	// Map stage
	FieldClass    = "class"
	FieldOntology = "ontology"
	FieldInstance = "instance"
	FieldProperty = "property"
	FieldScore    = "score"
	FieldOutcome  = "outcome"
	FieldNERType  = "ner_type"
)

type contextKey string

const requestIDKey contextKey = "logger_request_id"

// WithRequestID adds a request ID to the context for logging
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// FieldsFromContext extracts logging fields from context.
func FieldsFromContext(ctx context.Context) []interface{} {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok && requestID != "" {
		return []interface{}{FieldRequestID, requestID}
	}
	return nil
}

// FromContext returns l with fields extracted from ctx attached.
func FromContext(ctx context.Context, l *zap.SugaredLogger) *zap.SugaredLogger {
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}

// ComponentLogger returns a named child of the global logger.
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}
