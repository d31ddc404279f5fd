package logger

import (
	"go.uber.org/zap"
)

// Standard field names for consistent structured logging across reflow.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Components
	FieldComponent = "component"
	FieldDocument  = "document"
	FieldObject    = "object"

	// Engine
	FieldPath       = "path"
	FieldExpression = "expression"
	FieldScope      = "scope"
	FieldOrder      = "order"

	// Counts and sizes
	FieldCount      = "count"
	FieldNodeCount  = "node_count"
	FieldEdgeCount  = "edge_count"
	FieldTotalCount = "total_count"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError = "error"

	// Files and paths
	FieldFile = "file"
)

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	type Engine struct {
//	    logger *zap.SugaredLogger
//	}
//
//	func NewEngine() *Engine {
//	    return &Engine{
//	        logger: logger.ComponentLogger("engine"),
//	    }
//	}
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// ChildLogger creates a child logger with additional context.
// Use for sub-operations that need extra context fields.
//
// Example:
//
//	docLogger := logger.ChildLogger(baseLogger, "document", doc.Name())
func ChildLogger(parent *zap.SugaredLogger, keysAndValues ...interface{}) *zap.SugaredLogger {
	return parent.With(keysAndValues...)
}
