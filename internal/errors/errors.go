// Package errors provides classified errors for mdcheck.
//
// Errors carry a category (what subsystem failed) and a severity (how the
// caller should react). Engine-level failures are confined to the unit of
// work that produced them; only CategoryConfig errors are fatal for a run.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Category identifies the failure domain of an error.
type Category string

const (
	CategoryConfig     Category = "config"
	CategoryFileSystem Category = "filesystem"
	CategoryNetwork    Category = "network"
	CategoryValidation Category = "validation"
	CategoryRewrite    Category = "rewrite"
)

// Severity indicates how a caller should treat an error.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
	SeverityFatal   Severity = "fatal"
)

// ClassifiedError is an error with a category, severity and optional
// key-value context.
type ClassifiedError struct {
	category Category
	severity Severity
	message  string
	cause    error
	context  map[string]any
}

func (e *ClassifiedError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.category))
	b.WriteString(": ")
	b.WriteString(e.message)
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	for k, v := range e.context {
		fmt.Fprintf(&b, " (%s=%v)", k, v)
	}
	return b.String()
}

func (e *ClassifiedError) Unwrap() error { return e.cause }

// Category returns the failure domain.
func (e *ClassifiedError) Category() Category { return e.category }

// Severity returns how the caller should treat the error.
func (e *ClassifiedError) Severity() Severity { return e.severity }

// Builder provides a fluent API for creating ClassifiedError instances.
type Builder struct {
	err ClassifiedError
}

// New creates a Builder with the given category and message.
func New(category Category, message string) *Builder {
	return &Builder{err: ClassifiedError{category: category, severity: SeverityError, message: message}}
}

// Wrap creates a Builder that wraps an existing error.
func Wrap(err error, category Category, message string) *Builder {
	b := New(category, message)
	b.err.cause = err
	return b
}

// Fatal sets the severity to fatal.
func (b *Builder) Fatal() *Builder {
	b.err.severity = SeverityFatal
	return b
}

// Warning sets the severity to warning.
func (b *Builder) Warning() *Builder {
	b.err.severity = SeverityWarning
	return b
}

// WithContext adds a context key-value pair.
func (b *Builder) WithContext(key string, value any) *Builder {
	if b.err.context == nil {
		b.err.context = make(map[string]any)
	}
	b.err.context[key] = value
	return b
}

// Build creates the final ClassifiedError.
func (b *Builder) Build() *ClassifiedError {
	return &b.err
}

// ConfigError creates a fatal configuration error.
func ConfigError(message string) *Builder {
	return New(CategoryConfig, message).Fatal()
}

// CategoryOf returns the category of err if it is (or wraps) a
// ClassifiedError, or an empty category otherwise.
func CategoryOf(err error) Category {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.category
	}
	return ""
}
