package errors

import (
	stderrors "errors"
	"fmt"
)

// Error types for the pf definition finder
type ErrorType string

const (
	// Parse errors (fatal for the run when the file could not be skipped)
	ErrorTypeParse ErrorType = "parse"

	// Usage errors (bad flags, malformed arguments)
	ErrorTypeUsage ErrorType = "usage"

	// Configuration errors
	ErrorTypeConfig ErrorType = "config"

	// Prefilter errors (recoverable; downgraded to warnings)
	ErrorTypePrefilter ErrorType = "prefilter"
)

// ParseError represents a structural parse failure in a candidate file.
// It is fatal for the overall run (exit 2) but only after every other
// candidate file has been processed.
type ParseError struct {
	Type       ErrorType
	Path       string
	Line       int
	Reason     string
	Underlying error
}

// NewParseError creates a new parse error for a file position
func NewParseError(path string, line int, reason string) *ParseError {
	return &ParseError{
		Type:   ErrorTypeParse,
		Path:   path,
		Line:   line,
		Reason: reason,
	}
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error at %s:%d: %s", e.Path, e.Line, e.Reason)
	}
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Reason)
}

// Unwrap returns the underlying error for errors.Is/As
func (e *ParseError) Unwrap() error {
	return e.Underlying
}

// Diagnostic renders the one-line stderr form shown to users
func (e *ParseError) Diagnostic() string {
	if e.Line > 0 {
		return fmt.Sprintf("Error parsing %s: line %d: %s", e.Path, e.Line, e.Reason)
	}
	return fmt.Sprintf("Error parsing %s: %s", e.Path, e.Reason)
}

// UsageError represents invalid invocation input
type UsageError struct {
	Type    ErrorType
	Message string
}

// NewUsageError creates a new usage error
func NewUsageError(format string, args ...any) *UsageError {
	return &UsageError{
		Type:    ErrorTypeUsage,
		Message: fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface
func (e *UsageError) Error() string {
	return e.Message
}

// ConfigError represents a configuration loading or validation error
type ConfigError struct {
	Type       ErrorType
	Source     string
	Field      string
	Underlying error
}

// NewConfigError creates a new config error for a source file and field
func NewConfigError(source, field string, err error) *ConfigError {
	return &ConfigError{
		Type:       ErrorTypeConfig,
		Source:     source,
		Field:      field,
		Underlying: err,
	}
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error in %s (field %s): %v", e.Source, e.Field, e.Underlying)
	}
	return fmt.Sprintf("config error in %s: %v", e.Source, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ConfigError) Unwrap() error {
	return e.Underlying
}

// PrefilterError represents a failed accelerant invocation. It carries the
// exit status and the accelerant's own stderr so the warning line can quote
// both. Always recoverable: callers fall back to the full candidate set.
type PrefilterError struct {
	Type     ErrorType
	ExitCode int
	Stderr   string
}

// NewPrefilterError creates a new prefilter error
func NewPrefilterError(exitCode int, stderr string) *PrefilterError {
	return &PrefilterError{
		Type:     ErrorTypePrefilter,
		ExitCode: exitCode,
		Stderr:   stderr,
	}
}

// Error implements the error interface
func (e *PrefilterError) Error() string {
	return fmt.Sprintf("rg failed (exit %d): %s", e.ExitCode, e.Stderr)
}

// AsParseError extracts a ParseError from an error chain
func AsParseError(err error) (*ParseError, bool) {
	var pe *ParseError
	if stderrors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsUsage reports whether the error chain contains a UsageError
func IsUsage(err error) bool {
	var ue *UsageError
	return stderrors.As(err, &ue)
}
