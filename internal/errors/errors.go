package errors

import (
	stderrors "errors"
	"fmt"
)

// AmanError is the structured error type for amandocs.
// It carries enough context for logging, degradation decisions and CLI output.
type AmanError struct {
	// Code is the unique error code (e.g., "ERR_101_INDEX_BUILD").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Build, Embedding, Artifact, ...).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *AmanError) Error() string {
	if e.Cause != nil && e.Cause.Error() != e.Message {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *AmanError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an AmanError with the same code.
func (e *AmanError) Is(target error) bool {
	if t, ok := target.(*AmanError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *AmanError) WithDetail(key, value string) *AmanError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *AmanError) WithSuggestion(suggestion string) *AmanError {
	e.Suggestion = suggestion
	return e
}

// New creates a new AmanError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *AmanError {
	return &AmanError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates an AmanError from an existing error.
func Wrap(code string, err error) *AmanError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// IndexBuildError creates a fatal build error.
func IndexBuildError(message string, cause error) *AmanError {
	return New(ErrCodeIndexBuild, message, cause)
}

// EmbeddingUnavailable creates a non-fatal embedding error.
func EmbeddingUnavailable(message string, cause error) *AmanError {
	return New(ErrCodeEmbeddingUnavailable, message, cause)
}

// ArtifactVersionMismatch creates an error for vectors produced by another model version.
func ArtifactVersionMismatch(artifactVersion, modelVersion string) *AmanError {
	return New(ErrCodeArtifactVersionMismatch,
		fmt.Sprintf("index built with %q, model loaded is %q", artifactVersion, modelVersion), nil).
		WithDetail("artifact_version", artifactVersion).
		WithDetail("model_version", modelVersion).
		WithSuggestion("Rebuild the index with 'amandocs index'")
}

// QueryTimeout creates an error for a query step that exceeded its bound.
func QueryTimeout(message string, cause error) *AmanError {
	return New(ErrCodeQueryTimeout, message, cause)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *AmanError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *AmanError {
	return New(ErrCodeInternal, message, cause)
}

// as finds the first AmanError in err's chain.
func as(err error) (*AmanError, bool) {
	var ae *AmanError
	if stderrors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if ae, ok := as(err); ok {
		return ae.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	if ae, ok := as(err); ok {
		return ae.Severity == SeverityFatal
	}
	return false
}

// HasCode reports whether any AmanError in err's chain carries code.
func HasCode(err error, code string) bool {
	return stderrors.Is(err, &AmanError{Code: code})
}

// GetCode extracts the error code from the first AmanError in the chain.
// Returns empty string if there is none.
func GetCode(err error) string {
	if ae, ok := as(err); ok {
		return ae.Code
	}
	return ""
}
