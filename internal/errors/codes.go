// Package errors provides structured error handling for amandocs.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Index build errors (fatal, abort the build)
//   - 2XX: Embedding errors (degrade to keyword-only)
//   - 3XX: Index artifact errors
//   - 4XX: Query errors
//   - 5XX: Configuration errors
//   - 6XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryBuild indicates index build errors.
	CategoryBuild Category = "BUILD"
	// CategoryEmbedding indicates embedding model load or inference errors.
	CategoryEmbedding Category = "EMBEDDING"
	// CategoryArtifact indicates problems with persisted index artifacts.
	CategoryArtifact Category = "ARTIFACT"
	// CategoryQuery indicates query-time errors.
	CategoryQuery Category = "QUERY"
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Build errors (100-199)
	ErrCodeIndexBuild        = "ERR_101_INDEX_BUILD"
	ErrCodeCorpusMalformed   = "ERR_102_CORPUS_MALFORMED"
	ErrCodeDuplicateDocument = "ERR_103_DUPLICATE_DOCUMENT"
	ErrCodeArtifactWrite     = "ERR_104_ARTIFACT_WRITE"
	ErrCodeBuildLocked       = "ERR_105_BUILD_LOCKED"

	// Embedding errors (200-299)
	ErrCodeEmbeddingUnavailable = "ERR_201_EMBEDDING_UNAVAILABLE"
	ErrCodeModelNotLoaded       = "ERR_202_MODEL_NOT_LOADED"
	ErrCodeModelLoadTimeout     = "ERR_203_MODEL_LOAD_TIMEOUT"

	// Artifact errors (300-399)
	ErrCodeArtifactVersionMismatch = "ERR_301_ARTIFACT_VERSION_MISMATCH"
	ErrCodeArtifactCorrupt         = "ERR_302_ARTIFACT_CORRUPT"
	ErrCodeArtifactNotFound        = "ERR_303_ARTIFACT_NOT_FOUND"

	// Query errors (400-499)
	ErrCodeQueryTimeout    = "ERR_401_QUERY_TIMEOUT"
	ErrCodeQuerySuperseded = "ERR_402_QUERY_SUPERSEDED"

	// Config errors (500-599)
	ErrCodeConfigInvalid  = "ERR_501_CONFIG_INVALID"
	ErrCodeConfigNotFound = "ERR_502_CONFIG_NOT_FOUND"

	// Internal errors (600-699)
	ErrCodeInternal = "ERR_601_INTERNAL"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	switch code[4] {
	case '1':
		return CategoryBuild
	case '2':
		return CategoryEmbedding
	case '3':
		return CategoryArtifact
	case '4':
		return CategoryQuery
	case '5':
		return CategoryConfig
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
// Build errors abort the build; everything on the query path degrades.
func severityFromCode(code string) Severity {
	switch categoryFromCode(code) {
	case CategoryBuild:
		return SeverityFatal
	case CategoryEmbedding, CategoryArtifact, CategoryQuery:
		return SeverityWarning
	default:
		return SeverityError
	}
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeEmbeddingUnavailable, ErrCodeBuildLocked:
		return true
	default:
		return false
	}
}
