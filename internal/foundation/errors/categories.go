package errors

import "maps"

// ErrorCategory represents the broad category of an error for classification and routing.
type ErrorCategory string

const (
	// CategoryPlugin marks a named plugin failing during transform, filter or emit.
	CategoryPlugin ErrorCategory = "plugin"
	// CategoryParse marks malformed document content.
	CategoryParse ErrorCategory = "parse"
	// CategoryLink marks a reference that cannot be resolved. Always a warning.
	CategoryLink ErrorCategory = "link"
	// CategoryResource marks an emitter resource that could not be loaded.
	CategoryResource ErrorCategory = "resource"
	// CategoryAbort marks an unrecoverable condition that ends the run.
	CategoryAbort ErrorCategory = "abort"

	CategoryCache      ErrorCategory = "cache"
	CategoryFileSystem ErrorCategory = "filesystem"
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"
	CategoryCanceled   ErrorCategory = "canceled"
	CategoryInternal   ErrorCategory = "internal"
)

// ErrorSeverity indicates the impact level of an error.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution completely
	SeverityError   ErrorSeverity = "error"   // Fails the current unit of work
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded output
	SeverityInfo    ErrorSeverity = "info"    // Informational, no impact
)

// RetryStrategy indicates how an error should be handled in retry scenarios.
type RetryStrategy string

const (
	RetryNever     RetryStrategy = "never"     // Permanent failure, don't retry
	RetryImmediate RetryStrategy = "immediate" // Retry immediately
	RetryBackoff   RetryStrategy = "backoff"   // Retry after a policy delay
)

// Phase names the pipeline stage a failure belongs to.
type Phase string

const (
	PhaseDiscover  Phase = "discover"
	PhaseRead      Phase = "read"
	PhaseTransform Phase = "transform"
	PhaseFilter    Phase = "filter"
	PhaseEmit      Phase = "emit"
	PhaseFinalize  Phase = "finalize"
)

// Context keys shared by constructors and report builders.
const (
	ContextFile     = "file"
	ContextPlugin   = "plugin"
	ContextPhase    = "phase"
	ContextTarget   = "target"
	ContextResource = "resource"
	ContextPath     = "path"
)

// ErrorContext provides structured context for errors.
type ErrorContext map[string]any

// Set adds or updates a context value.
func (c ErrorContext) Set(key string, value any) ErrorContext {
	if c == nil {
		c = make(ErrorContext)
	}
	c[key] = value
	return c
}

// Get retrieves a context value.
func (c ErrorContext) Get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	value, exists := c[key]
	return value, exists
}

// GetString retrieves a string context value. Values of named string types
// (Phase, pathid types) are accepted as well.
func (c ErrorContext) GetString(key string) (string, bool) {
	value, exists := c.Get(key)
	if !exists {
		return "", false
	}
	switch v := value.(type) {
	case string:
		return v, true
	case Phase:
		return string(v), true
	case interface{ String() string }:
		return v.String(), true
	}
	return "", false
}

func (c ErrorContext) clone() ErrorContext {
	if c == nil {
		return nil
	}
	return maps.Clone(c)
}
