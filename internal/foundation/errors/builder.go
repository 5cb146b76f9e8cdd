package errors

// ErrorBuilder provides a fluent API for creating ClassifiedError instances.
type ErrorBuilder struct {
	category ErrorCategory
	severity ErrorSeverity
	retry    RetryStrategy
	message  string
	cause    error
	context  ErrorContext
}

// NewError creates a new ErrorBuilder with the specified category and message.
func NewError(category ErrorCategory, message string) *ErrorBuilder {
	return &ErrorBuilder{
		category: category,
		severity: SeverityError,
		retry:    RetryNever,
		message:  message,
		context:  make(ErrorContext),
	}
}

// WrapError creates a new ErrorBuilder that wraps an existing error.
func WrapError(err error, category ErrorCategory, message string) *ErrorBuilder {
	b := NewError(category, message)
	b.cause = err
	return b
}

// WithSeverity sets the error severity.
func (b *ErrorBuilder) WithSeverity(severity ErrorSeverity) *ErrorBuilder {
	b.severity = severity
	return b
}

// WithRetry sets the retry strategy.
func (b *ErrorBuilder) WithRetry(strategy RetryStrategy) *ErrorBuilder {
	b.retry = strategy
	return b
}

// WithCause sets the wrapped error.
func (b *ErrorBuilder) WithCause(err error) *ErrorBuilder {
	b.cause = err
	return b
}

// WithContext adds a context key-value pair.
func (b *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	b.context = b.context.Set(key, value)
	return b
}

// WithFile attributes the error to a source file.
func (b *ErrorBuilder) WithFile(file string) *ErrorBuilder {
	return b.WithContext(ContextFile, file)
}

// Fatal sets the severity to fatal.
func (b *ErrorBuilder) Fatal() *ErrorBuilder {
	return b.WithSeverity(SeverityFatal)
}

// Warning sets the severity to warning.
func (b *ErrorBuilder) Warning() *ErrorBuilder {
	return b.WithSeverity(SeverityWarning)
}

// Info sets the severity to info.
func (b *ErrorBuilder) Info() *ErrorBuilder {
	return b.WithSeverity(SeverityInfo)
}

// Retryable sets the retry strategy to backoff.
func (b *ErrorBuilder) Retryable() *ErrorBuilder {
	return b.WithRetry(RetryBackoff)
}

// Immediate sets the retry strategy to immediate.
func (b *ErrorBuilder) Immediate() *ErrorBuilder {
	return b.WithRetry(RetryImmediate)
}

// Build creates the final ClassifiedError.
func (b *ErrorBuilder) Build() *ClassifiedError {
	return &ClassifiedError{
		category: b.category,
		severity: b.severity,
		retry:    b.retry,
		message:  b.message,
		cause:    b.cause,
		context:  b.context,
	}
}

// PluginExecutionError reports a named plugin failing during the given phase.
func PluginExecutionError(plugin string, phase Phase, cause error) *ErrorBuilder {
	return WrapError(cause, CategoryPlugin, "plugin "+plugin+" failed during "+string(phase)).
		WithContext(ContextPlugin, plugin).
		WithContext(ContextPhase, phase)
}

// ParseError reports malformed document content. Never retried.
func ParseError(message string, cause error) *ErrorBuilder {
	return WrapError(cause, CategoryParse, message).WithContext(ContextPhase, PhaseTransform)
}

// LinkResolutionError reports a reference that resolves to no known document.
// It is always a warning: broken links never fail the build.
func LinkResolutionError(source, target string) *ErrorBuilder {
	return NewError(CategoryLink, "unresolved link").
		Warning().
		WithContext(ContextFile, source).
		WithContext(ContextTarget, target)
}

// ResourceLoadError reports an emitter resource that could not be loaded.
// One bounded retry is permitted.
func ResourceLoadError(resource string, cause error) *ErrorBuilder {
	return WrapError(cause, CategoryResource, "load resource "+resource).
		Retryable().
		WithContext(ContextResource, resource).
		WithContext(ContextPhase, PhaseEmit)
}

// BuildAbortError reports a condition that terminates the run immediately.
func BuildAbortError(message string, cause error) *ErrorBuilder {
	return WrapError(cause, CategoryAbort, message).Fatal()
}

// CacheError reports a build cache failure. Retryable once; never fatal.
func CacheError(message string, cause error) *ErrorBuilder {
	return WrapError(cause, CategoryCache, message).Retryable()
}

// FileSystemError reports a filesystem failure.
func FileSystemError(message string, cause error) *ErrorBuilder {
	return WrapError(cause, CategoryFileSystem, message)
}

// ConfigError creates a configuration error.
func ConfigError(message string) *ErrorBuilder {
	return NewError(CategoryConfig, message).Fatal()
}

// ValidationError creates a validation error.
func ValidationError(message string) *ErrorBuilder {
	return NewError(CategoryValidation, message).Fatal()
}

// InternalError creates an internal error.
func InternalError(message string) *ErrorBuilder {
	return NewError(CategoryInternal, message).Fatal()
}
