package errors

import (
	"context"
	stderrors "errors"
)

func stderrorsIsCanceled(err error) bool {
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}

// Canceled wraps a context cancellation into a classified error.
func Canceled(cause error) *ClassifiedError {
	return WrapError(cause, CategoryCanceled, "build canceled").Build()
}
