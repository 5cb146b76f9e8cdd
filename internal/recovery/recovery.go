// Package recovery classifies pipeline failures and retries the recoverable
// ones a bounded number of times.
package recovery

import (
	"context"
	"errors"
	"log/slog"

	derrors "git.home.luguber.info/inful/docpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/docpipe/internal/logfields"
	"git.home.luguber.info/inful/docpipe/internal/retry"
)

// Kind is the recovery class of a failure.
type Kind string

const (
	KindPlugin   Kind = "plugin"
	KindParse    Kind = "parse"
	KindLink     Kind = "link"
	KindResource Kind = "resource"
	KindAbort    Kind = "abort"
	KindCache    Kind = "cache"
	KindCanceled Kind = "canceled"
	KindUnknown  Kind = "unknown"
)

var kindByCategory = map[derrors.ErrorCategory]Kind{
	derrors.CategoryPlugin:   KindPlugin,
	derrors.CategoryParse:    KindParse,
	derrors.CategoryLink:     KindLink,
	derrors.CategoryResource: KindResource,
	derrors.CategoryAbort:    KindAbort,
	derrors.CategoryCache:    KindCache,
	derrors.CategoryCanceled: KindCanceled,
}

// Classify returns the recovery class of err. A plugin error wrapping a more
// specific classified cause (a parse or resource failure raised inside the
// plugin) takes the cause's class.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	kind := KindUnknown
	found := false
	for e := err; e != nil; e = errors.Unwrap(e) {
		ce, ok := e.(*derrors.ClassifiedError)
		if !ok {
			continue
		}
		k, known := kindByCategory[ce.Category()]
		if !known {
			k = KindUnknown
		}
		if !found {
			kind, found = k, true
			if k != KindPlugin {
				break
			}
			continue
		}
		if k == KindParse || k == KindResource || k == KindAbort {
			kind = k
			break
		}
	}
	if !found && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return KindCanceled
	}
	return kind
}

// IsAbort reports whether err must end the run.
func IsAbort(err error) bool {
	return Classify(err) == KindAbort
}

// Retryable reports whether failures of kind k may be retried. Parse and
// abort failures never are.
func Retryable(k Kind) bool {
	return k == KindResource || k == KindCache
}

// Handler retries recoverable units of work.
type Handler struct {
	policy  retry.Policy
	logger  *slog.Logger
	onRetry func(Kind)
}

// NewHandler returns a handler using policy for attempts and delays.
func NewHandler(policy retry.Policy, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{policy: policy, logger: logger}
}

// OnRetry registers a callback invoked before every retry.
func (h *Handler) OnRetry(fn func(Kind)) *Handler {
	h.onRetry = fn
	return h
}

// Attempt runs fn and retries it while the failure is retryable, up to the
// policy's MaxRetries. The last error is returned unchanged.
func (h *Handler) Attempt(ctx context.Context, unit string, fn func(context.Context) error) error {
	err := fn(ctx)
	for retries := 1; err != nil && retries <= h.policy.MaxRetries; retries++ {
		kind := Classify(err)
		if !Retryable(kind) {
			return err
		}
		h.logger.Warn("Retrying after recoverable failure",
			logfields.Target(unit),
			logfields.Attempt(retries),
			slog.String("kind", string(kind)),
			logfields.Error(err))
		if h.onRetry != nil {
			h.onRetry(kind)
		}
		if werr := h.policy.Wait(ctx, retries); werr != nil {
			return err
		}
		err = fn(ctx)
	}
	return err
}
