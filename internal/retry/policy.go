// Package retry computes backoff delays for recoverable build failures.
package retry

import (
	"context"
	"errors"
	"time"

	"git.home.luguber.info/inful/docpipe/internal/config"
)

// Policy holds retry/backoff settings. It is immutable after construction.
type Policy struct {
	Mode       config.RetryBackoffMode // fixed|linear|exponential
	Initial    time.Duration           // base delay
	Max        time.Duration           // cap for growth
	MaxRetries int                     // retry attempts after the first failure
}

// DefaultPolicy returns the recovery default: one linear retry, 100ms base, 2s cap.
func DefaultPolicy() Policy {
	return Policy{Mode: config.RetryBackoffLinear, Initial: 100 * time.Millisecond, Max: 2 * time.Second, MaxRetries: 1}
}

// NewPolicy builds a policy from raw fields; zero or invalid values fall back to defaults.
func NewPolicy(mode config.RetryBackoffMode, initial, maxDuration time.Duration, maxRetries int) Policy {
	p := DefaultPolicy()
	if maxRetries >= 0 {
		p.MaxRetries = maxRetries
	}
	if initial > 0 {
		p.Initial = initial
	}
	if maxDuration > 0 {
		p.Max = maxDuration
	}
	switch mode {
	case config.RetryBackoffFixed, config.RetryBackoffLinear, config.RetryBackoffExponential:
		p.Mode = mode
	}
	if p.Initial > p.Max {
		p.Initial = p.Max
	}
	return p
}

// FromConfig builds the policy described by the recovery section.
func FromConfig(rc config.RecoveryConfig) Policy {
	return NewPolicy(rc.Backoff, rc.InitialDelayDuration(), rc.MaxDelayDuration(), rc.MaxRetries)
}

// Delay returns the backoff before retry number retryCount (first retry => 1).
func (p Policy) Delay(retryCount int) time.Duration {
	if retryCount <= 0 {
		return 0
	}
	switch p.Mode {
	case config.RetryBackoffFixed:
		return p.Initial
	case config.RetryBackoffExponential:
		if retryCount > 30 {
			return p.Max
		}
		d := p.Initial * (1 << (retryCount - 1))
		if d > p.Max {
			return p.Max
		}
		return d
	default:
		d := time.Duration(retryCount) * p.Initial
		if d > p.Max {
			return p.Max
		}
		return d
	}
}

// Wait blocks for the delay of retryCount or until ctx is done.
func (p Policy) Wait(ctx context.Context, retryCount int) error {
	d := p.Delay(retryCount)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Validate reports a policy that cannot be applied.
func (p Policy) Validate() error {
	if p.Initial <= 0 {
		return errors.New("initial must be >0")
	}
	if p.Max <= 0 {
		return errors.New("max must be >0")
	}
	if p.MaxRetries < 0 {
		return errors.New("max retries cannot be negative")
	}
	return nil
}
