// Package retry provides configurable retry logic with backoff for transient slot failures.
package retry

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config holds retry configuration
type Config struct {
	MaxAttempts int
	Delays      []time.Duration
}

// permanentError marks an error that must not be retried
type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent wraps err so that WithRetry returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// WithRetry executes fn up to MaxAttempts times, sleeping Delays[i] between attempts.
// The last delay is reused once Delays runs out. Errors wrapped with Permanent stop
// the loop and are returned unwrapped.
func WithRetry(ctx context.Context, cfg Config, fn func() error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if attempt > 0 && len(cfg.Delays) > 0 {
			delayIndex := attempt - 1
			if delayIndex >= len(cfg.Delays) {
				delayIndex = len(cfg.Delays) - 1
			}

			select {
			case <-time.After(cfg.Delays[delayIndex]):
			case <-ctx.Done():
				return fmt.Errorf("retry cancelled: %w", ctx.Err())
			}
		}

		err := fn()
		if err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		lastErr = err
	}

	return fmt.Errorf("failed after %d attempts: %w", cfg.MaxAttempts, lastErr)
}

// ParseConfig builds a Config from the textual attempt count and a comma separated
// list of millisecond delays, falling back to def for anything missing or malformed.
func ParseConfig(attemptsStr, backoffStr string, def Config) Config {
	cfg := Config{
		MaxAttempts: def.MaxAttempts,
		Delays:      append([]time.Duration(nil), def.Delays...),
	}

	if attemptsStr != "" {
		if attempts, err := strconv.Atoi(strings.TrimSpace(attemptsStr)); err == nil && attempts > 0 {
			cfg.MaxAttempts = attempts
		}
	}

	if backoffStr != "" {
		var parsed []time.Duration
		for _, delayStr := range strings.Split(backoffStr, ",") {
			if ms, err := strconv.Atoi(strings.TrimSpace(delayStr)); err == nil && ms > 0 {
				parsed = append(parsed, time.Duration(ms)*time.Millisecond)
			}
		}
		if len(parsed) > 0 {
			cfg.Delays = parsed
		}
	}

	return cfg
}
