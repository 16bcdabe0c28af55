package governance

import (
	"log/slog"
	"time"
)

// Option configures the governance engine.
type Option func(*Engine)

// WithCredentialSource sets the source of provider credentials.
func WithCredentialSource(source CredentialSource) Option {
	return func(e *Engine) {
		e.creds = source
	}
}

// WithLogger sets the logger for governance diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock replaces the wall clock, for tests that drive window expiry.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}
