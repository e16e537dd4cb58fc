package auth

import (
	"log/slog"
	"os"
	"time"
)

// Option configures DeviceAuthService and UserAuthService.
type Option func(*options)

type options struct {
	logger *slog.Logger
	now    func() time.Time
}

// WithLogger sets the structured logger. If not set, a default JSON logger
// writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClock overrides the time source used for issuance and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func applyOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// tokenPrefix returns a log-safe identifier for a token.
func tokenPrefix(token string) string {
	if len(token) > 8 {
		return token[:8] + "..."
	}
	return "short_token"
}
