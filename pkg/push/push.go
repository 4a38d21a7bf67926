// Package push delivers notifications to device tokens.
package push

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// ErrNoToken is returned when the addressee has no registered device.
var ErrNoToken = errors.New("push: empty device token")

// Result is the outcome of a single dispatch.
type Result struct {
	Delivered bool
	MessageID string
	Err       error
}

// Outcome is a short label for metrics.
func (r Result) Outcome() string {
	switch {
	case r.Delivered:
		return "delivered"
	case errors.Is(r.Err, ErrNoToken):
		return "no_token"
	default:
		return "failed"
	}
}

// Dispatcher sends a push message to a device token. Implementations never
// panic and never block past ctx.
type Dispatcher interface {
	Dispatch(ctx context.Context, token, title, body string) Result
}

// LogDispatcher is used when push delivery is disabled. It records the
// message and reports success.
type LogDispatcher struct {
	logger zerolog.Logger
}

func NewLogDispatcher(logger zerolog.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Dispatch(_ context.Context, token, title, body string) Result {
	if token == "" {
		return Result{Err: ErrNoToken}
	}
	d.logger.Info().
		Str("title", title).
		Str("body", body).
		Msg("push disabled, message logged")
	return Result{Delivered: true}
}
