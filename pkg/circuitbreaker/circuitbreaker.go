// Package circuitbreaker builds the consecutive-failure breakers guarding
// outbound delivery channels.
package circuitbreaker

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

type Settings struct {
	Name string
	// Consecutive failures before the breaker opens.
	Failures uint32
	// How long the breaker stays open before letting a probe through.
	Cooldown time.Duration
	// Cyclic period for clearing counts while closed. Zero never clears.
	Interval time.Duration
}

func New(settings Settings, logger zerolog.Logger) *gobreaker.CircuitBreaker {
	failures := settings.Failures
	if failures == 0 {
		failures = 5
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: 1,
		Interval:    settings.Interval,
		Timeout:     settings.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
}
