package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/Azee177/jianli/internal/shared/telemetry"
)

// BreakerSettings controls when the provider circuit opens.
type BreakerSettings struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	MinRequests      uint32
	FailureThreshold float64
}

// DefaultBreakerSettings opens after 5 calls with at least 60% failures and
// tries again after 30s.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		MinRequests:      5,
		FailureThreshold: 0.6,
	}
}

type breakerClient struct {
	base Client
	cb   *gobreaker.CircuitBreaker[Response]
}

// WithBreaker guards base with a circuit breaker. While the circuit is open
// calls fail fast with gobreaker.ErrOpenState so callers take their fallback.
func WithBreaker(name string, base Client, s BreakerSettings) Client {
	if base == nil {
		return nil
	}
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= s.FailureThreshold
		},
		// Caller cancellations and malformed output say nothing about provider health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrMalformedOutput)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			telemetry.Warn("llm.breaker", map[string]any{
				"name": name,
				"from": from.String(),
				"to":   to.String(),
			})
		},
	}
	return &breakerClient{base: base, cb: gobreaker.NewCircuitBreaker[Response](settings)}
}

func (b *breakerClient) Complete(ctx context.Context, req Request) (Response, error) {
	return b.cb.Execute(func() (Response, error) {
		return b.base.Complete(ctx, req)
	})
}
