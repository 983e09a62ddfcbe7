package backend

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/shleen/threadline/internal/wardrobe"
)

// BreakerConfig tunes the circuit breaker guarding the backend.
type BreakerConfig struct {
	// MaxRequests allowed through while half-open.
	MaxRequests uint32
	// Interval clears counts while closed; 0 never clears.
	Interval time.Duration
	// Timeout is how long the breaker stays open.
	Timeout time.Duration
	// FailureRatio of failed requests that trips the breaker.
	FailureRatio float64
	// MinRequests before FailureRatio is evaluated.
	MinRequests uint32
}

// DefaultBreakerConfig suits a single interactive user.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      20 * time.Second,
		FailureRatio: 0.6,
		MinRequests:  5,
	}
}

func newBreaker(cfg BreakerConfig, logger *slog.Logger) *gobreaker.CircuitBreaker[[]byte] {
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "threadline-backend",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		IsSuccessful: healthySignal,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})
}

// healthySignal reports whether err leaves the breaker's view of the
// backend unchanged. 4xx, decode problems and caller cancellation say
// nothing about backend health.
func healthySignal(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var werr *wardrobe.Error
	return errors.As(err, &werr) && werr.Kind == wardrobe.KindNetwork && werr.Status > 0 && werr.Status < 500
}

func isBreakerRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
