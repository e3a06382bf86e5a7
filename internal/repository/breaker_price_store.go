package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"FinWalk/internal/domain/models"
	domrepo "FinWalk/internal/domain/repository"
	applogger "FinWalk/pkg/logger"
)

// BreakerConfig configures the circuit breaker guarding a PriceStore.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// BreakerPriceStore rejects calls while the wrapped store keeps failing.
// It opens after FailureThreshold consecutive failures.
type BreakerPriceStore struct {
	next domrepo.PriceStore
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerPriceStore(next domrepo.PriceStore, cfg BreakerConfig, l *applogger.Logger) *BreakerPriceStore {
	if l == nil {
		l = applogger.Nop()
	}
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	st := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.Warn("price store breaker state changed",
				applogger.String("breaker", name),
				applogger.String("from", from.String()),
				applogger.String("to", to.String()),
			)
		},
		// Cancellations are the caller's doing, not a store failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
	}
	return &BreakerPriceStore{next: next, cb: gobreaker.NewCircuitBreaker(st)}
}

// State reports the breaker state.
func (b *BreakerPriceStore) State() gobreaker.State { return b.cb.State() }

func (b *BreakerPriceStore) GetCandles(ctx context.Context, symbol string, from, to time.Time, tf domrepo.Timeframe) ([]models.Candle, error) {
	return b.execute(func() ([]models.Candle, error) {
		return b.next.GetCandles(ctx, symbol, from, to, tf)
	})
}

func (b *BreakerPriceStore) GetLatestNCandles(ctx context.Context, symbol string, n int, tf domrepo.Timeframe) ([]models.Candle, error) {
	return b.execute(func() ([]models.Candle, error) {
		return b.next.GetLatestNCandles(ctx, symbol, n, tf)
	})
}

func (b *BreakerPriceStore) execute(fn func() ([]models.Candle, error)) ([]models.Candle, error) {
	v, err := b.cb.Execute(func() (interface{}, error) { return fn() })
	if err != nil {
		return nil, fmt.Errorf("price store: %w", err)
	}
	return v.([]models.Candle), nil
}

var _ domrepo.PriceStore = (*BreakerPriceStore)(nil)
