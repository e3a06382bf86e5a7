package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FinWalk/internal/domain/models"
	domrepo "FinWalk/internal/domain/repository"
	"FinWalk/pkg/util"
)

var (
	// ErrNoData is returned when the store has no candles for a request.
	ErrNoData = errors.New("no price data")
	// ErrNoStore is returned for symbol requests when no price store is configured.
	ErrNoStore = errors.New("price store is not configured")
)

// SeriesUseCase loads close-price series from the price store.
type SeriesUseCase struct {
	store   domrepo.PriceStore
	maxRows int
}

func NewSeriesUseCase(store domrepo.PriceStore, maxRows int) *SeriesUseCase {
	if maxRows <= 0 {
		maxRows = 200000
	}
	return &SeriesUseCase{store: store, maxRows: maxRows}
}

// LoadSeriesParams selects candles either by time range or, when both ends
// are zero, as the latest Limit bars.
type LoadSeriesParams struct {
	Symbol    string
	From      time.Time
	To        time.Time
	Timeframe domrepo.Timeframe
	Limit     int
}

func (uc *SeriesUseCase) LoadSeries(ctx context.Context, p LoadSeriesParams) (models.Series, error) {
	if uc.store == nil {
		return models.Series{}, ErrNoStore
	}
	if p.Symbol == "" {
		return models.Series{}, fmt.Errorf("symbol required")
	}
	if !domrepo.IsValidTimeframe(p.Timeframe) {
		return models.Series{}, fmt.Errorf("unsupported timeframe %q", p.Timeframe)
	}
	if p.Limit <= 0 || p.Limit > uc.maxRows {
		p.Limit = uc.maxRows
	}

	var (
		candles []models.Candle
		err     error
	)
	if p.From.IsZero() && p.To.IsZero() {
		candles, err = uc.store.GetLatestNCandles(ctx, p.Symbol, p.Limit, p.Timeframe)
	} else {
		if p.To.IsZero() {
			p.To = time.Now().UTC()
		}
		if p.From.After(p.To) {
			return models.Series{}, fmt.Errorf("from must be <= to")
		}
		from, to := util.AlignFromTo(p.From, p.To, p.Timeframe.Duration())
		candles, err = uc.store.GetCandles(ctx, p.Symbol, from, to, p.Timeframe)
		// keep the most recent bars
		if err == nil && len(candles) > p.Limit {
			candles = candles[len(candles)-p.Limit:]
		}
	}
	if err != nil {
		return models.Series{}, fmt.Errorf("load candles: %w", err)
	}
	if len(candles) == 0 {
		return models.Series{}, fmt.Errorf("%s %s: %w", p.Symbol, p.Timeframe, ErrNoData)
	}
	return models.SeriesFromCandles(p.Symbol, candles)
}
