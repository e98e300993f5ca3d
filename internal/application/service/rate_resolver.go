package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/damon-houk/fintrack/internal/domain/entity"
	"github.com/damon-houk/fintrack/internal/domain/failure"
	"github.com/damon-houk/fintrack/internal/domain/money"
	"github.com/damon-houk/fintrack/internal/domain/repository"
	"github.com/damon-houk/fintrack/internal/infrastructure/logger"
	"github.com/damon-houk/fintrack/internal/infrastructure/metrics"
	"github.com/damon-houk/fintrack/internal/infrastructure/middleware"
)

// inversePrecision is the number of decimal places kept by 1/rate
const inversePrecision = 16

// Resolution describes how a rate was obtained
type Resolution struct {
	From     string          `json:"from"`
	To       string          `json:"to"`
	Rate     decimal.Decimal `json:"rate"`
	Inverted bool            `json:"inverted"`
	Identity bool            `json:"identity"`
	AsOf     time.Time       `json:"as_of,omitempty"`
}

// RateResolver answers "how many units of to per one unit of from"
type RateResolver struct {
	store   repository.RateStore
	logger  logger.Logger
	metrics metrics.Recorder
}

// NewRateResolver creates a new rate resolver
func NewRateResolver(store repository.RateStore, log logger.Logger, recorder metrics.Recorder) *RateResolver {
	if log == nil {
		log = logger.GetDefaultLogger()
	}
	if recorder == nil {
		recorder = metrics.NoOpRecorder{}
	}

	return &RateResolver{
		store:   store,
		logger:  log,
		metrics: recorder,
	}
}

// Resolve returns the rate from -> to. Identical codes resolve to 1 without touching
// the store; otherwise the direct pair is tried, then the inverse pair. When neither
// is stored the error matches failure.ErrRateUnavailable.
func (r *RateResolver) Resolve(ctx context.Context, from, to string) (decimal.Decimal, error) {
	res, err := r.ResolveDetailed(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return res.Rate, nil
}

// ResolveDetailed is Resolve plus the lookup path and the stored row's date
func (r *RateResolver) ResolveDetailed(ctx context.Context, from, to string) (*Resolution, error) {
	requestID := middleware.GetRequestID(ctx)

	src, err := money.Normalize(from)
	if err != nil {
		return nil, err
	}
	dst, err := money.Normalize(to)
	if err != nil {
		return nil, err
	}

	if src == dst {
		r.metrics.RecordResolution(metrics.PathIdentity)
		return &Resolution{From: src, To: dst, Rate: decimal.NewFromInt(1), Identity: true}, nil
	}

	direct, directErr := r.store.FindLatest(ctx, src, dst)
	if directErr == nil {
		r.metrics.RecordResolution(metrics.PathDirect)
		return &Resolution{From: src, To: dst, Rate: direct.Rate, AsOf: direct.AsOfDate}, nil
	}
	if !failure.IsUnavailable(directErr) {
		r.logger.Warn("Direct rate lookup failed, trying inverse", map[string]interface{}{
			"request_id": requestID,
			"pair":       src + "/" + dst,
			"error":      directErr.Error(),
		})
	}

	inverse, inverseErr := r.store.FindLatest(ctx, dst, src)
	if inverseErr == nil && !inverse.Rate.IsZero() {
		r.metrics.RecordResolution(metrics.PathInverse)
		return &Resolution{
			From:     src,
			To:       dst,
			Rate:     decimal.NewFromInt(1).DivRound(inverse.Rate, inversePrecision),
			Inverted: true,
			AsOf:     inverse.AsOfDate,
		}, nil
	}

	// A real store failure wins over a plain miss
	for _, e := range []error{inverseErr, directErr} {
		if e != nil && !failure.IsUnavailable(e) {
			r.metrics.RecordResolution(metrics.PathError)
			r.logger.Error("Rate lookup failed", map[string]interface{}{
				"request_id": requestID,
				"pair":       src + "/" + dst,
				"error":      e.Error(),
			})
			return nil, e
		}
	}

	r.metrics.RecordResolution(metrics.PathMiss)
	r.logger.Debug("No rate stored for pair", map[string]interface{}{
		"request_id": requestID,
		"pair":       src + "/" + dst,
	})
	return nil, failure.Unavailable(src, dst)
}

// StoredRates returns every rate stored with base as its base currency, ordered by
// target. Inverse pairs are not derived.
func (r *RateResolver) StoredRates(ctx context.Context, base string) ([]entity.ExchangeRate, error) {
	code, err := money.Normalize(base)
	if err != nil {
		return nil, err
	}

	rates, err := r.store.ListRates(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to list rates for %s: %w", code, err)
	}
	if rates == nil {
		rates = []entity.ExchangeRate{}
	}
	return rates, nil
}
