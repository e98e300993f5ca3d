// Package service holds the application services of the exchange-rate engine and the budget watchlist
package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/damon-houk/fintrack/internal/domain/entity"
	"github.com/damon-houk/fintrack/internal/domain/failure"
	"github.com/damon-houk/fintrack/internal/domain/money"
	"github.com/damon-houk/fintrack/internal/domain/repository"
	domainservice "github.com/damon-houk/fintrack/internal/domain/service"
	"github.com/damon-houk/fintrack/internal/infrastructure/logger"
	"github.com/damon-houk/fintrack/internal/infrastructure/metrics"
	"github.com/damon-houk/fintrack/internal/infrastructure/middleware"
)

// DefaultRefreshConcurrency bounds parallel upserts per refresh
const DefaultRefreshConcurrency = 8

// RateFetcher pulls a base currency's rate table and upserts every pair
type RateFetcher struct {
	source      domainservice.RateSource
	store       repository.RateStore
	concurrency int
	logger      logger.Logger
	metrics     metrics.Recorder
}

// NewRateFetcher creates a new rate fetcher
func NewRateFetcher(source domainservice.RateSource, store repository.RateStore, concurrency int, log logger.Logger, recorder metrics.Recorder) *RateFetcher {
	if log == nil {
		log = logger.GetDefaultLogger()
	}
	if recorder == nil {
		recorder = metrics.NoOpRecorder{}
	}
	if concurrency <= 0 {
		concurrency = DefaultRefreshConcurrency
	}

	return &RateFetcher{
		source:      source,
		store:       store,
		concurrency: concurrency,
		logger:      log,
		metrics:     recorder,
	}
}

// Refresh fetches every rate for base and upserts each (base, target) pair.
//
// A fetch failure leaves the store untouched. Upserts run concurrently and one
// failing never cancels or rolls back the others; when any fail, the result is
// returned together with a partial-refresh error naming the failed targets.
// Running Refresh twice on identical upstream data leaves one row per pair.
func (f *RateFetcher) Refresh(ctx context.Context, base string) (*entity.RefreshResult, error) {
	requestID := middleware.GetRequestID(ctx)
	startTime := time.Now()

	code, err := money.Normalize(base)
	if err != nil {
		f.metrics.RecordRefresh(base, failure.Classify(err), time.Since(startTime))
		return nil, err
	}

	f.logger.Info("Refreshing exchange rates", map[string]interface{}{
		"request_id": requestID,
		"base":       code,
	})

	table, err := f.source.FetchRates(ctx, code)
	if err != nil {
		f.logger.Error("Failed to fetch exchange rates", map[string]interface{}{
			"request_id": requestID,
			"base":       code,
			"kind":       failure.Classify(err),
			"error":      err.Error(),
		})
		f.metrics.RecordRefresh(code, failure.Classify(err), time.Since(startTime))
		return nil, err
	}

	result := &entity.RefreshResult{
		Base:   code,
		AsOf:   table.AsOf,
		Failed: map[string]error{},
	}

	var (
		mu       sync.Mutex
		combined error
	)

	// Sibling upserts never see a cancelled context from the group
	g := new(errgroup.Group)
	g.SetLimit(f.concurrency)

	for _, raw := range sortedTargets(table) {
		// Self-pairs and malformed codes are never stored
		target, normErr := money.Normalize(raw)
		if normErr != nil || target == code {
			result.Skipped = append(result.Skipped, raw)
			continue
		}

		rate := &entity.ExchangeRate{
			Base:     code,
			Target:   target,
			Rate:     table.Rates[raw],
			AsOfDate: table.AsOf,
		}

		g.Go(func() error {
			upsertErr := f.upsert(ctx, rate)
			f.metrics.RecordUpsert(upsertErr == nil)

			mu.Lock()
			defer mu.Unlock()
			if upsertErr != nil {
				result.Failed[rate.Target] = upsertErr
				combined = multierr.Append(combined, fmt.Errorf("%s: %w", rate.Pair(), upsertErr))
				return nil
			}
			result.Upserted = append(result.Upserted, rate.Target)
			return nil
		})
	}

	// Goroutines always return nil; failures are collected above
	_ = g.Wait()

	sort.Strings(result.Upserted)

	if len(result.Failed) > 0 {
		f.logger.Warn("Exchange rate refresh partially failed", map[string]interface{}{
			"request_id": requestID,
			"base":       code,
			"upserted":   len(result.Upserted),
			"failed":     len(result.Failed),
			"error":      combined.Error(),
		})
		f.metrics.RecordRefresh(code, "partial", time.Since(startTime))
		return result, failure.Partial(code, result.Failed, combined)
	}

	f.logger.Info("Exchange rates refreshed", map[string]interface{}{
		"request_id": requestID,
		"base":       code,
		"upserted":   len(result.Upserted),
		"as_of":      result.AsOf.Format(time.RFC3339),
	})
	f.metrics.RecordRefresh(code, "success", time.Since(startTime))

	return result, nil
}

func (f *RateFetcher) upsert(ctx context.Context, rate *entity.ExchangeRate) error {
	if !rate.Rate.IsPositive() {
		return failure.Newf(failure.KindInvalidInput, "upsert", "non-positive rate %s for %s", rate.Rate.String(), rate.Pair())
	}

	return f.store.UpsertRate(ctx, rate)
}

// sortedTargets returns the targets of table in a stable order
func sortedTargets(table *entity.RateTable) []string {
	targets := make([]string, 0, len(table.Rates))
	for target := range table.Rates {
		targets = append(targets, target)
	}
	sort.Strings(targets)
	return targets
}
