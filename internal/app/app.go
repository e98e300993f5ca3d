// Package app assembles stores, services and HTTP routes from a Config.
// Both the server and ratectl build on it.
package app

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/dgraph-io/badger/v3"
	"github.com/gorilla/mux"
	"go.uber.org/multierr"

	"github.com/damon-houk/fintrack/internal/application/service"
	"github.com/damon-houk/fintrack/internal/config"
	"github.com/damon-houk/fintrack/internal/domain/repository"
	"github.com/damon-houk/fintrack/internal/infrastructure/api"
	"github.com/damon-houk/fintrack/internal/infrastructure/cache"
	"github.com/damon-houk/fintrack/internal/infrastructure/db"
	"github.com/damon-houk/fintrack/internal/infrastructure/handler"
	"github.com/damon-houk/fintrack/internal/infrastructure/logger"
	"github.com/damon-houk/fintrack/internal/infrastructure/metrics"
	"github.com/damon-houk/fintrack/internal/infrastructure/middleware"
)

// MetricsNamespace prefixes every exported metric
const MetricsNamespace = "fintrack"

// App holds the wired application
type App struct {
	Config  *config.Config
	Logger  logger.Logger
	Metrics *metrics.PrometheusRecorder

	RateStore repository.RateStore

	Fetcher   *service.RateFetcher
	Resolver  *service.RateResolver
	Converter *service.CurrencyConverter
	Ledger    *service.LedgerService
	Watchlist *service.WatchlistService

	closers []func() error
}

// New opens the stores named by cfg and wires every service
func New(cfg *config.Config, log logger.Logger) (*App, error) {
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	a := &App{
		Config:  cfg,
		Logger:  log,
		Metrics: metrics.NewPrometheusRecorder(MetricsNamespace),
	}

	badgerDB, err := db.OpenBadger(filepath.Join(cfg.DataDir, "ledger"))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, badgerDB.Close)

	rateStore, err := a.openRateStore(badgerDB)
	if err != nil {
		a.Close()
		return nil, err
	}
	if cfg.RateCacheTTL > 0 {
		cached := cache.NewCachedRateStore(rateStore, cfg.RateCacheTTL)
		janitorCtx, stopJanitor := context.WithCancel(context.Background())
		cached.StartJanitor(janitorCtx, cfg.RateCacheTTL)
		a.closers = append(a.closers, func() error {
			stopJanitor()
			return nil
		})
		rateStore = cached
	}
	a.RateStore = rateStore

	client := api.NewRatesAPIClient(
		api.WithBaseURL(cfg.RatesAPIURL),
		api.WithHTTPClient(&http.Client{Timeout: cfg.FetchTimeout}),
		api.WithRetries(cfg.FetchRetries),
		api.WithLogger(log.WithField("component", "rates_api")),
		api.WithMetrics(a.Metrics),
	)

	ledgerRepo := db.NewBadgerLedgerRepository(badgerDB)

	a.Fetcher = service.NewRateFetcher(client, rateStore, cfg.RefreshConcurrency, log.WithField("component", "rate_fetcher"), a.Metrics)
	a.Resolver = service.NewRateResolver(rateStore, log.WithField("component", "rate_resolver"), a.Metrics)
	a.Converter = service.NewCurrencyConverter(a.Resolver, log, a.Metrics)
	a.Ledger = service.NewLedgerService(ledgerRepo, log)
	a.Watchlist = service.NewWatchlistService(ledgerRepo, ledgerRepo, log)

	log.Info("Application wired", map[string]interface{}{
		"rate_store":    cfg.RateStore,
		"data_dir":      cfg.DataDir,
		"rates_api":     cfg.RatesAPIURL,
		"rate_cache":    cfg.RateCacheTTL.String(),
		"fetch_retries": cfg.FetchRetries,
	})

	return a, nil
}

func (a *App) openRateStore(badgerDB *badger.DB) (repository.RateStore, error) {
	switch a.Config.RateStore {
	case config.StoreSQLite:
		store, err := db.NewSQLiteRateStore(a.Config.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite rate store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	case config.StoreBadger:
		return db.NewBadgerRateStore(badgerDB, a.Logger.WithField("component", "rate_store")), nil
	default:
		return nil, fmt.Errorf("unknown rate store %q", a.Config.RateStore)
	}
}

// Router returns the HTTP routes behind the shared middleware chain
func (a *App) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(
		middleware.RequestIDMiddleware,
		middleware.RecoveryMiddleware(a.Logger),
		middleware.LoggingMiddleware(a.Logger),
		middleware.MetricsMiddleware(a.Metrics),
	)

	handler.NewRateHandler(a.Fetcher, a.Resolver, a.Logger).RegisterRoutes(router)
	handler.NewConversionHandler(a.Converter, a.Logger).RegisterRoutes(router)
	handler.NewLedgerHandler(a.Ledger, a.Watchlist, a.Logger).RegisterRoutes(router)

	router.Handle("/metrics", a.Metrics.Handler()).Methods("GET")
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods("GET")

	return router
}

// Close releases every store, newest first
func (a *App) Close() error {
	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.closers[i]())
	}
	a.closers = nil
	return err
}
