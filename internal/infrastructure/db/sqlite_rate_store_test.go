package db

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/damon-houk/fintrack/internal/domain/entity"
	"github.com/damon-houk/fintrack/internal/domain/failure"
)

func TestSQLiteRateStore(t *testing.T) {
	store, err := NewSQLiteRateStore(filepath.Join(t.TempDir(), "rates.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	asOf := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

	_, err = store.FindLatest(ctx, "USD", "IDR")
	assert.ErrorIs(t, err, failure.ErrRateUnavailable)

	rate := &entity.ExchangeRate{Base: "USD", Target: "IDR", Rate: decimal.RequireFromString("16021.5"), AsOfDate: asOf}
	require.NoError(t, store.UpsertRate(ctx, rate))
	require.NoError(t, store.UpsertRate(ctx, rate))

	rates, err := store.ListRates(ctx, "USD")
	require.NoError(t, err)
	require.Len(t, rates, 1)
	assert.Equal(t, "IDR", rates[0].Target)

	got, err := store.FindLatest(ctx, "USD", "IDR")
	require.NoError(t, err)
	assert.Equal(t, "16021.5", got.Rate.String())
	assert.True(t, asOf.Equal(got.AsOfDate))

	// Newer rate replaces, older rate is ignored
	require.NoError(t, store.UpsertRate(ctx, &entity.ExchangeRate{Base: "USD", Target: "IDR", Rate: decimal.RequireFromString("16100"), AsOfDate: asOf.Add(time.Hour)}))
	require.NoError(t, store.UpsertRate(ctx, &entity.ExchangeRate{Base: "USD", Target: "IDR", Rate: decimal.RequireFromString("1"), AsOfDate: asOf}))

	got, err = store.FindLatest(ctx, "USD", "IDR")
	require.NoError(t, err)
	assert.Equal(t, "16100", got.Rate.String())
}

func TestSQLiteRateStoreConcurrentUpserts(t *testing.T) {
	store, err := NewSQLiteRateStore(filepath.Join(t.TempDir(), "rates.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	asOf := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	targets := []string{"EUR", "GBP", "JPY", "CAD", "AUD", "CHF", "SGD", "IDR"}

	var wg sync.WaitGroup
	for _, target := range targets {
		for i := 0; i < 3; i++ {
			wg.Add(1)
			go func(target string) {
				defer wg.Done()
				assert.NoError(t, store.UpsertRate(ctx, &entity.ExchangeRate{
					Base: "USD", Target: target, Rate: decimal.NewFromInt(2), AsOfDate: asOf,
				}))
			}(target)
		}
	}
	wg.Wait()

	rates, err := store.ListRates(ctx, "USD")
	require.NoError(t, err)
	require.Len(t, rates, len(targets))

	stored := make([]string, 0, len(rates))
	for _, rate := range rates {
		stored = append(stored, rate.Target)
	}
	assert.ElementsMatch(t, targets, stored)
	assert.IsIncreasing(t, stored)
}

func TestRunMigrationsIsRepeatable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.db")
	require.NoError(t, RunMigrations(path))
	require.NoError(t, RunMigrations(path))
}
