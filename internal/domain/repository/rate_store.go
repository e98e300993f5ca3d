// Package repository declares the storage ports the core depends on
package repository

import (
	"context"

	"github.com/damon-houk/fintrack/internal/domain/entity"
)

// RateStore persists exchange rates, one authoritative row per (base, target)
type RateStore interface {
	// UpsertRate inserts the row for (rate.Base, rate.Target) or updates it in place.
	// A rate older than the stored one is ignored.
	UpsertRate(ctx context.Context, rate *entity.ExchangeRate) error

	// FindLatest returns the most recent row for the exact pair, or an error
	// matching failure.ErrRateUnavailable
	FindLatest(ctx context.Context, base, target string) (*entity.ExchangeRate, error)

	// ListRates returns every stored row whose base is base, ordered by target
	ListRates(ctx context.Context, base string) ([]entity.ExchangeRate, error)
}
