package service

import (
	"context"

	"github.com/damon-houk/fintrack/internal/domain/entity"
)

// RateSource fetches the full rate table for a base currency from an external provider.
// Failures are *failure.Error of kind transport, upstream or timeout.
type RateSource interface {
	FetchRates(ctx context.Context, base string) (*entity.RateTable, error)
}
