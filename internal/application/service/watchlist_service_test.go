package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/damon-houk/fintrack/internal/domain/entity"
	"github.com/damon-houk/fintrack/internal/infrastructure/logger"
	"github.com/damon-houk/fintrack/internal/mocks"
)

func TestWatchlist(t *testing.T) {
	repo := new(mocks.MockLedgerRepository)
	svc := NewWatchlistService(repo, repo, logger.NewNopLogger())
	ctx := context.Background()

	repo.On("FindCategories", ctx, "u1").Return([]entity.Category{
		budgeted("groceries", "Groceries", 100000),
		budgeted("fun", "Fun", 10000),
	}, nil).Once()
	repo.On("FindTransactions", ctx, "u1", mayStart, mayEnd).Return([]entity.Transaction{
		expense("groceries", 95000, mayStart.AddDate(0, 0, 4)),
		expense("fun", 12000, mayStart.AddDate(0, 0, 5)),
	}, nil).Once()

	watchlist, err := svc.Watchlist(ctx, "u1", time.Date(2024, 5, 31, 22, 0, 0, 0, time.UTC))

	require.NoError(t, err)
	require.Len(t, watchlist, 2)
	assert.Equal(t, entity.TierOver, watchlist[0].Status)
	assert.Equal(t, entity.TierDanger, watchlist[1].Status)
	repo.AssertExpectations(t)
}

func TestWatchlistReadErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("categories", func(t *testing.T) {
		repo := new(mocks.MockLedgerRepository)
		svc := NewWatchlistService(repo, repo, logger.NewNopLogger())

		repo.On("FindCategories", ctx, "u1").Return(nil, errors.New("io error")).Once()

		_, err := svc.Watchlist(ctx, "u1", mayStart)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read categories")
		repo.AssertNotCalled(t, "FindTransactions", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("transactions", func(t *testing.T) {
		repo := new(mocks.MockLedgerRepository)
		svc := NewWatchlistService(repo, repo, logger.NewNopLogger())

		repo.On("FindCategories", ctx, "u1").Return([]entity.Category{}, nil).Once()
		repo.On("FindTransactions", ctx, "u1", mayStart, mayEnd).Return(nil, errors.New("io error")).Once()

		_, err := svc.Watchlist(ctx, "u1", mayStart)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read transactions")
	})
}
