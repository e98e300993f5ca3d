package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/damon-houk/fintrack/internal/domain/entity"
	"github.com/damon-houk/fintrack/internal/domain/failure"
	"github.com/damon-houk/fintrack/internal/infrastructure/logger"
	"github.com/damon-houk/fintrack/internal/mocks"
)

func storedRate(base, target, rate string) *entity.ExchangeRate {
	return &entity.ExchangeRate{
		Base:     base,
		Target:   target,
		Rate:     decimal.RequireFromString(rate),
		AsOfDate: asOf,
	}
}

func TestResolveIdentityDoesNotTouchStore(t *testing.T) {
	// No expectations: any store call fails the test
	store := new(mocks.MockRateStore)
	resolver := NewRateResolver(store, logger.NewNopLogger(), nil)

	for _, code := range []string{"USD", "eur", "JPY", "IDR"} {
		rate, err := resolver.Resolve(context.Background(), code, code)
		require.NoError(t, err)
		assert.True(t, rate.Equal(decimal.NewFromInt(1)), code)
	}

	res, err := resolver.ResolveDetailed(context.Background(), "GBP", "gbp")
	require.NoError(t, err)
	assert.True(t, res.Identity)

	store.AssertNotCalled(t, "FindLatest", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolveDirect(t *testing.T) {
	store := new(mocks.MockRateStore)
	resolver := NewRateResolver(store, logger.NewNopLogger(), nil)
	ctx := context.Background()

	store.On("FindLatest", ctx, "USD", "EUR").Return(storedRate("USD", "EUR", "0.92"), nil).Once()

	res, err := resolver.ResolveDetailed(ctx, "USD", "EUR")

	require.NoError(t, err)
	assert.Equal(t, "0.92", res.Rate.String())
	assert.False(t, res.Inverted)
	assert.Equal(t, asOf, res.AsOf)
	store.AssertExpectations(t)
}

func TestResolveInverse(t *testing.T) {
	store := new(mocks.MockRateStore)
	resolver := NewRateResolver(store, logger.NewNopLogger(), nil)
	ctx := context.Background()

	store.On("FindLatest", ctx, "EUR", "USD").Return(nil, failure.Unavailable("EUR", "USD")).Once()
	store.On("FindLatest", ctx, "USD", "EUR").Return(storedRate("USD", "EUR", "0.8"), nil).Once()

	res, err := resolver.ResolveDetailed(ctx, "EUR", "USD")

	require.NoError(t, err)
	assert.True(t, res.Inverted)
	assert.True(t, res.Rate.Equal(decimal.RequireFromString("1.25")))
	store.AssertExpectations(t)
}

func TestResolveInverseOfRepeatingFraction(t *testing.T) {
	store := new(mocks.MockRateStore)
	resolver := NewRateResolver(store, logger.NewNopLogger(), nil)
	ctx := context.Background()

	store.On("FindLatest", ctx, "JPY", "USD").Return(nil, failure.Unavailable("JPY", "USD")).Once()
	store.On("FindLatest", ctx, "USD", "JPY").Return(storedRate("USD", "JPY", "3"), nil).Once()

	rate, err := resolver.Resolve(ctx, "JPY", "USD")

	require.NoError(t, err)
	assert.Equal(t, "0.3333333333333333", rate.String())
}

func TestResolveUnavailable(t *testing.T) {
	store := new(mocks.MockRateStore)
	resolver := NewRateResolver(store, logger.NewNopLogger(), nil)
	ctx := context.Background()

	store.On("FindLatest", ctx, "USD", "IDR").Return(nil, failure.Unavailable("USD", "IDR")).Once()
	store.On("FindLatest", ctx, "IDR", "USD").Return(nil, failure.Unavailable("IDR", "USD")).Once()

	rate, err := resolver.Resolve(ctx, "USD", "IDR")

	assert.True(t, rate.IsZero())
	assert.True(t, failure.IsUnavailable(err))
	store.AssertExpectations(t)
}

func TestResolveStoreErrorFallsThroughToInverse(t *testing.T) {
	store := new(mocks.MockRateStore)
	resolver := NewRateResolver(store, logger.NewNopLogger(), nil)
	ctx := context.Background()

	store.On("FindLatest", ctx, "EUR", "USD").Return(nil, errors.New("read timeout")).Once()
	store.On("FindLatest", ctx, "USD", "EUR").Return(storedRate("USD", "EUR", "0.5"), nil).Once()

	rate, err := resolver.Resolve(ctx, "EUR", "USD")

	require.NoError(t, err)
	assert.Equal(t, "2", rate.String())
}

func TestResolveReturnsStoreErrorWhenBothFail(t *testing.T) {
	store := new(mocks.MockRateStore)
	resolver := NewRateResolver(store, logger.NewNopLogger(), nil)
	ctx := context.Background()

	storeErr := errors.New("read timeout")
	store.On("FindLatest", ctx, "EUR", "USD").Return(nil, storeErr).Once()
	store.On("FindLatest", ctx, "USD", "EUR").Return(nil, failure.Unavailable("USD", "EUR")).Once()

	_, err := resolver.Resolve(ctx, "EUR", "USD")

	assert.ErrorIs(t, err, storeErr)
	assert.False(t, failure.IsUnavailable(err))
}

func TestResolveInvalidCode(t *testing.T) {
	store := new(mocks.MockRateStore)
	resolver := NewRateResolver(store, logger.NewNopLogger(), nil)

	_, err := resolver.Resolve(context.Background(), "USD", "EURO")

	assert.True(t, errors.Is(err, failure.ErrInvalidCurrencyCode))
	store.AssertNotCalled(t, "FindLatest", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolveRecentISOCodes(t *testing.T) {
	store := new(mocks.MockRateStore)
	resolver := NewRateResolver(store, logger.NewNopLogger(), nil)
	ctx := context.Background()

	store.On("FindLatest", ctx, "USD", "MRU").Return(storedRate("USD", "MRU", "39.7"), nil).Once()

	rate, err := resolver.Resolve(ctx, "usd", "mru")
	require.NoError(t, err)
	assert.Equal(t, "39.7", rate.String())

	rate, err = resolver.Resolve(ctx, "SLE", "sle")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(1)))

	store.AssertExpectations(t)
}

func TestStoredRates(t *testing.T) {
	store := new(mocks.MockRateStore)
	resolver := NewRateResolver(store, logger.NewNopLogger(), nil)
	ctx := context.Background()

	rows := []entity.ExchangeRate{*storedRate("USD", "EUR", "0.92"), *storedRate("USD", "JPY", "151.37")}
	store.On("ListRates", ctx, "USD").Return(rows, nil).Once()
	store.On("ListRates", ctx, "GBP").Return(nil, nil).Once()
	store.On("ListRates", ctx, "CHF").Return(nil, errors.New("store offline")).Once()

	got, err := resolver.StoredRates(ctx, "usd")
	require.NoError(t, err)
	assert.Equal(t, rows, got)

	got, err = resolver.StoredRates(ctx, "GBP")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	_, err = resolver.StoredRates(ctx, "CHF")
	assert.ErrorContains(t, err, "store offline")

	_, err = resolver.StoredRates(ctx, "EURO")
	assert.ErrorIs(t, err, failure.ErrInvalidCurrencyCode)

	store.AssertExpectations(t)
}
