package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/damon-houk/fintrack/internal/domain/money"
	"github.com/damon-houk/fintrack/internal/infrastructure/logger"
	"github.com/damon-houk/fintrack/internal/infrastructure/metrics"
	"github.com/damon-houk/fintrack/internal/infrastructure/middleware"
)

// RateLookup resolves the rate from -> to
type RateLookup interface {
	Resolve(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// Conversion is the outcome of converting an amount
type Conversion struct {
	// Amount is in minor units of the target currency, or the input amount when
	// Converted is false
	Amount    int64           `json:"amount"`
	Converted bool            `json:"converted"`
	Rate      decimal.Decimal `json:"rate"`
}

// CurrencyConverter converts minor-unit amounts for display
type CurrencyConverter struct {
	rates   RateLookup
	logger  logger.Logger
	metrics metrics.Recorder
}

// NewCurrencyConverter creates a new currency converter
func NewCurrencyConverter(rates RateLookup, log logger.Logger, recorder metrics.Recorder) *CurrencyConverter {
	if log == nil {
		log = logger.GetDefaultLogger()
	}
	if recorder == nil {
		recorder = metrics.NoOpRecorder{}
	}

	return &CurrencyConverter{
		rates:   rates,
		logger:  log,
		metrics: recorder,
	}
}

// Convert returns round(amount * rate(from, to)) with halves rounded away from zero.
// Amounts are minor units, so the product is shifted by the difference in minor-unit
// digits before rounding: 100 USD cents at 150 JPY/USD is 150 JPY, not 15000.
// Currencies with the same number of digits convert as the plain rounded product.
// It never fails: when no rate can be resolved the amount comes back unchanged.
func (c *CurrencyConverter) Convert(ctx context.Context, amount int64, from, to string) int64 {
	return c.ConvertDetailed(ctx, amount, from, to).Amount
}

// ConvertDetailed is Convert plus whether a rate was applied
func (c *CurrencyConverter) ConvertDetailed(ctx context.Context, amount int64, from, to string) Conversion {
	rate, err := c.rates.Resolve(ctx, from, to)
	if err != nil {
		c.logger.Debug("Conversion fell back to unconverted amount", map[string]interface{}{
			"request_id": middleware.GetRequestID(ctx),
			"from":       from,
			"to":         to,
			"error":      err.Error(),
		})
		c.metrics.RecordConversion(false)
		return Conversion{Amount: amount}
	}

	product := decimal.NewFromInt(amount).Mul(rate)
	if scaled, scaleErr := money.Rescale(product, from, to); scaleErr == nil {
		product = scaled
	}
	converted := product.Round(0)

	c.metrics.RecordConversion(true)
	return Conversion{
		Amount:    converted.IntPart(),
		Converted: true,
		Rate:      rate,
	}
}
