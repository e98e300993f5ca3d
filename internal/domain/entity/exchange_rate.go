package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeRate is "1 Base = Rate Target" as of AsOfDate
type ExchangeRate struct {
	Base     string          `json:"base_currency"`
	Target   string          `json:"target_currency"`
	Rate     decimal.Decimal `json:"rate"`
	AsOfDate time.Time       `json:"as_of_date"`
}

// Pair returns the "BASE/TARGET" label of the rate
func (r *ExchangeRate) Pair() string {
	return r.Base + "/" + r.Target
}

// RateTable is one upstream response: every target rate for a single base currency
type RateTable struct {
	Base  string
	Rates map[string]decimal.Decimal
	AsOf  time.Time
}

// RefreshResult reports the per-target outcome of a refresh
type RefreshResult struct {
	Base     string           `json:"base"`
	AsOf     time.Time        `json:"as_of"`
	Upserted []string         `json:"upserted"`
	Skipped  []string         `json:"skipped,omitempty"`
	Failed   map[string]error `json:"-"`
}
