package handler

import (
	"github.com/damon-houk/fintrack/internal/domain/entity"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error       string `json:"error"`
	Status      int    `json:"status"`
	Kind        string `json:"kind,omitempty"`
	Description string `json:"description,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
}

// RefreshResponse represents the response of a rate refresh
type RefreshResponse struct {
	Base     string   `json:"base"`
	AsOf     string   `json:"as_of"`
	Upserted []string `json:"upserted"`
	Skipped  []string `json:"skipped,omitempty"`
	Failed   []string `json:"failed,omitempty"`
}

// RateListResponse lists the rates stored for one base currency
type RateListResponse struct {
	Base  string         `json:"base"`
	Rates []RateResponse `json:"rates"`
}

// RateResponse represents a resolved exchange rate
type RateResponse struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Rate     string `json:"rate"`
	Inverted bool   `json:"inverted"`
	Identity bool   `json:"identity"`
	AsOf     string `json:"as_of,omitempty"`
}

// ConversionResponse represents the response of the convert endpoint.
// Result is in minor units of To when Converted, otherwise of From.
type ConversionResponse struct {
	Amount        int64  `json:"amount"`
	From          string `json:"from"`
	To            string `json:"to"`
	Result        int64  `json:"result"`
	Converted     bool   `json:"converted"`
	Rate          string `json:"rate,omitempty"`
	Display       string `json:"display"`
	ResultDisplay string `json:"result_display"`
}

// CreateCategoryRequest represents the request body for creating a category
type CreateCategoryRequest struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	MonthlyBudget *int64 `json:"monthly_budget,omitempty"`
	Color         string `json:"color,omitempty"`
	Icon          string `json:"icon,omitempty"`
}

// CreateTransactionRequest represents the request body for creating a transaction
type CreateTransactionRequest struct {
	CategoryID  *string `json:"category_id,omitempty"`
	Amount      int64   `json:"amount"`
	Type        string  `json:"type"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
}

// CreatedResponse represents the response for the create endpoints
type CreatedResponse struct {
	ID string `json:"id"`
}

// TransactionResponse represents a ledger transaction
type TransactionResponse struct {
	ID          string  `json:"id"`
	CategoryID  *string `json:"category_id,omitempty"`
	Amount      int64   `json:"amount"`
	Type        string  `json:"type"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
}

// WatchlistResponse represents the budget watchlist of one month
type WatchlistResponse struct {
	UserID string                `json:"user_id"`
	Month  string                `json:"month"`
	Items  []entity.BudgetStatus `json:"items"`
}
