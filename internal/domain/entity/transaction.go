package entity

import (
	"errors"
	"time"
)

// TransactionType is the direction of a transaction
type TransactionType string

const (
	TransactionIncome   TransactionType = "income"
	TransactionExpense  TransactionType = "expense"
	TransactionTransfer TransactionType = "transfer"
)

// Transaction is a single ledger entry. Amount is in minor units.
type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	CategoryID  *string         `json:"category_id,omitempty"`
	Amount      int64           `json:"amount"`
	Type        TransactionType `json:"type"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
}

// Validate ensures the transaction meets all requirements
func (t *Transaction) Validate() error {
	if t.UserID == "" {
		return errors.New("user id is required")
	}

	if len(t.Description) > 50 {
		return errors.New("description must not exceed 50 characters")
	}

	if t.Amount <= 0 {
		return errors.New("amount must be a positive value")
	}

	switch t.Type {
	case TransactionIncome, TransactionExpense, TransactionTransfer:
	default:
		return errors.New("type must be one of income, expense, transfer")
	}

	if t.Date.IsZero() {
		return errors.New("date is required")
	}

	return nil
}
