package repository

import (
	"context"
	"time"

	"github.com/damon-houk/fintrack/internal/domain/entity"
)

// TransactionReader reads one user's transactions in [start, end), ordered by date
type TransactionReader interface {
	FindTransactions(ctx context.Context, userID string, start, end time.Time) ([]entity.Transaction, error)
}

// CategoryReader reads one user's categories
type CategoryReader interface {
	FindCategories(ctx context.Context, userID string) ([]entity.Category, error)
}

// LedgerRepository stores categories and transactions
type LedgerRepository interface {
	TransactionReader
	CategoryReader

	StoreTransaction(ctx context.Context, tx *entity.Transaction) (string, error)
	StoreCategory(ctx context.Context, category *entity.Category) (string, error)
	FindCategory(ctx context.Context, userID, id string) (*entity.Category, error)
}
