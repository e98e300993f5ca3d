package service

import (
	"context"
	"fmt"
	"time"

	"github.com/damon-houk/fintrack/internal/domain/entity"
	"github.com/damon-houk/fintrack/internal/domain/repository"
	"github.com/damon-houk/fintrack/internal/infrastructure/logger"
	"github.com/damon-houk/fintrack/internal/infrastructure/middleware"
)

// WatchlistService evaluates one user's budgets for a calendar month
type WatchlistService struct {
	categories   repository.CategoryReader
	transactions repository.TransactionReader
	evaluator    *BudgetEvaluator
	logger       logger.Logger
}

// NewWatchlistService creates a new watchlist service
func NewWatchlistService(categories repository.CategoryReader, transactions repository.TransactionReader, log logger.Logger) *WatchlistService {
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &WatchlistService{
		categories:   categories,
		transactions: transactions,
		evaluator:    NewBudgetEvaluator(),
		logger:       log,
	}
}

// Watchlist returns the budget statuses of the month containing month
func (s *WatchlistService) Watchlist(ctx context.Context, userID string, month time.Time) ([]entity.BudgetStatus, error) {
	requestID := middleware.GetRequestID(ctx)
	start, end := MonthWindow(month)

	categories, err := s.categories.FindCategories(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to read categories", map[string]interface{}{
			"request_id": requestID,
			"user_id":    userID,
			"error":      err.Error(),
		})
		return nil, fmt.Errorf("failed to read categories: %w", err)
	}

	transactions, err := s.transactions.FindTransactions(ctx, userID, start, end)
	if err != nil {
		s.logger.Error("Failed to read transactions", map[string]interface{}{
			"request_id": requestID,
			"user_id":    userID,
			"error":      err.Error(),
		})
		return nil, fmt.Errorf("failed to read transactions: %w", err)
	}

	watchlist := s.evaluator.Evaluate(categories, transactions, start, end)

	s.logger.Debug("Evaluated budget watchlist", map[string]interface{}{
		"request_id":   requestID,
		"user_id":      userID,
		"month":        start.Format("2006-01"),
		"categories":   len(categories),
		"transactions": len(transactions),
		"flagged":      len(watchlist),
	})

	return watchlist, nil
}
