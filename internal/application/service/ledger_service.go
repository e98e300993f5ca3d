package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/damon-houk/fintrack/internal/domain/entity"
	"github.com/damon-houk/fintrack/internal/domain/failure"
	"github.com/damon-houk/fintrack/internal/domain/repository"
	"github.com/damon-houk/fintrack/internal/infrastructure/logger"
	"github.com/damon-houk/fintrack/internal/infrastructure/middleware"
)

// LedgerService handles business logic for categories and transactions
type LedgerService struct {
	repo   repository.LedgerRepository
	logger logger.Logger
}

// NewLedgerService creates a new ledger service
func NewLedgerService(repo repository.LedgerRepository, log logger.Logger) *LedgerService {
	if log == nil {
		log = logger.GetDefaultLogger()
	}
	return &LedgerService{repo: repo, logger: log}
}

// CreateCategory assigns an ID to category, validates and stores it
func (s *LedgerService) CreateCategory(ctx context.Context, category *entity.Category) (string, error) {
	category.ID = uuid.New().String()
	category.Name = strings.TrimSpace(category.Name)

	if err := category.Validate(); err != nil {
		return "", failure.New(failure.KindInvalidInput, "create_category", err)
	}

	id, err := s.repo.StoreCategory(ctx, category)
	if err != nil {
		return "", fmt.Errorf("failed to store category: %w", err)
	}

	s.logger.Info("Category created", map[string]interface{}{
		"request_id": middleware.GetRequestID(ctx),
		"user_id":    category.UserID,
		"id":         id,
		"budgeted":   category.Budgeted(),
	})

	return id, nil
}

// CreateTransaction assigns an ID to tx, validates it and checks that its category
// belongs to the same user before storing it
func (s *LedgerService) CreateTransaction(ctx context.Context, tx *entity.Transaction) (string, error) {
	tx.ID = uuid.New().String()

	if err := tx.Validate(); err != nil {
		return "", failure.New(failure.KindInvalidInput, "create_transaction", err)
	}

	if tx.CategoryID != nil {
		if _, err := s.repo.FindCategory(ctx, tx.UserID, *tx.CategoryID); err != nil {
			return "", fmt.Errorf("failed to resolve category: %w", err)
		}
	}

	id, err := s.repo.StoreTransaction(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("failed to store transaction: %w", err)
	}

	s.logger.Info("Transaction created", map[string]interface{}{
		"request_id": middleware.GetRequestID(ctx),
		"user_id":    tx.UserID,
		"id":         id,
		"type":       string(tx.Type),
		"date":       tx.Date.Format("2006-01-02"),
	})

	return id, nil
}

// ListCategories returns all of the user's categories
func (s *LedgerService) ListCategories(ctx context.Context, userID string) ([]entity.Category, error) {
	return s.repo.FindCategories(ctx, userID)
}

// ListTransactions returns the user's transactions in [start, end), oldest first
func (s *LedgerService) ListTransactions(ctx context.Context, userID string, start, end time.Time) ([]entity.Transaction, error) {
	return s.repo.FindTransactions(ctx, userID, start, end)
}
