package db

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/damon-houk/fintrack/internal/domain/entity"
	"github.com/damon-houk/fintrack/internal/domain/failure"
)

// BadgerLedgerRepository stores categories and transactions.
//
// Keys:
//
//	cat:<user>:<id>
//	tx:<user>:<date>:<id>
//
// where <user> is the hex-encoded user ID, so no user's prefix is a prefix of
// another's, and <date> is a fixed-width ordinal of the transaction time, so a
// date range for one user is a single forward seek.
type BadgerLedgerRepository struct {
	db *badger.DB
}

// NewBadgerLedgerRepository creates a new BadgerDB ledger repository
func NewBadgerLedgerRepository(db *badger.DB) *BadgerLedgerRepository {
	return &BadgerLedgerRepository{db: db}
}

func userSegment(userID string) string {
	return hex.EncodeToString([]byte(userID))
}

func categoryPrefix(userID string) []byte {
	return []byte("cat:" + userSegment(userID) + ":")
}

func categoryKey(userID, id string) []byte {
	return append(categoryPrefix(userID), id...)
}

func transactionPrefix(userID string) []byte {
	return []byte("tx:" + userSegment(userID) + ":")
}

// dateOrdinal flips the sign bit so pre-1970 dates sort before later ones
func dateOrdinal(t time.Time) string {
	return fmt.Sprintf("%020d", uint64(t.UnixNano())^(1<<63))
}

func transactionKey(tx *entity.Transaction) []byte {
	return []byte(string(transactionPrefix(tx.UserID)) + dateOrdinal(tx.Date) + ":" + tx.ID)
}

// StoreTransaction saves a transaction and returns its ID
func (r *BadgerLedgerRepository) StoreTransaction(ctx context.Context, tx *entity.Transaction) (string, error) {
	data, err := json.Marshal(tx)
	if err != nil {
		return "", fmt.Errorf("failed to marshal transaction: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(transactionKey(tx), data)
	})
	if err != nil {
		return "", fmt.Errorf("failed to store transaction: %w", err)
	}

	return tx.ID, nil
}

// StoreCategory saves a category and returns its ID
func (r *BadgerLedgerRepository) StoreCategory(ctx context.Context, category *entity.Category) (string, error) {
	data, err := json.Marshal(category)
	if err != nil {
		return "", fmt.Errorf("failed to marshal category: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(categoryKey(category.UserID, category.ID), data)
	})
	if err != nil {
		return "", fmt.Errorf("failed to store category: %w", err)
	}

	return category.ID, nil
}

// FindCategory retrieves one of the user's categories
func (r *BadgerLedgerRepository) FindCategory(ctx context.Context, userID, id string) (*entity.Category, error) {
	var category entity.Category

	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(categoryKey(userID, id))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &category)
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, &failure.Error{Kind: failure.KindNotFound, Op: "find_category", Err: fmt.Errorf("category not found: %s", id)}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to retrieve category: %w", err)
	}

	return &category, nil
}

// FindCategories returns all of the user's categories
func (r *BadgerLedgerRepository) FindCategories(ctx context.Context, userID string) ([]entity.Category, error) {
	var categories []entity.Category

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = categoryPrefix(userID)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var category entity.Category
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &category)
			}); err != nil {
				return err
			}
			categories = append(categories, category)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	return categories, nil
}

// FindTransactions returns the user's transactions in [start, end), oldest first
func (r *BadgerLedgerRepository) FindTransactions(ctx context.Context, userID string, start, end time.Time) ([]entity.Transaction, error) {
	if !end.After(start) {
		return nil, nil
	}

	prefix := transactionPrefix(userID)
	startKey := []byte(string(prefix) + dateOrdinal(start))
	endKey := []byte(string(prefix) + dateOrdinal(end))

	var transactions []entity.Transaction

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(startKey); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			item := it.Item()
			if bytes.Compare(item.Key(), endKey) >= 0 {
				break
			}

			var tx entity.Transaction
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &tx)
			}); err != nil {
				return err
			}
			transactions = append(transactions, tx)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan transactions: %w", err)
	}

	return transactions, nil
}
