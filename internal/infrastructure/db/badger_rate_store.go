package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v3"

	"github.com/damon-houk/fintrack/internal/domain/entity"
	"github.com/damon-houk/fintrack/internal/domain/failure"
	"github.com/damon-houk/fintrack/internal/infrastructure/logger"
)

const rateKeyPrefix = "rate:"

// maxConflictRetries bounds retries of an upsert that lost a write conflict
const maxConflictRetries = 10

// BadgerRateStore keeps one key per currency pair
type BadgerRateStore struct {
	db     *badger.DB
	logger logger.Logger
}

// NewBadgerRateStore creates a rate store on an open BadgerDB
func NewBadgerRateStore(db *badger.DB, log logger.Logger) *BadgerRateStore {
	if log == nil {
		log = logger.GetDefaultLogger()
	}
	return &BadgerRateStore{db: db, logger: log}
}

func rateKey(base, target string) []byte {
	return []byte(rateKeyPrefix + base + ":" + target)
}

// UpsertRate writes the pair's row in a single read-write transaction. Badger
// aborts one of two racing transactions with ErrConflict; the loser is retried.
func (s *BadgerRateStore) UpsertRate(ctx context.Context, rate *entity.ExchangeRate) error {
	data, err := json.Marshal(rate)
	if err != nil {
		return fmt.Errorf("failed to marshal exchange rate: %w", err)
	}
	key := rateKey(rate.Base, rate.Target)

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err = s.db.Update(func(txn *badger.Txn) error {
			item, err := txn.Get(key)
			switch {
			case errors.Is(err, badger.ErrKeyNotFound):
			case err != nil:
				return err
			default:
				var existing entity.ExchangeRate
				if err := item.Value(func(val []byte) error {
					return json.Unmarshal(val, &existing)
				}); err != nil {
					return err
				}
				if rate.AsOfDate.Before(existing.AsOfDate) {
					s.logger.Debug("Ignoring stale exchange rate", map[string]interface{}{
						"pair":         rate.Pair(),
						"as_of":        rate.AsOfDate,
						"stored_as_of": existing.AsOfDate,
					})
					return nil
				}
			}
			return txn.Set(key, data)
		})

		if !errors.Is(err, badger.ErrConflict) || attempt >= maxConflictRetries {
			break
		}
	}

	if err != nil {
		return fmt.Errorf("failed to store exchange rate %s: %w", rate.Pair(), err)
	}
	return nil
}

// FindLatest returns the stored row for the exact pair
func (s *BadgerRateStore) FindLatest(ctx context.Context, base, target string) (*entity.ExchangeRate, error) {
	var rate entity.ExchangeRate

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(rateKey(base, target))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rate)
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, &failure.Error{Kind: failure.KindRateUnavailable, Op: "find_latest", Currency: base + "/" + target}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to retrieve exchange rate: %w", err)
	}

	return &rate, nil
}

// ListRates returns every stored rate for base, ordered by target
func (s *BadgerRateStore) ListRates(ctx context.Context, base string) ([]entity.ExchangeRate, error) {
	var rates []entity.ExchangeRate

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(rateKeyPrefix + base + ":")
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var rate entity.ExchangeRate
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rate)
			}); err != nil {
				return err
			}
			rates = append(rates, rate)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list exchange rates: %w", err)
	}

	return rates, nil
}
