package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/damon-houk/fintrack/internal/domain/entity"
	"github.com/damon-houk/fintrack/internal/domain/failure"
)

// sqliteTimeLayout is fixed width so as_of_date compares correctly as text
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

const upsertRateSQL = `
INSERT INTO exchange_rates (base_currency, target_currency, rate, as_of_date)
VALUES (?, ?, ?, ?)
ON CONFLICT (base_currency, target_currency) DO UPDATE SET
    rate = excluded.rate,
    as_of_date = excluded.as_of_date
WHERE excluded.as_of_date >= exchange_rates.as_of_date`

const latestRateSQL = `
SELECT base_currency, target_currency, rate, as_of_date
FROM exchange_rates
WHERE base_currency = ? AND target_currency = ?
ORDER BY as_of_date DESC
LIMIT 1`

const listRatesSQL = `
SELECT base_currency, target_currency, rate, as_of_date
FROM exchange_rates
WHERE base_currency = ?
ORDER BY target_currency`

// SQLiteRateStore keeps rates in the exchange_rates table
type SQLiteRateStore struct {
	db *sql.DB
}

// NewSQLiteRateStore opens (creating if needed) the database at dbPath and migrates it
func NewSQLiteRateStore(dbPath string) (*SQLiteRateStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; concurrent upserts queue on the pool instead of failing with SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRateStore{db: db}, nil
}

// Close releases the database handle
func (s *SQLiteRateStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// UpsertRate inserts or updates the pair's row in one statement
func (s *SQLiteRateStore) UpsertRate(ctx context.Context, rate *entity.ExchangeRate) error {
	_, err := s.db.ExecContext(ctx, upsertRateSQL,
		rate.Base,
		rate.Target,
		rate.Rate.String(),
		rate.AsOfDate.UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("upsert exchange rate %s: %w", rate.Pair(), err)
	}
	return nil
}

// FindLatest returns the most recent row for the exact pair
func (s *SQLiteRateStore) FindLatest(ctx context.Context, base, target string) (*entity.ExchangeRate, error) {
	rate, err := scanRate(s.db.QueryRowContext(ctx, latestRateSQL, base, target))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &failure.Error{Kind: failure.KindRateUnavailable, Op: "find_latest", Currency: base + "/" + target}
	}
	if err != nil {
		return nil, err
	}
	return rate, nil
}

// ListRates returns every stored rate for base, ordered by target
func (s *SQLiteRateStore) ListRates(ctx context.Context, base string) ([]entity.ExchangeRate, error) {
	rows, err := s.db.QueryContext(ctx, listRatesSQL, base)
	if err != nil {
		return nil, fmt.Errorf("query exchange rates: %w", err)
	}
	defer rows.Close()

	var rates []entity.ExchangeRate
	for rows.Next() {
		rate, err := scanRate(rows)
		if err != nil {
			return nil, err
		}
		rates = append(rates, *rate)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exchange rates: %w", err)
	}
	return rates, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRate(row rowScanner) (*entity.ExchangeRate, error) {
	var (
		rate    entity.ExchangeRate
		rateStr string
		asOfStr string
	)

	if err := row.Scan(&rate.Base, &rate.Target, &rateStr, &asOfStr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("query exchange rate: %w", err)
	}

	var err error
	rate.Rate, err = decimal.NewFromString(rateStr)
	if err != nil {
		return nil, fmt.Errorf("parse stored rate %q: %w", rateStr, err)
	}

	rate.AsOfDate, err = time.Parse(sqliteTimeLayout, asOfStr)
	if err != nil {
		return nil, fmt.Errorf("parse stored as_of_date %q: %w", asOfStr, err)
	}

	return &rate, nil
}
