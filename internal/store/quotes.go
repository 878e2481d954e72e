package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"stockpipeline/internal/failure"
)

// Quote is one hourly OHLCV bar, unique per (Symbol, Timestamp).
type Quote struct {
	Symbol    string
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// UpsertResult counts rows created and rows overwritten by one upsert.
type UpsertResult struct {
	Inserted int
	Updated  int
}

// Total returns the number of rows written.
func (r UpsertResult) Total() int {
	return r.Inserted + r.Updated
}

// xmax is zero only for a tuple this statement inserted.
func upsertSQL(ident string) string {
	return fmt.Sprintf(`
INSERT INTO %s (symbol, timestamp, open_price, high_price, low_price, close_price, volume)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (symbol, timestamp) DO UPDATE SET
	open_price  = EXCLUDED.open_price,
	high_price  = EXCLUDED.high_price,
	low_price   = EXCLUDED.low_price,
	close_price = EXCLUDED.close_price,
	volume      = EXCLUDED.volume,
	updated_at  = clock_timestamp()
RETURNING (xmax = 0)`, ident)
}

// UpsertQuotes writes quotes in a single transaction. Either every row is
// committed or none is; on failure the transaction is rolled back and a
// retryable transaction failure is returned.
func (s *Store) UpsertQuotes(ctx context.Context, quotes []Quote) (UpsertResult, error) {
	var result UpsertResult

	err := s.inTx(ctx, func(tx pgx.Tx) error {
		query := upsertSQL(s.ident)
		for _, q := range quotes {
			var inserted bool
			err := tx.QueryRow(ctx, query,
				q.Symbol, q.Timestamp, q.Open, q.High, q.Low, q.Close, q.Volume,
			).Scan(&inserted)
			if err != nil {
				return fmt.Errorf("upsert %s at %s: %w", q.Symbol, q.Timestamp.Format(time.RFC3339), err)
			}
			if inserted {
				result.Inserted++
			} else {
				result.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return UpsertResult{}, err
	}

	return result, nil
}

// inTx runs fn inside a transaction and commits it. Any error rolls back.
func (s *Store) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return failure.Transaction(err, "begin transaction")
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return failure.Transaction(err, "transaction rolled back")
	}

	if err := tx.Commit(ctx); err != nil {
		_ = tx.Rollback(ctx)
		return failure.Transaction(err, "commit transaction")
	}

	return nil
}
