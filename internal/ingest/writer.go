package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"stockpipeline/internal/failure"
	"stockpipeline/internal/fetcher"
	"stockpipeline/internal/store"
)

// StatusSuccess is the status of a completed ProcessAndStore call.
const StatusSuccess = "success"

// QuoteStore persists parsed quotes.
//
//go:generate mockgen -package=ingest -destination=mock_quote_store_test.go -source=writer.go QuoteStore
//go:generate mockgen -package=ingest -destination=mock_fetcher_test.go stockpipeline/internal/fetcher Fetcher
type QuoteStore interface {
	UpsertQuotes(ctx context.Context, quotes []store.Quote) (store.UpsertResult, error)
}

// Result summarises one ProcessAndStore call.
type Result struct {
	Symbol    string
	Inserted  int
	Updated   int
	Skipped   int
	Synthetic bool
	Status    string
}

// Writer fetches a symbol's series and upserts it into the store.
type Writer struct {
	fetcher fetcher.Fetcher
	store   QuoteStore
	logger  *slog.Logger
}

// NewWriter creates a Writer
func NewWriter(f fetcher.Fetcher, s QuoteStore, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{fetcher: f, store: s, logger: logger}
}

// ProcessAndStore fetches symbol and writes every valid entry in one
// transaction. Malformed entries are logged and skipped; only a missing
// series or a store failure is an error.
func (w *Writer) ProcessAndStore(ctx context.Context, symbol string) (Result, error) {
	payload, err := w.fetcher.FetchQuotes(ctx, symbol)
	if err != nil {
		return Result{}, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	if payload == nil || payload.TimeSeries == nil {
		return Result{}, failure.DataShape("payload for %s has no %q", symbol, fetcher.TimeSeriesKey)
	}

	quotes, bad := ParseTimeSeries(symbol, payload.TimeSeries, Location(payload.TimeZone()))
	for _, e := range bad {
		w.logger.Warn("skipping malformed entry",
			"symbol", symbol,
			"timestamp", e.Timestamp,
			"error", e.Err)
	}

	result := Result{
		Symbol:    symbol,
		Skipped:   len(bad),
		Synthetic: payload.Synthetic,
		Status:    StatusSuccess,
	}

	if len(quotes) == 0 {
		w.logger.Warn("no valid entries to store", "symbol", symbol)
		return result, nil
	}

	written, err := w.store.UpsertQuotes(ctx, quotes)
	if err != nil {
		w.logger.Error("failed to store quotes", "symbol", symbol, "error", err)
		return Result{}, err
	}

	result.Inserted = written.Inserted
	result.Updated = written.Updated

	w.logger.Info("stored quotes",
		"symbol", symbol,
		"inserted", result.Inserted,
		"updated", result.Updated,
		"skipped", result.Skipped,
		"synthetic", result.Synthetic)

	return result, nil
}
