package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"stockpipeline/internal/fetcher"
	"stockpipeline/internal/store"
)

// MockFetcher is a mock implementation of the Fetcher interface for testing
type MockFetcher struct {
	FetchFunc func(ctx context.Context, symbol string) (*fetcher.Payload, error)

	mu    sync.Mutex
	calls map[string]int
}

// FetchQuotes implements the Fetcher interface
func (m *MockFetcher) FetchQuotes(ctx context.Context, symbol string) (*fetcher.Payload, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[symbol]++
	m.mu.Unlock()

	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, symbol)
	}
	return &fetcher.Payload{TimeSeries: map[string]map[string]string{}}, nil
}

// Calls returns how many times symbol was fetched
func (m *MockFetcher) Calls(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[symbol]
}

// NewMockFetcher creates a simple mock fetcher returning the same payload and
// error for every symbol
func NewMockFetcher(payload *fetcher.Payload, err error) *MockFetcher {
	return &MockFetcher{
		FetchFunc: func(ctx context.Context, symbol string) (*fetcher.Payload, error) {
			return payload, err
		},
	}
}

// Entry builds one labeled time series entry
func Entry(open, high, low, closePrice, volume string) map[string]string {
	return map[string]string{
		fetcher.FieldOpen:   open,
		fetcher.FieldHigh:   high,
		fetcher.FieldLow:    low,
		fetcher.FieldClose:  closePrice,
		fetcher.FieldVolume: volume,
	}
}

// Row is a stored quote with its bookkeeping columns
type Row struct {
	store.Quote
	CreatedAt time.Time
	UpdatedAt time.Time
}

type rowKey struct {
	symbol string
	unix   int64
}

// MemStore is an in-memory quote table with the same upsert semantics as
// the PostgreSQL store: rows are unique per (symbol, timestamp), a collision
// overwrites the prices and volume and advances UpdatedAt, and a failed
// batch leaves the table untouched.
type MemStore struct {
	mu      sync.Mutex
	rows    map[rowKey]Row
	last    time.Time
	calls   int
	failErr error
	failFor int
}

// NewMemStore creates an empty store
func NewMemStore() *MemStore {
	return &MemStore{rows: make(map[rowKey]Row)}
}

// FailNext makes the next n UpsertQuotes calls return err without writing
func (m *MemStore) FailNext(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failFor = n
	m.failErr = err
}

// UpsertQuotes implements the writer's store contract
func (m *MemStore) UpsertQuotes(ctx context.Context, quotes []store.Quote) (store.UpsertResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.failFor > 0 {
		m.failFor--
		return store.UpsertResult{}, m.failErr
	}
	if err := ctx.Err(); err != nil {
		return store.UpsertResult{}, err
	}

	var result store.UpsertResult
	for _, q := range quotes {
		now := m.tick()
		key := rowKey{symbol: q.Symbol, unix: q.Timestamp.Unix()}
		if row, ok := m.rows[key]; ok {
			row.Open, row.High, row.Low, row.Close, row.Volume = q.Open, q.High, q.Low, q.Close, q.Volume
			row.UpdatedAt = now
			m.rows[key] = row
			result.Updated++
			continue
		}
		m.rows[key] = Row{Quote: q, CreatedAt: now, UpdatedAt: now}
		result.Inserted++
	}
	return result, nil
}

// tick returns a strictly increasing timestamp
func (m *MemStore) tick() time.Time {
	now := time.Now()
	if !now.After(m.last) {
		now = m.last.Add(time.Nanosecond)
	}
	m.last = now
	return now
}

// Calls returns the number of UpsertQuotes calls, including failed ones
func (m *MemStore) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Len returns the number of stored rows
func (m *MemStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// Get returns the row stored for (symbol, ts)
func (m *MemStore) Get(symbol string, ts time.Time) (Row, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[rowKey{symbol: symbol, unix: ts.Unix()}]
	return row, ok
}

// Rows returns the rows for symbol ordered by timestamp
func (m *MemStore) Rows(symbol string) []Row {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Row
	for key, row := range m.rows {
		if key.symbol == symbol {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}
