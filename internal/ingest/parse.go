package ingest

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	// Provider timestamps carry zone names like US/Eastern; embed the
	// database so they resolve in minimal containers.
	_ "time/tzdata"

	"stockpipeline/internal/fetcher"
	"stockpipeline/internal/store"
)

// EntryError describes a time series entry that could not be parsed.
type EntryError struct {
	Timestamp string
	Err       error
}

// Error implements the error interface
func (e *EntryError) Error() string {
	return fmt.Sprintf("entry %q: %v", e.Timestamp, e.Err)
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *EntryError) Unwrap() error {
	return e.Err
}

// Location resolves a provider time zone name, falling back to UTC when the
// name is empty or unknown.
func Location(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ParseTimeSeries converts a raw series into quotes ordered by timestamp.
// Entries that fail to parse are returned separately and never abort the
// batch.
func ParseTimeSeries(symbol string, series map[string]map[string]string, loc *time.Location) ([]store.Quote, []*EntryError) {
	if loc == nil {
		loc = time.UTC
	}

	keys := make([]string, 0, len(series))
	for k := range series {
		keys = append(keys, k)
	}
	// The key layout sorts lexically in chronological order.
	sort.Strings(keys)

	quotes := make([]store.Quote, 0, len(keys))
	var bad []*EntryError

	for _, key := range keys {
		q, err := parseEntry(symbol, key, series[key], loc)
		if err != nil {
			bad = append(bad, &EntryError{Timestamp: key, Err: err})
			continue
		}
		quotes = append(quotes, q)
	}

	return quotes, bad
}

func parseEntry(symbol, key string, entry map[string]string, loc *time.Location) (store.Quote, error) {
	ts, err := time.ParseInLocation(fetcher.TimestampLayout, key, loc)
	if err != nil {
		return store.Quote{}, fmt.Errorf("invalid timestamp: %w", err)
	}

	q := store.Quote{Symbol: symbol, Timestamp: ts}

	prices := []struct {
		field string
		dst   *float64
	}{
		{fetcher.FieldOpen, &q.Open},
		{fetcher.FieldHigh, &q.High},
		{fetcher.FieldLow, &q.Low},
		{fetcher.FieldClose, &q.Close},
	}
	for _, p := range prices {
		raw, ok := entry[p.field]
		if !ok {
			return store.Quote{}, fmt.Errorf("missing field %q", p.field)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return store.Quote{}, fmt.Errorf("field %q: %w", p.field, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return store.Quote{}, fmt.Errorf("field %q: non-finite value %q", p.field, raw)
		}
		*p.dst = v
	}

	raw, ok := entry[fetcher.FieldVolume]
	if !ok {
		return store.Quote{}, fmt.Errorf("missing field %q", fetcher.FieldVolume)
	}
	volume, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return store.Quote{}, fmt.Errorf("field %q: %w", fetcher.FieldVolume, err)
	}
	if volume < 0 {
		return store.Quote{}, fmt.Errorf("field %q: negative volume %d", fetcher.FieldVolume, volume)
	}
	q.Volume = volume

	return q, nil
}
