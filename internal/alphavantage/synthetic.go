package alphavantage

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"stockpipeline/internal/fetcher"
)

const (
	// SyntheticPoints is the number of hourly entries in a synthetic payload
	SyntheticPoints = 5
	// DefaultBasePrice is used for symbols without a configured base price
	DefaultBasePrice = 100.0

	minSyntheticVolume = 100_000
	maxSyntheticVolume = 1_000_000
)

// Generator produces synthetic intraday payloads shaped exactly like the
// provider's. It is safe for concurrent use.
type Generator struct {
	basePrices  map[string]float64
	defaultBase float64
	now         func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// GeneratorOption customizes a Generator
type GeneratorOption func(*Generator)

// WithClock overrides the generator's clock
func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) {
		g.now = now
	}
}

// WithSeed makes the generated values reproducible
func WithSeed(seed1, seed2 uint64) GeneratorOption {
	return func(g *Generator) {
		g.rng = rand.New(rand.NewPCG(seed1, seed2))
	}
}

// NewGenerator creates a generator using per-symbol base prices.
// defaultBase <= 0 falls back to DefaultBasePrice.
func NewGenerator(basePrices map[string]float64, defaultBase float64, opts ...GeneratorOption) *Generator {
	if defaultBase <= 0 {
		defaultBase = DefaultBasePrice
	}

	prices := make(map[string]float64, len(basePrices))
	for symbol, price := range basePrices {
		prices[symbol] = price
	}

	g := &Generator{
		basePrices:  prices,
		defaultBase: defaultBase,
		now:         time.Now,
		rng:         rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// BasePrice returns the base price used for symbol
func (g *Generator) BasePrice(symbol string) float64 {
	if price, ok := g.basePrices[symbol]; ok && price > 0 {
		return price
	}
	return g.defaultBase
}

// Generate returns SyntheticPoints hourly entries ending at the current hour.
func (g *Generator) Generate(symbol string) *fetcher.Payload {
	now := g.now().UTC()
	current := now.Truncate(time.Hour)
	base := g.BasePrice(symbol)

	series := make(map[string]map[string]string, SyntheticPoints)

	g.mu.Lock()
	for i := 0; i < SyntheticPoints; i++ {
		ts := current.Add(-time.Duration(i) * time.Hour).Format(fetcher.TimestampLayout)

		open := base * (1 + g.uniform(-0.05, 0.05))
		high := open * (1 + g.uniform(0, 0.02))
		low := open * (1 - g.uniform(0, 0.02))
		closePrice := g.uniform(low, high)
		volume := minSyntheticVolume + g.rng.Int64N(maxSyntheticVolume-minSyntheticVolume+1)

		series[ts] = map[string]string{
			fetcher.FieldOpen:   formatPrice(open),
			fetcher.FieldHigh:   formatPrice(high),
			fetcher.FieldLow:    formatPrice(low),
			fetcher.FieldClose:  formatPrice(closePrice),
			fetcher.FieldVolume: strconv.FormatInt(volume, 10),
		}
	}
	g.mu.Unlock()

	return &fetcher.Payload{
		MetaData: map[string]string{
			"1. Information":    "Intraday (60min) open, high, low, close prices and volume",
			"2. Symbol":         symbol,
			"3. Last Refreshed": now.Format(fetcher.TimestampLayout),
			"4. Interval":       "60min",
			"5. Output Size":    "Compact",
			"6. Time Zone":      "UTC",
		},
		TimeSeries: series,
		Synthetic:  true,
	}
}

// uniform must be called with g.mu held.
func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*g.rng.Float64()
}

func formatPrice(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
