package fetcher

import "context"

// TimeSeriesKey is the payload key holding the hourly series.
const TimeSeriesKey = "Time Series (60min)"

// TimestampLayout is the layout of the time series keys.
const TimestampLayout = "2006-01-02 15:04:05"

// Field labels used inside each time series entry.
const (
	FieldOpen   = "1. open"
	FieldHigh   = "2. high"
	FieldLow    = "3. low"
	FieldClose  = "4. close"
	FieldVolume = "5. volume"
)

// Payload mirrors the provider's intraday response.
// TimeSeries maps "YYYY-MM-DD HH:MM:SS" to the labeled OHLCV fields.
// A nil TimeSeries means the key was absent.
type Payload struct {
	MetaData   map[string]string            `json:"Meta Data,omitempty"`
	TimeSeries map[string]map[string]string `json:"Time Series (60min),omitempty"`

	// Synthetic is set when the payload was generated locally instead of
	// fetched from the provider.
	Synthetic bool `json:"-"`
}

// TimeZone returns the "6. Time Zone" meta entry, if any.
func (p *Payload) TimeZone() string {
	if p == nil || p.MetaData == nil {
		return ""
	}
	return p.MetaData["6. Time Zone"]
}

// Fetcher is the contract of a quote source.
// Implementations absorb provider failures; a non-nil error means the
// caller could not be served at all.
type Fetcher interface {
	// FetchQuotes returns the intraday payload for symbol.
	FetchQuotes(ctx context.Context, symbol string) (*Payload, error)
}
