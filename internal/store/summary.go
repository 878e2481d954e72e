package store

import (
	"context"
	"fmt"
	"time"
)

// SymbolSummary describes what the table holds for one symbol.
type SymbolSummary struct {
	Symbol   string    `json:"symbol" yaml:"symbol"`
	Rows     int64     `json:"rows" yaml:"rows"`
	Latest   time.Time `json:"latest" yaml:"latest"`
	AvgClose float64   `json:"avg_close" yaml:"avg_close"`
}

func summarySQL(ident string) string {
	return fmt.Sprintf(`
SELECT symbol, COUNT(*), MAX(timestamp), COALESCE(AVG(close_price), 0)::float8
FROM %s
GROUP BY symbol
ORDER BY symbol`, ident)
}

// Summary returns per-symbol row counts, latest bar and average close.
func (s *Store) Summary(ctx context.Context) ([]SymbolSummary, error) {
	rows, err := s.db.Query(ctx, summarySQL(s.ident))
	if err != nil {
		return nil, fmt.Errorf("query summary: %w", err)
	}
	defer rows.Close()

	var out []SymbolSummary
	for rows.Next() {
		var sum SymbolSummary
		if err := rows.Scan(&sum.Symbol, &sum.Rows, &sum.Latest, &sum.AvgClose); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read summary: %w", err)
	}

	return out, nil
}
