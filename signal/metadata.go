package signal

import (
	"github.com/shopspring/decimal"
)

// Metadata carries the generator's typed outputs plus an opaque extras map
// for unknown keys. This replaces the source's dictionaries of stringified
// numbers (spec.md §9 "Dynamic metadata typing"), which crashed downstream
// arithmetic whenever a value was missing or malformed.
type Metadata struct {
	StopLoss        decimal.Decimal
	TakeProfit      decimal.Decimal
	Confidence      float64
	ConfluenceCount int
	PatternKinds    []string
	ZoneIDs         []string
	// Extras holds opaque string->string data for keys the generator does
	// not itself interpret (e.g. producer-specific tags). Downstream
	// readers (the backtester's ranker) must parse these defensively:
	// missing or malformed values default to zero rather than panicking.
	Extras map[string]string
}

// Extra returns extras[key] and whether it was present.
func (m Metadata) Extra(key string) (string, bool) {
	if m.Extras == nil {
		return "", false
	}
	v, ok := m.Extras[key]
	return v, ok
}
