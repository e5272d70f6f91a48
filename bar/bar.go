// Package bar defines the OHLCV candlestick, the one input entity the
// indicator engine and backtester treat as read-only and externally owned.
package bar

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/dgquant/decimalx"
	"github.com/vadiminshakov/dgquant/dgtime"
)

// Bar is one OHLCV candlestick. Immutable once constructed via New.
type Bar struct {
	Timestamp time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
}

// New validates and constructs a Bar. It is the only way to obtain a Bar,
// guaranteeing the low <= min(open,close) <= max(open,close) <= high and
// volume >= 0 invariants from spec.md §3 hold for every instance in the
// system — a synthesized Bar that violates them is an InvalidConfiguration
// error, never a silently-accepted value.
func New(ts time.Time, open, high, low, close, volume decimal.Decimal) (Bar, error) {
	b := Bar{
		Timestamp: dgtime.ToUTC(ts),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    volume,
	}
	if err := b.Validate(); err != nil {
		return Bar{}, err
	}
	return b, nil
}

// Validate checks the OHLCV invariants without reconstructing the Bar.
func (b Bar) Validate() error {
	if b.Volume.LessThan(decimal.Zero) {
		return errors.Errorf("bar %s: volume must be >= 0, got %s", b.Timestamp, b.Volume)
	}

	lowerBody := decimalx.MinDecimal(b.Open, b.Close)
	upperBody := decimalx.MaxDecimal(b.Open, b.Close)

	if b.Low.GreaterThan(lowerBody) {
		return errors.Errorf("bar %s: low %s must be <= min(open,close) %s", b.Timestamp, b.Low, lowerBody)
	}
	if lowerBody.GreaterThan(upperBody) {
		return errors.Errorf("bar %s: min(open,close) %s must be <= max(open,close) %s", b.Timestamp, lowerBody, upperBody)
	}
	if upperBody.GreaterThan(b.High) {
		return errors.Errorf("bar %s: max(open,close) %s must be <= high %s", b.Timestamp, upperBody, b.High)
	}

	return nil
}

// Series is an ordered, duplicate-free sequence of Bars for one symbol and
// timeframe. Callers (the bar loader of spec.md §6) guarantee strictly
// ascending timestamps; the core never reorders or deduplicates.
type Series []Bar

// Closes extracts the close prices, preserving order.
func (s Series) Closes() []decimal.Decimal {
	out := make([]decimal.Decimal, len(s))
	for i, b := range s {
		out[i] = b.Close
	}
	return out
}

// Validate checks every bar and strictly ascending ordering.
func (s Series) Validate() error {
	for i, b := range s {
		if err := b.Validate(); err != nil {
			return err
		}
		if i > 0 && !s[i].Timestamp.After(s[i-1].Timestamp) {
			return errors.Errorf("bar series not strictly ascending at index %d (%s <= %s)", i, s[i].Timestamp, s[i-1].Timestamp)
		}
	}
	return nil
}
