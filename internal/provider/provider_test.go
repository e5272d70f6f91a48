package provider

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/dgquant/bar"
	"github.com/vadiminshakov/dgquant/coordinator"
	"github.com/vadiminshakov/dgquant/dgtime"
	"github.com/vadiminshakov/dgquant/indicator"
	"github.com/vadiminshakov/dgquant/marketstate"
	"github.com/vadiminshakov/dgquant/pattern"
)

func uptrendSeries(t *testing.T, n int, hourStep time.Duration) bar.Series {
	t.Helper()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make(bar.Series, 0, n)
	prevClose := decimal.NewFromFloat(99)
	for i := 0; i < n; i++ {
		closeVal := decimal.NewFromFloat(100 + float64(i))
		open := prevClose
		high := closeVal.Add(decimal.NewFromFloat(0.5))
		low := closeVal.Sub(decimal.NewFromFloat(0.5))
		if open.LessThan(low) {
			low = open
		}
		if open.GreaterThan(high) {
			high = open
		}
		b, err := bar.New(base.Add(time.Duration(i)*hourStep), open, high, low, closeVal, decimal.NewFromInt(1000))
		require.NoError(t, err)
		out = append(out, b)
		prevClose = closeVal
	}
	return out
}

func TestProviderNoLookAheadAcrossAnchors(t *testing.T) {
	htf := uptrendSeries(t, 30, 4*time.Hour)
	trading := uptrendSeries(t, 30, time.Hour)

	series := map[string]SymbolSeries{
		"BTCUSDT": {
			HTF:             htf,
			HTFInterval:     dgtime.Interval4h,
			Trading:         trading,
			TradingInterval: dgtime.Interval1h,
		},
	}
	cfg := Config{
		Coordinator: coordinator.DefaultConfig(),
		Envelope:    indicator.DefaultConfig(),
		MarketState: marketstate.DefaultConfig(),
		Pattern:     pattern.DefaultConfig(),
	}

	p, err := New(series, cfg)
	require.NoError(t, err)

	// 16h is the first anchor with five 4h HTF bars at or before it, the
	// minimum a 3-period envelope needs.
	earlyAnchor := trading[16].Timestamp
	analysisEarly, err := p.ProvideAnalysis("BTCUSDT", earlyAnchor)
	require.NoError(t, err)
	assert.Equal(t, earlyAnchor, analysisEarly.Timestamp)

	lateAnchor := trading[20].Timestamp
	analysisLate, err := p.ProvideAnalysis("BTCUSDT", lateAnchor)
	require.NoError(t, err)
	assert.Equal(t, lateAnchor, analysisLate.Timestamp)
}

func TestProviderMissingSymbolErrors(t *testing.T) {
	p, err := New(map[string]SymbolSeries{}, Config{Coordinator: coordinator.DefaultConfig()})
	require.NoError(t, err)
	_, err = p.ProvideAnalysis("NOPE", time.Now())
	require.Error(t, err)
}
