package coordinator

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/dgquant/bar"
	"github.com/vadiminshakov/dgquant/dgtime"
	"github.com/vadiminshakov/dgquant/indicator"
	"github.com/vadiminshakov/dgquant/marketstate"
	"github.com/vadiminshakov/dgquant/pattern"
)

func buildUptrendTimeframe(t *testing.T, interval dgtime.Interval, class Classification, n int) TimeframeData {
	t.Helper()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make(bar.Series, 0, n)
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
		b, err := bar.New(base.Add(time.Duration(i)*time.Hour), open, high, low, closeVal, decimal.NewFromInt(1000))
		require.NoError(t, err)
		bars = append(bars, b)
		prevClose = closeVal
	}

	pldot, err := indicator.ComputePLdot(bars)
	require.NoError(t, err)
	env, err := indicator.ComputeEnvelope(bars, pldot, indicator.DefaultConfig())
	require.NoError(t, err)
	states, err := marketstate.Compute(bars, pldot, marketstate.DefaultConfig())
	require.NoError(t, err)
	patterns := pattern.DetectAll(bars, pldot, env, pattern.DefaultConfig())

	return TimeframeData{
		Timeframe:      interval,
		Classification: class,
		Bars:           bars,
		Pldot:          pldot,
		Envelopes:      env,
		States:         states,
		Patterns:       patterns,
	}
}

func TestAnalyzePerfectAlignmentLong(t *testing.T) {
	htf := buildUptrendTimeframe(t, dgtime.Interval4h, ClassificationHigher, 25)
	trading := buildUptrendTimeframe(t, dgtime.Interval1h, ClassificationTrading, 25)

	c, err := New(DefaultConfig())
	require.NoError(t, err)

	analysis, err := c.Analyze("BTCUSDT", htf, trading, nil)
	require.NoError(t, err)

	assert.Equal(t, marketstate.DirectionUp, analysis.HTFTrend)
	assert.True(t, analysis.SignalStrength >= 0 && analysis.SignalStrength <= 1)
	if analysis.Alignment.TradePermitted && analysis.SignalStrength >= 0.5 {
		assert.Equal(t, ActionLong, analysis.RecommendedAction)
	}
}

func TestAnalyzeDivergentYieldsWait(t *testing.T) {
	htf := buildUptrendTimeframe(t, dgtime.Interval4h, ClassificationHigher, 25)

	// build a trading timeframe with a downtrend
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make(bar.Series, 0, 25)
	prevClose := decimal.NewFromFloat(121)
	for i := 0; i < 25; i++ {
		closeVal := decimal.NewFromFloat(120 - float64(i))
		open := prevClose
		high := open.Add(decimal.NewFromFloat(0.5))
		low := closeVal.Sub(decimal.NewFromFloat(0.5))
		b, err := bar.New(base.Add(time.Duration(i)*time.Hour), open, high, low, closeVal, decimal.NewFromInt(1000))
		require.NoError(t, err)
		bars = append(bars, b)
		prevClose = closeVal
	}
	pldot, err := indicator.ComputePLdot(bars)
	require.NoError(t, err)
	env, err := indicator.ComputeEnvelope(bars, pldot, indicator.DefaultConfig())
	require.NoError(t, err)
	states, err := marketstate.Compute(bars, pldot, marketstate.DefaultConfig())
	require.NoError(t, err)

	trading := TimeframeData{
		Timeframe:      dgtime.Interval1h,
		Classification: ClassificationTrading,
		Bars:           bars,
		Pldot:          pldot,
		Envelopes:      env,
		States:         states,
	}

	c, err := New(DefaultConfig())
	require.NoError(t, err)
	analysis, err := c.Analyze("BTCUSDT", htf, trading, nil)
	require.NoError(t, err)

	assert.False(t, analysis.Alignment.TradePermitted)
	assert.Equal(t, ActionWait, analysis.RecommendedAction)
}

func TestConfigValidation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinZoneStrength = 1
	_, err := New(cfg)
	require.Error(t, err)
}

func TestClusterConfluenceZonesRequiresMultipleTimeframes(t *testing.T) {
	htf := buildUptrendTimeframe(t, dgtime.Interval4h, ClassificationHigher, 25)
	trading := buildUptrendTimeframe(t, dgtime.Interval1h, ClassificationTrading, 25)

	zones := clusterConfluenceZones([]TimeframeData{htf, trading}, DefaultConfig(), decimal.NewFromFloat(130))
	for _, z := range zones {
		assert.GreaterOrEqual(t, z.Strength, 2)
		assert.True(t, z.Lower.LessThanOrEqual(z.Upper))
	}
}
