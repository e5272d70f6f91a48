package signal

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
	"github.com/vadiminshakov/dgquant/pattern"
)

func buildTradingTimeframe(t *testing.T) coordinator.TimeframeData {
	t.Helper()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make(bar.Series, 0, 30)
	prevClose := decimal.NewFromFloat(99)
	for i := 0; i < 30; i++ {
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

	return coordinator.TimeframeData{
		Timeframe:      dgtime.Interval1h,
		Classification: coordinator.ClassificationTrading,
		Bars:           bars,
		Pldot:          pldot,
		Envelopes:      env,
	}
}

func TestGenerateWaitEmitsNothing(t *testing.T) {
	trading := buildTradingTimeframe(t)
	analysis := &coordinator.MultiTimeframeAnalysis{RecommendedAction: coordinator.ActionWait}

	sig, err := Generate("BTCUSDT", analysis, trading, OpenSideNone, DefaultConfig())
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestGenerateLongProducesValidGeometry(t *testing.T) {
	trading := buildTradingTimeframe(t)
	analysis := &coordinator.MultiTimeframeAnalysis{
		RecommendedAction: coordinator.ActionLong,
		SignalStrength:    0.75,
	}

	sig, err := Generate("BTCUSDT", analysis, trading, OpenSideNone, DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, TypeLong, sig.Type)
	assert.True(t, sig.StopLoss.LessThan(sig.EntryPrice))
	assert.True(t, sig.TakeProfit.GreaterThan(sig.EntryPrice))
	assert.Equal(t, 0.75, sig.Confidence)
}

func TestGenerateLongPopulatesPatternKindsFromTrading(t *testing.T) {
	trading := buildTradingTimeframe(t)
	latest := trading.Bars[len(trading.Bars)-1]
	overlapping := pattern.Event{Kind: pattern.KindPLdotPush, StartTS: trading.Bars[len(trading.Bars)-3].Timestamp, EndTS: latest.Timestamp}
	stale := pattern.Event{Kind: pattern.KindCWave, StartTS: trading.Bars[0].Timestamp, EndTS: trading.Bars[1].Timestamp}
	trading.Patterns = []pattern.Event{overlapping, stale}

	analysis := &coordinator.MultiTimeframeAnalysis{
		RecommendedAction: coordinator.ActionLong,
		SignalStrength:    0.75,
	}

	sig, err := Generate("BTCUSDT", analysis, trading, OpenSideNone, DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, []string{string(pattern.KindPLdotPush)}, sig.Metadata.PatternKinds)
}

func TestGenerateReduceWithNoOpenSideYieldsNothing(t *testing.T) {
	trading := buildTradingTimeframe(t)
	analysis := &coordinator.MultiTimeframeAnalysis{RecommendedAction: coordinator.ActionReduce}

	sig, err := Generate("BTCUSDT", analysis, trading, OpenSideNone, DefaultConfig())
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestGenerateReduceExitsHeldSide(t *testing.T) {
	trading := buildTradingTimeframe(t)
	analysis := &coordinator.MultiTimeframeAnalysis{RecommendedAction: coordinator.ActionReduce, Timestamp: time.Now()}

	sig, err := Generate("BTCUSDT", analysis, trading, OpenSideLong, DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, TypeExitLong, sig.Type)
}
