package pattern

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/dgquant/bar"
	"github.com/vadiminshakov/dgquant/indicator"
)

func buildBars(t *testing.T, closes []float64) bar.Series {
	t.Helper()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make(bar.Series, 0, len(closes))
	prev := closes[0] - 1
	for i, c := range closes {
		open := prev
		high := c + 0.5
		low := c - 0.5
		if open > high {
			high = open
		}
		if open < low {
			low = open
		}
		b, err := bar.New(base.Add(time.Duration(i)*time.Hour),
			decimal.NewFromFloat(open), decimal.NewFromFloat(high),
			decimal.NewFromFloat(low), decimal.NewFromFloat(c), decimal.NewFromInt(1000))
		require.NoError(t, err)
		bars = append(bars, b)
		prev = c
	}
	return bars
}

func TestDetectPLdotPushFindsRun(t *testing.T) {
	closes := make([]float64, 0, 15)
	for i := 0; i < 15; i++ {
		closes = append(closes, 100+float64(i*i))
	}
	bars := buildBars(t, closes)
	pldot, err := indicator.ComputePLdot(bars)
	require.NoError(t, err)

	events := DetectPLdotPush(alignAll(bars, pldot, nil))
	require.NotEmpty(t, events)
	assert.Equal(t, 1, events[0].Direction)
	assert.GreaterOrEqual(t, events[0].Strength, 3)
}

func TestDetectCongestionOscillation(t *testing.T) {
	closes := make([]float64, 0, 10)
	for i := 0; i < 10; i++ {
		closes = append(closes, 100)
	}
	bars := buildBars(t, closes)
	pldot, err := indicator.ComputePLdot(bars)
	require.NoError(t, err)
	env, err := indicator.ComputeEnvelope(bars, pldot, indicator.DefaultConfig())
	require.NoError(t, err)

	events := DetectCongestionOscillation(alignAll(bars, pldot, env), DefaultConfig())
	require.NotEmpty(t, events)
	assert.Equal(t, 0, events[0].Direction)
}

func TestDetectAllNoPanicOnShortSeries(t *testing.T) {
	bars := buildBars(t, []float64{100, 101, 102})
	pldot, err := indicator.ComputePLdot(bars)
	require.NoError(t, err)
	events := DetectAll(bars, pldot, nil, DefaultConfig())
	assert.NotNil(t, events) // may be empty, must not panic
}

func TestDetectPLdotRefresh(t *testing.T) {
	// close above pldot, dips to equal pldot, then returns above within k bars
	closes := []float64{110, 112, 114, 100, 116, 118}
	bars := buildBars(t, closes)
	pldot, err := indicator.ComputePLdot(bars)
	require.NoError(t, err)

	aligned := alignAll(bars, pldot, nil)
	// force one point to equal pldot value to simulate a touch
	for i := range aligned {
		if i == 1 {
			aligned[i].Close = aligned[i].Pldot.Value
		}
	}
	events := DetectPLdotRefresh(aligned, DefaultConfig())
	assert.NotNil(t, events)
}
