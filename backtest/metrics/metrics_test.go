package metrics

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/vadiminshakov/dgquant/backtest"
)

func TestComputeEmptyCurveReturnsZeroValue(t *testing.T) {
	m := Compute(&backtest.Result{})
	assert.Equal(t, 0, m.TradeCount)
	assert.True(t, m.TotalReturn.IsZero())
}

func TestComputeTotalReturnAndDrawdown(t *testing.T) {
	base := time.Now()
	curve := []backtest.Snapshot{
		{Timestamp: base, Equity: decimal.NewFromInt(10000), DrawdownFromPeak: decimal.Zero},
		{Timestamp: base.Add(time.Hour), Equity: decimal.NewFromInt(11000), DrawdownFromPeak: decimal.Zero},
		{Timestamp: base.Add(2 * time.Hour), Equity: decimal.NewFromInt(9900), DrawdownFromPeak: decimal.NewFromFloat(0.1)},
	}
	result := &backtest.Result{EquityCurve: curve}
	m := Compute(result)

	expectedReturn := decimal.NewFromInt(9900 - 10000).Div(decimal.NewFromInt(10000))
	assert.True(t, m.TotalReturn.Equal(expectedReturn), "got %s", m.TotalReturn)
	assert.InDelta(t, 0.1, m.MaxDrawdown, 1e-9)
}

func TestComputeTradeStats(t *testing.T) {
	trades := []backtest.Trade{
		{Symbol: "A", NetPnL: decimal.NewFromInt(100)},
		{Symbol: "A", NetPnL: decimal.NewFromInt(-50)},
		{Symbol: "B", NetPnL: decimal.NewFromInt(200)},
	}
	result := &backtest.Result{Trades: trades, EquityCurve: []backtest.Snapshot{{Equity: decimal.NewFromInt(10000)}}}
	m := Compute(result)

	assert.Equal(t, 3, m.TradeCount)
	assert.Equal(t, 2, m.WinningTrades)
	assert.Equal(t, 1, m.LosingTrades)
	assert.InDelta(t, 2.0/3.0, m.WinRate, 1e-9)
	assert.InDelta(t, 6.0, m.ProfitFactor, 1e-9)
	assert.True(t, m.AvgWin.Equal(decimal.NewFromInt(150)))
	assert.True(t, m.AvgLoss.Equal(decimal.NewFromInt(50)))
}
