package backtest

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAndCloseLongNetPnL(t *testing.T) {
	pm := NewPositionManager(decimal.NewFromInt(10000), 8)
	now := time.Now()

	err := pm.OpenPosition("BTCUSDT", SideLong, decimal.NewFromInt(10), decimal.NewFromInt(100), now, decimal.NewFromFloat(1), decimal.NewFromInt(90), decimal.NewFromInt(130), 0.8)
	require.NoError(t, err)
	assert.True(t, pm.Cash().Equal(decimal.NewFromInt(10000-1000-1)))

	trade, err := pm.ClosePosition("BTCUSDT", decimal.NewFromInt(110), now.Add(time.Hour), decimal.NewFromFloat(1.1), "take_profit")
	require.NoError(t, err)
	assert.True(t, trade.GrossPnL.Equal(decimal.NewFromInt(100)))
	expectedNet := decimal.NewFromInt(100).Sub(decimal.NewFromFloat(1)).Sub(decimal.NewFromFloat(1.1))
	assert.True(t, trade.NetPnL.Equal(expectedNet), "net pnl %s expected %s", trade.NetPnL, expectedNet)
	assert.Equal(t, 0, pm.OpenCount())
}

func TestEquityInvariantHoldsAfterClose(t *testing.T) {
	pm := NewPositionManager(decimal.NewFromInt(5000), 8)
	now := time.Now()
	require.NoError(t, pm.OpenPosition("ETHUSDT", SideLong, decimal.NewFromInt(5), decimal.NewFromInt(200), now, decimal.Zero, decimal.NewFromInt(180), decimal.NewFromInt(240), 0.9))

	prices := map[string]decimal.Decimal{"ETHUSDT": decimal.NewFromInt(210)}
	equityBefore := pm.Equity(prices)
	assert.True(t, equityBefore.Equal(decimal.NewFromInt(5050)), "equity %s", equityBefore)

	_, err := pm.ClosePosition("ETHUSDT", decimal.NewFromInt(210), now.Add(time.Hour), decimal.Zero, "signal_exit")
	require.NoError(t, err)
	assert.True(t, pm.Equity(nil).Equal(equityBefore))
}

func TestOpenRejectsInsufficientCash(t *testing.T) {
	pm := NewPositionManager(decimal.NewFromInt(100), 8)
	err := pm.OpenPosition("BTCUSDT", SideLong, decimal.NewFromInt(10), decimal.NewFromInt(100), time.Now(), decimal.Zero, decimal.NewFromInt(90), decimal.NewFromInt(130), 0.8)
	require.Error(t, err)
	assert.Equal(t, 0, pm.OpenCount())
}

func TestShortPnLSign(t *testing.T) {
	p := &Position{Side: SideShort, Quantity: decimal.NewFromInt(10), EntryPrice: decimal.NewFromInt(100)}
	pnl := p.PnL(decimal.NewFromInt(90))
	assert.True(t, pnl.Equal(decimal.NewFromInt(100)), "short pnl %s", pnl)
}
