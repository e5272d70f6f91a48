package backtest

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSizePositionConfidenceScaling(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RiskPerTrade = decimal.NewFromFloat(0.02)
	cfg.ConfidenceScalingEnabled = true

	equity := decimal.NewFromInt(100000)
	entry := decimal.NewFromInt(100)
	stop := decimal.NewFromInt(95)

	qty := sizePosition(equity, entry, stop, 0.6, cfg)
	assert.True(t, qty.Equal(decimal.NewFromInt(240)), "got %s", qty)
}

func TestSizePositionScalingDisabledUsesBaseQuantity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConfidenceScalingEnabled = false

	equity := decimal.NewFromInt(100000)
	entry := decimal.NewFromInt(100)
	stop := decimal.NewFromInt(95)

	qty := sizePosition(equity, entry, stop, 0.6, cfg)
	assert.True(t, qty.Equal(decimal.NewFromInt(400)), "got %s", qty)
}

func TestSizePositionZeroRiskReturnsZero(t *testing.T) {
	cfg := DefaultConfig()
	qty := sizePosition(decimal.NewFromInt(1000), decimal.NewFromInt(100), decimal.NewFromInt(100), 0.9, cfg)
	assert.True(t, qty.IsZero())
}
