package backtest

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func baseTestConfig() Config {
	cfg := DefaultConfig()
	cfg.InitialCapital = decimal.NewFromInt(10000)
	cfg.CommissionRate = decimal.NewFromFloat(0.001)
	return cfg
}

func TestFingerprintIsDeterministicForEqualConfig(t *testing.T) {
	a := baseTestConfig()
	b := baseTestConfig()
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}

func TestFingerprintChangesWithTunableField(t *testing.T) {
	a := baseTestConfig()
	b := baseTestConfig()
	b.RiskPerTrade = a.RiskPerTrade.Add(decimal.NewFromFloat(0.01))
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}
