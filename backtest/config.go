package backtest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Config is the PortfolioConfig of spec.md §4.7.1.
type Config struct {
	InitialCapital decimal.Decimal
	CommissionRate decimal.Decimal
	SlippageBps    int
	// RiskPerTrade is the fraction of equity risked on a single new
	// position's stop distance. Default 0.02.
	RiskPerTrade decimal.Decimal
	// MinSignalConfidence filters signals below this confidence from
	// admission. Default 0.5.
	MinSignalConfidence float64
	// ConfidenceScalingEnabled scales position size by signal confidence
	// on top of the risk-based base quantity. Default true.
	ConfidenceScalingEnabled bool
	// AllowShort permits Short signals to open positions. Default false.
	AllowShort bool
	// MaxConcurrentPositions caps simultaneously open positions across all
	// symbols.
	MaxConcurrentPositions int
	// PriceRounding is the number of decimal places fill prices and
	// quantities are rounded to.
	PriceRounding int32
}

// DefaultConfig returns the spec.md §4.7.1 defaults plus
// MaxConcurrentPositions 5 and PriceRounding 8, leaving the
// capital-and-market-specific fields (InitialCapital, CommissionRate,
// SlippageBps) at their zero values for the caller to set.
func DefaultConfig() Config {
	return Config{
		RiskPerTrade:             decimal.NewFromFloat(0.02),
		MinSignalConfidence:      0.5,
		ConfidenceScalingEnabled: true,
		AllowShort:               false,
		MaxConcurrentPositions:   5,
		PriceRounding:            8,
	}
}

// Validate checks the configuration is usable. A malformed config is fatal
// at startup (spec.md §7, exit code 2).
func (c Config) Validate() error {
	if c.InitialCapital.LessThanOrEqual(decimal.Zero) {
		return errors.Wrap(ErrInvalidConfiguration, "initial capital must be > 0")
	}
	if c.CommissionRate.IsNegative() {
		return errors.Wrap(ErrInvalidConfiguration, "commission rate must be >= 0")
	}
	if c.SlippageBps < 0 {
		return errors.Wrap(ErrInvalidConfiguration, "slippage bps must be >= 0")
	}
	if c.RiskPerTrade.LessThanOrEqual(decimal.Zero) || c.RiskPerTrade.GreaterThan(decimal.NewFromFloat(1.0)) {
		return errors.Wrap(ErrInvalidConfiguration, "risk per trade must be in (0, 1]")
	}
	if c.MinSignalConfidence < 0 || c.MinSignalConfidence > 1 {
		return errors.Wrap(ErrInvalidConfiguration, "min signal confidence must be in [0, 1]")
	}
	if c.MaxConcurrentPositions <= 0 {
		return errors.Wrap(ErrInvalidConfiguration, "max concurrent positions must be > 0")
	}
	if c.PriceRounding < 0 {
		return errors.Wrap(ErrInvalidConfiguration, "price rounding must be >= 0")
	}
	return nil
}

// Fingerprint is the config_fingerprint of spec.md §3's BacktestResult,
// also used as the §6 persistence-sink idempotency key: a stable hash of
// every tunable field, so two runs with identical Config (and identical
// input data) produce identical fingerprints.
func (c Config) Fingerprint() string {
	h := sha256.New()
	fmt.Fprintf(h, "initial_capital=%s|commission_rate=%s|slippage_bps=%d|risk_per_trade=%s|min_signal_confidence=%.6f|confidence_scaling_enabled=%t|allow_short=%t|max_concurrent_positions=%d|price_rounding=%d",
		c.InitialCapital.String(),
		c.CommissionRate.String(),
		c.SlippageBps,
		c.RiskPerTrade.String(),
		c.MinSignalConfidence,
		c.ConfidenceScalingEnabled,
		c.AllowShort,
		c.MaxConcurrentPositions,
		c.PriceRounding,
	)
	return hex.EncodeToString(h.Sum(nil))
}
