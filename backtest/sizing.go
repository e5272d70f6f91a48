package backtest

import (
	"github.com/shopspring/decimal"
)

// sizePosition implements spec.md §4.7.2 step 7: risk_dollars = equity *
// risk_per_trade, base_quantity = floor(risk_dollars / per_unit_risk), then
// scaled by confidence when enabled. Returns zero when per-unit risk is
// zero (a degenerate stop) or the scaled quantity rounds to zero.
func sizePosition(equity, entry, stop decimal.Decimal, confidence float64, cfg Config) decimal.Decimal {
	perUnitRisk := entry.Sub(stop).Abs()
	if perUnitRisk.IsZero() {
		return decimal.Zero
	}
	riskDollars := equity.Mul(cfg.RiskPerTrade)
	baseQuantity := riskDollars.Div(perUnitRisk).Floor()

	quantity := baseQuantity
	if cfg.ConfidenceScalingEnabled {
		quantity = baseQuantity.Mul(decimal.NewFromFloat(confidence)).Round(cfg.PriceRounding)
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return quantity
}
