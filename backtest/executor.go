package backtest

import (
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/dgquant/bar"
)

// PendingOrder is an entry order queued at timestep t for execution at
// t+1's open (spec.md §4.7.2 steps 1 and 8).
type PendingOrder struct {
	Symbol     string
	Side       Side
	Quantity   decimal.Decimal
	StopLoss   decimal.Decimal
	TakeProfit decimal.Decimal
	Confidence float64
}

// slippageFactor converts SlippageBps into a decimal multiplier applied
// against the order's adverse direction: buys fill higher, sells fill
// lower.
func slippageFactor(bps int) decimal.Decimal {
	return decimal.NewFromInt(int64(bps)).Div(decimal.NewFromInt(10000))
}

// fillPrice applies slippage to referencePrice in the adverse direction for
// side and rounds to cfg.PriceRounding.
func fillPrice(referencePrice decimal.Decimal, side Side, cfg Config) decimal.Decimal {
	factor := slippageFactor(cfg.SlippageBps)
	var price decimal.Decimal
	if side == SideShort {
		price = referencePrice.Mul(decimal.NewFromInt(1).Sub(factor))
	} else {
		price = referencePrice.Mul(decimal.NewFromInt(1).Add(factor))
	}
	return price.Round(cfg.PriceRounding)
}

// exitFillPrice applies slippage in the adverse direction for closing side
// (a long exit sells, so it fills lower; a short exit buys, so it fills
// higher).
func exitFillPrice(referencePrice decimal.Decimal, side Side, cfg Config) decimal.Decimal {
	factor := slippageFactor(cfg.SlippageBps)
	var price decimal.Decimal
	if side == SideShort {
		price = referencePrice.Mul(decimal.NewFromInt(1).Add(factor))
	} else {
		price = referencePrice.Mul(decimal.NewFromInt(1).Sub(factor))
	}
	return price.Round(cfg.PriceRounding)
}

// commission is notional * CommissionRate, rounded to price rounding.
func commission(notional decimal.Decimal, cfg Config) decimal.Decimal {
	return notional.Mul(cfg.CommissionRate).Round(cfg.PriceRounding)
}

// stopViolated reports whether a fill price has already crossed past the
// order's stop before the position could even open (spec.md §7: "stop/
// target wrong side after slippage" is a rejection, not a fatal error).
func stopViolated(side Side, fill, stop decimal.Decimal) bool {
	if stop.IsZero() {
		return false
	}
	if side == SideShort {
		return fill.GreaterThanOrEqual(stop)
	}
	return fill.LessThanOrEqual(stop)
}

// IntradayExit is the result of checking one open position's stop/target
// against a bar's high/low range (spec.md §4.7.2 step 2).
type IntradayExit struct {
	Triggered bool
	Price     decimal.Decimal
	Reason    string
}

// checkIntradayExit evaluates stop-loss and take-profit against b's
// high/low range. When both are touched within the same bar, the stop
// takes priority (the conservative assumption, since intrabar sequencing
// is unknown). A bar whose open already gapped past the stop or target
// fills at the open instead of the untouched stop/target level: a long
// stop fills at min(stop, open), a long target at max(target, open), and
// symmetrically for shorts.
func checkIntradayExit(p *Position, b bar.Bar) IntradayExit {
	if p.Side == SideShort {
		stopHit := !p.StopLoss.IsZero() && b.High.GreaterThanOrEqual(p.StopLoss)
		targetHit := !p.TakeProfit.IsZero() && b.Low.LessThanOrEqual(p.TakeProfit)
		switch {
		case stopHit:
			return IntradayExit{Triggered: true, Price: maxDecimal(p.StopLoss, b.Open), Reason: "stop_loss"}
		case targetHit:
			return IntradayExit{Triggered: true, Price: minDecimal(p.TakeProfit, b.Open), Reason: "take_profit"}
		}
		return IntradayExit{}
	}

	stopHit := !p.StopLoss.IsZero() && b.Low.LessThanOrEqual(p.StopLoss)
	targetHit := !p.TakeProfit.IsZero() && b.High.GreaterThanOrEqual(p.TakeProfit)
	switch {
	case stopHit:
		return IntradayExit{Triggered: true, Price: minDecimal(p.StopLoss, b.Open), Reason: "stop_loss"}
	case targetHit:
		return IntradayExit{Triggered: true, Price: maxDecimal(p.TakeProfit, b.Open), Reason: "take_profit"}
	}
	return IntradayExit{}
}

func maxDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

func minDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}
