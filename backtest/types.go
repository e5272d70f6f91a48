// Package backtest implements the deterministic, event-driven portfolio
// backtester of spec.md §4.7: the engine, executor, position manager,
// signal ranker, and performance metrics.
package backtest

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/dgquant/bar"
)

// Side is which direction a Position holds.
type Side string

const (
	SideLong  Side = "Long"
	SideShort Side = "Short"
)

// Position is an open trading position, exclusively owned and mutated by
// the PositionManager (spec.md §4.7.2's ownership rule). It is created on a
// filled entry leg and destroyed when closed into a Trade.
type Position struct {
	Symbol          string
	Side            Side
	Quantity        decimal.Decimal
	EntryPrice      decimal.Decimal
	EntryTime       time.Time
	EntryCommission decimal.Decimal
	StopLoss        decimal.Decimal
	TakeProfit      decimal.Decimal
	Confidence      float64
	Notes           string
}

// PnL returns the unrealized profit/loss at currentPrice.
func (p *Position) PnL(currentPrice decimal.Decimal) decimal.Decimal {
	if p == nil {
		return decimal.Zero
	}
	if p.Side == SideShort {
		return p.EntryPrice.Sub(currentPrice).Mul(p.Quantity)
	}
	return currentPrice.Sub(p.EntryPrice).Mul(p.Quantity)
}

// MarketValue is the reserved-notional-plus-unrealized-PnL value the
// position manager credits toward equity (spec.md §8 item 2), expressed so
// it holds identically for longs and shorts: entryNotional + PnL(current).
func (p *Position) MarketValue(currentPrice decimal.Decimal) decimal.Decimal {
	if p == nil {
		return decimal.Zero
	}
	return p.EntryPrice.Mul(p.Quantity).Add(p.PnL(currentPrice))
}

// Trade is a closed position: entry and exit legs, gross/net PnL,
// commissions, slippage, and duration.
type Trade struct {
	Symbol          string
	Side            Side
	Quantity        decimal.Decimal
	EntryPrice      decimal.Decimal
	EntryTime       time.Time
	EntryCommission decimal.Decimal
	ExitPrice       decimal.Decimal
	ExitTime        time.Time
	ExitCommission  decimal.Decimal
	ExitReason      string
	GrossPnL        decimal.Decimal
	NetPnL          decimal.Decimal
	Duration        time.Duration
}

// Snapshot is one equity-curve sample.
type Snapshot struct {
	Timestamp        time.Time
	Cash             decimal.Decimal
	PositionsValue   decimal.Decimal
	Equity           decimal.Decimal
	DrawdownFromPeak decimal.Decimal
}

// SymbolStats summarizes a single symbol's trading activity within a run.
type SymbolStats struct {
	TradeCount int
	NetPnL     decimal.Decimal
	WinCount   int
	LossCount  int
}

// Result is the BacktestResult of spec.md §3: the full trade list, equity
// curve, per-symbol stats, and the run's config fingerprint.
type Result struct {
	Trades            []Trade
	EquityCurve       []Snapshot
	PerSymbolStats    map[string]SymbolStats
	ConfigFingerprint string
	Aborted           bool
}

// Timestep is one synchronized cross-symbol bar slice: all symbols present
// share Timestamp (spec.md §4.7.2).
type Timestep struct {
	Timestamp time.Time
	Bars      map[string]bar.Bar
}
