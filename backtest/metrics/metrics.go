// Package metrics computes PerformanceMetrics (spec.md §4.7.5) from a
// completed backtest's equity curve and trade list. Ratio statistics
// (Sharpe, Sortino) are computed via the float64 bridge used throughout
// the module for non-monetary math (spec.md §3.1); money fields stay in
// decimal.Decimal until the final ratio division.
package metrics

import (
	"math"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/dgquant/backtest"
)

// Metrics is the PerformanceMetrics record of spec.md §4.7.5.
type Metrics struct {
	TotalReturn    decimal.Decimal
	Sharpe         float64
	Sortino        float64
	MaxDrawdown    float64
	WinRate        float64
	ProfitFactor   float64
	AvgWin         decimal.Decimal
	AvgLoss        decimal.Decimal
	TradeCount     int
	WinningTrades  int
	LosingTrades   int
}

// periodsPerYear annualizes Sharpe/Sortino assuming one equity sample per
// trading day; a caller backtesting a different bar interval should treat
// these two fields as relative, not calendar-accurate, figures.
const periodsPerYear = 365.0

// Compute derives Metrics from a backtest Result. With an empty equity
// curve only TradeCount is set; with fewer than two equity samples no
// return series can be formed, so Sharpe and Sortino stay 0 while the
// return, drawdown and trade statistics are still computed.
func Compute(result *backtest.Result) Metrics {
	var m Metrics
	m.TradeCount = len(result.Trades)

	if len(result.EquityCurve) == 0 {
		return m
	}
	first := result.EquityCurve[0].Equity
	last := result.EquityCurve[len(result.EquityCurve)-1].Equity
	if !first.IsZero() {
		m.TotalReturn = last.Sub(first).Div(first)
	}

	m.MaxDrawdown = maxDrawdown(result.EquityCurve)

	returns := periodReturns(result.EquityCurve)
	m.Sharpe = sharpeRatio(returns)
	m.Sortino = sortinoRatio(returns)

	m.WinRate, m.ProfitFactor, m.AvgWin, m.AvgLoss, m.WinningTrades, m.LosingTrades = tradeStats(result.Trades)

	return m
}

func periodReturns(curve []backtest.Snapshot) []float64 {
	if len(curve) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev.IsZero() {
			continue
		}
		r, _ := curve[i].Equity.Sub(prev).Div(prev).Float64()
		returns = append(returns, r)
	}
	return returns
}

func meanStdDev(values []float64) (mean, stddev float64) {
	if len(values) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(len(values))

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}

// sharpeRatio is the annualized mean/stddev of period returns, assuming a
// zero risk-free rate (spec.md does not specify one).
func sharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean, stddev := meanStdDev(returns)
	if stddev == 0 {
		return 0
	}
	return (mean / stddev) * math.Sqrt(periodsPerYear)
}

// sortinoRatio is like sharpeRatio but normalizes by downside deviation
// only (negative returns).
func sortinoRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean, _ := meanStdDev(returns)

	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) == 0 {
		return 0
	}
	sumSq := 0.0
	for _, r := range downside {
		sumSq += r * r
	}
	downsideDev := math.Sqrt(sumSq / float64(len(returns)))
	if downsideDev == 0 {
		return 0
	}
	return (mean / downsideDev) * math.Sqrt(periodsPerYear)
}

// maxDrawdown is the largest observed DrawdownFromPeak across the curve.
func maxDrawdown(curve []backtest.Snapshot) float64 {
	max := 0.0
	for _, s := range curve {
		d, _ := s.DrawdownFromPeak.Float64()
		if d > max {
			max = d
		}
	}
	return max
}

func tradeStats(trades []backtest.Trade) (winRate, profitFactor float64, avgWin, avgLoss decimal.Decimal, wins, losses int) {
	if len(trades) == 0 {
		return 0, 0, decimal.Zero, decimal.Zero, 0, 0
	}
	grossWin := decimal.Zero
	grossLoss := decimal.Zero
	for _, t := range trades {
		switch {
		case t.NetPnL.IsPositive():
			wins++
			grossWin = grossWin.Add(t.NetPnL)
		case t.NetPnL.IsNegative():
			losses++
			grossLoss = grossLoss.Add(t.NetPnL.Abs())
		}
	}
	winRate = float64(wins) / float64(len(trades))
	if wins > 0 {
		avgWin = grossWin.Div(decimal.NewFromInt(int64(wins)))
	}
	if losses > 0 {
		avgLoss = grossLoss.Div(decimal.NewFromInt(int64(losses)))
	}
	if !grossLoss.IsZero() {
		pf, _ := grossWin.Div(grossLoss).Float64()
		profitFactor = pf
	} else if !grossWin.IsZero() {
		profitFactor = math.Inf(1)
	}
	return winRate, profitFactor, avgWin, avgLoss, wins, losses
}
