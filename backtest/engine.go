package backtest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/dgquant/coordinator"
	"github.com/vadiminshakov/dgquant/signal"
)

// AnalysisProvider supplies the precomputed MultiTimeframeAnalysis for a
// symbol anchored at a timestamp (spec.md §6's "Multi-timeframe provider").
// Implementations are free to cache HTF series; the engine never
// recomputes indicator stacks itself.
type AnalysisProvider interface {
	ProvideAnalysis(symbol string, anchor time.Time) (*coordinator.MultiTimeframeAnalysis, error)
}

// SignalGenerator turns one symbol's analysis into at most one Signal
// (spec.md §4.6). The engine supplies the OpenSide so Reduce recommendations
// resolve to the correct exit.
type SignalGenerator interface {
	Generate(symbol string, analysis *coordinator.MultiTimeframeAnalysis, openSide signal.OpenSide) (*signal.Signal, error)
}

// Engine runs the deterministic event loop of spec.md §4.7.2 over a stream
// of Timesteps. Grounded on the source's CSV-driven trade-simulation loop
// (historytest/historytestmocks.go), generalized to multi-symbol admission
// control and ranking.
type Engine struct {
	cfg       Config
	provider  AnalysisProvider
	generator SignalGenerator
	pm        *PositionManager
	logger    *zap.Logger

	pending    map[string]PendingOrder
	equity     []Snapshot
	peakEquity decimal.Decimal
}

// NewEngine validates cfg and constructs an Engine with a fresh
// PositionManager seeded at cfg.InitialCapital.
func NewEngine(cfg Config, provider AnalysisProvider, generator SignalGenerator, logger *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:        cfg,
		provider:   provider,
		generator:  generator,
		pm:         NewPositionManager(cfg.InitialCapital, cfg.PriceRounding),
		logger:     logger,
		pending:    make(map[string]PendingOrder),
		peakEquity: cfg.InitialCapital,
	}, nil
}

// Run consumes steps in order and returns the completed Result. A caller
// may cancel ctx between timesteps to abort the run early (spec.md §5);
// an aborted run returns its partial Result with Aborted set, not an error.
func (e *Engine) Run(ctx context.Context, steps <-chan Timestep) (*Result, error) {
	for step := range steps {
		select {
		case <-ctx.Done():
			return e.buildResult(true), nil
		default:
		}

		if err := e.runStep(step); err != nil {
			if errors.Is(err, ErrInternalInvariant) {
				return e.buildResult(true), err
			}
			e.logger.Error("timestep failed", zap.Time("timestamp", step.Timestamp), zap.Error(err))
		}
	}
	return e.buildResult(false), nil
}

func (e *Engine) runStep(step Timestep) error {
	// Step 1: execute pending entry orders queued at the previous timestep,
	// filled at this bar's open.
	e.executePendingOrders(step)

	// Step 2: intraday stop/target checks against this bar's high/low range.
	e.checkIntradayExits(step)

	// Step 3: record the equity snapshot for this timestamp.
	prices := closePrices(step)
	if err := e.recordSnapshot(step.Timestamp, prices); err != nil {
		return err
	}

	// Step 4: generate new signals per symbol concurrently, collected in a
	// deterministic, sorted-by-symbol order (spec.md §5).
	signals := e.generateSignals(step)

	// Step 5: filter by min confidence and rank by composite score.
	ranked := FilterAndRank(signals, e.cfg.MinSignalConfidence)

	// Steps 6-8: process exits immediately, then admit and size new
	// entries up to remaining capacity, enqueuing them for next bar's open.
	e.processRankedSignals(ranked, step)

	return nil
}

func (e *Engine) executePendingOrders(step Timestep) {
	symbols := make([]string, 0, len(e.pending))
	for s := range e.pending {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	for _, symbol := range symbols {
		order := e.pending[symbol]
		delete(e.pending, symbol)

		b, ok := step.Bars[symbol]
		if !ok {
			e.logger.Warn("data gap: pending order skipped", zap.String("symbol", symbol))
			continue
		}

		fill := fillPrice(b.Open, order.Side, e.cfg)
		if stopViolated(order.Side, fill, order.StopLoss) {
			e.logger.Info("order rejected: stop violated at fill", zap.String("symbol", symbol))
			continue
		}

		notional := fill.Mul(order.Quantity)
		fee := commission(notional, e.cfg)
		if err := e.pm.OpenPosition(symbol, order.Side, order.Quantity, fill, step.Timestamp, fee, order.StopLoss, order.TakeProfit, order.Confidence); err != nil {
			e.logger.Info("order rejected", zap.String("symbol", symbol), zap.Error(err))
		}
	}
}

func (e *Engine) checkIntradayExits(step Timestep) {
	for _, symbol := range e.pm.Symbols() {
		pos, ok := e.pm.Open(symbol)
		if !ok {
			continue
		}
		b, ok := step.Bars[symbol]
		if !ok {
			continue
		}
		exit := checkIntradayExit(pos, b)
		if !exit.Triggered {
			continue
		}
		fill := exitFillPrice(exit.Price, pos.Side, e.cfg)
		fee := commission(fill.Mul(pos.Quantity), e.cfg)
		if _, err := e.pm.ClosePosition(symbol, fill, step.Timestamp, fee, exit.Reason); err != nil {
			e.logger.Warn("intraday exit failed", zap.String("symbol", symbol), zap.Error(err))
		}
	}
}

func (e *Engine) recordSnapshot(ts time.Time, prices map[string]decimal.Decimal) error {
	cash := e.pm.Cash()
	positionsValue := e.pm.PositionsValue(prices)
	equity := cash.Add(positionsValue)

	if equity.GreaterThan(e.peakEquity) {
		e.peakEquity = equity
	}
	drawdown := decimal.Zero
	if e.peakEquity.GreaterThan(decimal.Zero) {
		drawdown = e.peakEquity.Sub(equity).Div(e.peakEquity)
	}
	if drawdown.IsNegative() {
		return errors.Wrap(ErrInternalInvariant, "equity exceeds running peak after peak update")
	}

	e.equity = append(e.equity, Snapshot{
		Timestamp:        ts,
		Cash:             cash,
		PositionsValue:   positionsValue,
		Equity:           equity,
		DrawdownFromPeak: drawdown,
	})
	return nil
}

func (e *Engine) generateSignals(step Timestep) []*signal.Signal {
	symbols := make([]string, 0, len(step.Bars))
	for s := range step.Bars {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	results := make([]*signal.Signal, len(symbols))
	var wg sync.WaitGroup
	for i, symbol := range symbols {
		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()
			analysis, err := e.provider.ProvideAnalysis(symbol, step.Timestamp)
			if err != nil {
				e.logger.Warn("analysis unavailable", zap.String("symbol", symbol), zap.Error(err))
				return
			}
			openSide := signal.OpenSideNone
			if pos, ok := e.pm.Open(symbol); ok {
				if pos.Side == SideShort {
					openSide = signal.OpenSideShort
				} else {
					openSide = signal.OpenSideLong
				}
			}
			sig, err := e.generator.Generate(symbol, analysis, openSide)
			if err != nil {
				e.logger.Warn("signal generation failed", zap.String("symbol", symbol), zap.Error(err))
				return
			}
			results[i] = sig
		}(i, symbol)
	}
	wg.Wait()

	out := make([]*signal.Signal, 0, len(results))
	for _, s := range results {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (e *Engine) processRankedSignals(ranked []RankedSignal, step Timestep) {
	for _, r := range ranked {
		s := r.Signal
		switch s.Type {
		case signal.TypeExitLong, signal.TypeExitShort:
			e.closeOnSignal(s, step)
		}
	}

	capacity := e.cfg.MaxConcurrentPositions - e.pm.OpenCount()
	for _, r := range ranked {
		if capacity <= 0 {
			break
		}
		s := r.Signal
		if s.Type != signal.TypeLong && s.Type != signal.TypeShort {
			continue
		}
		if s.Type == signal.TypeShort && !e.cfg.AllowShort {
			continue
		}
		if _, alreadyOpen := e.pm.Open(s.Symbol); alreadyOpen {
			continue
		}
		if _, alreadyPending := e.pending[s.Symbol]; alreadyPending {
			continue
		}

		equity := e.pm.Equity(closePrices(step))
		quantity := sizePosition(equity, s.EntryPrice, s.StopLoss, s.Confidence, e.cfg)
		if quantity.IsZero() {
			continue
		}

		side := SideLong
		if s.Type == signal.TypeShort {
			side = SideShort
		}
		e.pending[s.Symbol] = PendingOrder{
			Symbol:     s.Symbol,
			Side:       side,
			Quantity:   quantity,
			StopLoss:   s.StopLoss,
			TakeProfit: s.TakeProfit,
			Confidence: s.Confidence,
		}
		capacity--
	}
}

func (e *Engine) closeOnSignal(s *signal.Signal, step Timestep) {
	pos, ok := e.pm.Open(s.Symbol)
	if !ok {
		return
	}
	b, ok := step.Bars[s.Symbol]
	if !ok {
		e.logger.Warn("data gap: cannot execute exit signal", zap.String("symbol", s.Symbol))
		return
	}
	fill := exitFillPrice(b.Close, pos.Side, e.cfg)
	fee := commission(fill.Mul(pos.Quantity), e.cfg)
	if _, err := e.pm.ClosePosition(s.Symbol, fill, step.Timestamp, fee, "signal_exit"); err != nil {
		e.logger.Warn("signal exit failed", zap.String("symbol", s.Symbol), zap.Error(err))
	}
}

func closePrices(step Timestep) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(step.Bars))
	for symbol, b := range step.Bars {
		out[symbol] = b.Close
	}
	return out
}

func (e *Engine) buildResult(aborted bool) *Result {
	perSymbol := make(map[string]SymbolStats)
	for _, t := range e.pm.Trades() {
		stats := perSymbol[t.Symbol]
		stats.TradeCount++
		stats.NetPnL = stats.NetPnL.Add(t.NetPnL)
		if t.NetPnL.IsPositive() {
			stats.WinCount++
		} else if t.NetPnL.IsNegative() {
			stats.LossCount++
		}
		perSymbol[t.Symbol] = stats
	}
	return &Result{
		Trades:            e.pm.Trades(),
		EquityCurve:       e.equity,
		PerSymbolStats:    perSymbol,
		ConfigFingerprint: e.cfg.Fingerprint(),
		Aborted:           aborted,
	}
}
