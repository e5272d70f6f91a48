package backtest

import (
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// PositionManager owns cash, open positions, and completed trades. Per
// spec.md §4.7.2's closing line, every mutation of these three pieces of
// state happens through this type; the engine never touches them directly.
// Grounded on the source's position bookkeeping (entry/exit commission,
// side-aware PnL) adapted to portfolio-wide, multi-symbol cash accounting.
type PositionManager struct {
	cash      decimal.Decimal
	rounding  int32
	positions map[string]*Position
	trades    []Trade
}

// NewPositionManager starts a manager with initialCapital cash and no open
// positions.
func NewPositionManager(initialCapital decimal.Decimal, rounding int32) *PositionManager {
	return &PositionManager{
		cash:      initialCapital,
		rounding:  rounding,
		positions: make(map[string]*Position),
	}
}

// Cash returns current uncommitted cash.
func (m *PositionManager) Cash() decimal.Decimal {
	return m.cash
}

// Open returns the Position for symbol, if any.
func (m *PositionManager) Open(symbol string) (*Position, bool) {
	p, ok := m.positions[symbol]
	return p, ok
}

// OpenCount returns the number of currently open positions.
func (m *PositionManager) OpenCount() int {
	return len(m.positions)
}

// PositionsValue sums every open position's MarketValue at the supplied
// current prices. A symbol with no current price (a data gap) keeps its
// entry-price valuation, per spec.md §7's "position carries forward
// unchecked" rule.
func (m *PositionManager) PositionsValue(prices map[string]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for symbol, p := range m.positions {
		price, ok := prices[symbol]
		if !ok {
			price = p.EntryPrice
		}
		total = total.Add(p.MarketValue(price))
	}
	return total
}

// Equity is cash plus PositionsValue (spec.md §8 invariant 2).
func (m *PositionManager) Equity(prices map[string]decimal.Decimal) decimal.Decimal {
	return m.cash.Add(m.PositionsValue(prices))
}

// OpenPosition reserves entryPrice*quantity + commission from cash and
// records a new Position. Returns ErrOrderRejected if cash is insufficient
// or a position is already open for symbol.
func (m *PositionManager) OpenPosition(symbol string, side Side, quantity, entryPrice decimal.Decimal, entryTime time.Time, commission, stop, target decimal.Decimal, confidence float64) error {
	if _, exists := m.positions[symbol]; exists {
		return errors.Wrapf(ErrOrderRejected, "%s already has an open position", symbol)
	}
	notional := entryPrice.Mul(quantity)
	cost := notional.Add(commission)
	if cost.GreaterThan(m.cash) {
		return errors.Wrapf(ErrOrderRejected, "%s insufficient cash: need %s, have %s", symbol, cost.String(), m.cash.String())
	}
	m.cash = m.cash.Sub(cost).Round(m.rounding)
	m.positions[symbol] = &Position{
		Symbol:          symbol,
		Side:            side,
		Quantity:        quantity,
		EntryPrice:      entryPrice,
		EntryTime:       entryTime,
		EntryCommission: commission,
		StopLoss:        stop,
		TakeProfit:      target,
		Confidence:      confidence,
	}
	return nil
}

// ClosePosition closes symbol's open position at exitPrice, books the
// Trade, and returns proceeds (entry notional + gross PnL - exit
// commission) to cash. Returns ErrOrderRejected if no position is open.
func (m *PositionManager) ClosePosition(symbol string, exitPrice decimal.Decimal, exitTime time.Time, commission decimal.Decimal, reason string) (*Trade, error) {
	p, ok := m.positions[symbol]
	if !ok {
		return nil, errors.Wrapf(ErrOrderRejected, "%s has no open position to close", symbol)
	}
	gross := p.PnL(exitPrice)
	net := gross.Sub(p.EntryCommission).Sub(commission)
	proceeds := p.EntryPrice.Mul(p.Quantity).Add(gross).Sub(commission)
	m.cash = m.cash.Add(proceeds).Round(m.rounding)

	trade := Trade{
		Symbol:          symbol,
		Side:            p.Side,
		Quantity:        p.Quantity,
		EntryPrice:      p.EntryPrice,
		EntryTime:       p.EntryTime,
		EntryCommission: p.EntryCommission,
		ExitPrice:       exitPrice,
		ExitTime:        exitTime,
		ExitCommission:  commission,
		ExitReason:      reason,
		GrossPnL:        gross.Round(m.rounding),
		NetPnL:          net.Round(m.rounding),
		Duration:        exitTime.Sub(p.EntryTime),
	}
	m.trades = append(m.trades, trade)
	delete(m.positions, symbol)
	return &trade, nil
}

// Trades returns every closed trade so far, in close order.
func (m *PositionManager) Trades() []Trade {
	return m.trades
}

// Symbols returns the symbols with an open position, sorted, for
// deterministic iteration (spec.md §5).
func (m *PositionManager) Symbols() []string {
	out := make([]string, 0, len(m.positions))
	for s := range m.positions {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
