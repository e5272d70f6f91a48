package backtest

import "github.com/pkg/errors"

// ErrOrderRejected is returned by the PositionManager (and logged by the
// engine, never fatal) when an open or close cannot be applied: insufficient
// cash, a symbol that already has an open position, or a close for a symbol
// with none (spec.md §7). Entries beyond max_concurrent_positions are never
// queued, and a fill that already crossed its stop is dropped by the engine
// before it reaches the PositionManager.
var ErrOrderRejected = errors.New("order rejected")

// ErrDataGap names the data-gap error kind (spec.md §7). The engine does not
// return it: a symbol with no bar at a timestep is logged and skipped, and
// its open position (if any) carries forward unchecked for that step.
var ErrDataGap = errors.New("data gap for symbol at timestep")

// ErrInternalInvariant is fatal: it means the engine detected a state that
// should be structurally impossible, such as a negative drawdown from the
// running equity peak (spec.md §7).
var ErrInternalInvariant = errors.New("internal invariant violated")

// ErrInvalidConfiguration is fatal at startup: a PortfolioConfig field is
// out of range (spec.md §7).
var ErrInvalidConfiguration = errors.New("invalid backtest configuration")
