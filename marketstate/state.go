// Package marketstate implements the five-state Drummond Geometry market
// classifier (spec.md §4.3) as a tagged variant plus transition function —
// never three independently-true boolean flags (spec.md §9).
package marketstate

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/dgquant/bar"
	"github.com/vadiminshakov/dgquant/decimalx"
	"github.com/vadiminshakov/dgquant/indicator"
)

// State is the classifier's tagged variant. Exactly one State is active at
// a time; there is no combination of simultaneously-true flags.
type State string

const (
	StateTrend               State = "Trend"
	StateCongestionEntrance  State = "CongestionEntrance"
	StateCongestionAction    State = "CongestionAction"
	StateCongestionExit      State = "CongestionExit"
	StateReversal            State = "Reversal"
)

// Direction is the directional bias associated with a State.
type Direction string

const (
	DirectionUp      Direction = "Up"
	DirectionDown    Direction = "Down"
	DirectionNeutral Direction = "Neutral"
)

func opposite(d Direction) Direction {
	switch d {
	case DirectionUp:
		return DirectionDown
	case DirectionDown:
		return DirectionUp
	default:
		return DirectionNeutral
	}
}

// SlopeTrend classifies the PLdot slope.
type SlopeTrend string

const (
	SlopeRising     SlopeTrend = "Rising"
	SlopeFalling    SlopeTrend = "Falling"
	SlopeHorizontal SlopeTrend = "Horizontal"
)

func isCongestionFamily(s State) bool {
	return s == StateCongestionEntrance || s == StateCongestionAction || s == StateCongestionExit
}

// StatePoint is one classified sample, aligned to a bar/PLdot timestamp.
type StatePoint struct {
	Timestamp        time.Time
	State            State
	TrendDirection   Direction
	BarsInState      int
	PreviousState    State
	PldotSlopeTrend  SlopeTrend
	Confidence       float64
	Reason           string
}

// Config configures the classifier.
type Config struct {
	// SlopeThreshold is the |slope| cutoff below which the PLdot slope is
	// classified Horizontal rather than Rising/Falling. Default 1e-4.
	SlopeThreshold decimal.Decimal
}

// DefaultConfig returns the spec.md default slope threshold.
func DefaultConfig() Config {
	return Config{SlopeThreshold: decimal.NewFromFloat(0.0001)}
}

type alignedPoint struct {
	Timestamp time.Time
	Close     decimal.Decimal
	Value     decimal.Decimal
	Slope     decimal.Decimal
}

func align(bars bar.Series, pldot *indicator.PLdotSeries) ([]alignedPoint, error) {
	closeAt := make(map[int64]decimal.Decimal, len(bars))
	for _, b := range bars {
		closeAt[b.Timestamp.UnixMilli()] = b.Close
	}

	points := pldot.Points()
	out := make([]alignedPoint, 0, len(points))
	for _, p := range points {
		c, ok := closeAt[p.Timestamp.UnixMilli()]
		if !ok {
			return nil, errors.Wrapf(indicator.ErrAlignmentError, "no bar close for pldot timestamp %s", p.Timestamp)
		}
		out = append(out, alignedPoint{Timestamp: p.Timestamp, Close: c, Value: p.Value, Slope: p.Slope})
	}
	return out, nil
}

func position(close, pldotValue decimal.Decimal) int {
	switch {
	case close.GreaterThan(pldotValue):
		return 1
	case close.LessThan(pldotValue):
		return -1
	default:
		return 0
	}
}

func slopeTrend(slope, threshold decimal.Decimal) SlopeTrend {
	abs := slope.Abs()
	if abs.LessThan(threshold) {
		return SlopeHorizontal
	}
	if slope.IsPositive() {
		return SlopeRising
	}
	return SlopeFalling
}

// signOf treats 0 as agreeing with the previous non-zero sign, per
// spec.md §4.3 rule 4's "treating 0 as same sign as previous".
func signOf(window []int) []int {
	out := make([]int, len(window))
	last := 0
	for i, w := range window {
		if w == 0 {
			out[i] = last
		} else {
			out[i] = w
			last = w
		}
	}
	return out
}

func allEqual(window []int, v int) bool {
	if len(window) == 0 {
		return false
	}
	for _, w := range window {
		if w != v {
			return false
		}
	}
	return true
}

func alternates(window []int) bool {
	if len(window) != 3 {
		return false
	}
	norm := signOf(window)
	if norm[0] == 0 || norm[1] == 0 || norm[2] == 0 {
		return false
	}
	return norm[0] != norm[1] && norm[1] != norm[2] && norm[0] == norm[2]
}

func directionFromSign(v int) Direction {
	switch {
	case v > 0:
		return DirectionUp
	case v < 0:
		return DirectionDown
	default:
		return DirectionNeutral
	}
}

// Compute classifies one StatePoint per aligned (bar, PLdot) entry.
func Compute(bars bar.Series, pldot *indicator.PLdotSeries, cfg Config) ([]StatePoint, error) {
	aligned, err := align(bars, pldot)
	if err != nil {
		return nil, err
	}
	if len(aligned) == 0 {
		return nil, indicator.ErrInsufficientHistory
	}

	out := make([]StatePoint, 0, len(aligned))

	var window []int
	var prevState State
	var prevDirection Direction
	var lastTrendDirection Direction = DirectionNeutral
	var barsInState int

	for i, a := range aligned {
		pos := position(a.Close, a.Value)
		window = append(window, pos)
		if len(window) > 3 {
			window = window[len(window)-3:]
		}
		st := slopeTrend(a.Slope, cfg.SlopeThreshold)

		var state State
		var direction Direction
		var reason string

		switch {
		case i == 0:
			state = StateTrend
			direction = DirectionNeutral
			barsInState = 1
			reason = "initial state"

		case len(window) == 3 && allEqual(window, 1):
			state = StateTrend
			direction = DirectionUp
			if prevState == StateTrend && prevDirection == DirectionUp {
				reason = "Trend continuation"
			} else {
				reason = "New uptrend"
			}
			if prevState == StateTrend {
				barsInState++
			} else {
				barsInState = 1
			}

		case len(window) == 3 && allEqual(window, -1):
			state = StateTrend
			direction = DirectionDown
			if prevState == StateTrend && prevDirection == DirectionDown {
				reason = "Trend continuation"
			} else {
				reason = "New downtrend"
			}
			if prevState == StateTrend {
				barsInState++
			} else {
				barsInState = 1
			}

		case prevState == StateTrend && pos == -signOfDirection(prevDirection) && pos != 0 && prevDirection != DirectionNeutral:
			state = StateCongestionEntrance
			direction = prevDirection
			reason = "Trend opposed for the first time"
			barsInState = 1

		case alternates(window):
			state = StateCongestionAction
			direction = DirectionNeutral
			reason = "Oscillating around PLdot"
			if prevState == StateCongestionAction {
				barsInState++
			} else {
				barsInState = 1
			}

		case isCongestionFamily(prevState) && len(window) == 3 && allEqual(signOf(window), signOfDirection(lastTrendDirection)) && lastTrendDirection != DirectionNeutral:
			state = StateCongestionExit
			direction = lastTrendDirection
			reason = "Resuming prior trend direction"
			if prevState == StateCongestionExit {
				barsInState++
			} else {
				barsInState = 1
			}

		case len(window) == 3 && lastTrendDirection != DirectionNeutral && allEqual(signOf(window), signOfDirection(opposite(lastTrendDirection))):
			state = StateReversal
			direction = opposite(lastTrendDirection)
			reason = "Trend reversed"
			if prevState == StateReversal {
				barsInState++
			} else {
				barsInState = 1
			}

		default:
			state = prevState
			direction = prevDirection
			if state == "" {
				state = StateTrend
				direction = DirectionNeutral
			}
			reason = "no transition"
			barsInState++
		}

		if state == StateTrend {
			lastTrendDirection = direction
		}

		confidence := computeConfidence(barsInState, state, direction, st, window)

		out = append(out, StatePoint{
			Timestamp:       a.Timestamp,
			State:           state,
			TrendDirection:  direction,
			BarsInState:     barsInState,
			PreviousState:   prevState,
			PldotSlopeTrend: st,
			Confidence:      confidence,
			Reason:          reason,
		})

		prevState = state
		prevDirection = direction
	}

	return out, nil
}

func signOfDirection(d Direction) int {
	switch d {
	case DirectionUp:
		return 1
	case DirectionDown:
		return -1
	default:
		return 0
	}
}

func computeConfidence(barsInState int, state State, direction Direction, slope SlopeTrend, window []int) float64 {
	confidence := 0.5

	bonus := float64(barsInState) * 0.05
	if bonus > 0.3 {
		bonus = 0.3
	}
	confidence += bonus

	if state == StateTrend {
		if (direction == DirectionUp && slope == SlopeRising) || (direction == DirectionDown && slope == SlopeFalling) {
			confidence += 0.2
		}
	}

	if isCongestionFamily(state) && slope == SlopeHorizontal {
		confidence += 0.15
	}

	if len(window) == 3 {
		norm := signOf(window)
		if norm[0] == norm[1] && norm[1] == norm[2] {
			confidence += 0.1
		}
	}

	return decimalx.Clamp01(confidence)
}

// Latest returns the most recent StatePoint, if any.
func Latest(points []StatePoint) (StatePoint, bool) {
	if len(points) == 0 {
		return StatePoint{}, false
	}
	return points[len(points)-1], true
}
