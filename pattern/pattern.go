// Package pattern implements the Drummond Geometry pattern detectors of
// spec.md §4.4. Each detector is a stateless, single-pass function over
// (bars, pldot, envelopes) and never depends on another detector's output
// (spec.md §9 "Pattern detectors independence").
package pattern

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/dgquant/bar"
	"github.com/vadiminshakov/dgquant/indicator"
)

// Kind identifies the detector that produced an Event.
type Kind string

const (
	KindPLdotPush            Kind = "PLdotPush"
	KindPLdotRefresh         Kind = "PLdotRefresh"
	KindExhaust              Kind = "Exhaust"
	KindCWave                Kind = "CWave"
	KindCongestionOscillation Kind = "CongestionOscillation"
)

// Event is one PatternEvent per spec.md §3. Direction is -1, 0, or +1.
type Event struct {
	Kind      Kind
	Direction int
	StartTS   time.Time
	EndTS     time.Time
	Strength  int
	Metadata  map[string]string
}

// Config configures the detectors' tunable parameters.
type Config struct {
	// RefreshMaxBars is k in PLdotRefresh: the bar window within which the
	// close must return to its original side after touching the middle.
	RefreshMaxBars int
	// ExtensionThreshold is the Exhaust detector's normalized-extension
	// cutoff. Default 2.0.
	ExtensionThreshold decimal.Decimal
	// ExtensionResetThreshold is the extension level a sharp reversal must
	// fall back inside of to close out an Exhaust run. Default 1.0.
	ExtensionResetThreshold decimal.Decimal
	// SwingLookback is the local-extrema lookback for CWave swing points.
	SwingLookback int
	// CongestionMinBars is N in CongestionOscillation (N >= 4).
	CongestionMinBars int
}

// DefaultConfig returns the spec.md default parameters.
func DefaultConfig() Config {
	return Config{
		RefreshMaxBars:          2,
		ExtensionThreshold:      decimal.NewFromFloat(2.0),
		ExtensionResetThreshold: decimal.NewFromFloat(1.0),
		SwingLookback:           3,
		CongestionMinBars:       4,
	}
}

// aligned is one (bar, pldot, envelope) triple sharing a timestamp, the
// common input shape every detector walks.
type aligned struct {
	Timestamp time.Time
	Close     decimal.Decimal
	Pldot     indicator.Point
	Envelope  indicator.EnvelopePoint
	HasEnv    bool
}

func alignAll(bars bar.Series, pldot *indicator.PLdotSeries, envelopes []indicator.EnvelopePoint) []aligned {
	closeAt := make(map[int64]decimal.Decimal, len(bars))
	for _, b := range bars {
		closeAt[b.Timestamp.UnixMilli()] = b.Close
	}
	envAt := make(map[int64]indicator.EnvelopePoint, len(envelopes))
	for _, e := range envelopes {
		envAt[e.Timestamp.UnixMilli()] = e
	}

	points := pldot.Points()
	out := make([]aligned, 0, len(points))
	for _, p := range points {
		c, ok := closeAt[p.Timestamp.UnixMilli()]
		if !ok {
			continue
		}
		env, hasEnv := envAt[p.Timestamp.UnixMilli()]
		out = append(out, aligned{Timestamp: p.Timestamp, Close: c, Pldot: p, Envelope: env, HasEnv: hasEnv})
	}
	return out
}

func sideOf(close, pldotValue decimal.Decimal) int {
	switch {
	case close.GreaterThan(pldotValue):
		return 1
	case close.LessThan(pldotValue):
		return -1
	default:
		return 0
	}
}

// DetectAll runs every detector over the same aligned input and returns all
// events, grouped by detector in the order PLdotPush, PLdotRefresh, Exhaust,
// CWave, CongestionOscillation, each group in the order its detector found
// them. The result is non-nil even when no detector fires.
func DetectAll(bars bar.Series, pldot *indicator.PLdotSeries, envelopes []indicator.EnvelopePoint, cfg Config) []Event {
	points := alignAll(bars, pldot, envelopes)

	events := make([]Event, 0)
	events = append(events, DetectPLdotPush(points)...)
	events = append(events, DetectPLdotRefresh(points, cfg)...)
	events = append(events, DetectExhaust(points, cfg)...)
	events = append(events, DetectCWave(points, cfg)...)
	events = append(events, DetectCongestionOscillation(points, cfg)...)
	return events
}

// DetectPLdotPush finds runs of 3+ consecutive closes on the same side of
// PLdot with monotonically growing distance.
func DetectPLdotPush(points []aligned) []Event {
	var events []Event

	runStart := -1
	runSide := 0
	var prevDist decimal.Decimal
	runLen := 0

	flush := func(endIdx int) {
		if runLen >= 3 {
			events = append(events, Event{
				Kind:      KindPLdotPush,
				Direction: runSide,
				StartTS:   points[runStart].Timestamp,
				EndTS:     points[endIdx].Timestamp,
				Strength:  runLen,
				Metadata:  map[string]string{"distance_at_end": prevDist.String()},
			})
		}
	}

	for i, p := range points {
		side := sideOf(p.Close, p.Pldot.Value)
		dist := p.Close.Sub(p.Pldot.Value).Abs()

		if side == 0 || side != runSide || (runLen > 0 && dist.LessThanOrEqual(prevDist)) {
			flush(i - 1)
			if side == 0 {
				runStart, runSide, runLen = -1, 0, 0
			} else {
				runStart, runSide, runLen = i, side, 1
			}
		} else {
			runLen++
		}
		prevDist = dist
	}
	flush(len(points) - 1)

	return events
}

// DetectPLdotRefresh finds a close crossing from one side of PLdot,
// touching the envelope middle within k bars, and returning to its
// original side.
func DetectPLdotRefresh(points []aligned, cfg Config) []Event {
	var events []Event
	k := cfg.RefreshMaxBars
	if k <= 0 {
		k = 2
	}

	for i := 1; i < len(points); i++ {
		prevSide := sideOf(points[i-1].Close, points[i-1].Pldot.Value)
		curSide := sideOf(points[i].Close, points[i].Pldot.Value)
		if prevSide == 0 || curSide == prevSide || curSide != 0 {
			continue
		}
		// touched middle (curSide == 0) at index i; look ahead up to k bars
		// for a return to prevSide.
		for j := i + 1; j <= i+k && j < len(points); j++ {
			side := sideOf(points[j].Close, points[j].Pldot.Value)
			if side == prevSide {
				events = append(events, Event{
					Kind:      KindPLdotRefresh,
					Direction: prevSide,
					StartTS:   points[i-1].Timestamp,
					EndTS:     points[j].Timestamp,
					Strength:  j - (i - 1),
					Metadata:  map[string]string{"touched_at": points[i].Timestamp.String()},
				})
				break
			}
		}
	}

	return events
}

// DetectExhaust tracks extension beyond the envelope and emits an event
// when a sharp reversal breaks it.
func DetectExhaust(points []aligned, cfg Config) []Event {
	var events []Event

	runStart := -1
	runSide := 0
	runLen := 0
	var runPeak decimal.Decimal

	extensionAt := func(p aligned) (decimal.Decimal, int) {
		if !p.HasEnv || p.Envelope.Width.IsZero() {
			return decimal.Zero, 0
		}
		bull := p.Close.Sub(p.Envelope.Upper).Div(p.Envelope.Width)
		if bull.GreaterThanOrEqual(cfg.ExtensionThreshold) {
			return bull, 1
		}
		bear := p.Envelope.Lower.Sub(p.Close).Div(p.Envelope.Width)
		if bear.GreaterThanOrEqual(cfg.ExtensionThreshold) {
			return bear, -1
		}
		return decimal.Zero, 0
	}

	for i, p := range points {
		ext, side := extensionAt(p)

		if side != 0 && (runSide == 0 || side == runSide) {
			if runSide == 0 {
				runStart, runSide, runLen, runPeak = i, side, 0, decimal.Zero
			}
			runLen++
			if ext.GreaterThan(runPeak) {
				runPeak = ext
			}
			continue
		}

		if runSide != 0 {
			// run just broke; check if this bar's extension collapsed back
			// inside the reset threshold (sharp reversal).
			var collapsed bool
			if p.HasEnv && !p.Envelope.Width.IsZero() {
				var curExt decimal.Decimal
				if runSide == 1 {
					curExt = p.Close.Sub(p.Envelope.Upper).Div(p.Envelope.Width)
				} else {
					curExt = p.Envelope.Lower.Sub(p.Close).Div(p.Envelope.Width)
				}
				collapsed = curExt.LessThanOrEqual(cfg.ExtensionResetThreshold)
			} else {
				collapsed = true
			}

			if collapsed && runLen > 0 {
				events = append(events, Event{
					Kind:      KindExhaust,
					Direction: -runSide,
					StartTS:   points[runStart].Timestamp,
					EndTS:     p.Timestamp,
					Strength:  runLen,
					Metadata:  map[string]string{"peak_extension": runPeak.String()},
				})
			}
			runStart, runSide, runLen = -1, 0, 0
		}
	}

	return events
}

// DetectCWave finds three alternating swing points where swing 2 retraces
// back from swing 1 and swing 3 exceeds swing 1. How deep swing 2 retraces
// is not checked.
func DetectCWave(points []aligned, cfg Config) []Event {
	lookback := cfg.SwingLookback
	if lookback <= 0 {
		lookback = 3
	}

	type swing struct {
		idx   int
		value decimal.Decimal
		high  bool
	}

	var swings []swing
	for i := lookback; i < len(points)-lookback; i++ {
		isHigh, isLow := true, true
		for j := i - lookback; j <= i+lookback; j++ {
			if j == i {
				continue
			}
			if points[j].Close.GreaterThan(points[i].Close) {
				isHigh = false
			}
			if points[j].Close.LessThan(points[i].Close) {
				isLow = false
			}
		}
		if isHigh && !isLow {
			swings = append(swings, swing{idx: i, value: points[i].Close, high: true})
		} else if isLow && !isHigh {
			swings = append(swings, swing{idx: i, value: points[i].Close, high: false})
		}
	}

	var events []Event
	for i := 0; i+2 < len(swings); i++ {
		s1, s2, s3 := swings[i], swings[i+1], swings[i+2]
		if s1.high == s2.high || s2.high == s3.high {
			continue
		}

		if s1.high {
			// swing1 is a high (bearish leg down follows); the check is
			// swing2 below swing1 and swing3 above swing1, with no lower
			// bound on swing2.
			if s2.value.LessThan(s1.value) && s3.value.GreaterThan(s1.value) {
				events = append(events, Event{
					Kind:      KindCWave,
					Direction: 1,
					StartTS:   points[s1.idx].Timestamp,
					EndTS:     points[s3.idx].Timestamp,
					Strength:  3,
					Metadata:  map[string]string{"swing1": s1.value.String(), "swing2": s2.value.String(), "swing3": s3.value.String()},
				})
			}
		} else {
			if s2.value.GreaterThan(s1.value) && s3.value.LessThan(s1.value) {
				events = append(events, Event{
					Kind:      KindCWave,
					Direction: -1,
					StartTS:   points[s1.idx].Timestamp,
					EndTS:     points[s3.idx].Timestamp,
					Strength:  3,
					Metadata:  map[string]string{"swing1": s1.value.String(), "swing2": s2.value.String(), "swing3": s3.value.String()},
				})
			}
		}
	}

	return events
}

// DetectCongestionOscillation finds runs of N consecutive bars remaining
// inside the envelope with a Horizontal PLdot slope.
func DetectCongestionOscillation(points []aligned, cfg Config) []Event {
	n := cfg.CongestionMinBars
	if n < 4 {
		n = 4
	}

	var events []Event
	runStart := -1
	runLen := 0

	horizontal := func(slope decimal.Decimal) bool {
		return slope.Abs().LessThan(decimal.NewFromFloat(0.0001))
	}

	flush := func(endIdx int) {
		if runLen >= n {
			events = append(events, Event{
				Kind:      KindCongestionOscillation,
				Direction: 0,
				StartTS:   points[runStart].Timestamp,
				EndTS:     points[endIdx].Timestamp,
				Strength:  runLen,
				Metadata:  map[string]string{"pldot_slope_at_end": points[endIdx].Pldot.Slope.String()},
			})
		}
	}

	for i, p := range points {
		inside := p.HasEnv && p.Close.GreaterThanOrEqual(p.Envelope.Lower) && p.Close.LessThanOrEqual(p.Envelope.Upper)
		if inside && horizontal(p.Pldot.Slope) {
			if runLen == 0 {
				runStart = i
			}
			runLen++
		} else {
			flush(i - 1)
			runStart, runLen = -1, 0
		}
	}
	flush(len(points) - 1)

	return events
}
