package coordinator

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/dgquant/decimalx"
	"github.com/vadiminshakov/dgquant/indicator"
	"github.com/vadiminshakov/dgquant/marketstate"
)

// ErrMissingTimeframe is returned when an HTF or trading TimeframeData is
// missing required data (empty state/pldot series).
var ErrMissingTimeframe = errors.New("timeframe data incomplete")

// Coordinator runs multi-timeframe analysis and tracks, per symbol, the
// previous recommendation needed for the Reduce extension point (spec.md
// §4.5 step 9, §9 open question). It holds no other state: PLdot/Envelope/
// State series remain owned and read-only per spec.md §5.
type Coordinator struct {
	cfg      Config
	previous map[string]RecommendedAction
}

// New constructs a Coordinator. Returns InvalidConfiguration if cfg is
// malformed.
func New(cfg Config) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid coordinator configuration")
	}
	return &Coordinator{cfg: cfg, previous: make(map[string]RecommendedAction)}, nil
}

// Analyze produces one MultiTimeframeAnalysis anchored to the latest
// aligned timestamp across htf and trading (and ltf, if supplied).
func (c *Coordinator) Analyze(symbol string, htf, trading TimeframeData, ltf *TimeframeData) (*MultiTimeframeAnalysis, error) {
	htfState, ok := marketstate.Latest(htf.States)
	if !ok {
		return nil, errors.Wrap(ErrMissingTimeframe, "htf has no state points")
	}
	tradingState, ok := marketstate.Latest(trading.States)
	if !ok {
		return nil, errors.Wrap(ErrMissingTimeframe, "trading has no state points")
	}
	htfPldot, ok := htf.Pldot.Latest()
	if !ok {
		return nil, errors.Wrap(ErrMissingTimeframe, "htf has no pldot points")
	}
	tradingClose, ok := latestClose(trading)
	if !ok {
		return nil, errors.Wrap(ErrMissingTimeframe, "trading has no bars")
	}
	tradingEnv, hasTradingEnv := indicator.Latest(trading.Envelopes)

	anchor := tradingState.Timestamp

	overlay := buildOverlay(htfPldot.Value, tradingClose, c.cfg.HTFOverlayTolerance)

	timeframes := []TimeframeData{htf, trading}
	if ltf != nil {
		timeframes = append(timeframes, *ltf)
	}
	zones := clusterConfluenceZones(timeframes, c.cfg, tradingClose)

	patternConfluence := hasPatternConfluence(htf, trading, anchor, c.cfg.ConfluenceWindow)

	alignment := scoreAlignment(htfState, tradingState)

	confluenceProximity := 0.0
	if hasTradingEnv && !tradingEnv.Width.IsZero() {
		if dist, ok := nearestZoneDistance(zones, tradingClose); ok {
			width, _ := tradingEnv.Width.Float64()
			d, _ := dist.Float64()
			if width > 0 {
				confluenceProximity = decimalx.Clamp01(1 - d/width)
			}
		}
	}

	patternBonus := 0.0
	if patternConfluence {
		patternBonus = 1.0
	}

	signalStrength := decimalx.Clamp01(
		0.4*alignment.Score +
			0.3*htfState.Confidence +
			0.15*confluenceProximity +
			0.15*patternBonus,
	)

	risk := classifyRisk(alignment.AlignmentType, htfState.Confidence)

	action := recommendAction(alignment, htfState.TrendDirection, tradingState.TrendDirection, signalStrength)
	action = c.applyReduceExtension(symbol, action, alignment.AlignmentType)
	c.previous[symbol] = action

	return &MultiTimeframeAnalysis{
		Symbol:            symbol,
		Timestamp:         anchor,
		HTFTrend:          htfState.TrendDirection,
		HTFStrength:       htfState.Confidence,
		TradingTrend:      tradingState.TrendDirection,
		Alignment:         alignment,
		PldotOverlay:      overlay,
		ConfluenceZones:   zones,
		PatternConfluence: patternConfluence,
		SignalStrength:    signalStrength,
		RiskLevel:         risk,
		RecommendedAction: action,
	}, nil
}

func latestClose(tf TimeframeData) (decimal.Decimal, bool) {
	if len(tf.Bars) == 0 {
		return decimal.Zero, false
	}
	return tf.Bars[len(tf.Bars)-1].Close, true
}

func buildOverlay(htfPldot, tradingClose, tolerance decimal.Decimal) PldotOverlay {
	distance := decimalx.PercentDiff(tradingClose, htfPldot)
	distF, _ := distance.Float64()

	var pos OverlayPosition
	switch {
	case distance.Abs().LessThanOrEqual(tolerance):
		pos = OverlayAtHTF
	case distance.IsPositive():
		pos = OverlayAboveHTF
	default:
		pos = OverlayBelowHTF
	}

	return PldotOverlay{
		HTFPldotValue: htfPldot,
		TradingClose:  tradingClose,
		DistancePct:   distF,
		Position:      pos,
	}
}

func scoreAlignment(htf, trading marketstate.StatePoint) TimeframeAlignment {
	directionTerm := directionAgreementScore(htf.TrendDirection, trading.TrendDirection)
	stateTerm := stateCompatibilityScore(htf, trading)
	confidenceTerm := 0.3 * ((htf.Confidence + trading.Confidence) / 2)

	score := decimalx.Clamp01(directionTerm + stateTerm + confidenceTerm)

	var alignType AlignmentType
	switch {
	case score >= 0.8:
		alignType = AlignmentPerfect
	case score >= 0.6:
		alignType = AlignmentPartial
	case score >= 0.3:
		alignType = AlignmentDivergent
	default:
		alignType = AlignmentConflicting
	}

	tradePermitted := (alignType == AlignmentPerfect || alignType == AlignmentPartial) &&
		htf.TrendDirection != marketstate.DirectionNeutral &&
		!opposes(htf.TrendDirection, trading.TrendDirection)

	return TimeframeAlignment{AlignmentType: alignType, Score: score, TradePermitted: tradePermitted}
}

func directionAgreementScore(htf, trading marketstate.Direction) float64 {
	switch {
	case htf == trading:
		return 0.5
	case htf == marketstate.DirectionNeutral || trading == marketstate.DirectionNeutral:
		return 0.25
	case opposes(htf, trading):
		return 0
	default:
		return 0.25
	}
}

func opposes(a, b marketstate.Direction) bool {
	return (a == marketstate.DirectionUp && b == marketstate.DirectionDown) ||
		(a == marketstate.DirectionDown && b == marketstate.DirectionUp)
}

func stateCompatibilityScore(htf, trading marketstate.StatePoint) float64 {
	switch {
	case htf.State == marketstate.StateTrend && trading.State == marketstate.StateTrend && htf.TrendDirection == trading.TrendDirection:
		return 0.2
	case trading.State == marketstate.StateCongestionExit && trading.TrendDirection == htf.TrendDirection:
		return 0.2
	case htf.State == trading.State:
		return 0.1
	case opposes(htf.TrendDirection, trading.TrendDirection):
		return 0
	default:
		return 0.1
	}
}

func classifyRisk(alignType AlignmentType, htfStrength float64) RiskLevel {
	switch {
	case alignType == AlignmentPerfect && htfStrength >= 0.7:
		return RiskLow
	case alignType == AlignmentDivergent || alignType == AlignmentConflicting || htfStrength < 0.4:
		return RiskHigh
	default:
		return RiskMedium
	}
}

func recommendAction(alignment TimeframeAlignment, htfTrend, tradingTrend marketstate.Direction, signalStrength float64) RecommendedAction {
	if !alignment.TradePermitted || signalStrength < 0.5 {
		return ActionWait
	}
	switch htfTrend {
	case marketstate.DirectionUp:
		return ActionLong
	case marketstate.DirectionDown:
		return ActionShort
	default:
		return ActionWait
	}
}

// applyReduceExtension replaces the current recommendation (Wait, since a
// Divergent alignment never permits a trade) with Reduce when the prior
// call for this symbol recommended Long or Short and alignment has since
// degraded to Divergent (spec.md §4.5 step 9, an extension point never
// required to fire).
func (c *Coordinator) applyReduceExtension(symbol string, action RecommendedAction, alignType AlignmentType) RecommendedAction {
	prev, had := c.previous[symbol]
	if !had {
		return action
	}
	if (prev == ActionLong || prev == ActionShort) && alignType == AlignmentDivergent {
		return ActionReduce
	}
	return action
}

func hasPatternConfluence(htf, trading TimeframeData, anchor time.Time, window int) bool {
	windowStart := windowStartTime(trading, anchor, window)

	for _, hp := range htf.Patterns {
		if hp.EndTS.Before(windowStart) {
			continue
		}
		for _, tp := range trading.Patterns {
			if tp.EndTS.Before(windowStart) {
				continue
			}
			if hp.Kind == tp.Kind && hp.Direction == tp.Direction {
				return true
			}
		}
	}
	return false
}

func windowStartTime(trading TimeframeData, anchor time.Time, window int) time.Time {
	n := len(trading.Bars)
	if n == 0 || window <= 0 {
		return anchor
	}
	idx := n - window
	if idx < 0 {
		idx = 0
	}
	return trading.Bars[idx].Timestamp
}
