// Package signal turns a coordinator.MultiTimeframeAnalysis into at most
// one GeneratedSignal (spec.md §4.6). It never fuses with the coordinator:
// keeping them separate functions lets alignment logic be unit tested on
// its own (spec.md §9).
package signal

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/dgquant/coordinator"
	"github.com/vadiminshakov/dgquant/indicator"
	"github.com/vadiminshakov/dgquant/pattern"
)

// Type is the kind of signal generated.
type Type string

const (
	TypeLong      Type = "Long"
	TypeShort     Type = "Short"
	TypeExitLong  Type = "ExitLong"
	TypeExitShort Type = "ExitShort"
)

// OpenSide tells the generator which side (if any) the caller currently
// holds, needed to resolve a Reduce recommendation into ExitLong/ExitShort
// (spec.md §4.6: "the executor resolves which side is open").
type OpenSide string

const (
	OpenSideNone  OpenSide = ""
	OpenSideLong  OpenSide = "Long"
	OpenSideShort OpenSide = "Short"
)

// Signal is one GeneratedSignal.
type Signal struct {
	Symbol         string
	Timestamp      time.Time
	Type           Type
	EntryPrice     decimal.Decimal
	StopLoss       decimal.Decimal
	TakeProfit     decimal.Decimal
	Confidence     float64
	SignalStrength float64
	Metadata       Metadata
}

// Config tunes the generator's stop/target construction.
type Config struct {
	// ATRBufferMultiple (k) widens the zone-based stop by k * ATR. Default 0.25.
	ATRBufferMultiple decimal.Decimal
	// RewardMultiple (r) is the fallback reward:risk ratio when no opposing
	// zone exists. Default 2.0.
	RewardMultiple decimal.Decimal
	// ATRPeriod is the lookback for the stop-widening ATR. Default 14.
	ATRPeriod int
}

// DefaultConfig returns the spec.md default generator parameters.
func DefaultConfig() Config {
	return Config{
		ATRBufferMultiple: decimal.NewFromFloat(0.25),
		RewardMultiple:    decimal.NewFromFloat(2.0),
		ATRPeriod:         14,
	}
}

// Generate emits at most one Signal from analysis and the trading
// timeframe's latest bar. Returns (nil, nil) when no signal should be
// emitted (Wait, or a would-be entry whose stop/target geometry is
// invalid).
func Generate(symbol string, analysis *coordinator.MultiTimeframeAnalysis, trading coordinator.TimeframeData, openSide OpenSide, cfg Config) (*Signal, error) {
	if analysis.RecommendedAction == coordinator.ActionWait {
		return nil, nil
	}

	if analysis.RecommendedAction == coordinator.ActionReduce {
		return buildExitSignal(symbol, analysis, openSide), nil
	}

	latestBar := trading.Bars[len(trading.Bars)-1]
	entry := latestBar.Close

	env, hasEnv := indicator.Latest(trading.Envelopes)
	if !hasEnv {
		return nil, nil
	}

	var atrBuffer decimal.Decimal
	if atrPoints, err := indicator.ComputeATR(trading.Bars, cfg.ATRPeriod); err == nil && len(atrPoints) > 0 {
		atrBuffer = atrPoints[len(atrPoints)-1].Value.Mul(cfg.ATRBufferMultiple)
	}

	var sigType Type
	var stop, target decimal.Decimal
	var zoneIDs []string

	switch analysis.RecommendedAction {
	case coordinator.ActionLong:
		sigType = TypeLong
		nearestSupport, hasSupport := nearestZone(analysis.ConfluenceZones, coordinator.ZoneTypeSupport, entry, true)
		candidateA := env.Lower
		if hasSupport {
			candidateA = maxDecimal(nearestSupport.Level.Sub(atrBuffer), decimal.Zero)
			zoneIDs = append(zoneIDs, nearestSupport.ID)
		}
		stop = maxDecimal(candidateA, env.Lower)

		nearestResistance, hasResistance := nearestZone(analysis.ConfluenceZones, coordinator.ZoneTypeResistance, entry, false)
		if hasResistance && nearestResistance.Level.GreaterThan(entry) {
			target = nearestResistance.Level
			zoneIDs = append(zoneIDs, nearestResistance.ID)
		} else {
			target = entry.Add(cfg.RewardMultiple.Mul(entry.Sub(stop)))
		}

	case coordinator.ActionShort:
		sigType = TypeShort
		nearestResistance, hasResistance := nearestZone(analysis.ConfluenceZones, coordinator.ZoneTypeResistance, entry, false)
		candidateA := env.Upper
		if hasResistance {
			candidateA = nearestResistance.Level.Add(atrBuffer)
			zoneIDs = append(zoneIDs, nearestResistance.ID)
		}
		stop = minDecimal(candidateA, env.Upper)

		nearestSupport, hasSupport := nearestZone(analysis.ConfluenceZones, coordinator.ZoneTypeSupport, entry, true)
		if hasSupport && nearestSupport.Level.LessThan(entry) {
			target = nearestSupport.Level
			zoneIDs = append(zoneIDs, nearestSupport.ID)
		} else {
			target = entry.Sub(cfg.RewardMultiple.Mul(stop.Sub(entry)))
		}

	default:
		return nil, nil
	}

	if !validGeometry(sigType, entry, stop, target) {
		return nil, nil
	}

	return &Signal{
		Symbol:         symbol,
		Timestamp:      latestBar.Timestamp,
		Type:           sigType,
		EntryPrice:     entry,
		StopLoss:       stop,
		TakeProfit:     target,
		Confidence:     analysis.SignalStrength,
		SignalStrength: analysis.SignalStrength,
		Metadata: Metadata{
			StopLoss:        stop,
			TakeProfit:      target,
			Confidence:      analysis.SignalStrength,
			ConfluenceCount: len(analysis.ConfluenceZones),
			PatternKinds:    patternKindsAt(trading.Patterns, latestBar.Timestamp),
			ZoneIDs:         zoneIDs,
			Extras:          map[string]string{},
		},
	}, nil
}

// patternKindsAt collects the distinct Kind of every pattern event whose
// [StartTS, EndTS] span covers ts, the signal's anchoring bar. Sorted for
// deterministic Metadata content.
func patternKindsAt(events []pattern.Event, ts time.Time) []string {
	seen := make(map[string]bool)
	var kinds []string
	for _, e := range events {
		if ts.Before(e.StartTS) || ts.After(e.EndTS) {
			continue
		}
		k := string(e.Kind)
		if !seen[k] {
			seen[k] = true
			kinds = append(kinds, k)
		}
	}
	sort.Strings(kinds)
	return kinds
}

func buildExitSignal(symbol string, analysis *coordinator.MultiTimeframeAnalysis, openSide OpenSide) *Signal {
	var sigType Type
	switch openSide {
	case OpenSideLong:
		sigType = TypeExitLong
	case OpenSideShort:
		sigType = TypeExitShort
	default:
		return nil
	}

	return &Signal{
		Symbol:         symbol,
		Timestamp:      analysis.Timestamp,
		Type:           sigType,
		Confidence:     analysis.SignalStrength,
		SignalStrength: analysis.SignalStrength,
		Metadata: Metadata{
			Confidence: analysis.SignalStrength,
			Extras:     map[string]string{"reason": "alignment downgraded to Divergent"},
		},
	}
}

func validGeometry(t Type, entry, stop, target decimal.Decimal) bool {
	switch t {
	case TypeLong:
		if !stop.LessThan(entry) {
			return false
		}
		reward := target.Sub(entry)
		risk := entry.Sub(stop)
		if risk.LessThanOrEqual(decimal.Zero) {
			return false
		}
		return reward.Div(risk).GreaterThanOrEqual(decimal.NewFromFloat(1.0))
	case TypeShort:
		if !stop.GreaterThan(entry) {
			return false
		}
		reward := entry.Sub(target)
		risk := stop.Sub(entry)
		if risk.LessThanOrEqual(decimal.Zero) {
			return false
		}
		return reward.Div(risk).GreaterThanOrEqual(decimal.NewFromFloat(1.0))
	default:
		return true
	}
}

func nearestZone(zones []coordinator.ConfluenceZone, zoneType coordinator.ZoneType, price decimal.Decimal, below bool) (coordinator.ConfluenceZone, bool) {
	var best coordinator.ConfluenceZone
	found := false
	for _, z := range zones {
		if z.ZoneType != zoneType {
			continue
		}
		if below && z.Level.GreaterThanOrEqual(price) {
			continue
		}
		if !below && z.Level.LessThanOrEqual(price) {
			continue
		}
		dist := z.Level.Sub(price).Abs()
		if !found {
			best, found = z, true
			continue
		}
		if dist.LessThan(best.Level.Sub(price).Abs()) {
			best = z
		}
	}
	return best, found
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
