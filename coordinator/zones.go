package coordinator

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/dgquant/decimalx"
	"github.com/vadiminshakov/dgquant/dgtime"
)

type zoneCandidate struct {
	level     decimal.Decimal
	timeframe dgtime.Interval
	ts        time.Time
}

// collectCandidates gathers price levels from each timeframe's last window
// PLdot values and envelope bounds, per spec.md §4.5 step 4.
func collectCandidates(timeframes []TimeframeData, window int) []zoneCandidate {
	var candidates []zoneCandidate

	for _, tf := range timeframes {
		pldotPoints := tf.Pldot.Points()
		start := len(pldotPoints) - window
		if start < 0 {
			start = 0
		}
		for _, p := range pldotPoints[start:] {
			candidates = append(candidates, zoneCandidate{level: p.Value, timeframe: tf.Timeframe, ts: p.Timestamp})
		}

		envStart := len(tf.Envelopes) - window
		if envStart < 0 {
			envStart = 0
		}
		for _, e := range tf.Envelopes[envStart:] {
			candidates = append(candidates, zoneCandidate{level: e.Upper, timeframe: tf.Timeframe, ts: e.Timestamp})
			candidates = append(candidates, zoneCandidate{level: e.Lower, timeframe: tf.Timeframe, ts: e.Timestamp})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].level.LessThan(candidates[j].level)
	})

	return candidates
}

// clusterConfluenceZones merges nearby candidate levels into zones and
// retains those confirmed by at least MinZoneStrength distinct timeframes.
// O(n^2) in the worst case, acceptable for the specified W <= 50 (spec.md
// §9); for larger W the sorted-sweep below is already exact under the
// tolerance-percent definition, so it scales without change.
func clusterConfluenceZones(timeframes []TimeframeData, cfg Config, currentPrice decimal.Decimal) []ConfluenceZone {
	candidates := collectCandidates(timeframes, cfg.ConfluenceWindow)
	if len(candidates) == 0 {
		return nil
	}

	var zones []ConfluenceZone

	i := 0
	for i < len(candidates) {
		members := []zoneCandidate{candidates[i]}
		j := i
		for j+1 < len(candidates) {
			mean := meanCandidateLevel(members)
			diff := candidates[j+1].level.Sub(mean).Abs()
			if mean.IsZero() {
				break
			}
			if diff.Div(mean).LessThanOrEqual(cfg.ConfluenceTolerancePct) {
				members = append(members, candidates[j+1])
				j++
				continue
			}
			break
		}
		i = j + 1

		distinct := distinctTimeframes(members)
		if len(distinct) >= cfg.MinZoneStrength {
			zones = append(zones, buildZone(members, distinct, currentPrice))
		}
	}

	return zones
}

func meanCandidateLevel(members []zoneCandidate) decimal.Decimal {
	levels := make([]decimal.Decimal, len(members))
	for i, m := range members {
		levels[i] = m.level
	}
	return decimalx.Mean(levels)
}

func distinctTimeframes(members []zoneCandidate) []dgtime.Interval {
	seen := make(map[dgtime.Interval]bool)
	var out []dgtime.Interval
	for _, m := range members {
		if !seen[m.timeframe] {
			seen[m.timeframe] = true
			out = append(out, m.timeframe)
		}
	}
	return out
}

func buildZone(members []zoneCandidate, timeframes []dgtime.Interval, currentPrice decimal.Decimal) ConfluenceZone {
	level := meanCandidateLevel(members)
	lower, upper := members[0].level, members[0].level
	firstTouch, lastTouch := members[0].ts, members[0].ts

	for _, m := range members[1:] {
		lower = decimalx.MinDecimal(lower, m.level)
		upper = decimalx.MaxDecimal(upper, m.level)
		if m.ts.Before(firstTouch) {
			firstTouch = m.ts
		}
		if m.ts.After(lastTouch) {
			lastTouch = m.ts
		}
	}

	zoneType := ZoneTypePivot
	switch {
	case currentPrice.GreaterThan(upper):
		zoneType = ZoneTypeSupport
	case currentPrice.LessThan(lower):
		zoneType = ZoneTypeResistance
	}

	return ConfluenceZone{
		ID:                   uuid.New().String(),
		Level:                level,
		Lower:                lower,
		Upper:                upper,
		Strength:             len(timeframes),
		ConfirmingTimeframes: timeframes,
		ZoneType:             zoneType,
		FirstTouchTS:         firstTouch,
		LastTouchTS:          lastTouch,
	}
}

// nearestZoneDistance returns the distance from price to the nearest zone's
// edge, used to compute signal strength's confluence_proximity term.
func nearestZoneDistance(zones []ConfluenceZone, price decimal.Decimal) (decimal.Decimal, bool) {
	if len(zones) == 0 {
		return decimal.Zero, false
	}

	var nearest decimal.Decimal
	found := false
	for _, z := range zones {
		var dist decimal.Decimal
		switch {
		case price.GreaterThan(z.Upper):
			dist = price.Sub(z.Upper)
		case price.LessThan(z.Lower):
			dist = z.Lower.Sub(price)
		default:
			dist = decimal.Zero
		}
		if !found || dist.LessThan(nearest) {
			nearest = dist
			found = true
		}
	}
	return nearest, found
}
