package backtest

import (
	"sort"
	"strconv"

	"github.com/vadiminshakov/dgquant/decimalx"
	"github.com/vadiminshakov/dgquant/signal"
)

// RankedSignal pairs a generated Signal with the composite score used for
// admission control (spec.md §4.7.2 step 5).
type RankedSignal struct {
	Signal *signal.Signal
	Score  float64
}

// confluenceNorm and patternNorm are the denominators used to normalize
// ConfluenceCount and len(PatternKinds) into [0, 1]. Metadata does not
// bound either field, so these are an assumption made here: five
// confluence zones or three simultaneous pattern kinds already saturate
// the component.
const (
	confluenceNorm = 5.0
	patternNorm    = 3.0
)

// score computes the composite ranking score of spec.md §4.7.2 step 5:
// 0.5*confidence + 0.25*confluence + 0.15*pattern + 0.1*volatility. The
// volatility component is read defensively from Metadata.Extras["volatility"]
// and defaults to 0 when absent or unparseable (spec.md §9 open question,
// resolved in DESIGN.md).
func score(s *signal.Signal) float64 {
	confluence := decimalx.Clamp01(float64(s.Metadata.ConfluenceCount) / confluenceNorm)
	pattern := decimalx.Clamp01(float64(len(s.Metadata.PatternKinds)) / patternNorm)

	volatility := 0.0
	if raw, ok := s.Metadata.Extra("volatility"); ok {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			volatility = decimalx.Clamp01(v)
		}
	}

	return decimalx.Clamp01(
		0.5*s.Confidence +
			0.25*confluence +
			0.15*pattern +
			0.1*volatility,
	)
}

// FilterAndRank drops signals below minConfidence, scores the rest, and
// returns them sorted by descending score. Entry signals (Long/Short) are
// distinguished from exit signals (ExitLong/ExitShort), which always pass
// the confidence filter since a position already open should be free to
// exit (spec.md §4.7.2 step 5 applies admission control to new entries
// only).
func FilterAndRank(signals []*signal.Signal, minConfidence float64) []RankedSignal {
	ranked := make([]RankedSignal, 0, len(signals))
	for _, s := range signals {
		if s == nil {
			continue
		}
		isEntry := s.Type == signal.TypeLong || s.Type == signal.TypeShort
		if isEntry && s.Confidence < minConfidence {
			continue
		}
		ranked = append(ranked, RankedSignal{Signal: s, Score: score(s)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}
