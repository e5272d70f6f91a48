package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vadiminshakov/dgquant/signal"
)

func TestFilterAndRankDropsLowConfidenceEntries(t *testing.T) {
	signals := []*signal.Signal{
		{Symbol: "A", Type: signal.TypeLong, Confidence: 0.3},
		{Symbol: "B", Type: signal.TypeLong, Confidence: 0.8},
	}
	ranked := FilterAndRank(signals, 0.5)
	assert.Len(t, ranked, 1)
	assert.Equal(t, "B", ranked[0].Signal.Symbol)
}

func TestFilterAndRankOrdersByConfluenceAndConfidence(t *testing.T) {
	signals := []*signal.Signal{
		{Symbol: "LOW", Type: signal.TypeLong, Confidence: 0.6, Metadata: signal.Metadata{ConfluenceCount: 0}},
		{Symbol: "HIGH", Type: signal.TypeLong, Confidence: 0.6, Metadata: signal.Metadata{ConfluenceCount: 5, PatternKinds: []string{"PLdotPush"}}},
	}
	ranked := FilterAndRank(signals, 0.5)
	assert.Len(t, ranked, 2)
	assert.Equal(t, "HIGH", ranked[0].Signal.Symbol)
}

func TestFilterAndRankAlwaysAdmitsExitSignals(t *testing.T) {
	signals := []*signal.Signal{
		{Symbol: "A", Type: signal.TypeExitLong, Confidence: 0.1},
	}
	ranked := FilterAndRank(signals, 0.5)
	assert.Len(t, ranked, 1)
}
