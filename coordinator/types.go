// Package coordinator implements the multi-timeframe coordinator of
// spec.md §4.5: alignment scoring, PLdot projection across timeframes,
// confluence-zone discovery, and composite signal strength / risk level.
package coordinator

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/dgquant/bar"
	"github.com/vadiminshakov/dgquant/dgtime"
	"github.com/vadiminshakov/dgquant/indicator"
	"github.com/vadiminshakov/dgquant/marketstate"
	"github.com/vadiminshakov/dgquant/pattern"
)

// Classification labels a TimeframeData's role relative to the others
// supplied to a single coordinator call.
type Classification string

const (
	ClassificationHigher  Classification = "Higher"
	ClassificationTrading Classification = "Trading"
	ClassificationLower   Classification = "Lower"
)

// TimeframeData bundles one timeframe's full indicator stack, built once
// per (symbol, timeframe) and treated as read-only thereafter (spec.md §5).
type TimeframeData struct {
	Timeframe      dgtime.Interval
	Classification Classification
	Bars           bar.Series
	Pldot          *indicator.PLdotSeries
	Envelopes      []indicator.EnvelopePoint
	States         []marketstate.StatePoint
	Patterns       []pattern.Event
}

// ZoneType classifies a ConfluenceZone relative to the current price.
type ZoneType string

const (
	ZoneTypeSupport    ZoneType = "Support"
	ZoneTypeResistance ZoneType = "Resistance"
	ZoneTypePivot      ZoneType = "Pivot"
)

// ConfluenceZone is a price band confirmed by more than one timeframe.
type ConfluenceZone struct {
	ID                   string
	Level                decimal.Decimal
	Lower                decimal.Decimal
	Upper                decimal.Decimal
	Strength             int
	ConfirmingTimeframes []dgtime.Interval
	ZoneType             ZoneType
	FirstTouchTS         time.Time
	LastTouchTS          time.Time
}

// AlignmentType classifies cross-timeframe agreement.
type AlignmentType string

const (
	AlignmentPerfect     AlignmentType = "Perfect"
	AlignmentPartial     AlignmentType = "Partial"
	AlignmentDivergent   AlignmentType = "Divergent"
	AlignmentConflicting AlignmentType = "Conflicting"
)

// TimeframeAlignment is the scored agreement between HTF and trading state.
type TimeframeAlignment struct {
	AlignmentType  AlignmentType
	Score          float64
	TradePermitted bool
}

// RiskLevel is the coordinator's composite risk assessment.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// RecommendedAction is the coordinator's trading recommendation.
type RecommendedAction string

const (
	ActionLong   RecommendedAction = "Long"
	ActionShort  RecommendedAction = "Short"
	ActionWait   RecommendedAction = "Wait"
	ActionReduce RecommendedAction = "Reduce"
)

// OverlayPosition classifies the trading-timeframe close relative to the
// projected HTF PLdot level.
type OverlayPosition string

const (
	OverlayAboveHTF OverlayPosition = "AboveHTF"
	OverlayBelowHTF OverlayPosition = "BelowHTF"
	OverlayAtHTF    OverlayPosition = "AtHTF"
)

// PldotOverlay is the HTF PLdot projected onto the trading timeframe.
type PldotOverlay struct {
	HTFPldotValue decimal.Decimal
	TradingClose  decimal.Decimal
	DistancePct   float64
	Position      OverlayPosition
}

// MultiTimeframeAnalysis is the coordinator's single output value per call.
type MultiTimeframeAnalysis struct {
	Symbol            string
	Timestamp         time.Time
	HTFTrend          marketstate.Direction
	HTFStrength       float64
	TradingTrend      marketstate.Direction
	Alignment         TimeframeAlignment
	PldotOverlay      PldotOverlay
	ConfluenceZones   []ConfluenceZone
	PatternConfluence bool
	SignalStrength    float64
	RiskLevel         RiskLevel
	RecommendedAction RecommendedAction
}
