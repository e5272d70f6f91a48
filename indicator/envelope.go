package indicator

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/dgquant/bar"
	"github.com/vadiminshakov/dgquant/decimalx"
)

// Method selects how the envelope offset around PLdot is computed.
type Method string

const (
	// MethodPldotRange is the canonical Drummond envelope: a stddev of
	// recent PLdot values. It is the default per spec.md §4.2's design
	// rationale — ATR is a foreign convention and must never default.
	MethodPldotRange Method = "pldot_range"
	// MethodATR uses Wilder's ATR as the offset basis instead.
	MethodATR Method = "atr"
)

// Config configures envelope computation.
type Config struct {
	Method     Method
	Period     int
	Multiplier decimal.Decimal
}

// DefaultConfig returns the canonical 3-period PldotRange envelope at a
// 1.5x multiplier.
func DefaultConfig() Config {
	return Config{
		Method:     MethodPldotRange,
		Period:     3,
		Multiplier: decimal.NewFromFloat(1.5),
	}
}

// EnvelopePoint is the upper/middle/lower band around PLdot at a timestamp.
type EnvelopePoint struct {
	Timestamp time.Time
	Upper     decimal.Decimal
	Middle    decimal.Decimal
	Lower     decimal.Decimal
	Width     decimal.Decimal
}

// ComputeEnvelope builds the envelope series for (bars, pldot). Points
// before enough history is available are omitted, so the output may be
// shorter than pldot.Points(); timestamp alignment with pldot is always
// preserved (spec.md §4.2).
func ComputeEnvelope(bars bar.Series, pldot *PLdotSeries, cfg Config) ([]EnvelopePoint, error) {
	if cfg.Period <= 0 {
		return nil, ErrInvalidConfiguration
	}
	if cfg.Multiplier.IsZero() {
		return nil, ErrInvalidConfiguration
	}

	points := pldot.Points()
	if len(points) == 0 {
		return nil, ErrInsufficientHistory
	}

	switch cfg.Method {
	case MethodATR:
		return envelopeFromATR(bars, points, cfg)
	case MethodPldotRange, "":
		return envelopeFromPldotRange(points, cfg)
	default:
		return nil, ErrInvalidConfiguration
	}
}

func envelopeFromPldotRange(points []Point, cfg Config) ([]EnvelopePoint, error) {
	if len(points) < cfg.Period {
		return nil, ErrInsufficientHistory
	}

	out := make([]EnvelopePoint, 0, len(points)-cfg.Period+1)
	for i := cfg.Period - 1; i < len(points); i++ {
		window := make([]decimal.Decimal, cfg.Period)
		for j := 0; j < cfg.Period; j++ {
			window[j] = points[i-cfg.Period+1+j].Value
		}
		offset := decimal.NewFromFloat(decimalx.StdDev(window)).Mul(cfg.Multiplier)
		out = append(out, buildEnvelopePoint(points[i], offset))
	}

	return out, nil
}

func envelopeFromATR(bars bar.Series, points []Point, cfg Config) ([]EnvelopePoint, error) {
	atrPoints, err := ComputeATR(bars, cfg.Period)
	if err != nil {
		return nil, err
	}

	out := make([]EnvelopePoint, 0, len(points))
	for _, p := range points {
		atrValue, ok := atrAt(atrPoints, p.Timestamp)
		if !ok {
			continue
		}
		offset := atrValue.Mul(cfg.Multiplier)
		out = append(out, buildEnvelopePoint(p, offset))
	}

	if len(out) == 0 {
		return nil, ErrInsufficientHistory
	}

	return out, nil
}

func buildEnvelopePoint(p Point, offset decimal.Decimal) EnvelopePoint {
	offset = offset.Abs()
	upper := decimalx.Round(p.Value.Add(offset))
	lower := decimalx.Round(p.Value.Sub(offset))
	return EnvelopePoint{
		Timestamp: p.Timestamp,
		Upper:     upper,
		Middle:    p.Value,
		Lower:     lower,
		Width:     decimalx.Round(upper.Sub(lower)),
	}
}

// Latest returns the most recent envelope point, if any.
func Latest(points []EnvelopePoint) (EnvelopePoint, bool) {
	if len(points) == 0 {
		return EnvelopePoint{}, false
	}
	return points[len(points)-1], true
}

// At returns the envelope point matching ts, if present.
func At(points []EnvelopePoint, ts time.Time) (EnvelopePoint, bool) {
	for _, p := range points {
		if p.Timestamp.Equal(ts) {
			return p, true
		}
	}
	return EnvelopePoint{}, false
}
