package indicator

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/dgquant/bar"
	"github.com/vadiminshakov/dgquant/decimalx"
)

// Point is one PLdotPoint: the three-bar projection value and its slope,
// per spec.md §4.1. Value and Slope are stored against the timestamp of the
// bar the three-bar window ends on (bars[t-2..t]); ProjectForward exposes
// the "stamped with timestamp_{t+1}" overlay consumers need.
type Point struct {
	Timestamp time.Time
	Value     decimal.Decimal
	Slope     decimal.Decimal
}

// ProjectForward returns a copy of p stamped with the timestamp it is a
// forecast for (bar t+1), used by overlays that plot PLdot ahead of price.
func (p Point) ProjectForward(nextTimestamp time.Time) Point {
	return Point{Timestamp: nextTimestamp, Value: p.Value, Slope: p.Slope}
}

// PLdotSeries is a lazy, finite, non-restartable sequence of Points. Once
// exhausted via Next, a series cannot be replayed; callers needing random
// access use Points, which does not consume the stream.
type PLdotSeries struct {
	points []Point
	pos    int
}

// ComputePLdot builds the PLdot series for an ordered bar.Series. Fails with
// ErrInsufficientHistory when fewer than three bars are supplied.
//
// value_t = (H_{t-2}+L_{t-2}+H_{t-1}+L_{t-1}+H_t+L_t+2*C_t) / 8
// slope_t = value_t - value_{t-1}, slope_0 = 0
//
// PLdot_t depends only on bars t-2..t: no look-ahead (spec.md §8 item 8).
func ComputePLdot(bars bar.Series) (*PLdotSeries, error) {
	if len(bars) < 3 {
		return nil, ErrInsufficientHistory
	}

	points := make([]Point, 0, len(bars)-2)
	var prevValue decimal.Decimal
	eight := decimal.NewFromInt(8)

	for t := 2; t < len(bars); t++ {
		b2, b1, b0 := bars[t-2], bars[t-1], bars[t]

		sum := b2.High.Add(b2.Low).
			Add(b1.High).Add(b1.Low).
			Add(b0.High).Add(b0.Low).
			Add(b0.Close).Add(b0.Close)
		value := decimalx.Round(sum.Div(eight))

		slope := decimal.Zero
		if len(points) > 0 {
			slope = decimalx.Round(value.Sub(prevValue))
		}

		points = append(points, Point{
			Timestamp: b0.Timestamp,
			Value:     value,
			Slope:     slope,
		})
		prevValue = value
	}

	return &PLdotSeries{points: points}, nil
}

// Next returns the next Point in the stream, or ok=false once exhausted.
func (s *PLdotSeries) Next() (Point, bool) {
	if s == nil || s.pos >= len(s.points) {
		return Point{}, false
	}
	p := s.points[s.pos]
	s.pos++
	return p, true
}

// Points returns the full computed series without consuming Next's cursor.
func (s *PLdotSeries) Points() []Point {
	if s == nil {
		return nil
	}
	return s.points
}

// Len returns the number of points in the series.
func (s *PLdotSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.points)
}

// Latest returns the most recent point, if any.
func (s *PLdotSeries) Latest() (Point, bool) {
	pts := s.Points()
	if len(pts) == 0 {
		return Point{}, false
	}
	return pts[len(pts)-1], true
}

// ValueAt returns the point whose timestamp matches ts exactly.
func (s *PLdotSeries) ValueAt(ts time.Time) (Point, bool) {
	for _, p := range s.Points() {
		if p.Timestamp.Equal(ts) {
			return p, true
		}
	}
	return Point{}, false
}
