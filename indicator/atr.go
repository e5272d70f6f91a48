package indicator

import (
	"time"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/volatility"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/dgquant/bar"
	"github.com/vadiminshakov/dgquant/decimalx"
)

// ATRPoint is one Wilder true-range moving average sample aligned to a bar
// timestamp.
type ATRPoint struct {
	Timestamp time.Time
	Value     decimal.Decimal
}

// ComputeATR computes Wilder's Average True Range over period bars, bridging
// through github.com/cinar/indicator/v2/volatility the same way the teacher
// repo's pkg/indicators/indicators.go CalculateATR does: decimals are
// converted to float64 for the library call and back, since the upstream
// indicator library only operates on float64 channels.
func ComputeATR(bars bar.Series, period int) ([]ATRPoint, error) {
	if period <= 0 {
		return nil, ErrInvalidConfiguration
	}
	if len(bars) < period+1 {
		return nil, ErrInsufficientHistory
	}

	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	closes := make([]float64, len(bars))
	for i, b := range bars {
		highs[i], _ = b.High.Float64()
		lows[i], _ = b.Low.Float64()
		closes[i], _ = b.Close.Float64()
	}

	atr := volatility.NewAtrWithPeriod[float64](period)
	highChan := helper.SliceToChan(highs)
	lowChan := helper.SliceToChan(lows)
	closeChan := helper.SliceToChan(closes)
	outputChan := atr.Compute(highChan, lowChan, closeChan)
	values := helper.ChanToSlice(outputChan)

	offset := len(bars) - len(values)
	if offset < 0 {
		offset = 0
	}
	if offset > len(bars) {
		offset = len(bars)
	}

	points := make([]ATRPoint, 0, len(values))
	for i, v := range values {
		idx := offset + i
		if idx >= len(bars) {
			break
		}
		points = append(points, ATRPoint{
			Timestamp: bars[idx].Timestamp,
			Value:     decimalx.Round(decimal.NewFromFloat(v)),
		})
	}

	return points, nil
}

// atrAt returns the ATR value matching ts, if present.
func atrAt(points []ATRPoint, ts time.Time) (decimal.Decimal, bool) {
	for _, p := range points {
		if p.Timestamp.Equal(ts) {
			return p.Value, true
		}
	}
	return decimal.Zero, false
}
