package bar

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func TestNewValidBar(t *testing.T) {
	b, err := New(time.Now(), d(100), d(105), d(99), d(102), d(1000))
	require.NoError(t, err)
	assert.True(t, b.Low.LessThanOrEqual(b.Open))
}

func TestNewInvalidHigh(t *testing.T) {
	_, err := New(time.Now(), d(100), d(101), d(99), d(110), d(1000))
	require.Error(t, err)
}

func TestNewInvalidLow(t *testing.T) {
	_, err := New(time.Now(), d(100), d(105), d(101), d(102), d(1000))
	require.Error(t, err)
}

func TestNewNegativeVolume(t *testing.T) {
	_, err := New(time.Now(), d(100), d(105), d(99), d(102), d(-1))
	require.Error(t, err)
}

func TestSeriesValidateOrdering(t *testing.T) {
	now := time.Now()
	b1, _ := New(now, d(100), d(101), d(99), d(100), d(10))
	b2, _ := New(now, d(100), d(101), d(99), d(100), d(10)) // same ts, not strictly ascending
	s := Series{b1, b2}
	require.Error(t, s.Validate())
}

func TestSeriesClosesOrder(t *testing.T) {
	now := time.Now()
	b1, _ := New(now, d(100), d(101), d(99), d(100), d(10))
	b2, _ := New(now.Add(time.Hour), d(100), d(102), d(99), d(101), d(10))
	s := Series{b1, b2}
	closes := s.Closes()
	require.Len(t, closes, 2)
	assert.True(t, closes[0].Equal(d(100)))
	assert.True(t, closes[1].Equal(d(101)))
}
