package decimalx

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, Clamp01(-1))
	assert.Equal(t, 1.0, Clamp01(2))
	assert.Equal(t, 0.5, Clamp01(0.5))
}

func TestStdDev(t *testing.T) {
	values := []decimal.Decimal{
		decimal.NewFromInt(2),
		decimal.NewFromInt(4),
		decimal.NewFromInt(4),
		decimal.NewFromInt(4),
		decimal.NewFromInt(5),
		decimal.NewFromInt(5),
		decimal.NewFromInt(7),
		decimal.NewFromInt(9),
	}
	// population stddev of this classic example is 2.0
	assert.InDelta(t, 2.0, StdDev(values), 1e-9)
}

func TestStdDevEmpty(t *testing.T) {
	assert.Equal(t, 0.0, StdDev(nil))
}

func TestPercentDiff(t *testing.T) {
	a := decimal.NewFromInt(110)
	b := decimal.NewFromInt(100)
	assert.True(t, PercentDiff(a, b).Equal(decimal.NewFromFloat(0.1)))
	assert.True(t, PercentDiff(a, decimal.Zero).IsZero())
}

func TestMaxMinDecimal(t *testing.T) {
	a := decimal.NewFromInt(1)
	b := decimal.NewFromInt(2)
	assert.True(t, MaxDecimal(a, b).Equal(b))
	assert.True(t, MinDecimal(a, b).Equal(a))
}
