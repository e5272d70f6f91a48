package indicator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeEnvelopeDefaultInvariant(t *testing.T) {
	bars := makeBars(t, 20, 100)
	pldot, err := ComputePLdot(bars)
	require.NoError(t, err)

	env, err := ComputeEnvelope(bars, pldot, DefaultConfig())
	require.NoError(t, err)
	require.NotEmpty(t, env)

	for _, p := range env {
		assert.True(t, p.Lower.LessThanOrEqual(p.Middle), "lower<=middle")
		assert.True(t, p.Middle.LessThanOrEqual(p.Upper), "middle<=upper")
		assert.True(t, p.Width.Equal(p.Upper.Sub(p.Lower)))
	}
}

func TestComputeEnvelopeShorterThanPldot(t *testing.T) {
	bars := makeBars(t, 10, 100)
	pldot, err := ComputePLdot(bars)
	require.NoError(t, err)

	env, err := ComputeEnvelope(bars, pldot, DefaultConfig())
	require.NoError(t, err)
	assert.LessOrEqual(t, len(env), pldot.Len())
}

func TestComputeEnvelopeATRMethod(t *testing.T) {
	bars := makeBars(t, 30, 100)
	pldot, err := ComputePLdot(bars)
	require.NoError(t, err)

	cfg := Config{Method: MethodATR, Period: 14, Multiplier: decimal.NewFromFloat(1.5)}
	env, err := ComputeEnvelope(bars, pldot, cfg)
	require.NoError(t, err)
	require.NotEmpty(t, env)
	for _, p := range env {
		assert.True(t, p.Lower.LessThanOrEqual(p.Upper))
	}
}

func TestComputeEnvelopeInvalidConfig(t *testing.T) {
	bars := makeBars(t, 20, 100)
	pldot, err := ComputePLdot(bars)
	require.NoError(t, err)

	_, err = ComputeEnvelope(bars, pldot, Config{Method: MethodPldotRange, Period: 0, Multiplier: decimal.NewFromFloat(1.5)})
	require.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestComputeEnvelopeAlignment(t *testing.T) {
	bars := makeBars(t, 20, 100)
	pldot, err := ComputePLdot(bars)
	require.NoError(t, err)

	env, err := ComputeEnvelope(bars, pldot, DefaultConfig())
	require.NoError(t, err)

	// every envelope point's timestamp must match some pldot point exactly
	for _, ep := range env {
		_, ok := pldot.ValueAt(ep.Timestamp)
		assert.True(t, ok)
	}
}
