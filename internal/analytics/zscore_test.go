package analytics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZScore_WarmupIsNaN(t *testing.T) {
	s := seriesOf(1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
	z := ZScore(s, 6)
	require.Equal(t, 10, z.Len())

	// min periods is max(2, window/2) = 3
	assert.True(t, math.IsNaN(z.Values[0]))
	assert.True(t, math.IsNaN(z.Values[1]))
	assert.False(t, math.IsNaN(z.Values[2]))
}

func TestZScore_KnownValue(t *testing.T) {
	s := seriesOf(1, 2, 3, 4, 5)
	z := ZScore(s, 5)

	// Full window 1..5: mean 3, sample std sqrt(2.5)
	last := z.Values[4]
	assert.InDelta(t, (5.0-3.0)/math.Sqrt(2.5), last, 1e-9)
}

func TestZScore_ConstantWindowIsNaN(t *testing.T) {
	s := seriesOf(7, 7, 7, 7, 7, 7)
	z := ZScore(s, 4)
	for _, v := range z.Values {
		assert.True(t, math.IsNaN(v))
	}
}

func TestZScore_NaNInputStaysNaN(t *testing.T) {
	s := seriesOf(1, 2, math.NaN(), 4, 5, 6)
	z := ZScore(s, 4)
	assert.True(t, math.IsNaN(z.Values[2]))
	// Later windows skip the missing observation and still produce values
	assert.False(t, math.IsNaN(z.Values[5]))
}

func TestZScoreBands(t *testing.T) {
	s := seriesOf(1, 2, 3, 4, 5)
	z, mean, upper, lower := ZScoreBands(s, 5, 2, -2)
	require.Equal(t, 5, z.Len())

	m := mean.Values[4]
	sd := math.Sqrt(2.5)
	assert.InDelta(t, 3.0, m, 1e-9)
	assert.InDelta(t, m+2*sd, upper.Values[4], 1e-9)
	assert.InDelta(t, m-2*sd, lower.Values[4], 1e-9)
}

func TestSignal(t *testing.T) {
	assert.Equal(t, "sell", Signal(2.5, 2, -2))
	assert.Equal(t, "buy", Signal(-2.5, 2, -2))
	assert.Equal(t, "neutral", Signal(1.9, 2, -2))
	assert.Equal(t, "neutral", Signal(2.0, 2, -2)) // threshold is exclusive
	assert.Equal(t, "neutral", Signal(math.NaN(), 2, -2))
}
