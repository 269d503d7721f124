package analytics

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udayhese96/Gemscap-Assignment/internal/models"
)

func randomWalk(rng *rand.Rand, n int, start float64) models.Series {
	values := make([]float64, n)
	values[0] = start
	for i := 1; i < n; i++ {
		values[i] = values[i-1] + rng.NormFloat64()
	}
	return seriesOf(values...)
}

func meanReverting(rng *rand.Rand, n int, theta float64) models.Series {
	values := make([]float64, n)
	for i := 1; i < n; i++ {
		values[i] = theta*values[i-1] + rng.NormFloat64()
	}
	return seriesOf(values...)
}

func TestADF_InsufficientData(t *testing.T) {
	_, err := ADF(seriesOf(1, 2, 3, 4, 5), -1, "c", 0.05)
	assert.ErrorIs(t, err, ErrInsufficientData)

	// 19 observations: one short of the minimum
	values := make([]float64, 19)
	for i := range values {
		values[i] = float64(i % 3)
	}
	_, err = ADF(seriesOf(values...), -1, "c", 0.05)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestADF_UnknownRegression(t *testing.T) {
	_, err := ADF(seriesOf(1, 2, 3), -1, "ctt", 0.05)
	assert.Error(t, err)
}

func TestADF_StationarySeriesRejectsUnitRoot(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	s := meanReverting(rng, 200, 0.3)

	result, err := ADF(s, -1, "c", 0.05)
	require.NoError(t, err)
	assert.Equal(t, "adf", result.Method)
	assert.True(t, result.IsStationary)
	assert.Less(t, result.PValue, 0.05)
	assert.Less(t, result.TestStatistic, result.CriticalValues["5%"])
}

func TestADF_RandomWalkKeepsUnitRoot(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s := randomWalk(rng, 300, 100)

	result, err := ADF(s, -1, "c", 0.01)
	require.NoError(t, err)
	assert.Equal(t, "adf", result.Method)
	assert.False(t, result.IsStationary)
	assert.Greater(t, result.PValue, 0.01)
}

func TestADF_CriticalValuesOrdered(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	s := meanReverting(rng, 100, 0.5)

	result, err := ADF(s, -1, "c", 0.05)
	require.NoError(t, err)
	cv := result.CriticalValues
	require.Len(t, cv, 3)
	assert.Less(t, cv["1%"], cv["5%"])
	assert.Less(t, cv["5%"], cv["10%"])
	// Near the asymptotic surface for this sample size
	assert.InDelta(t, -2.89, cv["5%"], 0.1)
}

func TestADF_LagSelectionWithinBound(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	s := meanReverting(rng, 150, 0.6)

	result, err := ADF(s, -1, "c", 0.05)
	require.NoError(t, err)
	// Schwert bound for ~150 observations
	maxLag := int(math.Floor(12 * math.Pow(149.0/100.0, 0.25)))
	assert.GreaterOrEqual(t, result.UsedLag, 0)
	assert.LessOrEqual(t, result.UsedLag, maxLag)
	assert.Greater(t, result.NObs, 0)
}

func TestADF_FixedLag(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	s := meanReverting(rng, 120, 0.4)

	result, err := ADF(s, 2, "c", 0.05)
	require.NoError(t, err)
	assert.Equal(t, 2, result.UsedLag)
}

func TestADF_TrendRegression(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	// Stationary fluctuations around a linear trend
	values := make([]float64, 200)
	for i := range values {
		values[i] = 0.5*float64(i) + rng.NormFloat64()
	}

	result, err := ADF(seriesOf(values...), -1, "ct", 0.05)
	require.NoError(t, err)
	assert.Equal(t, "ct", result.Regression)
	assert.True(t, result.IsStationary)
}

func TestMacKinnonPValue_MatchesCriticalValues(t *testing.T) {
	// At the asymptotic critical value the p-value approximation must sit
	// close to the nominal level
	assert.InDelta(t, 0.01, mackinnonPValue(-3.43, "c"), 0.005)
	assert.InDelta(t, 0.05, mackinnonPValue(-2.86, "c"), 0.01)
	assert.InDelta(t, 0.10, mackinnonPValue(-2.57, "c"), 0.02)
}

func TestMacKinnonPValue_Saturates(t *testing.T) {
	assert.Equal(t, 0.0, mackinnonPValue(-25, "c"))
	assert.Equal(t, 1.0, mackinnonPValue(5, "c"))
}

func TestMacKinnonPValue_Monotone(t *testing.T) {
	prev := 0.0
	for tau := -6.0; tau <= 0; tau += 0.25 {
		p := mackinnonPValue(tau, "c")
		assert.GreaterOrEqual(t, p, prev, "p-value must not decrease as tau grows (tau=%v)", tau)
		prev = p
	}
}

func TestVarianceRatioCheck(t *testing.T) {
	// Alternating series: both halves share mean and variance
	alternating := make([]float64, 40)
	for i := range alternating {
		if i%2 == 0 {
			alternating[i] = 1
		} else {
			alternating[i] = -1
		}
	}
	result, err := VarianceRatioCheck(seriesOf(alternating...), 0.05)
	require.NoError(t, err)
	assert.Equal(t, "variance_ratio", result.Method)
	assert.Equal(t, 1, result.UsedLag)
	assert.True(t, result.IsStationary)
	assert.InDelta(t, 0.0, result.PValue, 0.01)

	// A ramp drifts: the second half's mean sits far above the first's
	ramp := make([]float64, 40)
	for i := range ramp {
		ramp[i] = float64(i)
	}
	result, err = VarianceRatioCheck(seriesOf(ramp...), 0.05)
	require.NoError(t, err)
	assert.False(t, result.IsStationary)
	// meanDiff = 20/std(0..39) ~ 1.711, scaled by 0.2
	assert.InDelta(t, 0.342, result.PValue, 0.01)
}

func TestVarianceRatioCheck_ConstantSeries(t *testing.T) {
	result, err := VarianceRatioCheck(seriesOf(5, 5, 5, 5, 5), 0.05)
	require.NoError(t, err)
	assert.True(t, result.IsStationary)
}

func TestVarianceRatioCheck_TooShort(t *testing.T) {
	_, err := VarianceRatioCheck(seriesOf(1, 2, 3), 0.05)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestEngleGranger_CointegratedPair(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	n := 250
	x := randomWalk(rng, n, 100)

	// y tracks x with stationary noise: textbook cointegration
	y := models.NewSeries(n)
	for i := 0; i < n; i++ {
		y.Append(x.Times[i], 2*x.Values[i]+5+rng.NormFloat64())
	}

	result, err := EngleGranger(y, x, -1, 0.05)
	require.NoError(t, err)
	assert.True(t, result.IsCointegrated)
	assert.InDelta(t, 2.0, result.Hedge.Beta, 0.05)
	assert.Equal(t, "adf", result.Residuals.Method)
}

func TestEngleGranger_IndependentWalksNotCointegrated(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	x := randomWalk(rng, 250, 100)
	y := randomWalk(rng, 250, 50)

	result, err := EngleGranger(y, x, -1, 0.01)
	require.NoError(t, err)
	assert.False(t, result.IsCointegrated)
}
