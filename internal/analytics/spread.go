package analytics

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/udayhese96/Gemscap-Assignment/internal/models"
)

// Spread computes y - beta*x on the aligned intersection of the two series.
// With standardize set the result is centered and scaled to unit variance.
func Spread(y, x models.Series, beta float64, standardize bool) models.Series {
	ay, ax := models.AlignSeries(y, x)
	out := models.NewSeries(ay.Len())
	for i := 0; i < ay.Len(); i++ {
		out.Append(ay.Times[i], ay.Values[i]-beta*ax.Values[i])
	}
	if !standardize || out.Len() < 2 {
		return out
	}
	mean := stat.Mean(out.Values, nil)
	std := math.Sqrt(stat.Variance(out.Values, nil))
	if std == 0 {
		return out
	}
	for i := range out.Values {
		out.Values[i] = (out.Values[i] - mean) / std
	}
	return out
}

// LogSpread computes log(y) - beta*log(x) on the aligned intersection.
// Rows with a non-positive price are dropped.
func LogSpread(y, x models.Series, beta float64) models.Series {
	ay, ax := models.AlignSeries(y, x)
	out := models.NewSeries(ay.Len())
	for i := 0; i < ay.Len(); i++ {
		if ay.Values[i] <= 0 || ax.Values[i] <= 0 {
			continue
		}
		out.Append(ay.Times[i], math.Log(ay.Values[i])-beta*math.Log(ax.Values[i]))
	}
	return out
}

// RatioSpread computes y/x normalized by its rolling mean, a hedge-free
// alternative to the regression spread. A value hovers around 1 when the
// ratio sits at its trailing average. Entries before the window fills are
// NaN.
func RatioSpread(y, x models.Series, window int) models.Series {
	ay, ax := models.AlignSeries(y, x)
	ratio := models.NewSeries(ay.Len())
	for i := 0; i < ay.Len(); i++ {
		if ax.Values[i] == 0 {
			ratio.Append(ay.Times[i], math.NaN())
			continue
		}
		ratio.Append(ay.Times[i], ay.Values[i]/ax.Values[i])
	}

	out := models.NewSeries(ratio.Len())
	for i := 0; i < ratio.Len(); i++ {
		if i < window-1 || math.IsNaN(ratio.Values[i]) {
			out.Append(ratio.Times[i], math.NaN())
			continue
		}
		sum, count := 0.0, 0
		for j := i - window + 1; j <= i; j++ {
			if math.IsNaN(ratio.Values[j]) {
				continue
			}
			sum += ratio.Values[j]
			count++
		}
		if count == 0 || sum == 0 {
			out.Append(ratio.Times[i], math.NaN())
			continue
		}
		out.Append(ratio.Times[i], ratio.Values[i]/(sum/float64(count)))
	}
	return out
}

// SpreadStats summarizes a spread series
type SpreadStats struct {
	Mean        float64 `json:"mean"`
	Std         float64 `json:"std"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	Last        float64 `json:"last"`
	Range       float64 `json:"range"`
	HalfLife    float64 `json:"half_life,omitempty"`
	HasHalfLife bool    `json:"has_half_life"`
	Count       int     `json:"count"`
}

// DescribeSpread computes summary statistics for a spread, including the
// mean-reversion half-life when one exists
func DescribeSpread(spread models.Series) (*SpreadStats, error) {
	clean := spread.DropNaN()
	if clean.Len() < 2 {
		return nil, ErrInsufficientData
	}

	values := clean.Values
	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	stats := &SpreadStats{
		Mean:  stat.Mean(values, nil),
		Std:   math.Sqrt(stat.Variance(values, nil)),
		Min:   min,
		Max:   max,
		Last:  values[len(values)-1],
		Range: max - min,
		Count: len(values),
	}
	if hl, err := HalfLife(clean); err == nil {
		stats.HalfLife = hl
		stats.HasHalfLife = true
	}
	return stats, nil
}

// HalfLife estimates the mean-reversion half-life of a spread from an AR(1)
// fit of the level on its lag: s_t = theta*s_{t-1} + c + e. A theta outside
// (0, 1) means the series is not mean reverting.
func HalfLife(spread models.Series) (float64, error) {
	clean := spread.DropNaN()
	n := clean.Len()
	if n < minRegressionObs {
		return 0, ErrInsufficientData
	}

	// Regress s_t on s_{t-1}; persistence is the slope.
	lagged := clean.Values[:n-1]
	current := clean.Values[1:]

	fit, err := olsFit(current, lagged)
	if err != nil {
		return 0, err
	}
	theta := fit.Beta
	if theta <= 0 || theta >= 1 {
		return 0, ErrNoMeanReversion
	}
	return -math.Ln2 / math.Log(theta), nil
}
