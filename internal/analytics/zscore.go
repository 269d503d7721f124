package analytics

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/udayhese96/Gemscap-Assignment/internal/models"
)

// ZScore computes the rolling z-score of a series: the distance of each
// observation from its trailing window mean, in units of the trailing window
// standard deviation. The window counts non-missing observations; a result
// is produced once at least max(2, window/2) of them are present. A window
// with zero dispersion yields NaN, never a division by zero.
func ZScore(s models.Series, window int) models.Series {
	z, _, _, _ := ZScoreBands(s, window, 0, 0)
	return z
}

// ZScoreBands computes the rolling z-score together with the rolling mean
// and the mean + upper*std and mean + lower*std bands used for plotting
// thresholds.
func ZScoreBands(s models.Series, window int, upper, lower float64) (z, mean, upperBand, lowerBand models.Series) {
	n := s.Len()
	z = models.NewSeries(n)
	mean = models.NewSeries(n)
	upperBand = models.NewSeries(n)
	lowerBand = models.NewSeries(n)

	minPeriods := window / 2
	if minPeriods < 2 {
		minPeriods = 2
	}

	buf := make([]float64, 0, window)
	for i := 0; i < n; i++ {
		t := s.Times[i]
		v := s.Values[i]

		buf = buf[:0]
		lo := i - window + 1
		if lo < 0 {
			lo = 0
		}
		for j := lo; j <= i; j++ {
			if !math.IsNaN(s.Values[j]) {
				buf = append(buf, s.Values[j])
			}
		}

		if math.IsNaN(v) || len(buf) < minPeriods {
			z.Append(t, math.NaN())
			mean.Append(t, math.NaN())
			upperBand.Append(t, math.NaN())
			lowerBand.Append(t, math.NaN())
			continue
		}

		m := stat.Mean(buf, nil)
		sd := math.Sqrt(stat.Variance(buf, nil))
		mean.Append(t, m)
		upperBand.Append(t, m+upper*sd)
		lowerBand.Append(t, m+lower*sd)
		if sd == 0 {
			z.Append(t, math.NaN())
			continue
		}
		z.Append(t, (v-m)/sd)
	}
	return z, mean, upperBand, lowerBand
}

// Signal maps a z-score to a trading signal against the given thresholds:
// "sell" above upper, "buy" below lower, otherwise "neutral". NaN is always
// neutral.
func Signal(z, upper, lower float64) string {
	switch {
	case math.IsNaN(z):
		return "neutral"
	case z > upper:
		return "sell"
	case z < lower:
		return "buy"
	default:
		return "neutral"
	}
}
