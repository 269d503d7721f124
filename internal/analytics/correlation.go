package analytics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/udayhese96/Gemscap-Assignment/internal/models"
)

// RollingCorrelation computes the Pearson correlation of two series over a
// sliding window on their aligned intersection. A value is produced once
// max(2, window/2) aligned observations accumulate; entries before that, or
// where either side has zero variance, are NaN.
func RollingCorrelation(x, y models.Series, window int) models.Series {
	ax, ay := models.AlignSeries(x, y)
	n := ax.Len()
	out := models.NewSeries(n)

	minPeriods := window / 2
	if minPeriods < 2 {
		minPeriods = 2
	}

	for i := 0; i < n; i++ {
		lo := i - window + 1
		if lo < 0 {
			lo = 0
		}
		if i+1-lo < minPeriods {
			out.Append(ax.Times[i], math.NaN())
			continue
		}
		r := stat.Correlation(ax.Values[lo:i+1], ay.Values[lo:i+1], nil)
		if math.IsNaN(r) || math.IsInf(r, 0) {
			out.Append(ax.Times[i], math.NaN())
			continue
		}
		out.Append(ax.Times[i], r)
	}
	return out
}

// ReturnsCorrelation computes the rolling correlation of log returns rather
// than price levels. Price-level correlation overstates co-movement for any
// two trending series; returns correlation is the honest measure.
func ReturnsCorrelation(x, y models.Series, window int) models.Series {
	return RollingCorrelation(LogReturns(x), LogReturns(y), window)
}

// CorrelationMatrix computes the pairwise Pearson correlation of every
// column in the table over rows where both columns are present. Symbols are
// returned sorted; cells with fewer than two shared observations are NaN.
func CorrelationMatrix(table models.PriceTable) ([]string, [][]float64) {
	symbols := make([]string, len(table.Symbols))
	copy(symbols, table.Symbols)
	sort.Strings(symbols)

	matrix := make([][]float64, len(symbols))
	for i := range matrix {
		matrix[i] = make([]float64, len(symbols))
	}

	for i, a := range symbols {
		for j, b := range symbols {
			if j < i {
				matrix[i][j] = matrix[j][i]
				continue
			}
			if i == j {
				matrix[i][j] = 1
				continue
			}
			colA, okA := table.Column(a)
			colB, okB := table.Column(b)
			if !okA || !okB {
				matrix[i][j] = math.NaN()
				continue
			}
			matrix[i][j] = pairwiseCorrelation(colA, colB)
		}
	}
	return symbols, matrix
}

func pairwiseCorrelation(a, b []float64) float64 {
	xs := make([]float64, 0, len(a))
	ys := make([]float64, 0, len(a))
	for i := range a {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		xs = append(xs, a[i])
		ys = append(ys, b[i])
	}
	if len(xs) < 2 {
		return math.NaN()
	}
	r := stat.Correlation(xs, ys, nil)
	if math.IsInf(r, 0) {
		return math.NaN()
	}
	return r
}
