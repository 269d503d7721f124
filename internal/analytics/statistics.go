package analytics

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/udayhese96/Gemscap-Assignment/internal/models"
)

// Statistics summarizes a price series
type Statistics struct {
	Symbol           string  `json:"symbol"`
	Mean             float64 `json:"mean"`
	Std              float64 `json:"std"`
	Min              float64 `json:"min"`
	Max              float64 `json:"max"`
	Last             float64 `json:"last"`
	ReturnsMean      float64 `json:"returns_mean"`
	ReturnsStd       float64 `json:"returns_std"`
	CumulativeReturn float64 `json:"cumulative_return"`
	Count            int     `json:"count"`
}

// Describe computes summary statistics over a price series. Requires at
// least two non-missing observations.
func Describe(prices models.Series, symbol string) (*Statistics, error) {
	clean := prices.DropNaN()
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

	logReturns := make([]float64, 0, len(values)-1)
	sumReturns := 0.0
	for i := 1; i < len(values); i++ {
		r := math.Log(values[i] / values[i-1])
		logReturns = append(logReturns, r)
		sumReturns += r
	}

	stats := &Statistics{
		Symbol: symbol,
		Mean:   stat.Mean(values, nil),
		Std:    math.Sqrt(stat.Variance(values, nil)),
		Min:    min,
		Max:    max,
		Last:   values[len(values)-1],
		Count:  len(values),
	}
	if len(logReturns) > 0 {
		stats.ReturnsMean = stat.Mean(logReturns, nil)
		stats.CumulativeReturn = math.Exp(sumReturns) - 1
	}
	if len(logReturns) > 1 {
		stats.ReturnsStd = math.Sqrt(stat.Variance(logReturns, nil))
	}
	return stats, nil
}

// LogReturns converts a price series into log returns, one observation
// shorter than the input
func LogReturns(prices models.Series) models.Series {
	clean := prices.DropNaN()
	out := models.NewSeries(clean.Len())
	for i := 1; i < clean.Len(); i++ {
		out.Append(clean.Times[i], math.Log(clean.Values[i]/clean.Values[i-1]))
	}
	return out
}
