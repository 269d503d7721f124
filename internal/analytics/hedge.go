package analytics

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/udayhese96/Gemscap-Assignment/internal/models"
)

// minRegressionObs is the minimum paired sample for an OLS fit
const minRegressionObs = 10

// HedgeRatio holds the result of regressing y on x:
// y = Alpha + Beta*x + e
type HedgeRatio struct {
	Beta     float64 `json:"beta"`
	Alpha    float64 `json:"alpha"`
	RSquared float64 `json:"r_squared"`
	StdError float64 `json:"std_error"`
}

// OLSHedgeRatio fits y = alpha + beta*x by ordinary least squares after
// aligning the two series on their timestamp intersection and dropping
// missing rows. Beta is the number of units of x to short per unit of y.
func OLSHedgeRatio(y, x models.Series) (*HedgeRatio, error) {
	ay, ax := models.AlignSeries(y, x)
	if ay.Len() < minRegressionObs {
		return nil, ErrInsufficientData
	}
	return olsFit(ay.Values, ax.Values)
}

func olsFit(yv, xv []float64) (*HedgeRatio, error) {
	n := len(yv)
	xMean := stat.Mean(xv, nil)
	yMean := stat.Mean(yv, nil)

	var sxx, sxy float64
	for i := 0; i < n; i++ {
		dx := xv[i] - xMean
		sxx += dx * dx
		sxy += dx * (yv[i] - yMean)
	}
	if sxx == 0 {
		return nil, ErrSingularDesign
	}

	beta := sxy / sxx
	alpha := yMean - beta*xMean

	var ssr, sst float64
	for i := 0; i < n; i++ {
		resid := yv[i] - (alpha + beta*xv[i])
		ssr += resid * resid
		dy := yv[i] - yMean
		sst += dy * dy
	}

	rSquared := 0.0
	if sst > 0 {
		rSquared = 1 - ssr/sst
	}

	stdError := 0.0
	if n > 2 {
		stdError = math.Sqrt((ssr / float64(n-2)) / sxx)
	}

	return &HedgeRatio{
		Beta:     beta,
		Alpha:    alpha,
		RSquared: rSquared,
		StdError: stdError,
	}, nil
}

// RollingHedgeRatio computes the OLS fit over a sliding window, returning
// beta and R-squared series aligned to the paired index. Entries before the
// window fills, and windows with a degenerate fit, are NaN.
func RollingHedgeRatio(y, x models.Series, window int) (betas, rSquareds models.Series) {
	ay, ax := models.AlignSeries(y, x)
	n := ay.Len()
	betas = models.NewSeries(n)
	rSquareds = models.NewSeries(n)
	for i := 0; i < n; i++ {
		if i < window-1 {
			betas.Append(ay.Times[i], math.NaN())
			rSquareds.Append(ay.Times[i], math.NaN())
			continue
		}
		lo := i - window + 1
		result, err := olsFit(ay.Values[lo:i+1], ax.Values[lo:i+1])
		if err != nil {
			betas.Append(ay.Times[i], math.NaN())
			rSquareds.Append(ay.Times[i], math.NaN())
			continue
		}
		betas.Append(ay.Times[i], result.Beta)
		rSquareds.Append(ay.Times[i], result.RSquared)
	}
	return betas, rSquareds
}
