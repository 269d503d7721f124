package analytics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/udayhese96/Gemscap-Assignment/internal/models"
)

// minADFObs is the minimum sample for the unit-root regression
const minADFObs = 20

// ADFResult holds the outcome of a stationarity test
type ADFResult struct {
	TestStatistic  float64            `json:"test_statistic"`
	PValue         float64            `json:"p_value"`
	UsedLag        int                `json:"used_lag"`
	NObs           int                `json:"n_obs"`
	CriticalValues map[string]float64 `json:"critical_values"`
	IsStationary   bool               `json:"is_stationary"`
	Regression     string             `json:"regression"`
	// Method is "adf" for the augmented Dickey-Fuller test and
	// "variance_ratio" for the heuristic fallback. Consumers must check it
	// before treating PValue as a real significance level.
	Method string `json:"method"`
}

// ADF runs the augmented Dickey-Fuller unit-root test:
//
//	dy_t = rho*y_{t-1} + c + d*t + sum_i phi_i*dy_{t-i} + e_t
//
// regression selects the deterministic terms: "c" constant only, "ct"
// constant and linear trend, "n" neither. A negative maxLag selects the lag
// order automatically by AIC, with the candidates fitted on a common sample
// so their criteria are comparable. The null hypothesis is a unit root;
// IsStationary is set when PValue < alpha.
func ADF(s models.Series, maxLag int, regression string, alpha float64) (*ADFResult, error) {
	ntrend, err := trendTerms(regression)
	if err != nil {
		return nil, err
	}

	clean := s.DropNaN()
	y := clean.Values
	n := len(y)
	if n < minADFObs {
		return nil, ErrInsufficientData
	}

	// First differences; index i holds y[i+1]-y[i].
	m := n - 1
	dy := make([]float64, m)
	for i := 0; i < m; i++ {
		dy[i] = y[i+1] - y[i]
	}

	if maxLag < 0 {
		// Schwert's rule of thumb.
		maxLag = int(math.Floor(12 * math.Pow(float64(m)/100, 0.25)))
	}
	if limit := m/2 - ntrend - 1; maxLag > limit {
		maxLag = limit
	}
	if maxLag < 0 {
		return nil, ErrInsufficientData
	}

	usedLag := maxLag
	if maxLag > 0 {
		usedLag = selectLagAIC(y, dy, maxLag, ntrend)
	}

	tau, nobs, err := adfRegression(y, dy, usedLag, ntrend)
	if err != nil {
		return nil, err
	}

	pValue := mackinnonPValue(tau, regression)
	result := &ADFResult{
		TestStatistic:  tau,
		PValue:         pValue,
		UsedLag:        usedLag,
		NObs:           nobs,
		CriticalValues: mackinnonCritValues(regression, nobs),
		IsStationary:   pValue < alpha,
		Regression:     regression,
		Method:         "adf",
	}
	return result, nil
}

func trendTerms(regression string) (int, error) {
	switch regression {
	case "n":
		return 0, nil
	case "c":
		return 1, nil
	case "ct":
		return 2, nil
	default:
		return 0, fmt.Errorf("unknown regression %q (want n, c or ct)", regression)
	}
}

// buildDesign assembles the ADF regressors for rows start..len(dy)-1 with
// the given lag order. Column 0 is the lagged level, whose t-statistic is
// the test statistic.
func buildDesign(y, dy []float64, lag, ntrend, start int) (response []float64, cols [][]float64) {
	m := len(dy)
	rows := m - start
	response = make([]float64, rows)

	p := 1 + lag + ntrend
	cols = make([][]float64, p)
	for j := range cols {
		cols[j] = make([]float64, rows)
	}

	for r := 0; r < rows; r++ {
		i := start + r
		response[r] = dy[i]
		cols[0][r] = y[i]
		for k := 1; k <= lag; k++ {
			cols[k][r] = dy[i-k]
		}
		if ntrend >= 1 {
			cols[1+lag][r] = 1
		}
		if ntrend == 2 {
			cols[2+lag][r] = float64(i + 1)
		}
	}
	return response, cols
}

// selectLagAIC fits every candidate lag on the sample trimmed to the
// largest one and returns the lag minimizing the Akaike criterion
func selectLagAIC(y, dy []float64, maxLag, ntrend int) int {
	bestLag := 0
	bestAIC := math.Inf(1)
	for lag := 0; lag <= maxLag; lag++ {
		response, cols := buildDesign(y, dy, lag, ntrend, maxLag)
		_, _, ssr, err := regress(response, cols)
		if err != nil {
			continue
		}
		neff := float64(len(response))
		if ssr <= 0 {
			return lag
		}
		aic := neff*math.Log(ssr/neff) + 2*float64(len(cols))
		if aic < bestAIC {
			bestAIC = aic
			bestLag = lag
		}
	}
	return bestLag
}

// adfRegression runs the final fit on the full usable sample and returns
// the t-statistic of the lagged level together with the effective sample
// size
func adfRegression(y, dy []float64, lag, ntrend int) (tau float64, nobs int, err error) {
	response, cols := buildDesign(y, dy, lag, ntrend, lag)
	coef, se, _, err := regress(response, cols)
	if err != nil {
		return 0, 0, err
	}
	if se[0] == 0 {
		return 0, 0, ErrSingularDesign
	}
	return coef[0] / se[0], len(response), nil
}

// regress solves ordinary least squares by QR and returns coefficients,
// standard errors and the residual sum of squares
func regress(response []float64, cols [][]float64) (coef, se []float64, ssr float64, err error) {
	rows := len(response)
	p := len(cols)
	if rows <= p {
		return nil, nil, 0, ErrInsufficientData
	}

	a := mat.NewDense(rows, p, nil)
	for j, col := range cols {
		a.SetCol(j, col)
	}
	b := mat.NewVecDense(rows, response)

	var qr mat.QR
	qr.Factorize(a)
	var sol mat.VecDense
	if err := qr.SolveVecTo(&sol, false, b); err != nil {
		return nil, nil, 0, ErrSingularDesign
	}

	var fitted mat.VecDense
	fitted.MulVec(a, &sol)
	for i := 0; i < rows; i++ {
		r := response[i] - fitted.AtVec(i)
		ssr += r * r
	}

	var gram, inv mat.Dense
	gram.Mul(a.T(), a)
	if err := inv.Inverse(&gram); err != nil {
		return nil, nil, 0, ErrSingularDesign
	}

	sigma2 := ssr / float64(rows-p)
	coef = make([]float64, p)
	se = make([]float64, p)
	for j := 0; j < p; j++ {
		coef[j] = sol.AtVec(j)
		se[j] = math.Sqrt(sigma2 * inv.At(j, j))
	}
	return coef, se, ssr, nil
}

// MacKinnon (1994) approximate asymptotic p-values. The statistic range is
// split at tauStar: a cubic fits the small-p region, a quadratic the rest,
// both mapped through the standard normal CDF.
var (
	tauMin  = map[string]float64{"n": -19.04, "c": -18.83, "ct": -16.18}
	tauMax  = map[string]float64{"n": 2.74, "c": 2.74, "ct": 0.7}
	tauStar = map[string]float64{"n": -1.04, "c": -1.61, "ct": -2.89}

	tauSmallP = map[string][]float64{
		"n":  {0.6344, 1.2378, 0.032496},
		"c":  {2.1659, 1.4412, 0.038269},
		"ct": {3.2512, 1.6047, 0.049588},
	}
	tauLargeP = map[string][]float64{
		"n":  {0.4797, 0.93557, -0.06999, 0.033066},
		"c":  {1.7339, 0.93202, -0.12745, -0.010368},
		"ct": {2.5261, 0.61654, -0.37956, -0.060285},
	}
)

func mackinnonPValue(tau float64, regression string) float64 {
	if tau > tauMax[regression] {
		return 1.0
	}
	if tau < tauMin[regression] {
		return 0.0
	}
	var coefs []float64
	if tau <= tauStar[regression] {
		coefs = tauSmallP[regression]
	} else {
		coefs = tauLargeP[regression]
	}
	z := 0.0
	for i := len(coefs) - 1; i >= 0; i-- {
		z = z*tau + coefs[i]
	}
	return distuv.UnitNormal.CDF(z)
}

// MacKinnon (2010) finite-sample response-surface critical values for a
// single series: crit = b0 + b1/T + b2/T^2 + b3/T^3.
var critSurface = map[string]map[string][4]float64{
	"n": {
		"1%":  {-2.56574, -2.2358, -3.627, 0},
		"5%":  {-1.94100, -0.2686, -3.365, 31.223},
		"10%": {-1.61682, 0.2656, -2.714, 25.364},
	},
	"c": {
		"1%":  {-3.43035, -6.5393, -16.786, -79.433},
		"5%":  {-2.86154, -2.8903, -4.234, -40.040},
		"10%": {-2.56677, -1.5384, -2.809, 0},
	},
	"ct": {
		"1%":  {-3.95877, -9.0531, -28.428, -134.155},
		"5%":  {-3.41049, -4.3904, -9.036, -45.374},
		"10%": {-3.12705, -2.5856, -3.925, -22.380},
	},
}

func mackinnonCritValues(regression string, nobs int) map[string]float64 {
	t := float64(nobs)
	out := make(map[string]float64, 3)
	for level, b := range critSurface[regression] {
		out[level] = b[0] + b[1]/t + b[2]/(t*t) + b[3]/(t*t*t)
	}
	return out
}

// VarianceRatioCheck is a cheap stationarity heuristic for samples too
// short for a meaningful ADF regression. It splits the series in half and
// scores how far the halves drift apart in mean and variance; a stationary
// series keeps both roughly constant. The result is labelled with Method
// "variance_ratio" and its PValue is a heuristic score, not a significance
// level.
func VarianceRatioCheck(s models.Series, alpha float64) (*ADFResult, error) {
	clean := s.DropNaN()
	values := clean.Values
	n := len(values)
	if n < 4 {
		return nil, ErrInsufficientData
	}

	half := n / 2
	var1 := stat.Variance(values[:half], nil)
	var2 := stat.Variance(values[half:], nil)
	mean1 := stat.Mean(values[:half], nil)
	mean2 := stat.Mean(values[half:], nil)
	std := math.Sqrt(stat.Variance(values, nil))

	meanDiff := math.Abs(mean1-mean2) / (std + 1e-10)
	varRatio := math.Max(var1, var2) / (math.Min(var1, var2) + 1e-10)
	pValue := math.Min(1.0, (varRatio-1)*0.1+meanDiff*0.2)

	return &ADFResult{
		TestStatistic: -1.0 / (varRatio + 0.1),
		PValue:        pValue,
		UsedLag:       1,
		NObs:          n,
		CriticalValues: map[string]float64{
			"1%": -3.43, "5%": -2.86, "10%": -2.57,
		},
		IsStationary: pValue < alpha,
		Method:       "variance_ratio",
	}, nil
}

// CointegrationResult holds the two stages of an Engle-Granger test
type CointegrationResult struct {
	Hedge          *HedgeRatio `json:"hedge"`
	Residuals      *ADFResult  `json:"residuals"`
	IsCointegrated bool        `json:"is_cointegrated"`
}

// EngleGranger runs the two-step cointegration test: regress y on x, then
// test the residuals for a unit root. The residual regression carries no
// deterministic terms since OLS residuals are mean zero by construction.
// Note the residual test reuses Dickey-Fuller critical values rather than
// the stricter cointegration surfaces, so borderline results lean
// optimistic.
func EngleGranger(y, x models.Series, maxLag int, alpha float64) (*CointegrationResult, error) {
	hedge, err := OLSHedgeRatio(y, x)
	if err != nil {
		return nil, err
	}

	ay, ax := models.AlignSeries(y, x)
	resid := models.NewSeries(ay.Len())
	for i := 0; i < ay.Len(); i++ {
		resid.Append(ay.Times[i], ay.Values[i]-(hedge.Alpha+hedge.Beta*ax.Values[i]))
	}

	adf, err := ADF(resid, maxLag, "n", alpha)
	if err != nil {
		return nil, err
	}

	return &CointegrationResult{
		Hedge:          hedge,
		Residuals:      adf,
		IsCointegrated: adf.IsStationary,
	}, nil
}
