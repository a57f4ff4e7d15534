package forecasting

import (
	"math"

	"github.com/markcheno/go-talib"

	"github.com/fleetops/fleetcast/internal/domain"
)

// fittedModel is one candidate method fitted to a series. Forecast must be
// deterministic; Residuals are the one-step in-sample errors used for
// confidence bands and method selection.
type fittedModel struct {
	method    domain.ForecastMethod
	residuals []float64
	forecast  func(horizon int) []float64
}

// smoothing grid shared by the exponential-smoothing fits. A coarse grid is
// enough here: monthly maintenance series are short and noisy, and the
// selection step compares whole methods, not parameter decimals.
var smoothingGrid = []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9}

// fitSES fits simple exponential smoothing, selecting alpha by in-sample SSE.
func fitSES(values []float64) fittedModel {
	bestAlpha, bestSSE := smoothingGrid[0], math.Inf(1)
	for _, alpha := range smoothingGrid {
		_, _, sse := sesPass(values, alpha)
		if sse < bestSSE {
			bestSSE = sse
			bestAlpha = alpha
		}
	}

	level, residuals, _ := sesPass(values, bestAlpha)
	return fittedModel{
		method:    domain.MethodSES,
		residuals: residuals,
		forecast: func(horizon int) []float64 {
			out := make([]float64, horizon)
			for i := range out {
				out[i] = level
			}
			return out
		},
	}
}

func sesPass(values []float64, alpha float64) (level float64, residuals []float64, sse float64) {
	level = values[0]
	residuals = make([]float64, 0, len(values)-1)
	for _, v := range values[1:] {
		err := v - level
		residuals = append(residuals, err)
		sse += err * err
		level = alpha*v + (1-alpha)*level
	}
	return level, residuals, sse
}

// fitHolt fits additive-trend (Holt linear) exponential smoothing with a
// coarse alpha/beta grid search.
func fitHolt(values []float64) fittedModel {
	bestAlpha, bestBeta, bestSSE := smoothingGrid[0], smoothingGrid[0], math.Inf(1)
	for _, alpha := range smoothingGrid {
		for _, beta := range smoothingGrid {
			_, _, _, sse := holtPass(values, alpha, beta)
			if sse < bestSSE {
				bestSSE = sse
				bestAlpha, bestBeta = alpha, beta
			}
		}
	}

	level, trend, residuals, _ := holtPass(values, bestAlpha, bestBeta)
	return fittedModel{
		method:    domain.MethodHolt,
		residuals: residuals,
		forecast: func(horizon int) []float64 {
			out := make([]float64, horizon)
			for i := range out {
				out[i] = level + float64(i+1)*trend
			}
			return out
		},
	}
}

func holtPass(values []float64, alpha, beta float64) (level, trend float64, residuals []float64, sse float64) {
	level = values[0]
	trend = values[1] - values[0]
	residuals = make([]float64, 0, len(values)-1)
	for _, v := range values[1:] {
		pred := level + trend
		err := v - pred
		residuals = append(residuals, err)
		sse += err * err

		prevLevel := level
		level = alpha*v + (1-alpha)*(level+trend)
		trend = beta*(level-prevLevel) + (1-beta)*trend
	}
	return level, trend, residuals, sse
}

// fitAR fits an integrated autoregressive model: AR(1) with drift on first
// differences, estimated by least squares. Returns ok=false when the series
// differences are degenerate or the fitted coefficient is non-stationary, in
// which case the caller falls back rather than extrapolating a divergent fit.
func fitAR(values []float64) (fittedModel, bool) {
	diffs := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		diffs[i-1] = values[i] - values[i-1]
	}
	if len(diffs) < 3 {
		return fittedModel{}, false
	}

	// Least-squares fit of d_t = c + phi * d_{t-1}.
	x := diffs[:len(diffs)-1]
	y := diffs[1:]
	c, phi, ok := linearFit(x, y)
	if !ok || math.Abs(phi) >= 1 {
		return fittedModel{}, false
	}

	residuals := make([]float64, len(y))
	for i := range y {
		residuals[i] = y[i] - (c + phi*x[i])
	}

	lastValue := values[len(values)-1]
	lastDiff := diffs[len(diffs)-1]

	return fittedModel{
		method:    domain.MethodARIMA,
		residuals: residuals,
		forecast: func(horizon int) []float64 {
			out := make([]float64, horizon)
			value, diff := lastValue, lastDiff
			for i := 0; i < horizon; i++ {
				diff = c + phi*diff
				value += diff
				out[i] = value
			}
			return out
		},
	}, true
}

// fitNaive is the last-resort method: forecast the simple moving average of
// the recent window (falling back to the last value for very short series).
// It never fails, which is what makes it a safe fallback.
func fitNaive(values []float64) fittedModel {
	window := 6
	if window > len(values) {
		window = len(values)
	}

	baseline := values[len(values)-1]
	if window >= 2 {
		sma := talib.Sma(values, window)
		if last := sma[len(sma)-1]; !math.IsNaN(last) {
			baseline = last
		}
	}

	residuals := make([]float64, 0, len(values)-1)
	for _, v := range values[1:] {
		residuals = append(residuals, v-baseline)
	}

	return fittedModel{
		method:    domain.MethodNaive,
		residuals: residuals,
		forecast: func(horizon int) []float64 {
			out := make([]float64, horizon)
			for i := range out {
				out[i] = baseline
			}
			return out
		},
	}
}

// linearFit computes the least-squares line y = intercept + slope*x.
// ok is false when x has no variance.
func linearFit(x, y []float64) (intercept, slope float64, ok bool) {
	n := float64(len(x))
	var sumX, sumY float64
	for i := range x {
		sumX += x[i]
		sumY += y[i]
	}
	meanX, meanY := sumX/n, sumY/n

	var sxx, sxy float64
	for i := range x {
		dx := x[i] - meanX
		sxx += dx * dx
		sxy += dx * (y[i] - meanY)
	}
	if sxx == 0 {
		return 0, 0, false
	}
	slope = sxy / sxx
	intercept = meanY - slope*meanX
	return intercept, slope, true
}
