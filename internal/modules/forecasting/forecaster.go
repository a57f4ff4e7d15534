// Package forecasting fits candidate time-series models to a monthly cost
// series, selects the best by holdout error, and emits point forecasts with
// uncertainty bands.
package forecasting

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/fleetops/fleetcast/internal/domain"
)

const (
	// MinObservations is the shortest series the forecaster will fit.
	// Below this the result would be extrapolated noise, so the caller
	// gets InsufficientHistoryError instead.
	MinObservations = 6

	// minHoldout is the smallest holdout tail used for method selection.
	minHoldout = 2

	// Confidence band z-scores: 80% lower, 95% upper - asymmetric on
	// purpose, costs overrun far more often than they undershoot.
	zLower = 1.28
	zUpper = 1.96
)

// Forecaster selects among a fixed, closed set of methods. Method dispatch is
// an explicit comparison step over tagged results, not open-ended
// polymorphism.
type Forecaster struct {
	log zerolog.Logger
}

// New creates a forecaster.
func New(log zerolog.Logger) *Forecaster {
	return &Forecaster{log: log.With().Str("component", "forecaster").Logger()}
}

// Forecast produces a ForecastResult for the given series and horizon.
// method is "auto", "arima", or "ets". A fit that fails to converge falls
// back to the naive method and marks MethodUsed accordingly; only a series
// that is too short returns an error.
func (f *Forecaster) Forecast(series domain.CostSeries, horizon int, method string) (domain.ForecastResult, error) {
	if horizon <= 0 {
		return domain.ForecastResult{}, fmt.Errorf("forecast horizon must be positive, got %d", horizon)
	}

	values := series.Amounts()
	if len(values) < MinObservations {
		return domain.ForecastResult{}, &domain.InsufficientHistoryError{
			AssetID:  series.AssetID,
			Observed: len(values),
			Required: MinObservations,
		}
	}

	model, metrics := f.selectModel(values, method)

	f.log.Debug().
		Str("asset_id", series.AssetID).
		Str("method", string(model.method)).
		Float64("rmse", metrics.RMSE).
		Int("horizon", horizon).
		Msg("Selected forecasting method")

	points := f.buildPoints(series, model, horizon)

	return domain.ForecastResult{
		AssetID:      series.AssetID,
		MethodUsed:   model.method,
		HorizonCount: horizon,
		Points:       points,
		Metrics:      metrics,
	}, nil
}

// selectModel fits the candidate families and picks the one with the lowest
// holdout RMSE. Ties prefer the simpler exponential-smoothing family.
func (f *Forecaster) selectModel(values []float64, method string) (fittedModel, domain.FitMetrics) {
	var candidates []fittedModel
	switch method {
	case "arima":
		if ar, ok := fitAR(values); ok {
			candidates = []fittedModel{ar}
		}
	case "ets":
		candidates = []fittedModel{fitSES(values), fitHolt(values)}
	default: // auto
		candidates = []fittedModel{fitSES(values), fitHolt(values)}
		if ar, ok := fitAR(values); ok {
			candidates = append(candidates, ar)
		}
	}

	if len(candidates) == 0 {
		// The requested family failed to converge: fall back to naive
		// rather than failing the pipeline.
		f.log.Warn().Str("requested", method).Msg("Requested method did not converge, using naive fallback")
		naive := fitNaive(values)
		return naive, evaluate(naive, values)
	}

	best := candidates[0]
	bestMetrics := evaluate(best, values)
	for _, c := range candidates[1:] {
		m := evaluate(c, values)
		if m.RMSE < bestMetrics.RMSE {
			best, bestMetrics = c, m
		}
	}

	if degenerate(best.forecast(1)) {
		naive := fitNaive(values)
		return naive, evaluate(naive, values)
	}

	return best, bestMetrics
}

// evaluate scores a candidate. When the series is long enough, the score is
// out-of-sample: refit on the head and forecast the holdout tail. Otherwise
// it falls back to in-sample residual error.
func evaluate(model fittedModel, values []float64) domain.FitMetrics {
	holdout := len(values) / 5
	if holdout < minHoldout {
		holdout = minHoldout
	}

	if len(values)-holdout >= MinObservations {
		train, test := values[:len(values)-holdout], values[len(values)-holdout:]
		if refit, ok := refitOn(model.method, train); ok {
			pred := refit.forecast(len(test))
			return computeMetrics(test, pred)
		}
	}

	// In-sample residual error.
	mae, rmse := 0.0, 0.0
	for _, r := range model.residuals {
		mae += math.Abs(r)
		rmse += r * r
	}
	n := float64(len(model.residuals))
	if n == 0 {
		return domain.FitMetrics{}
	}
	return domain.FitMetrics{
		MAE:  domain.RoundMoney(mae / n),
		RMSE: domain.RoundMoney(math.Sqrt(rmse / n)),
	}
}

func refitOn(method domain.ForecastMethod, train []float64) (fittedModel, bool) {
	switch method {
	case domain.MethodSES:
		return fitSES(train), true
	case domain.MethodHolt:
		return fitHolt(train), true
	case domain.MethodARIMA:
		return fitAR(train)
	default:
		return fitNaive(train), true
	}
}

func computeMetrics(actual, predicted []float64) domain.FitMetrics {
	n := len(actual)
	if len(predicted) < n {
		n = len(predicted)
	}
	if n == 0 {
		return domain.FitMetrics{}
	}
	var mae, sse float64
	for i := 0; i < n; i++ {
		err := actual[i] - predicted[i]
		mae += math.Abs(err)
		sse += err * err
	}
	return domain.FitMetrics{
		MAE:  domain.RoundMoney(mae / float64(n)),
		RMSE: domain.RoundMoney(math.Sqrt(sse / float64(n))),
	}
}

// buildPoints turns raw forecasts into bounded, clamped forecast points.
// Band width grows with the square root of horizon distance, so it is
// non-decreasing by construction.
func (f *Forecaster) buildPoints(series domain.CostSeries, model fittedModel, horizon int) []domain.ForecastPoint {
	values := series.Amounts()
	raw := model.forecast(horizon)

	sigma := stat.StdDev(model.residuals, nil)
	if math.IsNaN(sigma) || sigma == 0 {
		// Flat residuals still deserve a non-trivial band.
		sigma = stat.StdDev(values, nil)
		if math.IsNaN(sigma) {
			sigma = 0
		}
	}

	// Clamp at zero only when the history itself is non-negative; a series
	// containing credits keeps its sign.
	clamp := true
	for _, v := range values {
		if v < 0 {
			clamp = false
			break
		}
	}

	last := series.Observations[len(series.Observations)-1].PeriodStart
	points := make([]domain.ForecastPoint, horizon)
	prevWidth := 0.0
	for i := 0; i < horizon; i++ {
		width := sigma * math.Sqrt(float64(i+1))
		value := raw[i]
		lower := value - zLower*width
		upper := value + zUpper*width
		if clamp {
			value = math.Max(0, value)
			lower = math.Max(0, lower)
			upper = math.Max(upper, value)
		}

		value = domain.RoundMoney(value)
		lower = domain.RoundMoney(lower)
		upper = domain.RoundMoney(upper)
		// Band width must never shrink with horizon distance; rounding and
		// the zero clamp can otherwise nibble a cent off a nearly-flat band.
		if upper-lower < prevWidth {
			upper = domain.RoundMoney(lower + prevWidth)
		}
		prevWidth = domain.RoundMoney(upper - lower)

		points[i] = domain.ForecastPoint{
			PeriodStart: last.AddDate(0, i+1, 0),
			Value:       value,
			LowerBound:  lower,
			UpperBound:  upper,
		}
	}
	return points
}

// degenerate reports whether a forecast produced NaN or infinite values.
func degenerate(forecast []float64) bool {
	for _, v := range forecast {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}
