package forecasting

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/fleetcast/internal/domain"
)

func seriesFrom(values []float64) domain.CostSeries {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	series := domain.CostSeries{AssetID: "A-1"}
	for i, v := range values {
		ps := start.AddDate(0, i, 0)
		series.Observations = append(series.Observations, domain.CostObservation{
			AssetID:     "A-1",
			PeriodStart: ps,
			PeriodEnd:   ps.AddDate(0, 1, 0),
			Amount:      v,
		})
	}
	return series
}

func linearRamp(n int, from, to float64) []float64 {
	out := make([]float64, n)
	step := (to - from) / float64(n-1)
	for i := range out {
		out[i] = from + float64(i)*step
	}
	return out
}

func TestForecast_TooShortSeries(t *testing.T) {
	f := New(zerolog.Nop())

	_, err := f.Forecast(seriesFrom([]float64{100, 110, 120}), 6, "auto")

	var insufficientErr *domain.InsufficientHistoryError
	require.True(t, errors.As(err, &insufficientErr))
	assert.Equal(t, 3, insufficientErr.Observed)
	assert.Equal(t, MinObservations, insufficientErr.Required)
}

func TestForecast_InvalidHorizon(t *testing.T) {
	f := New(zerolog.Nop())

	_, err := f.Forecast(seriesFrom(linearRamp(12, 100, 200)), 0, "auto")
	require.Error(t, err)
}

func TestForecast_LinearTrendSelectsTrendAwareMethod(t *testing.T) {
	f := New(zerolog.Nop())
	series := seriesFrom(linearRamp(24, 500, 3000))

	result, err := f.Forecast(series, 12, "auto")
	require.NoError(t, err)

	require.Equal(t, 12, result.HorizonCount)
	require.Len(t, result.Points, 12)

	// A linear ramp must not flat-line: the selected method has to carry
	// the trend forward.
	assert.Contains(t, []domain.ForecastMethod{domain.MethodHolt, domain.MethodARIMA}, result.MethodUsed)
	assert.Greater(t, result.Points[0].Value, 3000.0)
	for i := 1; i < len(result.Points); i++ {
		assert.Greater(t, result.Points[i].Value, result.Points[i-1].Value,
			"forecast must continue the upward trend at step %d", i)
	}
}

func TestForecast_BandWidthNonDecreasing(t *testing.T) {
	f := New(zerolog.Nop())

	inputs := map[string][]float64{
		"noisy":   {120, 95, 140, 100, 160, 90, 155, 130, 110, 170, 105, 150},
		"trended": linearRamp(18, 200, 1400),
		"flat":    {100, 100, 100, 100, 100, 100, 100, 100},
	}

	for name, values := range inputs {
		t.Run(name, func(t *testing.T) {
			result, err := f.Forecast(seriesFrom(values), 24, "auto")
			require.NoError(t, err)

			prev := -1.0
			for i, p := range result.Points {
				width := p.UpperBound - p.LowerBound
				assert.GreaterOrEqual(t, width, prev, "band width shrank at step %d", i)
				assert.LessOrEqual(t, p.LowerBound, p.Value, "lower bound above point at step %d", i)
				assert.GreaterOrEqual(t, p.UpperBound, p.Value, "upper bound below point at step %d", i)
				prev = width
			}
		})
	}
}

func TestForecast_NonNegativeClampForCosts(t *testing.T) {
	f := New(zerolog.Nop())

	// Steeply declining costs would extrapolate negative without a clamp.
	result, err := f.Forecast(seriesFrom(linearRamp(12, 1200, 50)), 24, "auto")
	require.NoError(t, err)

	for _, p := range result.Points {
		assert.GreaterOrEqual(t, p.Value, 0.0)
		assert.GreaterOrEqual(t, p.LowerBound, 0.0)
	}
}

func TestForecast_NoClampWhenSeriesHasCredits(t *testing.T) {
	f := New(zerolog.Nop())

	values := []float64{300, -150, 250, -100, 200, -50, 180, -80}
	result, err := f.Forecast(seriesFrom(values), 6, "auto")
	require.NoError(t, err)

	found := false
	for _, p := range result.Points {
		if p.LowerBound < 0 {
			found = true
		}
	}
	assert.True(t, found, "credit series should keep negative lower bounds")
}

func TestForecast_RequestedARIMAFallsBackOnDegenerateSeries(t *testing.T) {
	f := New(zerolog.Nop())

	// Constant diffs give the AR regression zero variance; the forecaster
	// must fall back to naive, not error.
	result, err := f.Forecast(seriesFrom(linearRamp(10, 100, 1000)), 6, "arima")
	require.NoError(t, err)
	assert.Equal(t, domain.MethodNaive, result.MethodUsed)
}

func TestForecast_ETSOnlyUsesSmoothingFamily(t *testing.T) {
	f := New(zerolog.Nop())

	result, err := f.Forecast(seriesFrom([]float64{90, 120, 80, 140, 100, 110, 95, 130}), 6, "ets")
	require.NoError(t, err)
	assert.Contains(t, []domain.ForecastMethod{domain.MethodSES, domain.MethodHolt}, result.MethodUsed)
}

func TestForecast_MetricsPopulated(t *testing.T) {
	f := New(zerolog.Nop())

	result, err := f.Forecast(seriesFrom([]float64{90, 120, 80, 140, 100, 110, 95, 130, 105, 125}), 6, "auto")
	require.NoError(t, err)

	assert.GreaterOrEqual(t, result.Metrics.RMSE, result.Metrics.MAE)
	assert.Greater(t, result.Metrics.RMSE, 0.0)
}

func TestForecast_PointPeriodsContinueMonthly(t *testing.T) {
	f := New(zerolog.Nop())
	series := seriesFrom(linearRamp(12, 100, 400))

	result, err := f.Forecast(series, 3, "auto")
	require.NoError(t, err)

	lastObserved := series.Observations[len(series.Observations)-1].PeriodStart
	for i, p := range result.Points {
		assert.Equal(t, lastObserved.AddDate(0, i+1, 0), p.PeriodStart)
	}
}
