package aggregation

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/fleetcast/internal/domain"
)

func mkEvent(assetID string, ts string, amount float64, downtime float64) domain.CostEvent {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		panic(err)
	}
	return domain.CostEvent{
		AssetID:       assetID,
		OccurredAt:    t,
		Category:      domain.CategoryCorrective,
		Amount:        amount,
		DowntimeHours: downtime,
	}
}

func TestAggregate_ZeroFillsGapMonths(t *testing.T) {
	agg := New(10, zerolog.Nop())

	events := []domain.CostEvent{
		mkEvent("A-1", "2025-01-15T10:00:00Z", 500, 2),
		mkEvent("A-1", "2025-04-03T09:00:00Z", 750, 0),
	}

	series, err := agg.Aggregate("A-1", events, Window{})
	require.NoError(t, err)

	// January through April inclusive, with explicit zeros for Feb and Mar.
	require.Len(t, series.Observations, 4)
	assert.Equal(t, 500.0, series.Observations[0].Amount)
	assert.Equal(t, 0.0, series.Observations[1].Amount)
	assert.Equal(t, 0.0, series.Observations[2].Amount)
	assert.Equal(t, 750.0, series.Observations[3].Amount)

	// Periods are contiguous and monotonically increasing.
	for i := 1; i < len(series.Observations); i++ {
		assert.Equal(t, series.Observations[i-1].PeriodEnd, series.Observations[i].PeriodStart)
	}
}

func TestAggregate_SumsWithinMonth(t *testing.T) {
	agg := New(10, zerolog.Nop())

	events := []domain.CostEvent{
		mkEvent("A-1", "2025-03-01T00:00:00Z", 100.10, 1),
		mkEvent("A-1", "2025-03-20T00:00:00Z", 200.25, 3),
	}

	series, err := agg.Aggregate("A-1", events, Window{})
	require.NoError(t, err)
	require.Len(t, series.Observations, 1)
	assert.Equal(t, 300.35, series.Observations[0].Amount)
	assert.Equal(t, 4.0, series.Observations[0].DowntimeHours)
}

func TestAggregate_EmptyHistory(t *testing.T) {
	agg := New(10, zerolog.Nop())

	_, err := agg.Aggregate("A-2", []domain.CostEvent{
		mkEvent("A-1", "2025-03-01T00:00:00Z", 100, 0),
	}, Window{})

	var emptyErr *domain.EmptyHistoryError
	require.True(t, errors.As(err, &emptyErr))
	assert.Equal(t, "A-2", emptyErr.AssetID)
}

func TestAggregate_WindowFiltering(t *testing.T) {
	agg := New(10, zerolog.Nop())

	events := []domain.CostEvent{
		mkEvent("A-1", "2024-11-01T00:00:00Z", 100, 0),
		mkEvent("A-1", "2025-02-10T00:00:00Z", 200, 0),
	}
	window := Window{
		Start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
	}

	series, err := agg.Aggregate("A-1", events, window)
	require.NoError(t, err)

	// January through March: the November event is outside the window.
	require.Len(t, series.Observations, 3)
	assert.Equal(t, 0.0, series.Observations[0].Amount)
	assert.Equal(t, 200.0, series.Observations[1].Amount)
	assert.Equal(t, 200.0, series.Total())
}

func TestAggregate_Idempotent(t *testing.T) {
	agg := New(10, zerolog.Nop())

	events := []domain.CostEvent{
		mkEvent("A-1", "2025-01-15T10:00:00Z", 500, 2),
		mkEvent("A-1", "2025-01-15T10:00:00Z", 125.50, 0),
		mkEvent("A-1", "2025-02-03T09:00:00Z", 750, 1),
	}
	shuffled := []domain.CostEvent{events[2], events[0], events[1]}

	first, err := agg.Aggregate("A-1", events, Window{})
	require.NoError(t, err)
	second, err := agg.Aggregate("A-1", shuffled, Window{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestFiscalYearTotals(t *testing.T) {
	agg := New(10, zerolog.Nop())

	events := []domain.CostEvent{
		mkEvent("A-1", "2025-09-15T00:00:00Z", 100, 0), // FY2025
		mkEvent("A-1", "2025-10-15T00:00:00Z", 200, 0), // FY2026
		mkEvent("A-1", "2026-01-15T00:00:00Z", 300, 0), // FY2026
	}

	series, err := agg.Aggregate("A-1", events, Window{})
	require.NoError(t, err)

	totals := agg.FiscalYearTotals(series)
	assert.Equal(t, 100.0, totals[2025])
	assert.Equal(t, 500.0, totals[2026])
}
