package financial

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/fleetcast/internal/domain"
)

func TestStraightLine_ProratesFirstFiscalYear(t *testing.T) {
	e := NewEngine(10, zerolog.Nop())

	// Acquired April 2021, six months left in FY2021 (Oct anchor).
	acquired := time.Date(2021, time.April, 15, 0, 0, 0, 0, time.UTC)
	s, err := e.Schedule("loader-1", 120000, 20000, 5, acquired, domain.MethodStraightLine)
	require.NoError(t, err)

	require.Len(t, s.Periods, 6)
	assert.Equal(t, 2021, s.Periods[0].FiscalYear)
	assert.Equal(t, 10000.0, s.Periods[0].Expense) // 20000 * 6/12
	assert.Equal(t, 20000.0, s.Periods[1].Expense)
	assert.Equal(t, 10000.0, s.Periods[5].Expense) // remainder spills into FY2026
	assert.Equal(t, 2026, s.Periods[5].FiscalYear)
	assert.Equal(t, 20000.0, s.Periods[5].BookValueEnd)
}

func TestStraightLine_BookValueMonotoneAndFloorsAtSalvage(t *testing.T) {
	e := NewEngine(10, zerolog.Nop())

	acquired := time.Date(2020, time.October, 1, 0, 0, 0, 0, time.UTC)
	s, err := e.Schedule("loader-2", 75000, 7500, 7, acquired, domain.MethodStraightLine)
	require.NoError(t, err)

	prev := 75000.0
	for _, p := range s.Periods {
		assert.LessOrEqual(t, p.BookValueEnd, prev)
		assert.GreaterOrEqual(t, p.BookValueEnd, s.Salvage)
		prev = p.BookValueEnd
	}
	assert.Equal(t, s.Salvage, s.Periods[len(s.Periods)-1].BookValueEnd)
}

func TestStraightLine_FiscalBoundaryAcquisitionNeedsNoSpill(t *testing.T) {
	e := NewEngine(10, zerolog.Nop())

	// Acquired on the fiscal year start: full twelve months in year one.
	acquired := time.Date(2022, time.October, 1, 0, 0, 0, 0, time.UTC)
	s, err := e.Schedule("loader-3", 50000, 0, 5, acquired, domain.MethodStraightLine)
	require.NoError(t, err)

	require.Len(t, s.Periods, 5)
	assert.Equal(t, 2023, s.Periods[0].FiscalYear) // October opens FY2023
	for _, p := range s.Periods {
		assert.Equal(t, 10000.0, p.Expense)
	}
}

func TestStraightLine_InvalidUsefulLife(t *testing.T) {
	e := NewEngine(10, zerolog.Nop())

	for _, life := range []int{0, -3} {
		_, err := e.Schedule("loader-4", 50000, 0, life, time.Now(), domain.MethodStraightLine)

		var invalid *domain.InvalidUsefulLifeError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, "loader-4", invalid.AssetID)
		assert.Equal(t, life, invalid.UsefulLife)
	}
}

func TestStraightLine_FullyDepreciatedAssetHasEmptySchedule(t *testing.T) {
	e := NewEngine(10, zerolog.Nop())

	s, err := e.Schedule("loader-5", 10000, 10000, 5, time.Now(), domain.MethodStraightLine)
	require.NoError(t, err)

	assert.Empty(t, s.Periods)
}

func TestAccelerated_FiveYearTable(t *testing.T) {
	e := NewEngine(10, zerolog.Nop())

	acquired := time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC)
	s, err := e.Schedule("forklift-1", 100000, 5000, 5, acquired, domain.MethodAccelerated)
	require.NoError(t, err)

	require.Len(t, s.Periods, 6)
	assert.Equal(t, 20000.0, s.Periods[0].Expense)
	assert.Equal(t, 32000.0, s.Periods[1].Expense)
	assert.Equal(t, 19200.0, s.Periods[2].Expense)
	// Final statutory 5.76% would breach the floor; capped at the residual.
	assert.Equal(t, 760.0, s.Periods[5].Expense)
	assert.Equal(t, 5000.0, s.Periods[5].BookValueEnd)
}

func TestAccelerated_SevenYearTableForLongerLives(t *testing.T) {
	e := NewEngine(10, zerolog.Nop())

	acquired := time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC)
	s, err := e.Schedule("crane-1", 200000, 0, 10, acquired, domain.MethodAccelerated)
	require.NoError(t, err)

	// Ten-year property still terminates with the 7-year table.
	require.Len(t, s.Periods, 8)
	assert.InDelta(t, 28580.0, s.Periods[0].Expense, 0.01) // 14.29%
	assert.InDelta(t, 0.0, s.Periods[7].BookValueEnd, 0.05)
}

func TestAccelerated_FrontLoadsVersusStraightLine(t *testing.T) {
	e := NewEngine(10, zerolog.Nop())
	acquired := time.Date(2021, time.October, 1, 0, 0, 0, 0, time.UTC)

	sl, err := e.Schedule("mixer-1", 60000, 0, 5, acquired, domain.MethodStraightLine)
	require.NoError(t, err)
	acc, err := e.Schedule("mixer-1", 60000, 0, 5, acquired, domain.MethodAccelerated)
	require.NoError(t, err)

	// Through year two the accelerated schedule recognizes more expense.
	fy := acc.Periods[1].FiscalYear
	assert.Greater(t, acc.CumulativeExpense(fy), sl.CumulativeExpense(fy))
}
