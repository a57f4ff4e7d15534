package financial

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/fleetops/fleetcast/internal/domain"
)

// MACRS statutory percentage tables (half-year convention). 5-year property
// covers most equipment classes; 7-year covers heavy machinery.
var (
	macrs5Year = []float64{0.20, 0.32, 0.192, 0.1152, 0.1152, 0.0576}
	macrs7Year = []float64{0.1429, 0.2449, 0.1749, 0.1249, 0.0893, 0.0892, 0.0893, 0.0446}
)

// macrsYearThreshold selects the table: useful lives at or below it use the
// 5-year table.
const macrsYearThreshold = 5

// moneyEpsilon bounds the residual left once a book value has effectively
// reached the salvage floor, given 2-decimal rounding.
const moneyEpsilon = 0.005

// Engine produces depreciation schedules aligned to the fiscal calendar.
type Engine struct {
	cal domain.FiscalCalendar
	log zerolog.Logger
}

// NewEngine creates a depreciation engine anchored to the given fiscal month.
func NewEngine(fiscalAnchorMonth int, log zerolog.Logger) *Engine {
	return &Engine{
		cal: domain.NewFiscalCalendar(fiscalAnchorMonth),
		log: log.With().Str("component", "depreciation_engine").Logger(),
	}
}

// Schedule dispatches on the method. Cost below salvage yields an empty
// schedule (nothing to depreciate).
func (e *Engine) Schedule(assetID string, cost, salvage float64, usefulLifeYears int, acquiredAt time.Time, method domain.DepreciationMethod) (domain.DepreciationSchedule, error) {
	if usefulLifeYears <= 0 {
		return domain.DepreciationSchedule{}, &domain.InvalidUsefulLifeError{
			AssetID:    assetID,
			UsefulLife: usefulLifeYears,
		}
	}

	var schedule domain.DepreciationSchedule
	switch method {
	case domain.MethodAccelerated:
		schedule = e.accelerated(assetID, cost, salvage, usefulLifeYears, acquiredAt)
	default:
		schedule = e.straightLine(assetID, cost, salvage, usefulLifeYears, acquiredAt)
	}

	e.log.Debug().
		Str("asset_id", assetID).
		Str("method", string(schedule.Method)).
		Int("periods", len(schedule.Periods)).
		Msg("Built depreciation schedule")

	return schedule, nil
}

// straightLine spreads cost minus salvage evenly over the useful life. The
// acquisition fiscal year takes only the months actually in service, so the
// schedule runs one fiscal year past the useful life unless the asset was
// acquired on the fiscal year boundary.
func (e *Engine) straightLine(assetID string, cost, salvage float64, usefulLifeYears int, acquiredAt time.Time) domain.DepreciationSchedule {
	schedule := domain.DepreciationSchedule{
		AssetID: assetID,
		Method:  domain.MethodStraightLine,
		Salvage: domain.RoundMoney(salvage),
	}

	annual := (cost - salvage) / float64(usefulLifeYears)
	if annual <= 0 {
		return schedule
	}
	firstYear := domain.RoundMoney(annual * float64(e.cal.MonthsRemaining(acquiredAt)) / 12)

	book := domain.RoundMoney(cost)
	fy := e.cal.YearOf(acquiredAt)
	for idx := 0; book-schedule.Salvage > moneyEpsilon; idx++ {
		expense := domain.RoundMoney(annual)
		if idx == 0 {
			expense = firstYear
		}
		if expense > book-schedule.Salvage || expense <= 0 {
			expense = domain.RoundMoney(book - schedule.Salvage)
		}
		book = domain.RoundMoney(book - expense)
		schedule.Periods = append(schedule.Periods, domain.DepreciationPeriod{
			PeriodIndex:  idx,
			FiscalYear:   fy + idx,
			Expense:      expense,
			BookValueEnd: book,
		})
	}
	return schedule
}

// accelerated applies the statutory MACRS percentages to the full cost. The
// schedule never runs past the table, and expenses are capped so the book
// value floors at salvage.
func (e *Engine) accelerated(assetID string, cost, salvage float64, usefulLifeYears int, acquiredAt time.Time) domain.DepreciationSchedule {
	schedule := domain.DepreciationSchedule{
		AssetID: assetID,
		Method:  domain.MethodAccelerated,
		Salvage: domain.RoundMoney(salvage),
	}

	table := macrs5Year
	if usefulLifeYears > macrsYearThreshold {
		table = macrs7Year
	}

	book := domain.RoundMoney(cost)
	fy := e.cal.YearOf(acquiredAt)
	for idx, fraction := range table {
		if book-schedule.Salvage <= moneyEpsilon {
			break
		}
		expense := domain.RoundMoney(cost * fraction)
		if expense > book-schedule.Salvage {
			expense = domain.RoundMoney(book - schedule.Salvage)
		}
		book = domain.RoundMoney(book - expense)
		schedule.Periods = append(schedule.Periods, domain.DepreciationPeriod{
			PeriodIndex:  idx,
			FiscalYear:   fy + idx,
			Expense:      expense,
			BookValueEnd: book,
		})
	}
	return schedule
}
