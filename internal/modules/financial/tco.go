package financial

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/fleetops/fleetcast/internal/domain"
)

// minAnnualizationYears keeps the annualized figure meaningful for assets
// younger than six months.
const minAnnualizationYears = 0.5

// Calculator computes total cost of ownership from records the other
// components already produced. No modeling: sums only.
type Calculator struct {
	cal          domain.FiscalCalendar
	downtimeRate float64
	log          zerolog.Logger
}

// NewCalculator creates a TCO calculator. downtimeHourlyRate prices each
// recorded downtime hour.
func NewCalculator(fiscalAnchorMonth int, downtimeHourlyRate float64, log zerolog.Logger) *Calculator {
	return &Calculator{
		cal:          domain.NewFiscalCalendar(fiscalAnchorMonth),
		downtimeRate: downtimeHourlyRate,
		log:          log.With().Str("component", "tco_calculator").Logger(),
	}
}

// Report sums the cost of owning the asset through asOf: acquisition,
// maintenance to date, priced downtime, and depreciation recognized through
// the current fiscal year.
func (c *Calculator) Report(eq domain.Equipment, series domain.CostSeries, schedule domain.DepreciationSchedule, asOf time.Time) domain.TCOReport {
	maintenance := series.Total()
	downtime := series.DowntimeHours() * c.downtimeRate
	depreciation := schedule.CumulativeExpense(c.cal.YearOf(asOf))
	total := eq.AcquisitionCost + maintenance + downtime + depreciation

	ageYears := eq.AgeMonths(asOf) / 12
	if ageYears < minAnnualizationYears {
		ageYears = minAnnualizationYears
	}

	ratio := 0.0
	if eq.AcquisitionCost > 0 {
		ratio = maintenance / eq.AcquisitionCost
	}

	report := domain.TCOReport{
		AssetID:                eq.AssetID,
		AcquisitionCost:        domain.RoundMoney(eq.AcquisitionCost),
		CumulativeMaintenance:  domain.RoundMoney(maintenance),
		CumulativeDowntimeCost: domain.RoundMoney(downtime),
		CumulativeDepreciation: domain.RoundMoney(depreciation),
		Total:                  domain.RoundMoney(total),
		AnnualizedTotal:        domain.RoundMoney(total / ageYears),
		MaintenanceRatio:       domain.RoundRate(ratio),
	}

	c.log.Debug().
		Str("asset_id", eq.AssetID).
		Float64("total", report.Total).
		Float64("annualized", report.AnnualizedTotal).
		Msg("Computed total cost of ownership")

	return report
}
