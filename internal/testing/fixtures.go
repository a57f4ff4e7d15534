package testing

import (
	"time"

	"github.com/fleetops/fleetcast/internal/domain"
)

// FixtureEquipment returns a plausible equipment record for tests. Callers
// override fields as needed.
func FixtureEquipment(assetID string) domain.Equipment {
	return domain.Equipment{
		AssetID:                  assetID,
		Class:                    "pump",
		Facility:                 "plant-a",
		AcquisitionDate:          time.Date(2020, time.June, 1, 0, 0, 0, 0, time.UTC),
		AcquisitionCost:          80000,
		ExpectedUsefulLifeMonths: 120,
		SalvageFraction:          0.10,
	}
}

// FixtureCostEvents returns months of synthetic maintenance history starting
// at the given date, one corrective event per month with a slow cost drift.
func FixtureCostEvents(assetID string, start time.Time, months int) []domain.CostEvent {
	events := make([]domain.CostEvent, 0, months)
	for m := 0; m < months; m++ {
		events = append(events, domain.CostEvent{
			AssetID:       assetID,
			OccurredAt:    start.AddDate(0, m, 10),
			Category:      domain.CategoryCorrective,
			Amount:        400 + float64(m)*25,
			DowntimeHours: float64(m % 3),
		})
	}
	return events
}

// FixtureFailures returns the given ages as uncensored failure observations.
func FixtureFailures(assetID string, ages ...float64) []domain.FailureObservation {
	obs := make([]domain.FailureObservation, 0, len(ages))
	for _, age := range ages {
		obs = append(obs, domain.FailureObservation{AssetID: assetID, AgeMonths: age})
	}
	return obs
}
