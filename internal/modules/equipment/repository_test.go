package equipment

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/fleetcast/internal/domain"
	fleettest "github.com/fleetops/fleetcast/internal/testing"
)

func TestRepository_SaveAndGet(t *testing.T) {
	db, cleanup := fleettest.NewTestDB(t, "fleet")
	defer cleanup()
	repo := NewRepository(db.Conn(), zerolog.Nop())

	rec := Record{Equipment: fleettest.FixtureEquipment("pump-1"), ReplacementCost: 95000}
	require.NoError(t, repo.Save(rec))

	got, err := repo.GetByID("pump-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "pump-1", got.AssetID)
	assert.Equal(t, "plant-a", got.Facility)
	assert.Equal(t, 95000.0, got.ReplacementCost)
	assert.True(t, got.AcquisitionDate.Equal(rec.AcquisitionDate))

	missing, err := repo.GetByID("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepository_SaveUpserts(t *testing.T) {
	db, cleanup := fleettest.NewTestDB(t, "fleet")
	defer cleanup()
	repo := NewRepository(db.Conn(), zerolog.Nop())

	rec := Record{Equipment: fleettest.FixtureEquipment("pump-1"), ReplacementCost: 95000}
	require.NoError(t, repo.Save(rec))

	rec.ReplacementCost = 99000
	rec.Facility = "plant-b"
	require.NoError(t, repo.Save(rec))

	got, err := repo.GetByID("pump-1")
	require.NoError(t, err)
	assert.Equal(t, 99000.0, got.ReplacementCost)
	assert.Equal(t, "plant-b", got.Facility)

	all, err := repo.List("")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRepository_ListFiltersByFacility(t *testing.T) {
	db, cleanup := fleettest.NewTestDB(t, "fleet")
	defer cleanup()
	repo := NewRepository(db.Conn(), zerolog.Nop())

	a := Record{Equipment: fleettest.FixtureEquipment("pump-1")}
	b := Record{Equipment: fleettest.FixtureEquipment("pump-2")}
	b.Facility = "plant-b"
	require.NoError(t, repo.Save(a))
	require.NoError(t, repo.Save(b))

	onlyB, err := repo.List("plant-b")
	require.NoError(t, err)
	require.Len(t, onlyB, 1)
	assert.Equal(t, "pump-2", onlyB[0].AssetID)

	all, err := repo.List("")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCostEventRepository_BatchAndWindowedList(t *testing.T) {
	db, cleanup := fleettest.NewTestDB(t, "fleet")
	defer cleanup()
	repo := NewRepository(db.Conn(), zerolog.Nop())
	costs := NewCostEventRepository(db.Conn(), zerolog.Nop())

	require.NoError(t, repo.Save(Record{Equipment: fleettest.FixtureEquipment("pump-1")}))

	start := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	events := fleettest.FixtureCostEvents("pump-1", start, 12)
	require.NoError(t, costs.AddBatch(events))

	all, err := costs.ListByAsset("pump-1", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 12)
	assert.True(t, all[0].OccurredAt.Before(all[11].OccurredAt))

	// Half-open window [Mar, Jun) keeps March, April, May.
	from := time.Date(2023, time.March, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC)
	windowed, err := costs.ListByAsset("pump-1", from, to)
	require.NoError(t, err)
	assert.Len(t, windowed, 3)
}

func TestCostEventRepository_CascadeDelete(t *testing.T) {
	db, cleanup := fleettest.NewTestDB(t, "fleet")
	defer cleanup()
	repo := NewRepository(db.Conn(), zerolog.Nop())
	costs := NewCostEventRepository(db.Conn(), zerolog.Nop())

	require.NoError(t, repo.Save(Record{Equipment: fleettest.FixtureEquipment("pump-1")}))
	require.NoError(t, costs.Add(domain.CostEvent{
		AssetID:    "pump-1",
		OccurredAt: time.Date(2023, time.April, 2, 0, 0, 0, 0, time.UTC),
		Category:   domain.CategoryParts,
		Amount:     120,
	}))

	require.NoError(t, repo.Delete("pump-1"))

	events, err := costs.ListByAsset("pump-1", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestFailureRepository_ReplaceForAsset(t *testing.T) {
	db, cleanup := fleettest.NewTestDB(t, "fleet")
	defer cleanup()
	repo := NewRepository(db.Conn(), zerolog.Nop())
	failures := NewFailureRepository(db.Conn(), zerolog.Nop())

	require.NoError(t, repo.Save(Record{Equipment: fleettest.FixtureEquipment("pump-1")}))

	require.NoError(t, failures.Add(domain.FailureObservation{AssetID: "pump-1", AgeMonths: 9}))
	require.NoError(t, failures.ReplaceForAsset("pump-1", []domain.FailureObservation{
		{AssetID: "pump-1", AgeMonths: 12},
		{AssetID: "pump-1", AgeMonths: 30, Censored: true},
	}))

	got, err := failures.ListByAsset("pump-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 12.0, got[0].AgeMonths)
	assert.False(t, got[0].Censored)
	assert.True(t, got[1].Censored)
}

func TestResultsRepository_RoundTrip(t *testing.T) {
	db, cleanup := fleettest.NewTestDB(t, "fleet")
	defer cleanup()
	results := NewResultsRepository(db.Conn(), zerolog.Nop())

	run1 := []domain.AssetAnalysis{
		{AssetID: "pump-1", Decision: &domain.NPVDecision{AssetID: "pump-1", NPVSavings: 1200, Recommended: domain.ActionDefer}},
		{AssetID: "pump-2", Err: "asset pump-2 has no cost events in the requested window"},
	}
	require.NoError(t, results.SaveRun("run-a", run1))

	got, err := results.GetRun("run-a")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "pump-1", got[0].AssetID)
	require.NotNil(t, got[0].Decision)
	assert.Equal(t, domain.ActionDefer, got[0].Decision.Recommended)
	assert.NotEmpty(t, got[1].Err)

	latest, err := results.LatestForAsset("pump-1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 1200.0, latest.Decision.NPVSavings)

	never, err := results.LatestForAsset("pump-9")
	require.NoError(t, err)
	assert.Nil(t, never)
}
