package calculations

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/fleetcast/internal/analysis"
	"github.com/fleetops/fleetcast/internal/domain"
	fleettest "github.com/fleetops/fleetcast/internal/testing"
)

type payload struct {
	Name   string
	Values []float64
}

func TestCache_SetGetRoundTrip(t *testing.T) {
	db, cleanup := fleettest.NewTestDB(t, "cache")
	defer cleanup()
	c := NewCache(db.Conn(), zerolog.Nop())

	in := payload{Name: "tco", Values: []float64{1.5, 2.25}}
	require.NoError(t, c.Set("calc:tco:pump-1", in, time.Hour))

	var out payload
	ok, err := c.Get("calc:tco:pump-1", &out)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, in, out)
}

func TestCache_MissingKey(t *testing.T) {
	db, cleanup := fleettest.NewTestDB(t, "cache")
	defer cleanup()
	c := NewCache(db.Conn(), zerolog.Nop())

	var out payload
	ok, err := c.Get("nope", &out)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_ExpiredEntryIsAMiss(t *testing.T) {
	db, cleanup := fleettest.NewTestDB(t, "cache")
	defer cleanup()
	c := NewCache(db.Conn(), zerolog.Nop())

	require.NoError(t, c.Set("stale", payload{Name: "old"}, -time.Second))

	var out payload
	ok, err := c.Get("stale", &out)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_OverwriteAndDeleteByPrefix(t *testing.T) {
	db, cleanup := fleettest.NewTestDB(t, "cache")
	defer cleanup()
	c := NewCache(db.Conn(), zerolog.Nop())

	require.NoError(t, c.Set("fleet:a", payload{Name: "v1"}, time.Hour))
	require.NoError(t, c.Set("fleet:a", payload{Name: "v2"}, time.Hour))
	require.NoError(t, c.Set("other:b", payload{Name: "keep"}, time.Hour))

	var out payload
	ok, err := c.Get("fleet:a", &out)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v2", out.Name)

	require.NoError(t, c.DeleteByPrefix("fleet:"))

	ok, err = c.Get("fleet:a", &out)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = c.Get("other:b", &out)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCache_PurgeExpired(t *testing.T) {
	db, cleanup := fleettest.NewTestDB(t, "cache")
	defer cleanup()
	c := NewCache(db.Conn(), zerolog.Nop())

	require.NoError(t, c.Set("dead", payload{}, -time.Minute))
	require.NoError(t, c.Set("alive", payload{}, time.Hour))

	purged, err := c.PurgeExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	var out payload
	ok, err := c.Get("alive", &out)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestResultStore_RoundTrip(t *testing.T) {
	db, cleanup := fleettest.NewTestDB(t, "cache")
	defer cleanup()
	store := NewResultStore(NewCache(db.Conn(), zerolog.Nop()), 0)

	result := &analysis.FleetResult{
		RunID:     "run-1",
		StartedAt: time.Date(2025, time.March, 1, 8, 0, 0, 0, time.UTC),
		Assets: []domain.AssetAnalysis{
			{AssetID: "pump-1", TCO: &domain.TCOReport{AssetID: "pump-1", Total: 123456.78}},
		},
	}
	store.SetResult("fleet:abc", result)

	got, ok := store.GetResult("fleet:abc")
	require.True(t, ok)
	assert.Equal(t, "run-1", got.RunID)
	require.Len(t, got.Assets, 1)
	assert.Equal(t, 123456.78, got.Assets[0].TCO.Total)

	_, ok = store.GetResult("fleet:missing")
	assert.False(t, ok)
}
