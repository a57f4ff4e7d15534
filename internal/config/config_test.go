package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("FLEETCAST_DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0.08, cfg.Analysis.DiscountRate)
	assert.Equal(t, 36, cfg.Analysis.HorizonMonths)
	assert.Equal(t, 10, cfg.Analysis.FiscalAnchorMonth)
	assert.Equal(t, 500.0, cfg.Analysis.DowntimeHourlyRate)
	assert.Equal(t, 0.10, cfg.Analysis.MaterialityThreshold)
	assert.False(t, cfg.Backup.Enabled())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FLEETCAST_DATA_DIR", t.TempDir())
	t.Setenv("FLEETCAST_DISCOUNT_RATE", "0.05")
	t.Setenv("FLEETCAST_HORIZON_MONTHS", "12")
	t.Setenv("FLEETCAST_BACKUP_BUCKET", "fleetcast-backups")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0.05, cfg.Analysis.DiscountRate)
	assert.Equal(t, 12, cfg.Analysis.HorizonMonths)
	assert.True(t, cfg.Backup.Enabled())
}

func TestLoad_InvalidFiscalAnchor(t *testing.T) {
	t.Setenv("FLEETCAST_DATA_DIR", t.TempDir())
	t.Setenv("FLEETCAST_FISCAL_ANCHOR_MONTH", "13")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fiscal anchor month")
}

func TestAnalysisDefaults_AnalysisConfig(t *testing.T) {
	t.Setenv("FLEETCAST_DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	ac := cfg.Analysis.AnalysisConfig()
	assert.Equal(t, "auto", ac.ForecastMethod)
	assert.Equal(t, cfg.Analysis.DiscountRate, ac.DiscountRate)
	assert.Equal(t, cfg.Analysis.BudgetPeriods, ac.BudgetPeriods)
}
