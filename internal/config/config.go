// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/fleetops/fleetcast/internal/domain"
)

// Config holds application configuration.
type Config struct {
	DataDir  string // Base directory for all databases (always absolute)
	LogLevel string
	Port     int
	DevMode  bool

	Analysis AnalysisDefaults
	Backup   BackupConfig
}

// AnalysisDefaults holds the default analysis parameters. Callers may
// override any of them per request; these are the values used when a request
// leaves a field unset.
type AnalysisDefaults struct {
	DiscountRate         float64
	HorizonMonths        int
	ProjectionYears      int
	FiscalAnchorMonth    int // month index where the accounting year begins
	DowntimeHourlyRate   float64
	MaterialityThreshold float64 // fraction of replacement cost
	BudgetPerPeriod      float64
	BudgetPeriods        int
	DepreciationMethod   string
}

// BackupConfig holds off-site backup configuration. Backups are disabled
// unless a bucket is configured.
type BackupConfig struct {
	Bucket          string
	Endpoint        string // S3-compatible endpoint; empty = AWS default
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	RetentionCount  int
}

// Enabled reports whether off-site backups are configured.
func (b BackupConfig) Enabled() bool {
	return b.Bucket != ""
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("FLEETCAST_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		Port:     getEnvAsInt("FLEETCAST_PORT", 8002),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Analysis: AnalysisDefaults{
			DiscountRate:         getEnvAsFloat("FLEETCAST_DISCOUNT_RATE", 0.08),
			HorizonMonths:        getEnvAsInt("FLEETCAST_HORIZON_MONTHS", 36),
			ProjectionYears:      getEnvAsInt("FLEETCAST_PROJECTION_YEARS", 5),
			FiscalAnchorMonth:    getEnvAsInt("FLEETCAST_FISCAL_ANCHOR_MONTH", domain.DefaultFiscalAnchorMonth),
			DowntimeHourlyRate:   getEnvAsFloat("FLEETCAST_DOWNTIME_HOURLY_RATE", 500.0),
			MaterialityThreshold: getEnvAsFloat("FLEETCAST_MATERIALITY_THRESHOLD", 0.10),
			BudgetPerPeriod:      getEnvAsFloat("FLEETCAST_BUDGET_PER_PERIOD", 500000.0),
			BudgetPeriods:        getEnvAsInt("FLEETCAST_BUDGET_PERIODS", 5),
			DepreciationMethod:   getEnv("FLEETCAST_DEPRECIATION_METHOD", "straight_line"),
		},
		Backup: BackupConfig{
			Bucket:          getEnv("FLEETCAST_BACKUP_BUCKET", ""),
			Endpoint:        getEnv("FLEETCAST_BACKUP_ENDPOINT", ""),
			Region:          getEnv("FLEETCAST_BACKUP_REGION", "auto"),
			AccessKeyID:     getEnv("FLEETCAST_BACKUP_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("FLEETCAST_BACKUP_SECRET_ACCESS_KEY", ""),
			RetentionCount:  getEnvAsInt("FLEETCAST_BACKUP_RETENTION", 7),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks configuration invariants that would otherwise surface as
// confusing numerical results deep inside the analysis pipeline.
func (c *Config) Validate() error {
	a := c.Analysis
	if a.DiscountRate <= -1 {
		return fmt.Errorf("discount rate must be greater than -100%%, got %g", a.DiscountRate)
	}
	if a.HorizonMonths <= 0 {
		return fmt.Errorf("forecast horizon must be positive, got %d", a.HorizonMonths)
	}
	if a.FiscalAnchorMonth < 1 || a.FiscalAnchorMonth > 12 {
		return fmt.Errorf("fiscal anchor month must be 1-12, got %d", a.FiscalAnchorMonth)
	}
	if a.MaterialityThreshold < 0 {
		return fmt.Errorf("materiality threshold must be non-negative, got %g", a.MaterialityThreshold)
	}
	return nil
}

// AnalysisConfig builds a domain.AnalysisConfig from the defaults.
func (a AnalysisDefaults) AnalysisConfig() domain.AnalysisConfig {
	return domain.AnalysisConfig{
		DiscountRate:         a.DiscountRate,
		HorizonMonths:        a.HorizonMonths,
		ProjectionYears:      a.ProjectionYears,
		ForecastMethod:       "auto",
		DepreciationMethod:   domain.DepreciationMethod(a.DepreciationMethod),
		BudgetPerPeriod:      a.BudgetPerPeriod,
		BudgetPeriods:        a.BudgetPeriods,
		MaterialityThreshold: a.MaterialityThreshold,
		DowntimeHourlyRate:   a.DowntimeHourlyRate,
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
