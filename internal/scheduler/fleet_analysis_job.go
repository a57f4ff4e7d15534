package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/fleetops/fleetcast/internal/analysis"
	"github.com/fleetops/fleetcast/internal/domain"
)

// fleetAnalysisTimeout bounds a nightly run; a fleet that takes longer than
// this has a stuck worker, not a big workload.
const fleetAnalysisTimeout = 30 * time.Minute

// FleetAnalysisService defines the contract for running a fleet analysis.
// Used by the job to enable testing with mocks.
type FleetAnalysisService interface {
	RunFleet(ctx context.Context, cfg domain.AnalysisConfig, asOf time.Time, facility string) (*analysis.FleetResult, error)
}

// FleetAnalysisJob runs the full fleet analysis pipeline on a schedule so the
// stored results and replacement schedule stay current without manual runs.
type FleetAnalysisJob struct {
	service FleetAnalysisService
	cfg     domain.AnalysisConfig
	log     zerolog.Logger
}

// NewFleetAnalysisJob creates a new fleet analysis job
func NewFleetAnalysisJob(service FleetAnalysisService, cfg domain.AnalysisConfig, log zerolog.Logger) *FleetAnalysisJob {
	return &FleetAnalysisJob{
		service: service,
		cfg:     cfg,
		log:     log.With().Str("job", "fleet_analysis").Logger(),
	}
}

// Run executes the fleet analysis job
func (j *FleetAnalysisJob) Run() error {
	j.log.Info().Msg("Starting scheduled fleet analysis")
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), fleetAnalysisTimeout)
	defer cancel()

	result, err := j.service.RunFleet(ctx, j.cfg, time.Now().UTC(), "")
	if err != nil {
		return err
	}

	j.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Str("run_id", result.RunID).
		Int("assets", len(result.Assets)).
		Int("failed", result.Failed).
		Msg("Scheduled fleet analysis completed")

	return nil
}

// Name returns the job name for scheduler
func (j *FleetAnalysisJob) Name() string {
	return "fleet_analysis"
}
