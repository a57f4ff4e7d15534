package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/fleetops/fleetcast/internal/domain"
	"github.com/fleetops/fleetcast/internal/modules/equipment"
)

// EquipmentLister provides the equipment records for a fleet run.
// Used by the service to enable testing with mocks.
type EquipmentLister interface {
	List(facility string) ([]equipment.Record, error)
	GetByID(assetID string) (*equipment.Record, error)
}

// CostEventLister provides the cost history for one asset.
type CostEventLister interface {
	ListByAsset(assetID string, from, to time.Time) ([]domain.CostEvent, error)
}

// FailureLister provides the failure observations for one asset.
type FailureLister interface {
	ListByAsset(assetID string) ([]domain.FailureObservation, error)
}

// ResultsWriter persists the per-asset analyses of a finished run.
type ResultsWriter interface {
	SaveRun(runID string, assets []domain.AssetAnalysis) error
}

// Service assembles runner inputs from the repositories, executes a fleet
// run, and persists the results. It is the entry point shared by the HTTP
// trigger and the nightly scheduler job.
type Service struct {
	runner    *Runner
	equipment EquipmentLister
	costs     CostEventLister
	failures  FailureLister
	results   ResultsWriter
	log       zerolog.Logger
}

// NewService creates a fleet analysis service.
func NewService(
	runner *Runner,
	equipmentRepo EquipmentLister,
	costRepo CostEventLister,
	failureRepo FailureLister,
	resultsRepo ResultsWriter,
	log zerolog.Logger,
) *Service {
	return &Service{
		runner:    runner,
		equipment: equipmentRepo,
		costs:     costRepo,
		failures:  failureRepo,
		results:   resultsRepo,
		log:       log.With().Str("service", "fleet_analysis").Logger(),
	}
}

// Runner exposes the underlying runner, mainly for progress subscriptions.
func (s *Service) Runner() *Runner {
	return s.runner
}

// RunFleet analyzes every asset in the given facility (empty = all) as of
// asOf and stores the per-asset results. The replacement schedule travels
// with the returned FleetResult only.
func (s *Service) RunFleet(ctx context.Context, cfg domain.AnalysisConfig, asOf time.Time, facility string) (*FleetResult, error) {
	inputs, err := s.assembleInputs(asOf, facility)
	if err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no equipment to analyze%s", facilitySuffix(facility))
	}

	result, err := s.runner.Run(ctx, cfg, asOf, inputs)
	if err != nil {
		return result, err
	}

	if saveErr := s.results.SaveRun(result.RunID, result.Assets); saveErr != nil {
		// The run itself succeeded; persistence failure must not discard it.
		s.log.Error().Err(saveErr).Str("run_id", result.RunID).Msg("Failed to persist run results")
	}

	return result, nil
}

// RunAsset analyzes a single asset. Used by the on-demand per-asset
// endpoints; results are returned, not persisted.
func (s *Service) RunAsset(ctx context.Context, cfg domain.AnalysisConfig, asOf time.Time, assetID string) (*domain.AssetAnalysis, error) {
	rec, err := s.getRecord(assetID)
	if err != nil {
		return nil, err
	}

	input, err := s.assembleInput(*rec, asOf)
	if err != nil {
		return nil, err
	}

	result, err := s.runner.Run(ctx, cfg, asOf, []AssetInput{input})
	if err != nil {
		return nil, err
	}
	if len(result.Assets) != 1 {
		return nil, fmt.Errorf("expected one analysis for %s, got %d", assetID, len(result.Assets))
	}

	return &result.Assets[0], nil
}

func (s *Service) getRecord(assetID string) (*equipment.Record, error) {
	rec, err := s.equipment.GetByID(assetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load equipment %s: %w", assetID, err)
	}
	if rec == nil {
		return nil, &domain.UnknownAssetError{AssetID: assetID}
	}
	return rec, nil
}

func (s *Service) assembleInputs(asOf time.Time, facility string) ([]AssetInput, error) {
	records, err := s.equipment.List(facility)
	if err != nil {
		return nil, fmt.Errorf("failed to list equipment: %w", err)
	}

	inputs := make([]AssetInput, 0, len(records))
	for _, rec := range records {
		input, err := s.assembleInput(rec, asOf)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, input)
	}
	return inputs, nil
}

func (s *Service) assembleInput(rec equipment.Record, asOf time.Time) (AssetInput, error) {
	events, err := s.costs.ListByAsset(rec.AssetID, rec.AcquisitionDate, asOf)
	if err != nil {
		return AssetInput{}, fmt.Errorf("failed to load cost events for %s: %w", rec.AssetID, err)
	}

	failures, err := s.failures.ListByAsset(rec.AssetID)
	if err != nil {
		return AssetInput{}, fmt.Errorf("failed to load failures for %s: %w", rec.AssetID, err)
	}

	return AssetInput{
		Equipment:       rec.Equipment,
		CostEvents:      events,
		Failures:        failures,
		ReplacementCost: rec.ReplacementCost,
	}, nil
}

func facilitySuffix(facility string) string {
	if facility == "" {
		return ""
	}
	return " in facility " + facility
}
