// Package analysis runs the full per-asset pipeline across a fleet and joins
// the survivors into a budget-constrained replacement schedule.
package analysis

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fleetops/fleetcast/internal/domain"
	"github.com/fleetops/fleetcast/internal/modules/aggregation"
	"github.com/fleetops/fleetcast/internal/modules/financial"
	"github.com/fleetops/fleetcast/internal/modules/forecasting"
	"github.com/fleetops/fleetcast/internal/modules/planning"
	"github.com/fleetops/fleetcast/internal/modules/reliability"
)

// DefaultWorkers bounds pipeline concurrency when the caller does not.
const DefaultWorkers = 4

// AssetInput is everything the storage layer hands the runner for one asset.
type AssetInput struct {
	Equipment         domain.Equipment
	CostEvents        []domain.CostEvent
	Failures          []domain.FailureObservation
	ReplacementCost   float64
	AnnualMaintenance float64 // 0 means derive from the trailing twelve months
}

// FleetResult is the joined output of one analysis run.
type FleetResult struct {
	RunID      string                      `json:"run_id"`
	StartedAt  time.Time                   `json:"started_at"`
	FinishedAt time.Time                   `json:"finished_at"`
	Assets     []domain.AssetAnalysis      `json:"assets"`
	Schedule   *domain.ReplacementSchedule `json:"schedule,omitempty"`
	Failed     int                         `json:"failed"`
}

// Cache stores finished fleet results keyed by input fingerprint. Optional.
type Cache interface {
	GetResult(key string) (*FleetResult, bool)
	SetResult(key string, result *FleetResult)
}

// Runner executes aggregate -> forecast -> reliability -> financial for each
// asset on a bounded worker pool, then feeds replacement candidates to the
// optimizer. One bad asset records an error; the batch continues.
type Runner struct {
	aggregator *aggregation.Aggregator
	forecaster *forecasting.Forecaster
	modeler    *reliability.Modeler
	predictor  *reliability.Predictor
	analyzer   *financial.Analyzer
	engine     *financial.Engine
	tco        *financial.Calculator
	optimizer  *planning.Optimizer

	broadcaster *Broadcaster
	cache       Cache
	workers     int
	log         zerolog.Logger
}

// Components carries the runner's collaborators, all required except Cache.
type Components struct {
	Aggregator *aggregation.Aggregator
	Forecaster *forecasting.Forecaster
	Modeler    *reliability.Modeler
	Predictor  *reliability.Predictor
	Analyzer   *financial.Analyzer
	Engine     *financial.Engine
	TCO        *financial.Calculator
	Optimizer  *planning.Optimizer
	Cache      Cache
}

// NewRunner creates a fleet analysis runner. workers <= 0 falls back to
// DefaultWorkers.
func NewRunner(c Components, workers int, log zerolog.Logger) *Runner {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Runner{
		aggregator:  c.Aggregator,
		forecaster:  c.Forecaster,
		modeler:     c.Modeler,
		predictor:   c.Predictor,
		analyzer:    c.Analyzer,
		engine:      c.Engine,
		tco:         c.TCO,
		optimizer:   c.Optimizer,
		broadcaster: NewBroadcaster(),
		cache:       c.Cache,
		workers:     workers,
		log:         log.With().Str("component", "analysis_runner").Logger(),
	}
}

// Progress exposes the run's progress stream for subscribers.
func (r *Runner) Progress() *Broadcaster {
	return r.broadcaster
}

// Run analyzes the fleet as of asOf. It returns a partial result and
// ctx.Err() when canceled mid-run.
func (r *Runner) Run(ctx context.Context, cfg domain.AnalysisConfig, asOf time.Time, inputs []AssetInput) (*FleetResult, error) {
	runID := uuid.New().String()
	started := time.Now()

	if r.cache != nil {
		if cached, ok := r.cache.GetResult(fingerprint(cfg, asOf, inputs)); ok {
			r.log.Info().Str("run_id", cached.RunID).Msg("Served fleet analysis from cache")
			return cached, nil
		}
	}

	r.log.Info().
		Str("run_id", runID).
		Int("assets", len(inputs)).
		Int("workers", r.workers).
		Msg("Starting fleet analysis")
	r.broadcaster.Publish(ProgressEvent{RunID: runID, Phase: PhaseStarted, Total: len(inputs)})

	jobs := make(chan AssetInput)
	results := make(chan domain.AssetAnalysis, len(inputs))

	var wg sync.WaitGroup
	for w := 0; w < r.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for in := range jobs {
				results <- r.analyzeAsset(cfg, asOf, in)
			}
		}()
	}

	canceled := false
feed:
	for _, in := range inputs {
		select {
		case <-ctx.Done():
			canceled = true
			break feed
		default:
		}
		select {
		case jobs <- in:
		case <-ctx.Done():
			canceled = true
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	close(results)

	result := &FleetResult{RunID: runID, StartedAt: started}
	completed := 0
	for a := range results {
		completed++
		phase := PhaseAssetCompleted
		if a.Err != "" {
			phase = PhaseAssetFailed
			result.Failed++
		}
		r.broadcaster.Publish(ProgressEvent{
			RunID:     runID,
			Phase:     phase,
			AssetID:   a.AssetID,
			Completed: completed,
			Total:     len(inputs),
			Error:     a.Err,
		})
		result.Assets = append(result.Assets, a)
	}
	sort.Slice(result.Assets, func(i, j int) bool {
		return result.Assets[i].AssetID < result.Assets[j].AssetID
	})

	if canceled {
		result.FinishedAt = time.Now()
		r.log.Warn().Str("run_id", runID).Int("completed", completed).Msg("Fleet analysis canceled")
		return result, ctx.Err()
	}

	schedule, err := r.optimizer.Plan(r.candidates(result.Assets), domain.BudgetConstraint{
		TotalBudget: cfg.BudgetPerPeriod,
		PeriodCount: cfg.BudgetPeriods,
	}, r.aggregator.Calendar().YearOf(asOf))
	if err != nil {
		return result, err
	}
	result.Schedule = &schedule
	result.FinishedAt = time.Now()

	r.broadcaster.Publish(ProgressEvent{
		RunID:     runID,
		Phase:     PhaseCompleted,
		Completed: completed,
		Total:     len(inputs),
	})
	r.log.Info().
		Str("run_id", runID).
		Int("assets", len(result.Assets)).
		Int("failed", result.Failed).
		Dur("elapsed", time.Since(started)).
		Msg("Fleet analysis finished")

	if r.cache != nil {
		r.cache.SetResult(fingerprint(cfg, asOf, inputs), result)
	}
	return result, nil
}

// analyzeAsset runs the per-asset pipeline. Reliability is best-effort (most
// assets lack enough failure history); aggregation, forecasting, and the
// financial steps are required.
func (r *Runner) analyzeAsset(cfg domain.AnalysisConfig, asOf time.Time, in AssetInput) domain.AssetAnalysis {
	eq := in.Equipment
	out := domain.AssetAnalysis{AssetID: eq.AssetID}

	series, err := r.aggregator.Aggregate(eq.AssetID, in.CostEvents, aggregation.Window{
		Start: eq.AcquisitionDate,
		End:   asOf,
	})
	if err != nil {
		return failed(out, err)
	}

	forecast, err := r.forecaster.Forecast(series, cfg.HorizonMonths, cfg.ForecastMethod)
	if err != nil {
		return failed(out, err)
	}
	out.Forecast = &forecast

	if model, err := r.modeler.Fit(eq.AssetID, in.Failures); err != nil {
		var insufficient *domain.InsufficientFailureDataError
		if !errors.As(err, &insufficient) {
			return failed(out, err)
		}
		r.log.Debug().Str("asset_id", eq.AssetID).Msg("Skipping reliability, too few failures")
	} else {
		estimate, err := r.predictor.Estimate(model, eq.AgeMonths(asOf))
		if err != nil {
			return failed(out, err)
		}
		out.Reliability = &estimate
	}

	usefulLifeYears := eq.ExpectedUsefulLifeMonths / 12
	schedule, err := r.engine.Schedule(
		eq.AssetID,
		eq.AcquisitionCost,
		eq.AcquisitionCost*eq.SalvageFraction,
		usefulLifeYears,
		eq.AcquisitionDate,
		cfg.DepreciationMethod,
	)
	if err != nil {
		return failed(out, err)
	}
	out.Depreciation = &schedule

	tco := r.tco.Report(eq, series, schedule, asOf)
	out.TCO = &tco

	annual := in.AnnualMaintenance
	if annual <= 0 {
		annual = trailingAnnual(series)
	}
	decision, err := r.analyzer.Compare(financial.DecisionInput{
		AssetID:              eq.AssetID,
		AnnualMaintenance:    annual,
		ReplacementCost:      in.ReplacementCost,
		BookValue:            schedule.BookValueAt(r.aggregator.Calendar().YearOf(asOf)),
		ProjectionYears:      cfg.ProjectionYears,
		DiscountRate:         cfg.DiscountRate,
		MaterialityThreshold: cfg.MaterialityThreshold,
	})
	if err != nil {
		return failed(out, err)
	}
	out.Decision = &decision

	return out
}

// Prioritized ranks the replacement candidates among the given analyses by
// savings per dollar of cost, without allocating them to budget periods.
func (r *Runner) Prioritized(assets []domain.AssetAnalysis) []domain.ReplacementCandidate {
	return r.optimizer.Prioritize(r.candidates(assets))
}

// candidates keeps the assets whose decision favors replacement now or soon.
func (r *Runner) candidates(assets []domain.AssetAnalysis) []domain.ReplacementCandidate {
	var out []domain.ReplacementCandidate
	for _, a := range assets {
		if a.Decision == nil || a.Decision.Recommended == domain.ActionRepair {
			continue
		}
		out = append(out, domain.ReplacementCandidate{
			AssetID:          a.AssetID,
			EstimatedCost:    a.Decision.ReplacementCost,
			EstimatedSavings: a.Decision.NPVSavings,
		})
	}
	return out
}

func failed(a domain.AssetAnalysis, err error) domain.AssetAnalysis {
	a.Err = err.Error()
	return a
}

// trailingAnnual sums the last twelve observed months as the current annual
// maintenance run rate.
func trailingAnnual(series domain.CostSeries) float64 {
	obs := series.Observations
	start := len(obs) - 12
	if start < 0 {
		start = 0
	}
	total := 0.0
	for _, o := range obs[start:] {
		total += o.Amount
	}
	return domain.RoundMoney(total)
}
