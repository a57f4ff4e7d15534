package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/fleetops/fleetcast/internal/analysis"
	"github.com/fleetops/fleetcast/internal/config"
	"github.com/fleetops/fleetcast/internal/domain"
	"github.com/fleetops/fleetcast/internal/modules/equipment"
)

// AnalysisHandlers provides HTTP handlers for on-demand analyses: per-asset
// sections, full fleet runs, stored results, and the replacement plan.
type AnalysisHandlers struct {
	fleet    *analysis.Service
	results  *equipment.ResultsRepository
	defaults config.AnalysisDefaults
	log      zerolog.Logger
}

// NewAnalysisHandlers creates analysis handlers.
func NewAnalysisHandlers(
	fleet *analysis.Service,
	results *equipment.ResultsRepository,
	defaults config.AnalysisDefaults,
	log zerolog.Logger,
) *AnalysisHandlers {
	return &AnalysisHandlers{
		fleet:    fleet,
		results:  results,
		defaults: defaults,
		log:      log.With().Str("handler", "analysis").Logger(),
	}
}

// RegisterRoutes registers all analysis routes
func (h *AnalysisHandlers) RegisterRoutes(r chi.Router) {
	r.Post("/analysis/run", h.handleRunFleet)
	r.Get("/analysis/runs/{runID}", h.handleGetRun)
	r.Get("/analysis/assets/{assetID}/latest", h.handleLatestForAsset)

	r.Get("/equipment/{assetID}/analysis", h.assetSection(func(a *domain.AssetAnalysis) interface{} { return a }))
	r.Get("/equipment/{assetID}/forecast", h.assetSection(func(a *domain.AssetAnalysis) interface{} { return a.Forecast }))
	r.Get("/equipment/{assetID}/reliability", h.assetSection(func(a *domain.AssetAnalysis) interface{} { return a.Reliability }))
	r.Get("/equipment/{assetID}/repair-vs-replace", h.assetSection(func(a *domain.AssetAnalysis) interface{} { return a.Decision }))
	r.Get("/equipment/{assetID}/tco", h.assetSection(func(a *domain.AssetAnalysis) interface{} { return a.TCO }))
	r.Get("/equipment/{assetID}/depreciation", h.assetSection(func(a *domain.AssetAnalysis) interface{} { return a.Depreciation }))

	r.Get("/fleet/replacement-schedule", h.handleReplacementSchedule)
	r.Get("/fleet/replacement-priorities", h.handleReplacementPriorities)
}

// handleRunFleet triggers a full fleet analysis. The optional JSON body
// overrides the configured analysis defaults.
func (h *AnalysisHandlers) handleRunFleet(w http.ResponseWriter, r *http.Request) {
	cfg := h.defaults.AnalysisConfig()
	if err := decodeOverrides(r.Body, &cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid analysis config: "+err.Error())
		return
	}

	result, err := h.fleet.RunFleet(r.Context(), cfg, time.Now().UTC(), r.URL.Query().Get("facility"))
	if err != nil {
		h.log.Error().Err(err).Msg("Fleet analysis failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *AnalysisHandlers) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	assets, err := h.results.GetRun(runID)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", runID).Msg("Failed to load run")
		writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	if len(assets) == 0 {
		writeError(w, http.StatusNotFound, "unknown run "+runID)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"run_id": runID, "assets": assets})
}

func (h *AnalysisHandlers) handleLatestForAsset(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "assetID")

	latest, err := h.results.LatestForAsset(assetID)
	if err != nil {
		h.log.Error().Err(err).Str("asset_id", assetID).Msg("Failed to load latest analysis")
		writeError(w, http.StatusInternalServerError, "failed to load latest analysis")
		return
	}
	if latest == nil {
		writeError(w, http.StatusNotFound, "no stored analysis for "+assetID)
		return
	}
	writeJSON(w, http.StatusOK, latest)
}

// assetSection runs the per-asset pipeline and responds with one section of
// the result. Sections the pipeline skipped (e.g. reliability without enough
// failures) return 404.
func (h *AnalysisHandlers) assetSection(pick func(*domain.AssetAnalysis) interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assetID := chi.URLParam(r, "assetID")

		cfg, err := h.configFromQuery(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		result, err := h.fleet.RunAsset(r.Context(), cfg, time.Now().UTC(), assetID)
		if err != nil {
			var unknown *domain.UnknownAssetError
			if errors.As(err, &unknown) {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			h.log.Error().Err(err).Str("asset_id", assetID).Msg("Asset analysis failed")
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if result.Err != "" {
			writeError(w, http.StatusUnprocessableEntity, result.Err)
			return
		}

		section := pick(result)
		if isNilSection(section) {
			writeError(w, http.StatusNotFound, "section unavailable for "+assetID)
			return
		}
		writeJSON(w, http.StatusOK, section)
	}
}

func (h *AnalysisHandlers) handleReplacementSchedule(w http.ResponseWriter, r *http.Request) {
	result, err := h.runFleetForPlan(r)
	if err != nil {
		h.log.Error().Err(err).Msg("Fleet analysis failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result.Schedule)
}

func (h *AnalysisHandlers) handleReplacementPriorities(w http.ResponseWriter, r *http.Request) {
	result, err := h.runFleetForPlan(r)
	if err != nil {
		h.log.Error().Err(err).Msg("Fleet analysis failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	candidates := h.fleet.Runner().Prioritized(result.Assets)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":     result.RunID,
		"candidates": candidates,
	})
}

func (h *AnalysisHandlers) runFleetForPlan(r *http.Request) (*analysis.FleetResult, error) {
	cfg, err := h.configFromQuery(r)
	if err != nil {
		return nil, err
	}
	return h.fleet.RunFleet(r.Context(), cfg, time.Now().UTC(), r.URL.Query().Get("facility"))
}

// configFromQuery applies per-request overrides to the analysis defaults.
func (h *AnalysisHandlers) configFromQuery(r *http.Request) (domain.AnalysisConfig, error) {
	cfg := h.defaults.AnalysisConfig()
	q := r.URL.Query()

	if v := q.Get("horizon"); v != "" {
		horizon, err := strconv.Atoi(v)
		if err != nil || horizon <= 0 {
			return cfg, errors.New("horizon must be a positive integer")
		}
		cfg.HorizonMonths = horizon
	}
	if v := q.Get("method"); v != "" {
		cfg.ForecastMethod = v
	}
	if v := q.Get("depreciation"); v != "" {
		cfg.DepreciationMethod = domain.DepreciationMethod(v)
	}
	if v := q.Get("discount_rate"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil || rate <= -1 {
			return cfg, errors.New("discount_rate must be a number greater than -1")
		}
		cfg.DiscountRate = rate
	}
	if v := q.Get("budget_per_period"); v != "" {
		budget, err := strconv.ParseFloat(v, 64)
		if err != nil || budget <= 0 {
			return cfg, errors.New("budget_per_period must be a positive number")
		}
		cfg.BudgetPerPeriod = budget
	}
	if v := q.Get("budget_periods"); v != "" {
		periods, err := strconv.Atoi(v)
		if err != nil || periods <= 0 {
			return cfg, errors.New("budget_periods must be a positive integer")
		}
		cfg.BudgetPeriods = periods
	}

	return cfg, nil
}

// decodeOverrides merges an optional JSON body into cfg. An empty body keeps
// the defaults.
func decodeOverrides(body io.Reader, cfg *domain.AnalysisConfig) error {
	err := json.NewDecoder(body).Decode(cfg)
	if err == io.EOF {
		return nil
	}
	return err
}

func isNilSection(section interface{}) bool {
	switch v := section.(type) {
	case *domain.ForecastResult:
		return v == nil
	case *domain.ReliabilityEstimate:
		return v == nil
	case *domain.NPVDecision:
		return v == nil
	case *domain.TCOReport:
		return v == nil
	case *domain.DepreciationSchedule:
		return v == nil
	default:
		return section == nil
	}
}
