package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/fleetops/fleetcast/internal/domain"
	"github.com/fleetops/fleetcast/internal/modules/equipment"
)

// EquipmentHandlers provides HTTP handlers for the equipment inventory:
// metadata, cost history, and failure observations.
type EquipmentHandlers struct {
	equipment *equipment.Repository
	costs     *equipment.CostEventRepository
	failures  *equipment.FailureRepository
	log       zerolog.Logger
}

// NewEquipmentHandlers creates equipment inventory handlers.
func NewEquipmentHandlers(
	equipmentRepo *equipment.Repository,
	costRepo *equipment.CostEventRepository,
	failureRepo *equipment.FailureRepository,
	log zerolog.Logger,
) *EquipmentHandlers {
	return &EquipmentHandlers{
		equipment: equipmentRepo,
		costs:     costRepo,
		failures:  failureRepo,
		log:       log.With().Str("handler", "equipment").Logger(),
	}
}

// RegisterRoutes registers all equipment routes. Patterns are flat so the
// per-asset analysis routes can share the /equipment/{assetID} subtree.
func (h *EquipmentHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/equipment", h.handleList)
	r.Post("/equipment", h.handleSave)
	r.Get("/equipment/{assetID}", h.handleGet)
	r.Delete("/equipment/{assetID}", h.handleDelete)

	r.Get("/equipment/{assetID}/costs", h.handleListCosts)
	r.Post("/equipment/{assetID}/costs", h.handleAddCosts)

	r.Get("/equipment/{assetID}/failures", h.handleListFailures)
	r.Put("/equipment/{assetID}/failures", h.handleReplaceFailures)
}

func (h *EquipmentHandlers) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := h.equipment.List(r.URL.Query().Get("facility"))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list equipment")
		writeError(w, http.StatusInternalServerError, "failed to list equipment")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"equipment": records})
}

func (h *EquipmentHandlers) handleGet(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "assetID")

	rec, err := h.equipment.GetByID(assetID)
	if err != nil {
		h.log.Error().Err(err).Str("asset_id", assetID).Msg("Failed to load equipment")
		writeError(w, http.StatusInternalServerError, "failed to load equipment")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "unknown asset "+assetID)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *EquipmentHandlers) handleSave(w http.ResponseWriter, r *http.Request) {
	var rec equipment.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid equipment record: "+err.Error())
		return
	}
	if rec.AssetID == "" {
		writeError(w, http.StatusBadRequest, "asset_id is required")
		return
	}

	if err := h.equipment.Save(rec); err != nil {
		h.log.Error().Err(err).Str("asset_id", rec.AssetID).Msg("Failed to save equipment")
		writeError(w, http.StatusInternalServerError, "failed to save equipment")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *EquipmentHandlers) handleDelete(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "assetID")

	if err := h.equipment.Delete(assetID); err != nil {
		h.log.Error().Err(err).Str("asset_id", assetID).Msg("Failed to delete equipment")
		writeError(w, http.StatusInternalServerError, "failed to delete equipment")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *EquipmentHandlers) handleListCosts(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "assetID")

	from, to, err := parseWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	events, err := h.costs.ListByAsset(assetID, from, to)
	if err != nil {
		h.log.Error().Err(err).Str("asset_id", assetID).Msg("Failed to list cost events")
		writeError(w, http.StatusInternalServerError, "failed to list cost events")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

func (h *EquipmentHandlers) handleAddCosts(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "assetID")

	var events []domain.CostEvent
	if err := json.NewDecoder(r.Body).Decode(&events); err != nil {
		writeError(w, http.StatusBadRequest, "invalid cost events: "+err.Error())
		return
	}
	for i := range events {
		events[i].AssetID = assetID
	}

	if err := h.costs.AddBatch(events); err != nil {
		h.log.Error().Err(err).Str("asset_id", assetID).Msg("Failed to add cost events")
		writeError(w, http.StatusInternalServerError, "failed to add cost events")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"added": len(events)})
}

func (h *EquipmentHandlers) handleListFailures(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "assetID")

	observations, err := h.failures.ListByAsset(assetID)
	if err != nil {
		h.log.Error().Err(err).Str("asset_id", assetID).Msg("Failed to list failures")
		writeError(w, http.StatusInternalServerError, "failed to list failures")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"failures": observations})
}

func (h *EquipmentHandlers) handleReplaceFailures(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "assetID")

	var observations []domain.FailureObservation
	if err := json.NewDecoder(r.Body).Decode(&observations); err != nil {
		writeError(w, http.StatusBadRequest, "invalid failure observations: "+err.Error())
		return
	}
	for i := range observations {
		observations[i].AssetID = assetID
	}

	if err := h.failures.ReplaceForAsset(assetID, observations); err != nil {
		h.log.Error().Err(err).Str("asset_id", assetID).Msg("Failed to replace failures")
		writeError(w, http.StatusInternalServerError, "failed to replace failures")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"count": len(observations)})
}

// parseWindow reads the optional from/to query parameters (RFC3339 dates).
// Defaults cover all history up to now.
func parseWindow(r *http.Request) (time.Time, time.Time, error) {
	from := time.Time{}
	to := time.Now().UTC()

	if v := r.URL.Query().Get("from"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return from, to, err
		}
		from = parsed
	}
	if v := r.URL.Query().Get("to"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return from, to, err
		}
		to = parsed
	}
	return from, to, nil
}
