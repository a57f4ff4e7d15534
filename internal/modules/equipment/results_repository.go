package equipment

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/fleetops/fleetcast/internal/database"
	"github.com/fleetops/fleetcast/internal/domain"
)

// ResultsRepository persists per-asset analysis results as JSON payloads
// keyed by run id, so past runs stay queryable after config changes.
type ResultsRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewResultsRepository creates an analysis results repository.
func NewResultsRepository(db *sql.DB, log zerolog.Logger) *ResultsRepository {
	return &ResultsRepository{
		db:  db,
		log: log.With().Str("repo", "results").Logger(),
	}
}

// SaveRun stores every asset's analysis for one run in a single transaction.
func (r *ResultsRepository) SaveRun(runID string, assets []domain.AssetAnalysis) error {
	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO analysis_results (run_id, asset_id, payload) VALUES (?, ?, ?)
			ON CONFLICT(run_id, asset_id) DO UPDATE SET payload = excluded.payload`)
		if err != nil {
			return fmt.Errorf("failed to prepare results insert: %w", err)
		}
		defer stmt.Close()

		for _, a := range assets {
			payload, err := json.Marshal(a)
			if err != nil {
				return fmt.Errorf("failed to marshal analysis for %s: %w", a.AssetID, err)
			}
			if _, err := stmt.Exec(runID, a.AssetID, string(payload)); err != nil {
				return fmt.Errorf("failed to insert analysis for %s: %w", a.AssetID, err)
			}
		}
		return nil
	})
}

// GetRun returns every asset analysis stored for a run, ordered by asset id.
func (r *ResultsRepository) GetRun(runID string) ([]domain.AssetAnalysis, error) {
	rows, err := r.db.Query(
		"SELECT payload FROM analysis_results WHERE run_id = ? ORDER BY asset_id", runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []domain.AssetAnalysis
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan result payload: %w", err)
		}
		var a domain.AssetAnalysis
		if err := json.Unmarshal([]byte(payload), &a); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result payload: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// LatestForAsset returns the most recent stored analysis for one asset, or
// nil when the asset was never analyzed.
func (r *ResultsRepository) LatestForAsset(assetID string) (*domain.AssetAnalysis, error) {
	var payload string
	err := r.db.QueryRow(`
		SELECT payload FROM analysis_results
		WHERE asset_id = ? ORDER BY created_at DESC, run_id DESC LIMIT 1`, assetID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest analysis for %s: %w", assetID, err)
	}

	var a domain.AssetAnalysis
	if err := json.Unmarshal([]byte(payload), &a); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result payload: %w", err)
	}
	return &a, nil
}
