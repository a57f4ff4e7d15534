package equipment

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/fleetops/fleetcast/internal/database"
	"github.com/fleetops/fleetcast/internal/domain"
)

// FailureRepository handles failure observation persistence.
type FailureRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewFailureRepository creates a failure observation repository.
func NewFailureRepository(db *sql.DB, log zerolog.Logger) *FailureRepository {
	return &FailureRepository{
		db:  db,
		log: log.With().Str("repo", "failures").Logger(),
	}
}

// Add stores one failure (or censoring) observation.
func (r *FailureRepository) Add(obs domain.FailureObservation) error {
	_, err := r.db.Exec(`
		INSERT INTO failure_observations (asset_id, age_months, censored)
		VALUES (?, ?, ?)`,
		obs.AssetID, obs.AgeMonths, obs.Censored,
	)
	if err != nil {
		return fmt.Errorf("failed to insert failure observation for %s: %w", obs.AssetID, err)
	}
	return nil
}

// ReplaceForAsset swaps an asset's full observation set in one transaction.
// Failure histories are usually re-imported whole from the CMMS export.
func (r *FailureRepository) ReplaceForAsset(assetID string, observations []domain.FailureObservation) error {
	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM failure_observations WHERE asset_id = ?", assetID); err != nil {
			return fmt.Errorf("failed to clear failure observations for %s: %w", assetID, err)
		}
		for _, obs := range observations {
			if _, err := tx.Exec(`
				INSERT INTO failure_observations (asset_id, age_months, censored)
				VALUES (?, ?, ?)`,
				assetID, obs.AgeMonths, obs.Censored,
			); err != nil {
				return fmt.Errorf("failed to insert failure observation for %s: %w", assetID, err)
			}
		}
		return nil
	})
}

// ListByAsset returns an asset's observations ordered by age.
func (r *FailureRepository) ListByAsset(assetID string) ([]domain.FailureObservation, error) {
	rows, err := r.db.Query(`
		SELECT asset_id, age_months, censored
		FROM failure_observations WHERE asset_id = ? ORDER BY age_months`, assetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query failure observations for %s: %w", assetID, err)
	}
	defer rows.Close()

	var out []domain.FailureObservation
	for rows.Next() {
		var obs domain.FailureObservation
		if err := rows.Scan(&obs.AssetID, &obs.AgeMonths, &obs.Censored); err != nil {
			return nil, fmt.Errorf("failed to scan failure observation: %w", err)
		}
		out = append(out, obs)
	}
	return out, rows.Err()
}
