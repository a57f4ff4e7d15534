// Package equipment is the storage module: sqlite repositories for equipment
// metadata, cost events, failure observations, and analysis results. The
// analysis core never touches SQL; it consumes what these repositories load.
package equipment

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/fleetops/fleetcast/internal/domain"
)

const equipmentColumns = `asset_id, class, facility, acquisition_date, acquisition_cost,
expected_useful_life_months, salvage_fraction, replacement_cost`

// Repository handles equipment metadata persistence.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates an equipment repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "equipment").Logger(),
	}
}

// Record is the stored form of one asset: domain metadata plus the current
// replacement quote.
type Record struct {
	domain.Equipment
	ReplacementCost float64 `json:"replacement_cost"`
}

// Save upserts an equipment record.
func (r *Repository) Save(rec Record) error {
	_, err := r.db.Exec(`
		INSERT INTO equipment (asset_id, class, facility, acquisition_date, acquisition_cost,
			expected_useful_life_months, salvage_fraction, replacement_cost)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(asset_id) DO UPDATE SET
			class = excluded.class,
			facility = excluded.facility,
			acquisition_date = excluded.acquisition_date,
			acquisition_cost = excluded.acquisition_cost,
			expected_useful_life_months = excluded.expected_useful_life_months,
			salvage_fraction = excluded.salvage_fraction,
			replacement_cost = excluded.replacement_cost,
			updated_at = datetime('now')`,
		rec.AssetID, rec.Class, rec.Facility,
		rec.AcquisitionDate.UTC().Format(time.RFC3339),
		rec.AcquisitionCost, rec.ExpectedUsefulLifeMonths,
		rec.SalvageFraction, rec.ReplacementCost,
	)
	if err != nil {
		return fmt.Errorf("failed to save equipment %s: %w", rec.AssetID, err)
	}
	return nil
}

// GetByID returns one asset, or nil when it does not exist.
func (r *Repository) GetByID(assetID string) (*Record, error) {
	row := r.db.QueryRow("SELECT "+equipmentColumns+" FROM equipment WHERE asset_id = ?", assetID)

	rec, err := scanEquipment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query equipment %s: %w", assetID, err)
	}
	return &rec, nil
}

// List returns all assets ordered by asset id. facility narrows the result
// when non-empty.
func (r *Repository) List(facility string) ([]Record, error) {
	query := "SELECT " + equipmentColumns + " FROM equipment"
	args := []interface{}{}
	if facility != "" {
		query += " WHERE facility = ?"
		args = append(args, facility)
	}
	query += " ORDER BY asset_id"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list equipment: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanEquipment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan equipment row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete removes an asset and, via foreign keys, its events and observations.
func (r *Repository) Delete(assetID string) error {
	if _, err := r.db.Exec("DELETE FROM equipment WHERE asset_id = ?", assetID); err != nil {
		return fmt.Errorf("failed to delete equipment %s: %w", assetID, err)
	}
	return nil
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanEquipment(row scannable) (Record, error) {
	var rec Record
	var acquired string
	err := row.Scan(
		&rec.AssetID, &rec.Class, &rec.Facility, &acquired,
		&rec.AcquisitionCost, &rec.ExpectedUsefulLifeMonths,
		&rec.SalvageFraction, &rec.ReplacementCost,
	)
	if err != nil {
		return Record{}, err
	}
	rec.AcquisitionDate, err = time.Parse(time.RFC3339, acquired)
	if err != nil {
		return Record{}, fmt.Errorf("bad acquisition_date for %s: %w", rec.AssetID, err)
	}
	return rec, nil
}
