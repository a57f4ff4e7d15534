package equipment

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/fleetops/fleetcast/internal/database"
	"github.com/fleetops/fleetcast/internal/domain"
)

// CostEventRepository handles raw cost event persistence.
type CostEventRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewCostEventRepository creates a cost event repository.
func NewCostEventRepository(db *sql.DB, log zerolog.Logger) *CostEventRepository {
	return &CostEventRepository{
		db:  db,
		log: log.With().Str("repo", "cost_events").Logger(),
	}
}

// Add stores one cost event.
func (r *CostEventRepository) Add(ev domain.CostEvent) error {
	_, err := r.db.Exec(`
		INSERT INTO cost_events (asset_id, occurred_at, category, amount, downtime_hours)
		VALUES (?, ?, ?, ?, ?)`,
		ev.AssetID, ev.OccurredAt.UTC().Format(time.RFC3339),
		string(ev.Category), ev.Amount, ev.DowntimeHours,
	)
	if err != nil {
		return fmt.Errorf("failed to insert cost event for %s: %w", ev.AssetID, err)
	}
	return nil
}

// AddBatch stores many events in one transaction. All or nothing.
func (r *CostEventRepository) AddBatch(events []domain.CostEvent) error {
	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO cost_events (asset_id, occurred_at, category, amount, downtime_hours)
			VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare cost event insert: %w", err)
		}
		defer stmt.Close()

		for _, ev := range events {
			if _, err := stmt.Exec(
				ev.AssetID, ev.OccurredAt.UTC().Format(time.RFC3339),
				string(ev.Category), ev.Amount, ev.DowntimeHours,
			); err != nil {
				return fmt.Errorf("failed to insert cost event for %s: %w", ev.AssetID, err)
			}
		}
		return nil
	})
}

// ListByAsset returns an asset's events ordered by time. Zero bounds mean
// unbounded.
func (r *CostEventRepository) ListByAsset(assetID string, from, to time.Time) ([]domain.CostEvent, error) {
	query := `SELECT asset_id, occurred_at, category, amount, downtime_hours
		FROM cost_events WHERE asset_id = ?`
	args := []interface{}{assetID}
	if !from.IsZero() {
		query += " AND occurred_at >= ?"
		args = append(args, from.UTC().Format(time.RFC3339))
	}
	if !to.IsZero() {
		query += " AND occurred_at < ?"
		args = append(args, to.UTC().Format(time.RFC3339))
	}
	query += " ORDER BY occurred_at"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cost events for %s: %w", assetID, err)
	}
	defer rows.Close()

	var out []domain.CostEvent
	for rows.Next() {
		var ev domain.CostEvent
		var occurred, category string
		if err := rows.Scan(&ev.AssetID, &occurred, &category, &ev.Amount, &ev.DowntimeHours); err != nil {
			return nil, fmt.Errorf("failed to scan cost event: %w", err)
		}
		ev.OccurredAt, err = time.Parse(time.RFC3339, occurred)
		if err != nil {
			return nil, fmt.Errorf("bad occurred_at for %s: %w", assetID, err)
		}
		ev.Category = domain.CostCategory(category)
		out = append(out, ev)
	}
	return out, rows.Err()
}
