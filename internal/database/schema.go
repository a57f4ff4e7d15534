package database

// Embedded schemas, keyed by database name. Applied by Migrate.
var schemas = map[string]string{
	"fleet": fleetSchema,
	"cache": cacheSchema,
}

const fleetSchema = `
CREATE TABLE IF NOT EXISTS equipment (
    asset_id                    TEXT PRIMARY KEY,
    class                       TEXT NOT NULL DEFAULT '',
    facility                    TEXT NOT NULL DEFAULT '',
    acquisition_date            TEXT NOT NULL,
    acquisition_cost            REAL NOT NULL,
    expected_useful_life_months INTEGER NOT NULL,
    salvage_fraction            REAL NOT NULL DEFAULT 0,
    replacement_cost            REAL NOT NULL DEFAULT 0,
    created_at                  TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at                  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS cost_events (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    asset_id       TEXT NOT NULL REFERENCES equipment(asset_id) ON DELETE CASCADE,
    occurred_at    TEXT NOT NULL,
    category       TEXT NOT NULL,
    amount         REAL NOT NULL,
    downtime_hours REAL NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_cost_events_asset_time ON cost_events(asset_id, occurred_at);

CREATE TABLE IF NOT EXISTS failure_observations (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    asset_id   TEXT NOT NULL REFERENCES equipment(asset_id) ON DELETE CASCADE,
    age_months REAL NOT NULL,
    censored   INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_failure_observations_asset ON failure_observations(asset_id);

CREATE TABLE IF NOT EXISTS analysis_results (
    run_id      TEXT NOT NULL,
    asset_id    TEXT NOT NULL,
    created_at  TEXT NOT NULL DEFAULT (datetime('now')),
    payload     TEXT NOT NULL,
    PRIMARY KEY (run_id, asset_id)
);
CREATE INDEX IF NOT EXISTS idx_analysis_results_asset ON analysis_results(asset_id, created_at);
`

const cacheSchema = `
CREATE TABLE IF NOT EXISTS cache (
    key        TEXT PRIMARY KEY,
    value      BLOB NOT NULL,
    expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cache_expires ON cache(expires_at);
`
