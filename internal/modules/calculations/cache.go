// Package calculations provides key-value caching of expensive analysis
// results in the cache database. Entries carry an expiration timestamp and
// are encoded with msgpack.
package calculations

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// Cache provides simple key-value storage with expiration.
type Cache struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewCache creates a new cache instance over the cache database.
func NewCache(db *sql.DB, log zerolog.Logger) *Cache {
	return &Cache{
		db:  db,
		log: log.With().Str("component", "calculations_cache").Logger(),
	}
}

// Set stores a value with a time-to-live. Existing keys are overwritten.
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) error {
	encoded, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value for %s: %w", key, err)
	}

	_, err = c.db.Exec(`
		INSERT INTO cache (key, value, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at
	`, key, encoded, time.Now().Add(ttl).Unix())
	if err != nil {
		return fmt.Errorf("failed to store cache entry %s: %w", key, err)
	}
	return nil
}

// Get loads a value into dest. Returns false when the key is missing or
// expired.
func (c *Cache) Get(key string, dest interface{}) (bool, error) {
	var value []byte
	var expiresAt int64
	err := c.db.QueryRow("SELECT value, expires_at FROM cache WHERE key = ?", key).Scan(&value, &expiresAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache entry %s: %w", key, err)
	}

	if time.Now().Unix() >= expiresAt {
		return false, nil
	}

	if err := msgpack.Unmarshal(value, dest); err != nil {
		return false, fmt.Errorf("failed to decode cache value for %s: %w", key, err)
	}
	return true, nil
}

// Delete removes a cache entry.
func (c *Cache) Delete(key string) error {
	_, err := c.db.Exec("DELETE FROM cache WHERE key = ?", key)
	return err
}

// DeleteByPrefix removes all cache entries matching a prefix.
func (c *Cache) DeleteByPrefix(prefix string) error {
	_, err := c.db.Exec("DELETE FROM cache WHERE key LIKE ?", prefix+"%")
	return err
}

// PurgeExpired drops every expired entry and reports how many went away.
// Run from the maintenance schedule to keep the cache database small.
func (c *Cache) PurgeExpired() (int64, error) {
	res, err := c.db.Exec("DELETE FROM cache WHERE expires_at <= ?", time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired cache entries: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		c.log.Debug().Int64("purged", n).Msg("Purged expired cache entries")
	}
	return n, nil
}
