package calculations

import (
	"time"

	"github.com/fleetops/fleetcast/internal/analysis"
)

// DefaultResultTTL keeps fleet results warm across a working day; nightly
// re-analysis refreshes them anyway.
const DefaultResultTTL = 24 * time.Hour

// ResultStore adapts the cache to the analysis runner: fleet results keyed
// by input fingerprint. Cache failures degrade to a miss, never an error.
type ResultStore struct {
	cache *Cache
	ttl   time.Duration
}

// NewResultStore creates a result store. ttl <= 0 uses DefaultResultTTL.
func NewResultStore(cache *Cache, ttl time.Duration) *ResultStore {
	if ttl <= 0 {
		ttl = DefaultResultTTL
	}
	return &ResultStore{cache: cache, ttl: ttl}
}

// GetResult implements analysis.Cache.
func (s *ResultStore) GetResult(key string) (*analysis.FleetResult, bool) {
	var result analysis.FleetResult
	ok, err := s.cache.Get(key, &result)
	if err != nil {
		s.cache.log.Warn().Err(err).Str("key", key).Msg("Cache read failed, treating as miss")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return &result, true
}

// SetResult implements analysis.Cache.
func (s *ResultStore) SetResult(key string, result *analysis.FleetResult) {
	if err := s.cache.Set(key, result, s.ttl); err != nil {
		s.cache.log.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
}
