// Package calculations provides a persistent cache for expensive computation
// results. Values are stored as msgpack blobs with expiration timestamps.
package calculations

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// TTL constants for cached computation results.
const (
	// TTLOptimizer covers covariance/correlation matrices; inputs change daily
	TTLOptimizer = 24 * time.Hour
)

// Cache provides namespaced get/set over the calculations database.
type Cache struct {
	db *sql.DB
}

// NewCache creates a cache over the calculations database.
func NewCache(db *sql.DB) *Cache {
	return &Cache{db: db}
}

// InitSchema creates the optimizer_cache table if it does not exist.
func (c *Cache) InitSchema() error {
	query := `
		CREATE TABLE IF NOT EXISTS optimizer_cache (
			namespace TEXT NOT NULL,
			key TEXT NOT NULL,
			data BLOB NOT NULL,
			expires_at INTEGER NOT NULL,
			PRIMARY KEY (namespace, key)
		)
	`
	if _, err := c.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create optimizer_cache table: %w", err)
	}
	return nil
}

// SetOptimizer stores a value under namespace/key with expiration = now + ttl.
func (c *Cache) SetOptimizer(namespace, key string, value interface{}, ttl time.Duration) error {
	data, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}

	expiresAt := time.Now().Add(ttl).Unix()

	query := `
		INSERT INTO optimizer_cache (namespace, key, data, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(namespace, key) DO UPDATE SET
			data = excluded.data,
			expires_at = excluded.expires_at
	`
	if _, err := c.db.Exec(query, namespace, key, data, expiresAt); err != nil {
		return fmt.Errorf("failed to store cache entry %s/%s: %w", namespace, key, err)
	}

	return nil
}

// GetOptimizer decodes a fresh value into out. Returns false when the key is
// absent or expired.
func (c *Cache) GetOptimizer(namespace, key string, out interface{}) (bool, error) {
	query := `
		SELECT data FROM optimizer_cache
		WHERE namespace = ? AND key = ? AND expires_at > ?
	`

	var data []byte
	err := c.db.QueryRow(query, namespace, key, time.Now().Unix()).Scan(&data)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache entry %s/%s: %w", namespace, key, err)
	}

	if err := msgpack.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("failed to decode cache entry %s/%s: %w", namespace, key, err)
	}

	return true, nil
}

// DeleteExpired removes all expired entries and returns the number deleted.
func (c *Cache) DeleteExpired() (int64, error) {
	res, err := c.db.Exec("DELETE FROM optimizer_cache WHERE expires_at <= ?", time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired cache entries: %w", err)
	}
	return res.RowsAffected()
}
