// Package sqlite caches generated text in SQLite so reruns skip the API.
package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pario-ai/propgen/pkg/clock"
	"github.com/pario-ai/propgen/pkg/models"
)

// Cache is an exact-match generation cache backed by SQLite.
type Cache struct {
	db     *sql.DB
	ttl    time.Duration
	clock  clock.Clock
	hits   atomic.Int64
	misses atomic.Int64
}

const createCacheTable = `
CREATE TABLE IF NOT EXISTS generations (
	request_hash TEXT NOT NULL,
	model TEXT NOT NULL,
	response TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL,
	PRIMARY KEY (request_hash, model)
);
CREATE INDEX IF NOT EXISTS idx_generations_expiry ON generations(expires_at);
`

// New creates a Cache with the given database path and entry TTL. A nil
// clk uses the wall clock.
func New(dbPath string, ttl time.Duration, clk clock.Clock) (*Cache, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	if _, err := db.Exec(createCacheTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}

	if clk == nil {
		clk = clock.Real{}
	}
	return &Cache{db: db, ttl: ttl, clock: clk}, nil
}

// HashRequest computes a SHA-256 hash of the model and every request field
// that influences the answer.
func HashRequest(model string, req models.GenerationRequest) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	data, _ := json.Marshal(req)
	h.Write(data)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Get returns the cached text for a request. Expired entries are misses.
func (c *Cache) Get(ctx context.Context, model string, req models.GenerationRequest) (string, bool) {
	var text string
	err := c.db.QueryRowContext(ctx,
		`SELECT response FROM generations WHERE request_hash = ? AND model = ? AND expires_at > ?`,
		HashRequest(model, req), model, c.clock.Now().UnixNano(),
	).Scan(&text)
	if err != nil {
		c.misses.Add(1)
		return "", false
	}
	c.hits.Add(1)
	return text, true
}

// Put stores generated text for a request, replacing any previous entry.
func (c *Cache) Put(ctx context.Context, model string, req models.GenerationRequest, text string) error {
	if text == "" {
		return errors.New("cache put: empty response")
	}
	now := c.clock.Now()
	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO generations (request_hash, model, response, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?)`,
		HashRequest(model, req), model, text, now.UnixNano(), now.Add(c.ttl).UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Stats returns cache performance metrics. Hits and misses are counted for
// the lifetime of this Cache value only.
func (c *Cache) Stats(ctx context.Context) (models.CacheStats, error) {
	var count int64
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM generations`).Scan(&count)
	if err != nil {
		return models.CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	return models.CacheStats{
		Entries: count,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}, nil
}

// Clear removes cache entries and reports how many were deleted. If
// expiredOnly is true, only expired entries are removed.
func (c *Cache) Clear(ctx context.Context, expiredOnly bool) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if expiredOnly {
		res, err = c.db.ExecContext(ctx, `DELETE FROM generations WHERE expires_at <= ?`, c.clock.Now().UnixNano())
	} else {
		res, err = c.db.ExecContext(ctx, `DELETE FROM generations`)
	}
	if err != nil {
		return 0, fmt.Errorf("cache clear: %w", err)
	}
	return res.RowsAffected()
}

// Close releases the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}
