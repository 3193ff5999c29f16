// Package store supplies the catalog engine with materialized record
// snapshots. The engine itself never performs I/O; a Source loads records
// from the remote system of record and a Cache hands out frozen snapshots
// to every render.
package store

import (
	"context"
	"sync"
	"time"

	"swingboard/internal/model"
)

// Source loads the full record list from a backing system.
type Source interface {
	// Load returns all catalog records. Implementations must return a
	// slice the caller may keep; subsequent Loads must not alias it.
	Load(ctx context.Context) ([]model.EventRecord, error)

	// Name identifies the backend in logs and metrics.
	Name() string
}

// Cache is the snapshot holder the web layer reads from. Writers (the cron
// refresh loop) call Set; readers get an immutable view via Snapshot.
type Cache struct {
	mu        sync.RWMutex
	records   []model.EventRecord
	updatedAt time.Time
}

// NewCache returns an empty snapshot holder.
func NewCache() *Cache {
	return &Cache{}
}

// Set replaces the current snapshot.
func (c *Cache) Set(recs []model.EventRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = recs
	c.updatedAt = time.Now()
}

// Snapshot returns a copy of the current record list. The copy is the
// caller's to keep; engine invocations each receive their own frozen view.
func (c *Cache) Snapshot() []model.EventRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.EventRecord, len(c.records))
	copy(out, c.records)
	return out
}

// UpdatedAt reports when the snapshot was last replaced; zero when no load
// has succeeded yet.
func (c *Cache) UpdatedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.updatedAt
}

// Len reports the current snapshot size.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}
