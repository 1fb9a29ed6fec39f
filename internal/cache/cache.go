// Package cache memoizes item detail records per id with fidelity awareness
// and coalesces concurrent fetches for the same id and level.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/qepting91/workshop-scraper/internal/domain"
	"github.com/qepting91/workshop-scraper/internal/extract"
)

// DetailCache is owned by one catalog service. Entries only ever gain
// fidelity; a Full entry answers Lite requests without touching the network.
type DetailCache struct {
	collector domain.Collector
	logger    *slog.Logger

	mu         sync.Mutex
	entries    map[string]domain.DetailRecord
	generation uint64

	flight singleflight.Group
}

func New(c domain.Collector, logger *slog.Logger) *DetailCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &DetailCache{
		collector: c,
		logger:    logger,
		entries:   make(map[string]domain.DetailRecord),
	}
}

// Get returns the details of id at no less than level, fetching at most once
// per concurrent (id, level) pair. A Lite entry asked for Full is fetched
// again and the result merged into it.
func (c *DetailCache) Get(ctx context.Context, id string, level domain.Fidelity) (domain.DetailRecord, error) {
	if d, ok := c.lookup(id, level); ok {
		return d, nil
	}

	key := id + "|" + level.String()
	v, err, shared := c.flight.Do(key, func() (any, error) {
		if d, ok := c.lookup(id, level); ok {
			return d, nil
		}
		gen := c.currentGeneration()

		text, err := c.collector.Fetch(ctx, domain.ItemURL(id))
		if err != nil {
			return nil, fmt.Errorf("fetch details %s: %w", id, err)
		}
		return c.store(id, gen, extract.Detail(text, level)), nil
	})
	if err != nil {
		return domain.DetailRecord{}, err
	}
	if shared {
		c.logger.Debug("Detail fetch coalesced", "id", id, "fidelity", level.String())
	}
	return v.(domain.DetailRecord), nil
}

// Peek returns the cached entry for id, if any.
func (c *DetailCache) Peek(id string) (domain.DetailRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.entries[id]
	return d, ok
}

// Len is the number of cached ids.
func (c *DetailCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Reset drops every entry. Fetches started before the reset still return to
// their callers but are not stored.
func (c *DetailCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]domain.DetailRecord)
	c.generation++
}

func (c *DetailCache) lookup(id string, level domain.Fidelity) (domain.DetailRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.entries[id]
	if !ok || d.Fidelity < level {
		return domain.DetailRecord{}, false
	}
	return d, true
}

func (c *DetailCache) currentGeneration() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// store merges incoming into the existing entry. The fidelity flag is raised
// by the merge itself, never before it.
func (c *DetailCache) store(id string, gen uint64, incoming domain.DetailRecord) domain.DetailRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	merged := incoming
	if existing, ok := c.entries[id]; ok {
		merged = existing.Merge(incoming)
	}
	if gen == c.generation {
		c.entries[id] = merged
	}
	return merged
}
