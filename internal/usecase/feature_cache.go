package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"FeatureMill/internal/domain/models"
	"FeatureMill/internal/domain/repository"
)

// FeatureCache memoizes assembled feature tables per indicator parameter
// set. Model parameters never enter the key, so grid cells that differ only
// in model parameters share one build. Concurrent requesters for the same
// key are collapsed into a single computation.
type FeatureCache struct {
	assembler *Assembler
	group     singleflight.Group
	metrics   repository.Metrics

	mu     sync.RWMutex
	tables map[string][]models.FeatureRow
}

func NewFeatureCache(assembler *Assembler, metrics repository.Metrics) *FeatureCache {
	return &FeatureCache{
		assembler: assembler,
		metrics:   metrics,
		tables:    make(map[string][]models.FeatureRow),
	}
}

func cacheKey(symbol string, from, to time.Time, set models.IndicatorParameterSet) string {
	return fmt.Sprintf("%s|%d|%d|%s", symbol, from.Unix(), to.Unix(), set.Key())
}

// Get returns the feature table for (symbol, range, set), assembling it at
// most once per key. The returned slice is shared between callers and must
// be treated as read-only.
func (c *FeatureCache) Get(ctx context.Context, symbol string, from, to time.Time, set models.IndicatorParameterSet) ([]models.FeatureRow, error) {
	key := cacheKey(symbol, from, to, set)

	c.mu.RLock()
	rows, ok := c.tables[key]
	c.mu.RUnlock()
	if ok {
		if c.metrics != nil {
			c.metrics.RecordCacheLookup(true)
		}
		return rows, nil
	}
	if c.metrics != nil {
		c.metrics.RecordCacheLookup(false)
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// A previous flight may have stored the table between the miss
		// above and entering this one.
		c.mu.RLock()
		stored, ok := c.tables[key]
		c.mu.RUnlock()
		if ok {
			return stored, nil
		}
		built, err := c.assembler.Assemble(ctx, symbol, from, to, set)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.tables[key] = built
		c.mu.Unlock()
		return built, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.FeatureRow), nil
}

// Purge drops every cached table, typically between sweeps.
func (c *FeatureCache) Purge() {
	c.mu.Lock()
	c.tables = make(map[string][]models.FeatureRow)
	c.mu.Unlock()
}

// Len reports the number of cached tables.
func (c *FeatureCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tables)
}
