package tool

import (
	"sync"
	"time"
)

// AnalysisEntry is a cached media-analysis payload for a single asset.
type AnalysisEntry struct {
	AssetID  string         `json:"asset_id"`
	Data     map[string]any `json:"data"`
	CachedAt time.Time      `json:"cached_at"`
}

// AnalysisCache is an explicit keyed store for cached analysis results
// (scene detection, transcripts, vision labels) keyed by external asset id.
// Tools that perform expensive analysis own and consult it; the scheduler
// never does, so scheduling stays free of hidden shared state.
type AnalysisCache struct {
	mu      sync.RWMutex
	entries map[string]AnalysisEntry
}

// NewAnalysisCache creates an empty AnalysisCache.
func NewAnalysisCache() *AnalysisCache {
	return &AnalysisCache{
		entries: make(map[string]AnalysisEntry),
	}
}

// Get returns the cached entry for an asset id, if present.
func (c *AnalysisCache) Get(assetID string) (AnalysisEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[assetID]
	return entry, ok
}

// Put stores an analysis payload for an asset id, replacing any previous entry.
func (c *AnalysisCache) Put(assetID string, data map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[assetID] = AnalysisEntry{
		AssetID:  assetID,
		Data:     data,
		CachedAt: time.Now(),
	}
}

// Invalidate removes the entry for an asset id. Removing an absent entry is a no-op.
func (c *AnalysisCache) Invalidate(assetID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, assetID)
}

// Len returns the number of cached entries.
func (c *AnalysisCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}
