package tasks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/windsync/internal/shared"
)

// nameCacheSnapshot is the on-disk form of the cache.
type nameCacheSnapshot struct {
	LastUpdated time.Time `json:"last_updated"`
	ItemCount   int       `json:"item_count"`
	Filenames   []string  `json:"filenames"`
}

// NameCache holds the set of filenames known to exist at the
// destination, used for name-based dedup without a network round trip
// per file.
//
// The cache is conservative: it may lag behind the destination (a name
// uploaded by another client is unknown until a rebuild) but entries
// are never dropped mid-run, and every confirmed commit adds its name.
// A stale miss costs one duplicate upload; a false hit is impossible
// for names the cache has seen.
type NameCache struct {
	mu     sync.Mutex
	names  map[string]struct{}
	loaded bool
	asOf   time.Time
	path   string
	scan   func(ctx context.Context) ([]string, error)
	logger *log.Logger
}

// NewNameCache builds a cache backed by the snapshot file at path.
// scan is invoked to rebuild the cache from the destination when no
// snapshot exists or a refresh is forced.
func NewNameCache(path string, scan func(ctx context.Context) ([]string, error), logger *log.Logger) *NameCache {
	return &NameCache{
		names:  make(map[string]struct{}),
		path:   path,
		scan:   scan,
		logger: logger,
	}
}

// EnsureLoaded makes the cache usable: it loads the snapshot from disk,
// or rebuilds from the destination when the snapshot is missing or
// refresh is true. Safe to call more than once; only the first call
// does work unless refresh forces a rebuild.
func (c *NameCache) EnsureLoaded(ctx context.Context, refresh bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded && !refresh {
		return nil
	}

	if !refresh {
		ok, err := c.loadSnapshotLocked()
		if err != nil {
			return err
		}
		if ok {
			c.logger.Info("Loaded filename cache", "names", len(c.names), "as_of", c.asOf.Format(time.RFC3339))
			return nil
		}
	}

	return c.rebuildLocked(ctx)
}

// LoadSnapshot loads the on-disk snapshot without ever contacting the
// destination. Returns false when no snapshot exists.
func (c *NameCache) LoadSnapshot() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadSnapshotLocked()
}

func (c *NameCache) loadSnapshotLocked() (bool, error) {
	var snap nameCacheSnapshot
	ok, err := shared.ReadJSON(c.path, &snap)
	if err != nil {
		return false, fmt.Errorf("loading filename cache: %w", err)
	}
	if !ok {
		return false, nil
	}

	c.names = make(map[string]struct{}, len(snap.Filenames))
	for _, name := range snap.Filenames {
		c.names[name] = struct{}{}
	}
	c.asOf = snap.LastUpdated
	c.loaded = true
	return true, nil
}

// Rebuild discards the cache and enumerates the destination again.
func (c *NameCache) Rebuild(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rebuildLocked(ctx)
}

func (c *NameCache) rebuildLocked(ctx context.Context) error {
	c.logger.Info("Building filename cache from destination (this can take a while)...")
	names, err := c.scan(ctx)
	if err != nil {
		return fmt.Errorf("scanning destination filenames: %w", err)
	}

	c.names = make(map[string]struct{}, len(names))
	for _, name := range names {
		c.names[name] = struct{}{}
	}
	c.asOf = time.Now().UTC()
	c.loaded = true
	c.logger.Info("Filename cache built", "names", len(c.names))
	return c.saveLocked()
}

func (c *NameCache) Contains(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.names[name]
	return ok
}

// Add records a name that is now known to exist at the destination.
// The snapshot on disk is refreshed lazily by Save.
func (c *NameCache) Add(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names[name] = struct{}{}
}

func (c *NameCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.names)
}

// AsOf reports when the cache was last rebuilt from the destination.
func (c *NameCache) AsOf() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.asOf
}

// Names returns the cached filenames in sorted order.
func (c *NameCache) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.names))
	for name := range c.names {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Save writes the current snapshot to disk atomically.
func (c *NameCache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLocked()
}

func (c *NameCache) saveLocked() error {
	names := make([]string, 0, len(c.names))
	for name := range c.names {
		names = append(names, name)
	}
	sort.Strings(names)

	snap := nameCacheSnapshot{
		LastUpdated: c.asOf,
		ItemCount:   len(names),
		Filenames:   names,
	}
	if err := shared.WriteJSONAtomic(c.path, snap); err != nil {
		return fmt.Errorf("writing filename cache: %w", err)
	}
	return nil
}
