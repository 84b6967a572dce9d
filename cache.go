package blogwidgets

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/eringen/blogwidgets/plugins"
)

// EntryCache is an in-memory cache of entries flagged published and of
// known tags, with a TTL. Publication dates are checked on every read, so
// scheduled entries appear without an invalidation.
type EntryCache struct {
	mu      sync.RWMutex
	entries []Entry
	tags    []string
	fetched time.Time
	ttl     time.Duration
	store   *Store
	group   singleflight.Group
	clock   func() time.Time
	// gen counts invalidations. A load only stores its result if no
	// invalidation happened while it ran.
	gen uint64
}

var _ plugins.Source = (*EntryCache)(nil)

// NewEntryCache creates an EntryCache backed by the given Store.
func NewEntryCache(s *Store, ttl time.Duration) *EntryCache {
	return &EntryCache{store: s, ttl: ttl, clock: time.Now}
}

func (c *EntryCache) valid() bool {
	return c.entries != nil && c.clock().Sub(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
// Reads after Invalidate never join a load that started before it.
func (c *EntryCache) Invalidate() {
	c.mu.Lock()
	c.entries = nil
	c.tags = nil
	c.gen++
	c.group.Forget("load")
	c.mu.Unlock()
}

type snapshot struct {
	entries []Entry
	tags    []string
}

// ensureLoaded returns the cached entries and tags, reloading them when
// stale. Concurrent reloads are collapsed into one store query, which
// runs detached from the caller's cancellation since other callers may
// share it.
func (c *EntryCache) ensureLoaded(ctx context.Context) ([]Entry, []string, error) {
	c.mu.RLock()
	if c.valid() {
		entries, tags := c.entries, c.tags
		c.mu.RUnlock()
		return entries, tags, nil
	}
	c.mu.RUnlock()

	ctx = context.WithoutCancel(ctx)
	v, err, _ := c.group.Do("load", func() (any, error) {
		c.mu.RLock()
		gen := c.gen
		c.mu.RUnlock()

		entries, err := c.store.ListPublishedFlag(ctx)
		if err != nil {
			return nil, err
		}
		tags, err := c.store.ListTags(ctx)
		if err != nil {
			return nil, err
		}
		if entries == nil {
			entries = []Entry{}
		}
		c.mu.Lock()
		if c.gen == gen {
			c.entries, c.tags, c.fetched = entries, tags, c.clock()
		}
		c.mu.Unlock()
		return snapshot{entries: entries, tags: tags}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	s := v.(snapshot)
	return s.entries, s.tags, nil
}

// PublishedEntries returns entries visible at now, newest first.
func (c *EntryCache) PublishedEntries(ctx context.Context, now time.Time) ([]Entry, error) {
	entries, _, err := c.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.IsPublished(now) {
			out = append(out, e)
		}
	}
	return out, nil
}

// ExistingTags returns the known tags among names, sorted.
func (c *EntryCache) ExistingTags(ctx context.Context, names []string) ([]string, error) {
	_, tags, err := c.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	return existingTags(tags, names), nil
}

// Tags returns every known tag.
func (c *EntryCache) Tags(ctx context.Context) ([]string, error) {
	_, tags, err := c.ensureLoaded(ctx)
	return tags, err
}

// GetPublished returns a single entry visible at now by slug.
func (c *EntryCache) GetPublished(ctx context.Context, slug string, now time.Time) (Entry, error) {
	entries, _, err := c.ensureLoaded(ctx)
	if err != nil {
		return Entry{}, err
	}
	for _, e := range entries {
		if e.Slug == slug && e.IsPublished(now) {
			return e, nil
		}
	}
	return Entry{}, ErrNotFound
}
