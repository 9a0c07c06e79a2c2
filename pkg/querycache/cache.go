// Package querycache implements the Query Cache (§4.5): it deduplicates
// in-flight identical queries via singleflight, serves fresh results
// without touching storage, and evicts by an LFU+TTL score once the soft
// cap is exceeded. A secondary index by kind/author lets an admitted write
// invalidate only the entries it could plausibly affect.
package querycache

import (
	"strconv"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/singleflight"

	"meshrelay.dev/pkg/encoders/event"
	"meshrelay.dev/pkg/interfaces/store"
)

type entry struct {
	page        store.Page
	cachedAt    time.Time
	lastAccess  time.Time
	accessCount int64
}

// Cache is the relay-instance-local query cache.
type Cache struct {
	ttl     time.Duration
	softCap int

	mu      sync.Mutex
	entries map[string]*entry

	// secondary index: "kind:K" or "author:A" -> set of cache keys that
	// touched that kind or author, for O(touched) invalidation.
	byTag *xsync.MapOf[string, *xsync.MapOf[string, struct{}]]

	group singleflight.Group
}

// New builds a Cache with the given freshness window and soft entry cap.
func New(ttl time.Duration, softCap int) *Cache {
	return &Cache{
		ttl:     ttl,
		softCap: softCap,
		entries: make(map[string]*entry),
		byTag:   xsync.NewMapOf[string, *xsync.MapOf[string, struct{}]](),
	}
}

// Fetch returns the cached page for key if fresh, else calls load exactly
// once even under concurrent callers for the same key (in-flight dedup),
// stores the result, indexes it by kinds/authors, and returns it.
func (c *Cache) Fetch(key string, kinds []int, authors []string, load func() (store.Page, error)) (store.Page, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && time.Since(e.cachedAt) < c.ttl {
		e.accessCount++
		e.lastAccess = time.Now()
		page := e.page
		c.mu.Unlock()
		return page, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(key, func() (any, error) {
		page, err := load()
		if err != nil {
			return store.Page{}, err
		}
		c.store(key, page, kinds, authors)
		return page, nil
	})
	if err != nil {
		return store.Page{}, err
	}
	return v.(store.Page), nil
}

func (c *Cache) store(key string, page store.Page, kinds []int, authors []string) {
	c.mu.Lock()
	now := time.Now()
	c.entries[key] = &entry{page: page, cachedAt: now, lastAccess: now, accessCount: 1}
	over := len(c.entries) > c.softCap
	c.mu.Unlock()

	for _, k := range kinds {
		c.indexAdd("kind:"+strconv.Itoa(k), key)
	}
	for _, a := range authors {
		c.indexAdd("author:"+a, key)
	}
	if over {
		c.evict()
	}
}

func (c *Cache) indexAdd(tag, key string) {
	set, _ := c.byTag.LoadOrCompute(tag, func() *xsync.MapOf[string, struct{}] {
		return xsync.NewMapOf[string, struct{}]()
	})
	set.Store(key, struct{}{})
}

// Invalidate drops every cached entry that touched kind or any author in
// authors, called by the Admission Pipeline after a write is admitted.
func (c *Cache) Invalidate(kind int, authors []string) {
	tags := []string{"kind:" + strconv.Itoa(kind)}
	for _, a := range authors {
		tags = append(tags, "author:"+a)
	}
	for _, tag := range tags {
		set, ok := c.byTag.Load(tag)
		if !ok {
			continue
		}
		set.Range(func(key string, _ struct{}) bool {
			c.mu.Lock()
			delete(c.entries, key)
			c.mu.Unlock()
			return true
		})
		c.byTag.Delete(tag)
	}
}

// InvalidateForEvent is a convenience wrapper invalidating by an admitted
// event's kind and author.
func (c *Cache) InvalidateForEvent(ev *event.E) {
	c.Invalidate(int(ev.Kind), []string{ev.Pubkey})
}

// evict drops the bottom 20% of entries by score = 10*accessCount -
// lastAccessAgeMinutes, called once the soft cap is exceeded. Must be
// called without c.mu held.
func (c *Cache) evict() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now0 := time.Now()
	for k, e := range c.entries {
		if now0.Sub(e.cachedAt) >= c.ttl {
			delete(c.entries, k)
		}
	}
	if len(c.entries) == 0 {
		return
	}
	type scored struct {
		key   string
		score float64
	}
	now := time.Now()
	scores := make([]scored, 0, len(c.entries))
	for k, e := range c.entries {
		ageMinutes := now.Sub(e.lastAccess).Minutes()
		scores = append(scores, scored{k, 10*float64(e.accessCount) - ageMinutes})
	}
	drop := len(scores) / 5
	if drop == 0 {
		return
	}
	for i := 0; i < drop; i++ {
		lowest := 0
		for j := 1; j < len(scores); j++ {
			if scores[j].score < scores[lowest].score {
				lowest = j
			}
		}
		delete(c.entries, scores[lowest].key)
		scores[lowest] = scores[len(scores)-1]
		scores = scores[:len(scores)-1]
	}
}

// Len reports the current number of cached entries, for tests and metrics.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear empties the cache and its secondary index, called by the Lifecycle
// Timer when no sockets remain attached to the instance (§4.9).
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*entry)
	c.mu.Unlock()
	c.byTag.Clear()
}
