package editor

import (
	"sync"
	"time"
)

// DefaultDraftTTL is how long an untouched draft stays in a DraftCache.
const DefaultDraftTTL = 12 * time.Hour

// DraftCache keeps unsaved editor state per session so a reload does not
// lose work. Entries are keyed by session scope and by the draft key (a slug
// or NewKey) and expire after the TTL. State is process-local.
type DraftCache struct {
	mu      sync.Mutex
	entries map[string]map[string]Draft
	ttl     time.Duration
	now     func() time.Time
}

// NewDraftCache creates a DraftCache. A zero ttl uses DefaultDraftTTL.
func NewDraftCache(ttl time.Duration) *DraftCache {
	if ttl <= 0 {
		ttl = DefaultDraftTTL
	}
	return &DraftCache{
		entries: make(map[string]map[string]Draft),
		ttl:     ttl,
		now:     time.Now,
	}
}

// SetClock replaces the time source; used by tests.
func (c *DraftCache) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// Save stores d under scope and key, stamping UpdatedAt.
func (c *DraftCache) Save(scope, key string, d Draft) Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweepLocked()
	d.UpdatedAt = c.now()
	drafts, ok := c.entries[scope]
	if !ok {
		drafts = make(map[string]Draft)
		c.entries[scope] = drafts
	}
	drafts[key] = d
	return d
}

// Load returns the draft stored under scope and key.
func (c *DraftCache) Load(scope, key string) (Draft, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweepLocked()
	d, ok := c.entries[scope][key]
	return d, ok
}

// Clear removes a single draft.
func (c *DraftCache) Clear(scope, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if drafts, ok := c.entries[scope]; ok {
		delete(drafts, key)
		if len(drafts) == 0 {
			delete(c.entries, scope)
		}
	}
}

// ClearScope removes every draft of a session.
func (c *DraftCache) ClearScope(scope string) {
	c.mu.Lock()
	delete(c.entries, scope)
	c.mu.Unlock()
}

// Len returns the number of stored drafts across all scopes.
func (c *DraftCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, drafts := range c.entries {
		n += len(drafts)
	}
	return n
}

func (c *DraftCache) sweepLocked() {
	cutoff := c.now().Add(-c.ttl)
	for scope, drafts := range c.entries {
		for key, d := range drafts {
			if d.UpdatedAt.Before(cutoff) {
				delete(drafts, key)
			}
		}
		if len(drafts) == 0 {
			delete(c.entries, scope)
		}
	}
}
