package folio

import (
	"context"
	"strings"
	"sync"
	"time"
)

// PostCache is an in-memory cache of published posts, their tags and
// published projects, used by the guest pages, the feed and the sitemap.
type PostCache struct {
	mu       sync.RWMutex
	posts    []Post
	tags     []string
	projects []Project
	fetched  time.Time
	ttl      time.Duration
	store    *Store
}

// NewPostCache creates a PostCache backed by the given Store.
func NewPostCache(s *Store, ttl time.Duration) *PostCache {
	return &PostCache{store: s, ttl: ttl}
}

func (c *PostCache) valid() bool {
	return c.posts != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *PostCache) Invalidate() {
	c.mu.Lock()
	c.posts = nil
	c.tags = nil
	c.projects = nil
	c.mu.Unlock()
}

func (c *PostCache) load(ctx context.Context) error {
	if c.valid() {
		return nil
	}
	posts, err := c.store.ListPublishedPosts(ctx)
	if err != nil {
		return err
	}
	tags, err := c.store.ListTags(ctx)
	if err != nil {
		return err
	}
	projects, err := c.store.ListPublishedProjects(ctx)
	if err != nil {
		return err
	}
	c.posts = posts
	c.tags = tags
	c.projects = projects
	c.fetched = time.Now()
	return nil
}

// ensureLoaded tries a read lock first and only takes the write lock when a
// reload is needed.
func (c *PostCache) ensureLoaded(ctx context.Context) ([]Post, []string, []Project, error) {
	c.mu.RLock()
	if c.valid() {
		posts, tags, projects := c.posts, c.tags, c.projects
		c.mu.RUnlock()
		return posts, tags, projects, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(ctx); err != nil {
		return nil, nil, nil, err
	}
	return c.posts, c.tags, c.projects, nil
}

// ListPosts returns published posts, optionally filtered by tag.
func (c *PostCache) ListPosts(ctx context.Context, tag string) ([]Post, error) {
	posts, _, _, err := c.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	if tag == "" {
		return posts, nil
	}
	normalized := normalizeTag(tag)
	var filtered []Post
	for _, p := range posts {
		for _, t := range p.Tags {
			if t == normalized {
				filtered = append(filtered, p)
				break
			}
		}
	}
	return filtered, nil
}

// ListTags returns all unique tags from published posts.
func (c *PostCache) ListTags(ctx context.Context) ([]string, error) {
	_, tags, _, err := c.ensureLoaded(ctx)
	return tags, err
}

// ListProjects returns published projects, featured first.
func (c *PostCache) ListProjects(ctx context.Context) ([]Project, error) {
	_, _, projects, err := c.ensureLoaded(ctx)
	return projects, err
}

// GetPost returns a single published post by slug from the cache.
func (c *PostCache) GetPost(ctx context.Context, slug string) (Post, error) {
	posts, _, _, err := c.ensureLoaded(ctx)
	if err != nil {
		return Post{}, err
	}
	for _, p := range posts {
		if p.Slug == slug {
			return p, nil
		}
	}
	return Post{}, ErrNotFound
}

// GetProject returns a single published project by slug from the cache.
func (c *PostCache) GetProject(ctx context.Context, slug string) (Project, error) {
	_, _, projects, err := c.ensureLoaded(ctx)
	if err != nil {
		return Project{}, err
	}
	for _, p := range projects {
		if p.Slug == slug {
			return p, nil
		}
	}
	return Project{}, ErrNotFound
}

func normalizeTag(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}
