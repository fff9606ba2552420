package editor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello, World! 2024", "hello-world-2024"},
		{"  Leading and trailing  ", "leading-and-trailing"},
		{"snake_case_title", "snake-case-title"},
		{"multiple---hyphens", "multiple-hyphens"},
		{"--edge--", "edge"},
		{"Go & Rust: a comparison", "go-rust-a-comparison"},
		{"Café crème", "caf-crme"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, Slugify(tt.input), "Slugify(%q)", tt.input)
	}
}

func TestSlugifyIdempotent(t *testing.T) {
	inputs := []string{
		"Hello, World! 2024",
		"  __weird__ --- input__ ",
		"Ünïcödé Tïtle",
		"a-b_c d",
		"already-a-slug",
		"tabs\tand\nnewlines",
	}
	for _, in := range inputs {
		once := Slugify(in)
		assert.Equal(t, once, Slugify(once), "Slugify not idempotent for %q", in)
	}
}

func TestDraftSlugFollowsTitleWhileNew(t *testing.T) {
	d := &Draft{}
	d.SetTitle("First Title")
	assert.Equal(t, "first-title", d.Slug)
	d.SetTitle("Second Title")
	assert.Equal(t, "second-title", d.Slug)
	assert.Equal(t, NewKey, d.CacheKey())
}

func TestDraftSlugImmutableOnceSaved(t *testing.T) {
	for _, published := range []bool{false, true} {
		d := &Draft{}
		d.SetTitle("Original Title")
		d.MarkSaved(published)

		d.SetTitle("Completely Different")
		assert.Equal(t, "original-title", d.Slug)
		assert.Equal(t, "Completely Different", d.Title)
		assert.ErrorIs(t, d.SetSlug("other"), ErrSlugLocked)
		assert.Equal(t, "original-title", d.CacheKey())
	}
}

func TestDraftSetSlugWhileNew(t *testing.T) {
	d := &Draft{}
	d.SetTitle("Title")
	require.NoError(t, d.SetSlug("Custom Slug!"))
	assert.Equal(t, "custom-slug", d.Slug)
}

type fakeLookup struct {
	mu    sync.Mutex
	taken map[string]bool
	calls []string
	err   error
}

func (f *fakeLookup) SlugExists(ctx context.Context, slug string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, slug)
	if f.err != nil {
		return false, f.err
	}
	return f.taken[slug], nil
}

func (f *fakeLookup) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func waitSettled(t *testing.T, c *SlugChecker) (SlugState, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return c.Wait(ctx)
}

func TestSlugCheckerAvailableAndTaken(t *testing.T) {
	lookup := &fakeLookup{taken: map[string]bool{"taken-slug": true}}
	c := NewSlugChecker(lookup, 10*time.Millisecond)

	c.Check("free-slug")
	_, st := c.State()
	assert.Equal(t, SlugChecking, st)
	assert.False(t, c.CanSave())

	st, err := waitSettled(t, c)
	require.NoError(t, err)
	assert.Equal(t, SlugAvailable, st)
	assert.True(t, c.CanSave())

	c.Check("taken-slug")
	st, err = waitSettled(t, c)
	require.NoError(t, err)
	assert.Equal(t, SlugTaken, st)
	assert.False(t, c.CanSave())
}

func TestSlugCheckerDebounceKeepsLatest(t *testing.T) {
	lookup := &fakeLookup{taken: map[string]bool{}}
	c := NewSlugChecker(lookup, 50*time.Millisecond)

	c.Check("h")
	c.Check("he")
	c.Check("hel")
	c.Check("hello")

	st, err := waitSettled(t, c)
	require.NoError(t, err)
	assert.Equal(t, SlugAvailable, st)
	assert.Equal(t, []string{"hello"}, lookup.Calls())

	slug, _ := c.State()
	assert.Equal(t, "hello", slug)
}

func TestSlugCheckerSupersedesInFlight(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	lookup := SlugLookupFunc(func(ctx context.Context, slug string) (bool, error) {
		calls.Add(1)
		if slug == "slow" {
			select {
			case <-release:
			case <-ctx.Done():
			}
			return true, nil
		}
		return false, nil
	})
	c := NewSlugChecker(lookup, time.Millisecond)

	c.Check("slow")
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	c.Check("fast")
	st, err := waitSettled(t, c)
	require.NoError(t, err)
	assert.Equal(t, SlugAvailable, st)

	close(release)
	time.Sleep(10 * time.Millisecond)
	slug, st := c.State()
	assert.Equal(t, "fast", slug)
	assert.Equal(t, SlugAvailable, st, "stale result must not overwrite the latest check")
}

func TestSlugCheckerLookupError(t *testing.T) {
	lookup := &fakeLookup{err: errors.New("network down")}
	c := NewSlugChecker(lookup, time.Millisecond)

	c.Check("anything")
	st, err := waitSettled(t, c)
	assert.EqualError(t, err, "network down")
	assert.Equal(t, SlugUnknown, st)
	assert.True(t, c.CanSave())
}

func TestSlugCheckerEmptySlugResets(t *testing.T) {
	lookup := &fakeLookup{}
	c := NewSlugChecker(lookup, time.Hour)
	c.Check("pending")
	c.Check("")

	st, err := waitSettled(t, c)
	require.NoError(t, err)
	assert.Equal(t, SlugUnknown, st)
	assert.Empty(t, lookup.Calls())
}

func TestSlugCheckerStop(t *testing.T) {
	lookup := &fakeLookup{}
	c := NewSlugChecker(lookup, time.Hour)
	c.Check("never-checked")
	c.Stop()

	st, err := waitSettled(t, c)
	require.NoError(t, err)
	assert.Equal(t, SlugUnknown, st)
	assert.Empty(t, lookup.Calls())
}

func TestDraftCacheSaveLoadClear(t *testing.T) {
	cache := NewDraftCache(time.Hour)
	d := Draft{Title: "Hello", Content: "body"}

	saved := cache.Save("session-a", NewKey, d)
	assert.False(t, saved.UpdatedAt.IsZero())

	got, ok := cache.Load("session-a", NewKey)
	require.True(t, ok)
	assert.Equal(t, "body", got.Content)

	_, ok = cache.Load("session-b", NewKey)
	assert.False(t, ok, "drafts are scoped per session")

	cache.Clear("session-a", NewKey)
	_, ok = cache.Load("session-a", NewKey)
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len())
}

func TestDraftCacheExpires(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cache := NewDraftCache(time.Hour)
	cache.SetClock(func() time.Time { return now })

	cache.Save("s", "my-post", Draft{Title: "x"})
	now = now.Add(59 * time.Minute)
	_, ok := cache.Load("s", "my-post")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = cache.Load("s", "my-post")
	assert.False(t, ok)
}

func TestDraftCacheClearScope(t *testing.T) {
	cache := NewDraftCache(0)
	cache.Save("s", "a", Draft{})
	cache.Save("s", "b", Draft{})
	cache.Save("t", "a", Draft{})
	cache.ClearScope("s")
	assert.Equal(t, 1, cache.Len())
}
