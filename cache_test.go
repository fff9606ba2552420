package folio

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostCacheServesUntilInvalidated(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()
	cache := NewPostCache(s, time.Hour)

	mustPost(t, s, PostInput{Title: ptr("First"), Status: ptr(StatusPublished), Tags: ptr([]string{"go"})})
	mustPost(t, s, PostInput{Title: ptr("Hidden")})

	posts, err := cache.ListPosts(ctx, "")
	require.NoError(t, err)
	require.Len(t, posts, 1)

	mustPost(t, s, PostInput{Title: ptr("Second"), Status: ptr(StatusPublished), Tags: ptr([]string{"web"})})
	posts, err = cache.ListPosts(ctx, "")
	require.NoError(t, err)
	assert.Len(t, posts, 1, "still cached")

	cache.Invalidate()
	posts, err = cache.ListPosts(ctx, "")
	require.NoError(t, err)
	assert.Len(t, posts, 2)

	tagged, err := cache.ListPosts(ctx, " WEB ")
	require.NoError(t, err)
	require.Len(t, tagged, 1)
	assert.Equal(t, "second", tagged[0].Slug)

	tags, err := cache.ListTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "web"}, tags)

	_, err = cache.GetPost(ctx, "hidden")
	assert.ErrorIs(t, err, ErrNotFound)
	p, err := cache.GetPost(ctx, "first")
	require.NoError(t, err)
	assert.Equal(t, "First", p.Title)
}

func TestPostCacheExpires(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()
	cache := NewPostCache(s, 50*time.Millisecond)

	mustPost(t, s, PostInput{Title: ptr("One"), Status: ptr(StatusPublished)})
	_, err := cache.ListPosts(ctx, "")
	require.NoError(t, err)

	_, err = s.CreateProject(ctx, ProjectInput{Title: ptr("Tool"), Status: ptr(StatusPublished)})
	require.NoError(t, err)
	time.Sleep(80 * time.Millisecond)

	projects, err := cache.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	got, err := cache.GetProject(ctx, "tool")
	require.NoError(t, err)
	assert.Equal(t, "Tool", got.Title)
}
