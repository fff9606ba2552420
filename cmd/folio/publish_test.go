package main

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/folio"
	"github.com/eringen/folio/client"
)

type fakeAPI struct {
	taken   map[string]bool
	created []folio.PostInput
	meErr   error
}

func (f *fakeAPI) Me(ctx context.Context) (folio.Admin, error) {
	return folio.Admin{ID: 1, Username: "ada"}, f.meErr
}

func (f *fakeAPI) SlugExists(ctx context.Context, slug string) (bool, error) {
	return f.taken[slug], nil
}

func (f *fakeAPI) CreatePost(ctx context.Context, in folio.PostInput) (folio.Post, error) {
	f.created = append(f.created, in)
	return folio.Post{ID: 1, Title: *in.Title, Slug: *in.Slug, Status: *in.Status}, nil
}

func TestParseDocument(t *testing.T) {
	doc, err := parseDocument("\n# Hello, World! 2024\r\n\nFirst paragraph.\n\n- item\n")
	require.NoError(t, err)
	assert.Equal(t, "Hello, World! 2024", doc.Title)
	assert.Equal(t, "First paragraph.\n\n- item", doc.Body)

	_, err = parseDocument("no heading here\n# Late title")
	assert.Error(t, err)
	_, err = parseDocument("## Level two")
	assert.Error(t, err)
}

func TestPublishDocumentDerivesSlug(t *testing.T) {
	api := &fakeAPI{}
	doc := mdDocument{Title: "Hello, World! 2024", Body: "body"}

	post, err := publishDocument(context.Background(), api, doc, publishOptions{Publish: true, Tags: []string{"go"}}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "hello-world-2024", post.Slug)
	assert.Equal(t, folio.StatusPublished, post.Status)

	require.Len(t, api.created, 1)
	in := api.created[0]
	assert.Equal(t, "body", *in.Content)
	require.NotNil(t, in.Tags)
	assert.Equal(t, []string{"go"}, *in.Tags)
}

func TestPublishDocumentRejectsTakenSlug(t *testing.T) {
	api := &fakeAPI{taken: map[string]bool{"hello": true}}

	_, err := publishDocument(context.Background(), api, mdDocument{Title: "Hello"}, publishOptions{}, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already taken")
	assert.Empty(t, api.created)

	post, err := publishDocument(context.Background(), api, mdDocument{Title: "Hello"}, publishOptions{Slug: "Hello Again"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "hello-again", post.Slug)
	assert.Equal(t, folio.StatusDraft, post.Status)
}

func TestPublishDocumentChecksTokenFirst(t *testing.T) {
	api := &fakeAPI{meErr: client.ErrUnauthorized}
	_, err := publishDocument(context.Background(), api, mdDocument{Title: "Hello"}, publishOptions{}, io.Discard)
	assert.ErrorIs(t, err, client.ErrUnauthorized)
	assert.Empty(t, api.created)

	api.meErr = nil
	var out bytes.Buffer
	_, err = publishDocument(context.Background(), api, mdDocument{Title: "Hello"}, publishOptions{}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "publishing as ada\n")
	assert.Contains(t, out.String(), "slug hello: available")
}

func TestSplitTags(t *testing.T) {
	assert.Equal(t, []string{"go", "web dev"}, splitTags(" go, ,web dev,"))
	assert.Nil(t, splitTags(""))
}
