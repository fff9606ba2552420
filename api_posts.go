package folio

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/folio/editor"
)

func (a *App) handleListPosts(c echo.Context) error {
	page, err := a.Store.ListPosts(c.Request().Context(), PostFilter{
		Status:   StatusPublished,
		Category: c.QueryParam("category"),
		Tag:      c.QueryParam("tag"),
		Query:    c.QueryParam("q"),
		Page:     queryInt(c, "page"),
		Limit:    queryInt(c, "limit"),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

func (a *App) handleGetPost(c echo.Context) error {
	ctx := c.Request().Context()
	slug := c.Param("slug")
	post, err := a.Store.GetPostBySlug(ctx, slug, true)
	if err != nil {
		return err
	}
	if a.countView(c, "post "+slug, func() error { return a.Store.IncrementPostViews(ctx, slug) }) {
		post.Views++
	}
	return c.JSON(http.StatusOK, post)
}

func (a *App) handleRelatedPosts(c echo.Context) error {
	related, err := a.Store.RelatedPosts(c.Request().Context(), c.Param("slug"), queryInt(c, "limit"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, related)
}

// handleLikePost toggles the visitor's like on a post. Liked slugs live in
// the guest cookie session, so each browser counts once.
func (a *App) handleLikePost(c echo.Context) error {
	slug := c.Param("slug")
	liked := likedSlugs(c)
	delta := 1
	if liked[slug] {
		delta = -1
	}
	likes, err := a.Store.AdjustPostLikes(c.Request().Context(), slug, delta)
	if err != nil {
		return err
	}
	if delta > 0 {
		liked[slug] = true
	} else {
		delete(liked, slug)
	}
	if err := saveLikedSlugs(c, liked); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"liked": delta > 0, "likes": likes})
}

func (a *App) handleAdminListPosts(c echo.Context) error {
	status := Status(c.QueryParam("status"))
	if status != "" && !status.Valid() {
		return invalid("status", "must be draft, published or archived")
	}
	page, err := a.Store.ListPosts(c.Request().Context(), PostFilter{
		Status:   status,
		Category: c.QueryParam("category"),
		Tag:      c.QueryParam("tag"),
		Query:    c.QueryParam("q"),
		Page:     queryInt(c, "page"),
		Limit:    queryInt(c, "limit"),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

func (a *App) handleAdminGetPost(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	post, err := a.Store.GetPost(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, post)
}

type slugCheck struct {
	Slug   string `json:"slug"`
	Exists bool   `json:"exists"`
}

func (a *App) checkSlug(c echo.Context, exists func(slug string, exclude int64) (bool, error)) error {
	slug := editor.Slugify(c.QueryParam("slug"))
	if slug == "" {
		return invalid("slug", "is required")
	}
	found, err := exists(slug, int64(queryInt(c, "exclude")))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, slugCheck{Slug: slug, Exists: found})
}

func (a *App) handleCheckPostSlug(c echo.Context) error {
	return a.checkSlug(c, func(slug string, exclude int64) (bool, error) {
		return a.Store.PostSlugExists(c.Request().Context(), slug, exclude)
	})
}

func (a *App) handleCreatePost(c echo.Context) error {
	var in PostInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	post, err := a.Store.CreatePost(c.Request().Context(), in)
	if err != nil {
		return err
	}
	a.Cache.Invalidate()
	a.Drafts.Clear(draftKey(c, draftPosts), editor.NewKey)
	c.Logger().Infof("created post %q (%s)", post.Slug, post.Status)
	return c.JSON(http.StatusCreated, post)
}

func (a *App) handleUpdatePost(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var in PostInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	post, err := a.Store.UpdatePost(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	a.Cache.Invalidate()
	a.Drafts.Clear(draftKey(c, draftPosts), post.Slug)
	return c.JSON(http.StatusOK, post)
}

func (a *App) handleDeletePost(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := a.Store.ArchivePost(c.Request().Context(), id); err != nil {
		return err
	}
	a.Cache.Invalidate()
	return c.NoContent(http.StatusNoContent)
}

func (a *App) handleListCategories(c echo.Context) error {
	categories, err := a.Store.ListCategories(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, categories)
}

func (a *App) handleCreateCategory(c echo.Context) error {
	var in CategoryInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	category, err := a.Store.CreateCategory(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, category)
}

func (a *App) handleUpdateCategory(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var in CategoryInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	category, err := a.Store.UpdateCategory(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	a.Cache.Invalidate()
	return c.JSON(http.StatusOK, category)
}

func (a *App) handleDeleteCategory(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := a.Store.DeleteCategory(c.Request().Context(), id); err != nil {
		return err
	}
	a.Cache.Invalidate()
	return c.NoContent(http.StatusNoContent)
}

func (a *App) handleStats(c echo.Context) error {
	stats, err := a.Store.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// draft kinds accepted by the drafts endpoints.
const (
	draftPosts    = "posts"
	draftProjects = "projects"
)

func draftKey(c echo.Context, kind string) string {
	return draftScope(c) + ":" + kind
}

func draftKind(c echo.Context) (string, error) {
	switch kind := c.Param("kind"); kind {
	case draftPosts, draftProjects:
		return kind, nil
	}
	return "", invalid("kind", "must be posts or projects")
}

func (a *App) handleGetDraft(c echo.Context) error {
	kind, err := draftKind(c)
	if err != nil {
		return err
	}
	d, ok := a.Drafts.Load(draftKey(c, kind), c.Param("key"))
	if !ok {
		return ErrNotFound
	}
	return c.JSON(http.StatusOK, d)
}

func (a *App) handleSaveDraft(c echo.Context) error {
	kind, err := draftKind(c)
	if err != nil {
		return err
	}
	var d editor.Draft
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		return invalid("key", "is required")
	}
	return c.JSON(http.StatusOK, a.Drafts.Save(draftKey(c, kind), key, d))
}

func (a *App) handleDeleteDraft(c echo.Context) error {
	kind, err := draftKind(c)
	if err != nil {
		return err
	}
	a.Drafts.Clear(draftKey(c, kind), c.Param("key"))
	return c.NoContent(http.StatusNoContent)
}
