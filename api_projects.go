package folio

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/folio/editor"
)

func (a *App) handleListProjects(c echo.Context) error {
	page, err := a.Store.ListProjects(c.Request().Context(), ProjectFilter{
		Status:   StatusPublished,
		Featured: queryBool(c, "featured"),
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

func (a *App) handleGetProject(c echo.Context) error {
	ctx := c.Request().Context()
	slug := c.Param("slug")
	project, err := a.Store.GetProjectBySlug(ctx, slug, true)
	if err != nil {
		return err
	}
	if a.countView(c, "project "+slug, func() error { return a.Store.IncrementProjectViews(ctx, slug) }) {
		project.Views++
	}
	return c.JSON(http.StatusOK, project)
}

func (a *App) handleAdminListProjects(c echo.Context) error {
	status := Status(c.QueryParam("status"))
	if status != "" && !status.Valid() {
		return invalid("status", "must be draft, published or archived")
	}
	page, err := a.Store.ListProjects(c.Request().Context(), ProjectFilter{
		Status:   status,
		Featured: queryBool(c, "featured"),
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

func (a *App) handleAdminGetProject(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	project, err := a.Store.GetProject(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, project)
}

func (a *App) handleCheckProjectSlug(c echo.Context) error {
	return a.checkSlug(c, func(slug string, exclude int64) (bool, error) {
		return a.Store.ProjectSlugExists(c.Request().Context(), slug, exclude)
	})
}

func (a *App) handleCreateProject(c echo.Context) error {
	var in ProjectInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	project, err := a.Store.CreateProject(c.Request().Context(), in)
	if err != nil {
		return err
	}
	a.Cache.Invalidate()
	a.Drafts.Clear(draftKey(c, draftProjects), editor.NewKey)
	c.Logger().Infof("created project %q (%s)", project.Slug, project.Status)
	return c.JSON(http.StatusCreated, project)
}

func (a *App) handleUpdateProject(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var in ProjectInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	project, err := a.Store.UpdateProject(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	a.Cache.Invalidate()
	a.Drafts.Clear(draftKey(c, draftProjects), project.Slug)
	return c.JSON(http.StatusOK, project)
}

func (a *App) handleDeleteProject(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := a.Store.ArchiveProject(c.Request().Context(), id); err != nil {
		return err
	}
	a.Cache.Invalidate()
	return c.NoContent(http.StatusNoContent)
}
