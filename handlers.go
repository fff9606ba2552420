package folio

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
)

func (a *App) handleHome(c echo.Context) error {
	ctx := c.Request().Context()
	tag := c.QueryParam("tag")
	posts, err := a.Cache.ListPosts(ctx, tag)
	if err != nil {
		return err
	}
	tags, err := a.Cache.ListTags(ctx)
	if err != nil {
		return err
	}
	projects, err := a.Cache.ListProjects(ctx)
	if err != nil {
		return err
	}
	return Render(c, a.Views.Home(a.Site(), posts, projects, tags, tag))
}

func (a *App) handlePost(c echo.Context) error {
	ctx := c.Request().Context()
	slug := c.Param("slug")
	post, err := a.Cache.GetPost(ctx, slug)
	if err != nil {
		return err
	}
	related, err := a.Store.RelatedPosts(ctx, slug, DefaultRelatedLimit)
	if err != nil {
		return err
	}
	a.countView(c, "post "+slug, func() error { return a.Store.IncrementPostViews(ctx, slug) })
	return Render(c, a.Views.Post(a.Site(), post, related, likedSlugs(c)[slug]))
}

func (a *App) handleProject(c echo.Context) error {
	ctx := c.Request().Context()
	slug := c.Param("slug")
	project, err := a.Cache.GetProject(ctx, slug)
	if err != nil {
		return err
	}
	a.countView(c, "project "+slug, func() error { return a.Store.IncrementProjectViews(ctx, slug) })
	return Render(c, a.Views.Project(a.Site(), project))
}

// countView runs increment unless the request comes from a crawler. A
// failed increment is logged and does not fail the page.
func (a *App) countView(c echo.Context, what string, increment func() error) bool {
	if isCrawler(c.Request().UserAgent()) {
		return false
	}
	if err := increment(); err != nil {
		c.Logger().Errorf("count view of %s: %v", what, err)
		return false
	}
	return true
}

func (a *App) handleSitemap(c echo.Context) error {
	ctx := c.Request().Context()
	posts, err := a.Cache.ListPosts(ctx, "")
	if err != nil {
		return err
	}
	projects, err := a.Cache.ListProjects(ctx)
	if err != nil {
		return err
	}
	return a.renderSitemap(c, posts, projects)
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Cache.ListPosts(c.Request().Context(), "")
	if err != nil {
		return err
	}
	return a.renderRSS(c, posts)
}

func handleBlogRedirect(c echo.Context) error {
	return c.Redirect(http.StatusMovedPermanently, "/")
}

func (a *App) handleFavicon(c echo.Context) error {
	return c.File(filepath.Join(a.staticDir, "favicon.svg"))
}

// handleRobots serves the static robots.txt, or a permissive default that
// points crawlers at the sitemap.
func (a *App) handleRobots(c echo.Context) error {
	path := filepath.Join(a.staticDir, "robots.txt")
	if _, err := os.Stat(path); err == nil {
		return c.File(path)
	}
	body := fmt.Sprintf("User-agent: *\nDisallow: /api/\n\nSitemap: %s\n",
		strings.TrimRight(a.Config.URL, "/")+"/sitemap.xml")
	return c.String(http.StatusOK, body)
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code, msg := httpStatus(err)
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
	}
	if strings.HasPrefix(c.Request().URL.Path, "/api/") {
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, map[string]string{"error": msg})
		return
	}
	switch {
	case code == http.StatusNotFound || errors.Is(err, ErrNotFound):
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.Site()))
	case code >= 500:
		_ = RenderStatus(c, code, a.Views.ServerError(a.Site()))
	default:
		a.Echo.DefaultHTTPErrorHandler(err, c)
	}
}
