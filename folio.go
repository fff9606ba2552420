// Package folio is a portfolio, blog and project showcase engine built with
// Go, Echo, and templ. It serves guest pages for published content, an RSS
// feed and a sitemap, and a JSON API for the admin area.
//
// Users can provide their own templ templates via the ViewFuncs struct;
// any nil view falls back to a minimal built-in page.
package folio

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/eringen/folio/editor"
)

// ViewFuncs holds the templ components rendered for guest pages.
type ViewFuncs struct {
	Home        func(site Site, posts []Post, projects []Project, tags []string, activeTag string) templ.Component
	Post        func(site Site, post Post, related []RelatedPost, liked bool) templ.Component
	Project     func(site Site, project Project) templ.Component
	NotFound    func(site Site) templ.Component
	ServerError func(site Site) templ.Component
}

// App is the central folio application. It wires together the store,
// caches, limiters, handlers, middleware, and templates.
type App struct {
	Config Config
	Echo   *echo.Echo
	Store  *Store
	Cache  *PostCache
	Views  ViewFuncs
	Auth   *Authenticator
	Drafts *editor.DraftCache

	contactLimiter *ContactLimiter
	loginLimiter   *LoginLimiter
	images         ImageHost
	customRoutes   []func(*App)
	staticDir      string
	now            func() time.Time
}

// New creates a new App with the given configuration and view functions.
func New(cfg Config, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		Views:     views.withFallbacks(),
		staticDir: "public",
	}

	a.Echo.Validator = requestValidator{}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Init validates the configuration, opens the database and registers
// middleware and routes. Start calls it; tests call it directly and drive
// a.Echo with httptest.
func (a *App) Init() error {
	if a.Config.JWTSecret == "" {
		return fmt.Errorf("folio: JWTSecret is required")
	}
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("folio: SessionSecret is required")
	}

	store, err := NewStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("folio: init store: %w", err)
	}
	a.Store = store

	a.Cache = NewPostCache(a.Store, a.Config.PostCacheTTL)
	a.Auth = NewAuthenticator(a.Config.JWTSecret, a.Config.TokenTTL)
	a.Drafts = editor.NewDraftCache(a.Config.DraftTTL)
	a.contactLimiter = NewContactLimiter(a.Config.ContactLimit, a.Config.ContactWindow)
	a.loginLimiter = NewLoginLimiter(a.Config.LoginAttempts, a.Config.LoginWindow)
	if a.images == nil {
		a.images = LocalImageHost{
			Dir:    filepath.Join(a.staticDir, uploadsSubdir),
			Prefix: "/public/" + uploadsSubdir,
		}
	}
	if a.now != nil {
		a.Store.SetClock(a.now)
		a.Auth.now = a.now
		a.Drafts.SetClock(a.now)
		a.contactLimiter.SetClock(a.now)
	}

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

// Start initializes the app and starts the server.
func (a *App) Start() error {
	if err := a.Init(); err != nil {
		return err
	}
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully and releases resources.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Echo.Shutdown(ctx)
	if cerr := a.Close(); err == nil {
		err = cerr
	}
	return err
}

func (a *App) setupRoutes() {
	e := a.Echo
	admin := a.RequireAdmin

	e.Static("/public", a.staticDir)
	e.GET("/favicon.svg", a.handleFavicon)
	e.GET("/robots.txt", a.handleRobots)

	// Guest pages
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/blog", handleBlogRedirect)
	e.GET("/", a.handleHome)
	e.GET("/blog/:slug/", a.handlePost)
	e.GET("/projects/:slug/", a.handleProject)

	api := e.Group("/api")

	// Auth
	api.POST("/auth/login", a.handleLogin)
	api.GET("/auth/status", a.handleAuthStatus)
	api.POST("/auth/setup", a.handleSetup)
	api.GET("/auth/me", a.handleMe, admin)
	api.POST("/auth/logout", a.handleLogout, admin)

	// Posts
	api.GET("/posts", a.handleListPosts)
	api.GET("/posts/:slug", a.handleGetPost)
	api.GET("/posts/:slug/related", a.handleRelatedPosts)
	api.POST("/posts/:slug/like", a.handleLikePost)
	api.POST("/posts", a.handleCreatePost, admin)
	api.PUT("/posts/:id", a.handleUpdatePost, admin)
	api.DELETE("/posts/:id", a.handleDeletePost, admin)
	api.GET("/admin/posts", a.handleAdminListPosts, admin)
	api.GET("/admin/posts/check-slug", a.handleCheckPostSlug, admin)
	api.GET("/admin/posts/:id", a.handleAdminGetPost, admin)

	// Projects
	api.GET("/projects", a.handleListProjects)
	api.GET("/projects/:slug", a.handleGetProject)
	api.POST("/projects", a.handleCreateProject, admin)
	api.PUT("/projects/:id", a.handleUpdateProject, admin)
	api.DELETE("/projects/:id", a.handleDeleteProject, admin)
	api.GET("/admin/projects", a.handleAdminListProjects, admin)
	api.GET("/admin/projects/check-slug", a.handleCheckProjectSlug, admin)
	api.GET("/admin/projects/:id", a.handleAdminGetProject, admin)

	// Categories
	api.GET("/categories", a.handleListCategories)
	api.POST("/categories", a.handleCreateCategory, admin)
	api.PUT("/categories/:id", a.handleUpdateCategory, admin)
	api.DELETE("/categories/:id", a.handleDeleteCategory, admin)

	// Images
	api.GET("/images/:id", a.handleImage)
	api.GET("/admin/images", a.handleImageList, admin)
	api.POST("/images", a.handleImageUpload, admin)
	api.DELETE("/images/:id", a.handleImageDelete, admin)

	// Subscribers
	api.POST("/subscribers", a.handleSubscribe)
	api.GET("/subscribers", a.handleListSubscribers, admin)
	api.DELETE("/subscribers/:id", a.handleUnsubscribe, admin)
	api.POST("/subscribers/broadcast", a.handleBroadcast, admin)

	// Contact
	api.POST("/contact", a.handleContact)
	api.GET("/contact", a.handleListContact, admin)
	api.GET("/contact/:id", a.handleGetContact, admin)
	api.DELETE("/contact/:id", a.handleDeleteContact, admin)

	// Dashboard and editor drafts
	api.GET("/admin/stats", a.handleStats, admin)
	api.GET("/admin/drafts/:kind/:key", a.handleGetDraft, admin)
	api.PUT("/admin/drafts/:kind/:key", a.handleSaveDraft, admin)
	api.DELETE("/admin/drafts/:kind/:key", a.handleDeleteDraft, admin)
}

// Site returns the site identity passed to templates.
func (a *App) Site() Site {
	return a.Config.Site
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.loginLimiter != nil {
		a.loginLimiter.Close()
	}
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// MustEnv returns the value of the environment variable key, or fatally exits if empty.
func MustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("folio: required environment variable %s is not set", key)
	}
	return v
}
