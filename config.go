package folio

import (
	"time"
)

// Site is the public identity of the site, passed to every template.
type Site struct {
	Name        string // Site name (default "Folio")
	URL         string // Canonical URL (default "http://localhost:3000")
	Description string // Site description for RSS and meta tags
	Author      string // Author name for JSON-LD
}

// Config holds all configuration for a folio site.
type Config struct {
	Site

	Addr         string // Listen address (default ":3000")
	DatabasePath string // SQLite path (default "data/folio.db")

	JWTSecret     string        // Required: HMAC key for admin tokens
	TokenTTL      time.Duration // Admin token lifetime (default 24h)
	SessionSecret string        // Required: cookie session secret (guest likes)
	CookieSecure  bool          // Set true for HTTPS

	CORSOrigins []string // Origins allowed to call /api/ from a browser

	ContactLimit  int           // Contact submissions per window (default 5)
	ContactWindow time.Duration // Contact window (default 15min)

	LoginAttempts int           // Failed logins per window (default 5)
	LoginWindow   time.Duration // Login window (default 1min)

	PostCacheTTL time.Duration // Post cache TTL (default 5min)
	DraftTTL     time.Duration // Editor draft TTL (default 12h)
}

func (c *Config) setDefaults() {
	if c.Name == "" {
		c.Name = "Folio"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/folio.db"
	}
	if c.TokenTTL == 0 {
		c.TokenTTL = 24 * time.Hour
	}
	if c.ContactLimit == 0 {
		c.ContactLimit = DefaultContactLimit
	}
	if c.ContactWindow == 0 {
		c.ContactWindow = DefaultContactWindow
	}
	if c.LoginAttempts == 0 {
		c.LoginAttempts = 5
	}
	if c.LoginWindow == 0 {
		c.LoginWindow = time.Minute
	}
	if c.PostCacheTTL == 0 {
		c.PostCacheTTL = 5 * time.Minute
	}
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for static assets and uploads (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithImageHost replaces the local uploads directory as image storage.
func WithImageHost(h ImageHost) Option {
	return func(a *App) {
		a.images = h
	}
}

// WithClock sets the time source of the store, limiters and token issuer.
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		a.now = now
	}
}
