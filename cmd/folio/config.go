package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/eringen/folio"
)

// loadConfig reads the FOLIO_* environment. Unset values keep the folio
// defaults.
func loadConfig() (folio.Config, error) {
	cfg := folio.Config{
		Site: folio.Site{
			Name:        folio.EnvOr("FOLIO_SITE_NAME", ""),
			URL:         strings.TrimSuffix(folio.EnvOr("FOLIO_SITE_URL", ""), "/"),
			Description: folio.EnvOr("FOLIO_SITE_DESCRIPTION", ""),
			Author:      folio.EnvOr("FOLIO_AUTHOR", ""),
		},
		Addr:          folio.EnvOr("FOLIO_ADDR", ""),
		DatabasePath:  folio.EnvOr("FOLIO_DATABASE_PATH", ""),
		JWTSecret:     folio.MustEnv("FOLIO_JWT_SECRET"),
		SessionSecret: folio.MustEnv("FOLIO_SESSION_SECRET"),
		CookieSecure:  strings.EqualFold(os.Getenv("FOLIO_COOKIE_SECURE"), "true"),
	}
	if v := os.Getenv("FOLIO_CORS_ORIGINS"); v != "" {
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}

	var err error
	if cfg.ContactLimit, err = envInt("FOLIO_CONTACT_LIMIT"); err != nil {
		return cfg, err
	}
	if cfg.ContactWindow, err = envDuration("FOLIO_CONTACT_WINDOW"); err != nil {
		return cfg, err
	}
	if cfg.TokenTTL, err = envDuration("FOLIO_TOKEN_TTL"); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func envInt(key string) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, v)
	}
	return n, nil
}

func envDuration(key string) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration such as 15m, got %q", key, v)
	}
	return d, nil
}
