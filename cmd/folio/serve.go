package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/eringen/folio"
	"github.com/eringen/folio/views"
)

func runServe() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	app := folio.New(cfg, views.Default(),
		folio.WithStaticDir(folio.EnvOr("FOLIO_STATIC_DIR", "public")),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- app.Start() }()

	select {
	case err := <-errc:
		app.Close()
		return err
	case <-ctx.Done():
	}

	log.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.Shutdown(shutdownCtx)
}
