package main

import (
	"context"
	"fmt"

	"github.com/eringen/folio"
)

func runCreateAdmin(username, email string) error {
	password := folio.MustEnv("FOLIO_ADMIN_PASSWORD")
	hash, err := folio.HashPassword(password)
	if err != nil {
		return err
	}

	store, err := folio.NewStore(folio.EnvOr("FOLIO_DATABASE_PATH", "data/folio.db"))
	if err != nil {
		return err
	}
	defer store.Close()

	admin, err := store.CreateAdmin(context.Background(), username, email, hash)
	if err != nil {
		return err
	}
	fmt.Printf("Created admin %s <%s> (id %d)\n", admin.Username, admin.Email, admin.ID)
	return nil
}
