package main

import (
	"context"
	"errors"

	"github.com/Sprinter05/duochat/internal/log"
	"github.com/Sprinter05/duochat/internal/spec"
	"github.com/Sprinter05/duochat/server/config"
	"github.com/Sprinter05/duochat/server/creds"
)

// Registers the configured accounts, existing ones
// are skipped. Returns how many were created.
func seedUsers(ctx context.Context, store *creds.Store, seeds []config.Seed) int {
	var created int
	for _, v := range seeds {
		_, err := store.Register(ctx, v.Username, v.Password)
		if err == nil {
			created++
			continue
		}

		if !errors.Is(err, spec.ErrorDuplicate) {
			log.User(v.Username, "seeding", err)
		}
	}

	return created
}
