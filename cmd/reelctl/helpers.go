package main

import (
	"context"
	"log"
	"time"

	"github.com/abelbrown/reelfeed/internal/config"
	"github.com/abelbrown/reelfeed/internal/persist"
	"github.com/abelbrown/reelfeed/internal/redisx"
	"github.com/abelbrown/reelfeed/internal/store"
)

// loadConfig loads the user config or fatals.
func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// openPersistence opens the configured backend for profile. The sqlite
// store is returned as well when it is the backend, for key listing.
func openPersistence(ctx context.Context, cfg *config.Config) (*persist.Persistence, *store.Store, func()) {
	if cfg.Storage.Backend == "redis" {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		rdb, err := redisx.Open(pingCtx, cfg.Storage.RedisAddr)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		p := persist.New(redisx.NewKV(rdb, ""), nil).WithPrefix(cfg.Storage.Profile)
		return p, nil, func() { rdb.Close() }
	}

	st, err := store.Open(cfg.DBPath())
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	p := persist.New(st, nil).WithPrefix(cfg.Storage.Profile)
	return p, st, func() { st.Close() }
}

// truncate shortens a string to max runes, appending "..." if truncated.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

func durPrecision(ms float64) int {
	if ms >= 100 {
		return 0
	}
	if ms >= 1 {
		return 1
	}
	return 2
}
