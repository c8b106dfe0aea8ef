// Package store opens the run history backend named in the configuration.
package store

import (
	"context"
	"fmt"

	"github.com/mslinn/perftrend/pkg/config"
	"github.com/mslinn/perftrend/pkg/database"
	"github.com/mslinn/perftrend/pkg/history"
	"github.com/mslinn/perftrend/pkg/storage"
)

// Open returns the configured history store. The caller closes it.
func Open(ctx context.Context, cfg *config.Config) (history.Store, error) {
	switch cfg.Store {
	case config.StoreSQLite, "":
		if err := cfg.ValidateDatabase(); err != nil {
			return nil, err
		}
		db, err := database.Open(cfg.GetDatabasePath())
		if err != nil {
			return nil, err
		}
		return db, nil

	case config.StoreRedis:
		r, err := storage.Dial(ctx, cfg.RedisAddress, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		return r, nil
	}

	return nil, fmt.Errorf("unknown store %q", cfg.Store)
}

// Describe returns a short human-readable location of the configured store
func Describe(cfg *config.Config) string {
	if cfg.Store == config.StoreRedis {
		return fmt.Sprintf("redis://%s/%d", cfg.RedisAddress, cfg.RedisDB)
	}
	return cfg.GetDatabasePath()
}
