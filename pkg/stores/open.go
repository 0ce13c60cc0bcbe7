// Package stores picks a moods.Store implementation from configuration.
package stores

import (
	"context"
	"fmt"

	"github.com/unowned-ai/moodledger/pkg/config"
	"github.com/unowned-ai/moodledger/pkg/moods"
	"github.com/unowned-ai/moodledger/pkg/stores/mongostore"
	"github.com/unowned-ai/moodledger/pkg/stores/pgstore"
	"github.com/unowned-ai/moodledger/pkg/stores/sqlitestore"
)

// Open connects the backend named by cfg.Driver and prepares its schema.
func Open(ctx context.Context, cfg config.Config) (moods.Store, error) {
	// A nil *Store must not escape as a non-nil moods.Store.
	switch cfg.Driver {
	case config.DriverSQLite, "":
		s, err := sqlitestore.Open(cfg.SQLite.Path, cfg.SQLite.WAL, cfg.SQLite.Sync)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverPostgres:
		s, err := pgstore.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverMongo:
		s, err := mongostore.Open(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
