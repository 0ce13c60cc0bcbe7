package main

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/unowned-ai/moodledger/pkg/config"
	"github.com/unowned-ai/moodledger/pkg/events"
	"github.com/unowned-ai/moodledger/pkg/logger"
	"github.com/unowned-ai/moodledger/pkg/moods"
	"github.com/unowned-ai/moodledger/pkg/stores"
	"github.com/unowned-ai/moodledger/pkg/utils"
)

func bindFlag(key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", key, err))
	}
}

// loadConfig resolves configuration and builds the logger. The SQLite path
// is expanded and its directory created.
func loadConfig() (config.Config, *logger.Logger, error) {
	cfg, err := config.Load(v, configFile, defaultSQLitePath())
	if err != nil {
		return config.Config{}, nil, err
	}
	if cfg.Driver == config.DriverSQLite {
		path, err := utils.ResolveAndEnsureDBPath(cfg.SQLite.Path)
		if err != nil {
			return config.Config{}, nil, err
		}
		cfg.SQLite.Path = path
	}

	log, err := logger.NewWithOptions(logger.Options{Mode: cfg.Log.Mode, File: cfg.Log.File})
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, log, nil
}

// app is everything a command needs to talk to the ledger.
type app struct {
	cfg    config.Config
	log    *logger.Logger
	store  moods.Store
	bus    *events.RedisBus
	ledger *moods.Ledger
}

func openApp(ctx context.Context) (*app, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	store, err := stores.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Driver, err)
	}

	a := &app{cfg: cfg, log: log, store: store}
	opts := []moods.Option{moods.WithLocation(loc), moods.WithLogger(log)}

	if cfg.Redis.Addr != "" {
		bus, err := events.NewRedisBus(ctx, events.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Channel:  cfg.Redis.Channel,
		}, log)
		if err != nil {
			store.Close()
			return nil, err
		}
		a.bus = bus
		opts = append(opts, moods.WithPublisher(bus))
	}

	a.ledger = moods.NewLedger(store, opts...)
	log.Debug("ledger ready", "driver", cfg.Driver, "timezone", loc.String(), "events", a.bus != nil)
	return a, nil
}

func (a *app) Close() {
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			a.log.Warn("closing event bus failed", "error", err)
		}
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn("closing store failed", "error", err)
	}
	a.log.Sync()
}
