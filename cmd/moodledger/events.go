package main

import (
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/unowned-ai/moodledger/pkg/events"
	"github.com/unowned-ai/moodledger/pkg/moods"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect mood change events",
}

var watchEventsCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print mood events from Redis as JSON lines until interrupted",
	Long: `Subscribe to the configured Redis channel and print every mood event
(mood.recorded, mood.updated, mood.deleted, mood.purged) as one JSON object per line.
Requires redis.addr (MOODLEDGER_REDIS_ADDR or the config file).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		defer log.Sync()
		if cfg.Redis.Addr == "" {
			return errors.New("redis.addr is not configured")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		bus, err := events.NewRedisBus(ctx, events.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Channel:  cfg.Redis.Channel,
		}, log)
		if err != nil {
			return err
		}
		defer bus.Close()

		enc := json.NewEncoder(cmd.OutOrStdout())
		if err := bus.Forward(ctx, func(ev moods.Event) {
			if err := enc.Encode(ev); err != nil {
				log.Warn("writing event failed", "error", err)
			}
		}); err != nil {
			return err
		}
		log.Info("watching mood events", "channel", bus.Channel())

		<-ctx.Done()
		return nil
	},
}

func initEventsCmd() {
	eventsCmd.AddCommand(watchEventsCmd)
}
