// Package events fans mood ledger writes out over Redis pub/sub.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unowned-ai/moodledger/pkg/logger"
	"github.com/unowned-ai/moodledger/pkg/moods"
)

type Options struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// RedisBus publishes moods.Event values as JSON on one channel and can
// forward them back to a callback.
type RedisBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

// NewRedisBus connects and pings before returning.
func NewRedisBus(ctx context.Context, opts Options, log *logger.Logger) (*RedisBus, error) {
	if log == nil {
		log = logger.NewNop()
	}
	addr := strings.TrimSpace(opts.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	ch := strings.TrimSpace(opts.Channel)
	if ch == "" {
		ch = "moodledger.events"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisBus{
		log:     log.With("service", "RedisEventBus"),
		rdb:     rdb,
		channel: ch,
	}, nil
}

func (b *RedisBus) Channel() string { return b.channel }

func (b *RedisBus) Publish(ctx context.Context, ev moods.Event) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis event bus not initialized")
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

// Forward subscribes and calls onEvent for every decodable message until ctx
// is done. It returns once the subscription is confirmed.
func (b *RedisBus) Forward(ctx context.Context, onEvent func(moods.Event)) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis event bus not initialized")
	}
	if onEvent == nil {
		return fmt.Errorf("onEvent callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				var ev moods.Event
				if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
					b.log.Warn("bad mood event payload", "error", err)
					continue
				}
				onEvent(ev)
			}
		}
	}()
	return nil
}

func (b *RedisBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
