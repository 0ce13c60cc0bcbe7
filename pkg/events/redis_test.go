package events

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/unowned-ai/moodledger/pkg/moods"
)

func TestNewRedisBusRequiresAddr(t *testing.T) {
	_, err := NewRedisBus(context.Background(), Options{Addr: "  "}, nil)
	if err == nil || !strings.Contains(err.Error(), "missing redis address") {
		t.Errorf("Expected missing address error, got %v", err)
	}
}

func TestNilBusPublishFails(t *testing.T) {
	var b *RedisBus
	if err := b.Publish(context.Background(), moods.Event{}); err == nil {
		t.Error("Expected an error from an uninitialized bus")
	}
	if err := b.Close(); err != nil {
		t.Errorf("Expected Close on nil bus to be a no-op, got %v", err)
	}
}

func TestPublishAndForward(t *testing.T) {
	addr := os.Getenv("MOODLEDGER_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("MOODLEDGER_TEST_REDIS_ADDR not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	channel := "moodledger.test." + time.Now().Format("150405.000000000")
	bus, err := NewRedisBus(ctx, Options{Addr: addr, Channel: channel}, nil)
	if err != nil {
		t.Fatalf("NewRedisBus failed: %v", err)
	}
	defer bus.Close()

	got := make(chan moods.Event, 1)
	if err := bus.Forward(ctx, func(ev moods.Event) { got <- ev }); err != nil {
		t.Fatalf("Forward failed: %v", err)
	}

	sent := moods.Event{Type: moods.EventPurged, PatientID: "p-1", Count: 3, OccurredAt: time.Now().UTC()}
	if err := bus.Publish(ctx, sent); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case ev := <-got:
		if ev.Type != sent.Type || ev.PatientID != "p-1" || ev.Count != 3 {
			t.Errorf("Expected %+v, got %+v", sent, ev)
		}
	case <-ctx.Done():
		t.Fatal("Timed out waiting for the event")
	}
}
