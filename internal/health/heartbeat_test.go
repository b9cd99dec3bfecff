package health

import (
	"context"
	"testing"
	"time"

	"github.com/energizer-project/craftlure/internal/events"
	"github.com/energizer-project/craftlure/internal/telemetry"
)

func TestEmitHeartbeat(t *testing.T) {
	bus := events.NewEventBus()
	metrics := telemetry.NewMetrics()
	metrics.ConnectionOpened()

	got := make(chan Heartbeat, 1)
	bus.Subscribe(events.EventHeartbeat, "test", func(ctx context.Context, e events.Event) error {
		got <- e.Payload.(Heartbeat)
		return nil
	})

	m := NewManager(bus, metrics, time.Minute, 0)
	m.emitHeartbeat(context.Background())
	bus.Stop()

	select {
	case hb := <-got:
		if hb.Stats.Accepted != 1 {
			t.Errorf("accepted = %d, want 1", hb.Stats.Accepted)
		}
		if hb.Timestamp == 0 {
			t.Error("missing timestamp")
		}
	default:
		t.Fatal("no heartbeat delivered")
	}
}

func TestLogSummarySkipsIdlePeriods(t *testing.T) {
	metrics := telemetry.NewMetrics()
	m := NewManager(events.NewEventBus(), metrics, 0, time.Minute)

	m.logSummary(context.Background())
	if m.lastAccepted != 0 {
		t.Fatalf("lastAccepted = %d", m.lastAccepted)
	}

	metrics.ConnectionOpened()
	metrics.ConnectionOpened()
	m.logSummary(context.Background())
	if m.lastAccepted != 2 {
		t.Errorf("lastAccepted = %d, want 2", m.lastAccepted)
	}
}

func TestStartTicksAndStops(t *testing.T) {
	bus := events.NewEventBus()
	defer bus.Stop()

	beats := make(chan struct{}, 16)
	bus.Subscribe(events.EventHeartbeat, "test", func(ctx context.Context, e events.Event) error {
		select {
		case beats <- struct{}{}:
		default:
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	m := NewManager(bus, telemetry.NewMetrics(), 10*time.Millisecond, 0)

	done := make(chan struct{})
	go func() {
		m.Start(ctx)
		close(done)
	}()

	select {
	case <-beats:
	case <-time.After(2 * time.Second):
		t.Error("no heartbeat within 2s")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
