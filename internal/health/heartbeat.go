// Package health runs periodic liveness checks for the decoy: a heartbeat
// carrying the connection totals and a summary log line.
package health

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/energizer-project/craftlure/internal/events"
	"github.com/energizer-project/craftlure/internal/telemetry"
	"github.com/energizer-project/craftlure/internal/util"
)

// Heartbeat is the payload of an EventHeartbeat.
type Heartbeat struct {
	Stats     telemetry.Stats `json:"stats"`
	Timestamp int64           `json:"timestamp"`
}

// Manager runs the periodic checks until its context is cancelled.
type Manager struct {
	eventBus *events.EventBus
	metrics  *telemetry.Metrics
	logger   zerolog.Logger

	heartbeatInterval time.Duration
	summaryInterval   time.Duration

	// last totals reported by the summary, to skip idle periods
	lastAccepted int64
}

// NewManager creates a health manager. A zero interval disables that check.
func NewManager(eventBus *events.EventBus, metrics *telemetry.Metrics, heartbeatInterval, summaryInterval time.Duration) *Manager {
	return &Manager{
		eventBus:          eventBus,
		metrics:           metrics,
		logger:            util.ComponentLogger("health"),
		heartbeatInterval: heartbeatInterval,
		summaryInterval:   summaryInterval,
	}
}

// Start launches every enabled check and blocks until ctx is cancelled.
func (m *Manager) Start(ctx context.Context) {
	checks := []struct {
		name     string
		interval time.Duration
		fn       func(context.Context)
	}{
		{"heartbeat", m.heartbeatInterval, m.emitHeartbeat},
		{"summary", m.summaryInterval, m.logSummary},
	}

	started := 0
	for _, check := range checks {
		check := check // per-iteration copy (pre-Go 1.22 loop semantics)
		if check.interval <= 0 {
			continue
		}
		started++

		go func() {
			ticker := time.NewTicker(check.interval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					check.fn(ctx)
				}
			}
		}()
	}

	m.logger.Info().Int("checks", started).Msg("health manager started")

	<-ctx.Done()
	m.logger.Info().Msg("health manager stopped")
}

// emitHeartbeat publishes the current totals on the bus.
func (m *Manager) emitHeartbeat(ctx context.Context) {
	m.eventBus.Emit(ctx, events.Event{
		Type:   events.EventHeartbeat,
		Source: "health",
		Payload: Heartbeat{
			Stats:     m.metrics.Snapshot(),
			Timestamp: time.Now().Unix(),
		},
	})
}

// logSummary logs the totals when new connections arrived since the last
// summary.
func (m *Manager) logSummary(ctx context.Context) {
	stats := m.metrics.Snapshot()
	if stats.Accepted == m.lastAccepted {
		return
	}
	m.lastAccepted = stats.Accepted

	m.logger.Info().
		Int64("accepted", stats.Accepted).
		Int64("dropped", stats.Dropped).
		Int64("status_probes", stats.StatusProbes).
		Int64("login_attempts", stats.LoginAttempts).
		Int64("uptime_sec", stats.UptimeSec).
		Msg("connection summary")
}
