// Package debug provides runtime monitoring and diagnostics.
package debug

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/drake/beatclock/session"
)

// Enabled returns true if debug mode is active (BEATCLOCK_DEBUG=1).
func Enabled() bool {
	return os.Getenv("BEATCLOCK_DEBUG") == "1"
}

// StatsSource is anything that reports session statistics.
type StatsSource interface {
	Stats() session.Stats
}

// Monitor periodically logs session statistics when debug mode is enabled.
type Monitor struct {
	source   StatsSource
	interval time.Duration
	ctx      context.Context
	logger   *slog.Logger
}

// NewMonitor creates a new monitor for the given source.
// If enabled is false, returns nil.
func NewMonitor(ctx context.Context, src StatsSource, logger *slog.Logger, enabled bool) *Monitor {
	if !enabled {
		return nil
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Monitor{
		source:   src,
		interval: 5 * time.Second,
		ctx:      ctx,
		logger:   logger.With("component", "monitor"),
	}
}

// Start begins the monitoring loop in a goroutine.
func (m *Monitor) Start() {
	if m == nil {
		return
	}
	go m.run()
}

func (m *Monitor) run() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("monitor started", "interval", m.interval)

	for {
		select {
		case <-m.ctx.Done():
			m.logger.Info("monitor stopped")
			return
		case <-ticker.C:
			m.logStats()
		}
	}
}

func (m *Monitor) logStats() {
	s := m.source.Stats()
	m.logger.Info("stats",
		"events", s.EventsProcessed,
		"timer_queue", s.TimerQueueLen,
		"timer_queue_cap", s.TimerQueueCap,
		"timers", s.ActiveTimers,
		"cues", s.PendingCues,
		"lua_callbacks", s.LuaCallbacks,
		"goroutines", s.Goroutines,
	)
}
