package debug

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/drake/beatclock/session"
)

type fakeSource struct{ stats session.Stats }

func (f fakeSource) Stats() session.Stats { return f.stats }

// syncBuffer guards a buffer written by the monitor goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestNewMonitorDisabled(t *testing.T) {
	m := NewMonitor(context.Background(), fakeSource{}, nil, false)
	if m != nil {
		t.Fatal("expected nil monitor when disabled")
	}
	m.Start() // nil-safe
}

func TestMonitorLogsStats(t *testing.T) {
	var out syncBuffer
	logger := slog.New(slog.NewTextHandler(&out, nil))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := NewMonitor(ctx, fakeSource{session.Stats{EventsProcessed: 42, PendingCues: 3}}, logger, true)
	m.interval = 5 * time.Millisecond
	m.Start()

	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(out.String(), "events=42") {
		if time.Now().After(deadline) {
			t.Fatalf("no stats logged: %q", out.String())
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !strings.Contains(out.String(), "cues=3") {
		t.Fatalf("output = %q", out.String())
	}
}
