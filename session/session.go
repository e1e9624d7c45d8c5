// Package session runs the beat clock, the script engine and the UI around
// a single event loop.
package session

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/drake/beatclock/clock"
	"github.com/drake/beatclock/event"
	"github.com/drake/beatclock/internal/buffer"
	"github.com/drake/beatclock/lua"
	"github.com/drake/beatclock/timer"
	"github.com/drake/beatclock/ui"
)

const (
	timerQueueCap = 1024
	eventQueueCap = 4096
)

// Config holds session configuration
type Config struct {
	CoreScripts fs.FS    // Core Lua scripts under core/
	ConfigDir   string   // Path to ~/.config/beatclock
	UserScripts []string // CLI script arguments

	Tempo           float64       // Tempo at beat 0; 0 leaves the map empty
	Lookahead       time.Duration // Default cue lead
	RefreshInterval time.Duration // Transport bar refresh; 0 disables

	Logger *slog.Logger
}

// Stats is a snapshot of session counters, safe to take from any goroutine.
type Stats struct {
	EventsProcessed uint64
	TimerQueueLen   int
	TimerQueueCap   int
	ActiveTimers    int
	PendingCues     int
	LuaCallbacks    int
	Goroutines      int
}

// Session orchestrates the clock, the script engine and the UI.
type Session struct {
	// Components
	ui     ui.UI
	engine *lua.Engine
	clock  *clock.Clock
	timer  *timer.Service

	// Channels
	eventsIn    chan<- event.Event
	events      <-chan event.Event
	timerEvents chan timer.Event

	// Config (retained for reload)
	config Config
	logger *slog.Logger

	// Counters published by the loop for Stats
	processed    atomic.Uint64
	pendingCues  atomic.Int64
	luaCallbacks atomic.Int64

	// Shutdown coordination
	done      chan struct{}
	loopDone  chan struct{}
	closeOnce sync.Once
}

// New creates a new Session. It is passive - no goroutines start here
// besides the event queue.
func New(u ui.UI, cfg Config) (*Session, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	timerEvents := make(chan timer.Event, timerQueueCap)

	s := &Session{
		ui:          u,
		timer:       timer.NewService(timerEvents),
		timerEvents: timerEvents,
		config:      cfg,
		logger:      logger.With("component", "session"),
		done:        make(chan struct{}),
		loopDone:    make(chan struct{}),
	}
	s.eventsIn, s.events = buffer.Unbounded[event.Event](64, eventQueueCap, logger)

	s.clock = clock.New(s.timer,
		clock.WithLookahead(cfg.Lookahead),
		clock.WithLogger(logger),
	)
	if cfg.Tempo > 0 {
		if _, err := s.clock.SetTempoAt(cfg.Tempo, 0); err != nil {
			return nil, err
		}
	}

	adapter := NewLuaAdapter(s)
	s.engine = lua.NewEngine(s.clock, adapter, adapter, logger)

	return s, nil
}

// Clock returns the session's clock. Use it only from the session loop.
func (s *Session) Clock() *clock.Clock { return s.clock }

// Run starts the session and blocks until the UI exits.
func (s *Session) Run() error {
	// Boot the system
	if err := s.boot(); err != nil {
		s.logger.Error("boot failed", "error", err)
		s.ui.Print(fmt.Sprintf("boot error: %v", err))
	}

	if s.config.RefreshInterval > 0 {
		s.timer.Every(s.config.RefreshInterval, func(float64) { s.refreshTransport() })
		s.refreshTransport()
	}

	// Start event loop
	go s.processEvents()

	// Block on UI
	err := s.ui.Run()

	// Ensure shutdown of goroutines/resources when UI exits
	s.shutdown()
	<-s.loopDone
	s.engine.Close()
	s.timer.Close()
	close(s.eventsIn)
	return err
}

// processEvents is the main event loop.
func (s *Session) processEvents() {
	defer close(s.loopDone)
	for {
		select {
		case <-s.done:
			return
		case ev := <-s.events:
			s.handleEvent(ev)
		case line := <-s.ui.Input():
			s.handleEvent(event.Event{Type: event.UserInput, Payload: line})
		case ev := <-s.timerEvents:
			s.timer.Dispatch(ev)
		}
		s.processed.Add(1)
		s.pendingCues.Store(int64(s.clock.PendingCount()))
		s.luaCallbacks.Store(int64(s.engine.CallbackCount()))
	}
}

// handleEvent executes a single event on the session loop.
func (s *Session) handleEvent(ev event.Event) {
	switch ev.Type {
	case event.UserInput:
		s.ui.Echo(ev.Payload)
		if !s.engine.OnInput(ev.Payload) {
			s.ui.Print("no input handler; core scripts failed to load?")
		}

	case event.SystemControl:
		s.handleControl(ev.Control)
	}
}

// handleControl processes system control events.
func (s *Session) handleControl(ctrl event.ControlOp) {
	switch ctrl.Action {
	case event.ActionQuit:
		s.shutdown()
	case event.ActionReload:
		s.reload()
	case event.ActionLoadScript:
		s.loadScript(ctrl.ScriptPath)
	}
}

// post queues an event for the session loop.
func (s *Session) post(ev event.Event) {
	select {
	case <-s.done:
	case s.eventsIn <- ev:
	}
}

// boot loads the VM state.
func (s *Session) boot() error {
	if err := s.engine.Init(); err != nil {
		return err
	}
	s.engine.SetConfigDir(s.config.ConfigDir)

	// Load Core Scripts
	if s.config.CoreScripts != nil {
		entries, err := fs.ReadDir(s.config.CoreScripts, "core")
		if err != nil {
			return fmt.Errorf("reading core scripts: %w", err)
		}

		var files []string
		for _, e := range entries {
			if !e.IsDir() {
				files = append(files, e.Name())
			}
		}
		slices.Sort(files)

		for _, file := range files {
			content, err := fs.ReadFile(s.config.CoreScripts, "core/"+file)
			if err != nil {
				return fmt.Errorf("core/%s: %w", file, err)
			}
			if err := s.engine.DoString(file, string(content)); err != nil {
				return fmt.Errorf("core/%s: %w", file, err)
			}
		}
	}

	// Load user init.lua
	if s.config.ConfigDir != "" {
		initPath := filepath.Join(s.config.ConfigDir, "init.lua")
		if _, err := os.Stat(initPath); err == nil {
			if err := s.engine.DoFile(initPath); err != nil {
				return fmt.Errorf("init.lua: %w", err)
			}
		}
	}

	// Load CLI scripts
	for _, path := range s.config.UserScripts {
		if err := s.engine.DoFile(path); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	s.engine.CallHook("ready")
	s.logger.Debug("booted", "scripts", len(s.config.UserScripts), "tempo", s.clock.Tempo())
	return nil
}

func (s *Session) reload() {
	if err := s.boot(); err != nil {
		s.logger.Error("reload failed", "error", err)
		s.ui.Print(fmt.Sprintf("reload failed: %v", err))
		return
	}
	s.engine.CallHook("reloaded")
}

// loadScript loads a Lua script file and notifies hooks. Runs on the session goroutine.
func (s *Session) loadScript(path string) {
	if path == "" {
		s.ui.Print("load failed: empty path")
		return
	}

	if err := s.engine.DoFile(path); err != nil {
		s.ui.Print(fmt.Sprintf("load failed (%s): %v", path, err))
		return
	}

	s.engine.CallHook("loaded", path)
}

func (s *Session) refreshTransport() {
	s.ui.SetTransport(ui.Transport{
		Time:    s.clock.Time(),
		Start:   s.clock.StartTime(),
		Beat:    s.clock.Beat(),
		Tempo:   s.clock.Tempo(),
		Pending: s.clock.PendingCount(),
	})
}

// shutdown stops the loop and timers and asks the UI to exit. Safe to call
// more than once and from the loop itself.
func (s *Session) shutdown() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.timer.CancelAll()
		s.ui.Quit()
	})
}

// Stats returns current counters.
func (s *Session) Stats() Stats {
	return Stats{
		EventsProcessed: s.processed.Load(),
		TimerQueueLen:   len(s.timerEvents),
		TimerQueueCap:   cap(s.timerEvents),
		ActiveTimers:    s.timer.Len(),
		PendingCues:     int(s.pendingCues.Load()),
		LuaCallbacks:    int(s.luaCallbacks.Load()),
		Goroutines:      runtime.NumGoroutine(),
	}
}
