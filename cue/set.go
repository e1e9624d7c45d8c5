// Package cue keeps pending timed callbacks and dispatches them early or late
// by a lead offset through a timer.Source.
package cue

import (
	"cmp"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/drake/beatclock/timer"
)

// Callback is the function a cue fires with its target time. Callbacks are
// compared by pointer identity, so the same *Callback must be passed to
// cancel what it scheduled.
type Callback struct {
	name string
	fn   func(time float64)

	pending int
	idle    func()
}

// NewCallback wraps fn. The name is only used in logs.
func NewCallback(name string, fn func(time float64)) *Callback {
	return &Callback{name: name, fn: fn}
}

// Name returns the callback's log name.
func (c *Callback) Name() string {
	if c == nil {
		return ""
	}
	return c.name
}

// Call invokes the callback with time.
func (c *Callback) Call(time float64) {
	if c != nil && c.fn != nil {
		c.fn(time)
	}
}

// OnIdle sets fn to run whenever the callback's last pending cue fires or
// is cancelled. It runs before the firing cue's callback.
func (c *Callback) OnIdle(fn func()) {
	if c != nil {
		c.idle = fn
	}
}

// Pending returns the number of queued cues for the callback.
func (c *Callback) Pending() int {
	if c == nil {
		return 0
	}
	return c.pending
}

func (c *Callback) retain() {
	if c != nil {
		c.pending++
	}
}

func (c *Callback) release() {
	if c == nil || c.pending == 0 {
		return
	}
	c.pending--
	if c.pending == 0 && c.idle != nil {
		c.idle()
	}
}

// ID identifies a scheduled cue.
type ID uint64

// Cue is a pending callback. Musical cues were placed at Beat and follow
// tempo changes when recued; other cues stay at Time.
type Cue struct {
	ID       ID
	Time     float64
	Lead     time.Duration
	Beat     float64
	Musical  bool
	Callback *Callback

	handle int
}

// Set is the collection of pending cues. It is not safe for concurrent use;
// callbacks run on the goroutine driving the timer source and may freely
// cue and cancel.
type Set struct {
	src    timer.Source
	cues   map[ID]*Cue
	nextID ID
	logger *slog.Logger
}

// NewSet creates an empty set scheduling against src.
func NewSet(src timer.Source, logger *slog.Logger) *Set {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Set{
		src:    src,
		cues:   make(map[ID]*Cue),
		logger: logger.With("component", "cue"),
	}
}

// Delay returns how long from now a cue for target fires given lead.
// Millisecond resolution; the result may be negative.
func Delay(now, target float64, lead time.Duration) time.Duration {
	ms := math.Floor((target - now) * 1000)
	return time.Duration(ms)*time.Millisecond + lead
}

// Cue schedules cb to be called with t at t+lead.
func (s *Set) Cue(t float64, cb *Callback, lead time.Duration) ID {
	return s.add(&Cue{Time: t, Lead: lead, Callback: cb})
}

// CueBeat is Cue for a time resolved from beat. The beat is kept so Recue
// can retime the cue.
func (s *Set) CueBeat(beat, t float64, cb *Callback, lead time.Duration) ID {
	return s.add(&Cue{Time: t, Lead: lead, Beat: beat, Musical: true, Callback: cb})
}

func (s *Set) add(c *Cue) ID {
	s.nextID++
	c.ID = s.nextID
	s.cues[c.ID] = c
	c.Callback.retain()
	s.dispatch(c)
	s.logger.Debug("cue", "id", c.ID, "time", c.Time, "lead", c.Lead, "callback", c.Callback.Name())
	return c.ID
}

func (s *Set) dispatch(c *Cue) {
	id := c.ID
	c.handle = s.src.After(Delay(s.src.Now(), c.Time, c.Lead), func(float64) {
		s.fire(id)
	})
}

// fire removes the cue before calling it, so the callback sees a set
// without itself and cancelling it from inside is a no-op.
func (s *Set) fire(id ID) {
	c, ok := s.cues[id]
	if !ok {
		return
	}
	delete(s.cues, id)
	c.Callback.release()
	s.logger.Debug("fire", "id", id, "time", c.Time, "callback", c.Callback.Name())
	c.Callback.Call(c.Time)
}

// Len returns the number of pending cues.
func (s *Set) Len() int { return len(s.cues) }

// Get returns a copy of a pending cue.
func (s *Set) Get(id ID) (Cue, bool) {
	c, ok := s.cues[id]
	if !ok {
		return Cue{}, false
	}
	return *c, true
}

// Pending returns copies of the pending cues ordered by time, then ID.
func (s *Set) Pending() []Cue {
	snap := s.snapshot()
	out := make([]Cue, len(snap))
	for i, c := range snap {
		out[i] = *c
	}
	return out
}

func (s *Set) snapshot() []*Cue {
	snap := make([]*Cue, 0, len(s.cues))
	for _, c := range s.cues {
		snap = append(snap, c)
	}
	slices.SortFunc(snap, func(a, b *Cue) int {
		if c := cmp.Compare(a.Time, b.Time); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return snap
}

// Cancel cancels one cue. Unknown or already fired IDs return false.
func (s *Set) Cancel(id ID) bool {
	c, ok := s.cues[id]
	if !ok {
		return false
	}
	s.remove(c)
	return true
}

func (s *Set) remove(c *Cue) {
	delete(s.cues, c.ID)
	s.src.Cancel(c.handle)
	c.Callback.release()
	s.logger.Debug("cancel", "id", c.ID, "time", c.Time, "callback", c.Callback.Name())
}

// cancelWhere cancels every cue for which match is true. It scans a
// snapshot so the live map can change underneath.
func (s *Set) cancelWhere(match func(*Cue) bool) int {
	n := 0
	for _, c := range s.snapshot() {
		if _, live := s.cues[c.ID]; !live || !match(c) {
			continue
		}
		s.remove(c)
		n++
	}
	return n
}

// CancelAll cancels every pending cue.
func (s *Set) CancelAll() int {
	return s.cancelWhere(func(*Cue) bool { return true })
}

// CancelAt cancels cues at exactly t. A nil cb matches any callback.
func (s *Set) CancelAt(t float64, cb *Callback) int {
	return s.cancelWhere(func(c *Cue) bool {
		return c.Time == t && (cb == nil || c.Callback == cb)
	})
}

// CancelCallback cancels every cue of cb regardless of time.
func (s *Set) CancelCallback(cb *Callback) int {
	if cb == nil {
		return 0
	}
	return s.cancelWhere(func(c *Cue) bool { return c.Callback == cb })
}

// CancelAtOrAfter cancels cues with Time >= t. A nil cb matches any callback.
func (s *Set) CancelAtOrAfter(t float64, cb *Callback) int {
	return s.cancelWhere(func(c *Cue) bool {
		return c.Time >= t && (cb == nil || c.Callback == cb)
	})
}

// Recue reschedules cues with Time >= from. retime returns each cue's new
// target time; a cue whose time is unchanged keeps its dispatch handle.
// Returns the number of cues rescheduled.
func (s *Set) Recue(from float64, retime func(Cue) float64) int {
	n := 0
	for _, c := range s.snapshot() {
		if _, live := s.cues[c.ID]; !live || c.Time < from {
			continue
		}
		t := retime(*c)
		if t == c.Time {
			continue
		}
		s.src.Cancel(c.handle)
		s.logger.Debug("recue", "id", c.ID, "from", c.Time, "to", t)
		c.Time = t
		s.dispatch(c)
		n++
	}
	return n
}
