// Package clock maps beats against time and schedules callbacks at beats or
// times, compensating for dispatch latency with a lookahead.
//
// A Clock composes a tempo.Map, a cue.Set and a timer.Source. Beat-indexed
// operations resolve the beat through the tempo map and then share the
// time-indexed scheduling path. Changing the tempo map recues every pending
// cue whose time depended on the changed segment.
//
// A Clock is not safe for concurrent use. Drive it, and the timer source's
// dispatch, from a single goroutine.
package clock

import (
	"log/slog"
	"time"

	"github.com/drake/beatclock/cue"
	"github.com/drake/beatclock/tempo"
	"github.com/drake/beatclock/timer"
)

// DefaultLookahead fires cues this much before their target time.
const DefaultLookahead = -60 * time.Millisecond

// RateListener is told the rate (beats per second) that takes effect at a
// time. It drives whatever turns the clock into a signal.
type RateListener func(rate, time float64)

// Option configures a Clock.
type Option func(*Clock)

// WithLookahead sets the lead used by Cue and CueTime.
func WithLookahead(lead time.Duration) Option {
	return func(c *Clock) { c.lookahead = lead }
}

// WithLogger sets the logger. The default discards.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Clock) { c.logger = logger }
}

// WithRateListener registers a listener for tempo changes.
func WithRateListener(fn RateListener) Option {
	return func(c *Clock) { c.listeners = append(c.listeners, fn) }
}

// Clock maps beats onto a timer source's timeline.
type Clock struct {
	src       timer.Source
	tempos    *tempo.Map
	cues      *cue.Set
	lookahead time.Duration
	listeners []RateListener
	logger    *slog.Logger
}

// New creates a clock whose beat 0 is the source's current time.
func New(src timer.Source, opts ...Option) *Clock {
	c := &Clock{
		src:       src,
		lookahead: DefaultLookahead,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	c.tempos = tempo.New(src.Now(), c.logger)
	c.cues = cue.NewSet(src, c.logger)
	c.logger = c.logger.With("component", "clock")
	return c
}

// AddRateListener registers fn after construction.
func (c *Clock) AddRateListener(fn RateListener) {
	c.listeners = append(c.listeners, fn)
}

// Lookahead returns the default lead.
func (c *Clock) Lookahead() time.Duration { return c.lookahead }

// StartTime returns the time of beat 0.
func (c *Clock) StartTime() float64 { return c.tempos.Start() }

// Time returns the source's current time.
func (c *Clock) Time() float64 { return c.src.Now() }

// Beat returns the beat at the current time.
func (c *Clock) Beat() float64 { return c.tempos.BeatAtTime(c.src.Now()) }

// Start moves beat 0 to now.
func (c *Clock) Start() { c.StartAt(c.src.Now()) }

// StartAt moves beat 0 to t. Pending cues are not recued: they keep the
// times resolved against the old origin. Re-cue them to follow the restart.
// Rate listeners are told every rate again at its moved time.
func (c *Clock) StartAt(t float64) {
	c.tempos.SetStart(t)
	if n := c.cues.Len(); n > 0 {
		c.logger.Debug("start leaves cues on old origin", "start", t, "pending", n)
	} else {
		c.logger.Debug("start", "start", t)
	}
	c.notify(0)
}

// TimeAtBeat returns the time of beat.
func (c *Clock) TimeAtBeat(beat float64) float64 { return c.tempos.TimeAtBeat(beat) }

// BeatAtTime returns the beat at time t.
func (c *Clock) BeatAtTime(t float64) float64 { return c.tempos.BeatAtTime(t) }

// Tempo returns the tempo at the current beat.
func (c *Clock) Tempo() float64 { return c.tempos.TempoAt(c.Beat()) }

// TempoAt returns the tempo in effect at beat.
func (c *Clock) TempoAt(beat float64) float64 { return c.tempos.TempoAt(beat) }

// Tempos returns the tempo entries in beat order.
func (c *Clock) Tempos() []tempo.Entry { return c.tempos.Entries() }

// SetTempo changes the tempo from the current beat on.
func (c *Clock) SetTempo(bpm float64) (tempo.Entry, error) {
	return c.SetTempoAt(bpm, c.Beat())
}

// SetTempoAt changes the tempo from beat on, replacing any change at that
// beat. Pending cues at or after the beat's time are recued. On error
// nothing changes.
func (c *Clock) SetTempoAt(bpm, beat float64) (tempo.Entry, error) {
	from := c.tempos.TimeAtBeat(beat)
	if err := c.tempos.Upsert(beat, bpm); err != nil {
		return tempo.Entry{}, err
	}
	e := tempo.Entry{Beat: beat, Tempo: bpm}
	n := c.recue(from)
	c.logger.Debug("tempo", "beat", beat, "tempo", bpm, "time", from, "recued", n)
	c.notify(beat)
	return e, nil
}

// RemoveTempo deletes the change at beat and recues like SetTempoAt.
func (c *Clock) RemoveTempo(beat float64) bool {
	from := c.tempos.TimeAtBeat(beat)
	if !c.tempos.RemoveAt(beat) {
		return false
	}
	n := c.recue(from)
	c.logger.Debug("tempo removed", "beat", beat, "recued", n)
	c.notify(beat)
	return true
}

func (c *Clock) recue(from float64) int {
	return c.cues.Recue(from, func(q cue.Cue) float64 {
		if q.Musical {
			return c.tempos.TimeAtBeat(q.Beat)
		}
		return q.Time
	})
}

// notify tells listeners about the rate at beat and at every later change,
// whose times have moved.
func (c *Clock) notify(beat float64) {
	if len(c.listeners) == 0 {
		return
	}
	type change struct{ rate, time float64 }
	changes := []change{{
		rate: tempo.TempoToRate(c.tempos.TempoAt(beat)),
		time: c.tempos.TimeAtBeat(beat),
	}}
	for _, e := range c.tempos.Entries() {
		if e.Beat > beat {
			changes = append(changes, change{e.Rate(), c.tempos.TimeAtBeat(e.Beat)})
		}
	}
	for _, ch := range changes {
		for _, fn := range c.listeners {
			fn(ch.rate, ch.time)
		}
	}
}

// Cue calls cb at beat, fired early by the clock's lookahead.
func (c *Clock) Cue(beat float64, cb *cue.Callback) cue.ID {
	return c.CueLead(beat, cb, c.lookahead)
}

// CueLead calls cb at beat, dispatched lead away from the beat's time.
func (c *Clock) CueLead(beat float64, cb *cue.Callback, lead time.Duration) cue.ID {
	return c.cues.CueBeat(beat, c.tempos.TimeAtBeat(beat), cb, lead)
}

// On calls cb exactly at beat.
func (c *Clock) On(beat float64, cb *cue.Callback) cue.ID {
	return c.CueLead(beat, cb, 0)
}

// CueTime calls cb at time t, fired early by the clock's lookahead.
func (c *Clock) CueTime(t float64, cb *cue.Callback) cue.ID {
	return c.CueTimeLead(t, cb, c.lookahead)
}

// CueTimeLead calls cb at time t, dispatched lead away from t.
func (c *Clock) CueTimeLead(t float64, cb *cue.Callback, lead time.Duration) cue.ID {
	return c.cues.Cue(t, cb, lead)
}

// OnTime calls cb exactly at time t.
func (c *Clock) OnTime(t float64, cb *cue.Callback) cue.ID {
	return c.CueTimeLead(t, cb, 0)
}

// Cancel cancels a single cue.
func (c *Clock) Cancel(id cue.ID) bool { return c.cues.Cancel(id) }

// UncueAll cancels every pending cue.
func (c *Clock) UncueAll() int { return c.cues.CancelAll() }

// Uncue cancels cues at the time of beat. A nil cb matches any callback.
func (c *Clock) Uncue(beat float64, cb *cue.Callback) int {
	return c.cues.CancelAt(c.tempos.TimeAtBeat(beat), cb)
}

// UncueCallback cancels every cue of cb.
func (c *Clock) UncueCallback(cb *cue.Callback) int {
	return c.cues.CancelCallback(cb)
}

// UncueTime cancels cues at exactly time t. A nil cb matches any callback.
func (c *Clock) UncueTime(t float64, cb *cue.Callback) int {
	return c.cues.CancelAt(t, cb)
}

// UncueTimeCallback cancels every cue of cb. It is UncueCallback for the
// time-indexed family.
func (c *Clock) UncueTimeCallback(cb *cue.Callback) int {
	return c.cues.CancelCallback(cb)
}

// UncueAfter cancels cues at or after the time of beat.
func (c *Clock) UncueAfter(beat float64, cb *cue.Callback) int {
	return c.cues.CancelAtOrAfter(c.tempos.TimeAtBeat(beat), cb)
}

// UncueAfterTime cancels cues at or after time t.
func (c *Clock) UncueAfterTime(t float64, cb *cue.Callback) int {
	return c.cues.CancelAtOrAfter(t, cb)
}

// Pending returns the queued cues ordered by time.
func (c *Clock) Pending() []cue.Cue { return c.cues.Pending() }

// PendingCount returns the number of queued cues.
func (c *Clock) PendingCount() int { return c.cues.Len() }
