// Package tempo maps beats onto clock time through an ordered set of tempo changes.
package tempo

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
)

// DefaultTempo is the tempo implied before the first entry and when the map is empty.
const DefaultTempo = 60.0

var (
	// ErrInvalidTempo is returned for tempos that are not finite and positive.
	ErrInvalidTempo = errors.New("tempo must be finite and greater than zero")
	// ErrInvalidBeat is returned for beats that are not finite and non-negative.
	ErrInvalidBeat = errors.New("beat must be finite and non-negative")
)

// TempoToRate converts beats per minute to beats per second.
func TempoToRate(tempo float64) float64 { return tempo / 60 }

// RateToTempo converts beats per second to beats per minute.
func RateToTempo(rate float64) float64 { return rate * 60 }

// Entry is a tempo change taking effect at Beat (inclusive).
type Entry struct {
	Beat  float64
	Tempo float64
}

// Rate returns the entry's tempo in beats per second.
func (e Entry) Rate() float64 { return TempoToRate(e.Tempo) }

// entry is the stored form of an Entry. elapsed memoizes the seconds from the
// map's start time to Beat and is only meaningful while cached is set.
type entry struct {
	Entry
	elapsed float64
	cached  bool
}

// Map is a piecewise-linear beat<->time function. Entries are kept sorted by
// beat and beats are unique. A Map is not safe for concurrent use.
type Map struct {
	start   float64
	entries []*entry
	logger  *slog.Logger
}

// New creates an empty map whose beat 0 falls at start.
func New(start float64, logger *slog.Logger) *Map {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Map{
		start:  start,
		logger: logger.With("component", "tempo"),
	}
}

// Start returns the time of beat 0.
func (m *Map) Start() float64 { return m.start }

// SetStart moves the time of beat 0 and drops every memoized time.
func (m *Map) SetStart(t float64) {
	m.start = t
	m.invalidateFrom(math.Inf(-1))
}

// Len returns the number of tempo entries.
func (m *Map) Len() int { return len(m.entries) }

// Entries returns a copy of the entries in ascending beat order.
func (m *Map) Entries() []Entry {
	out := make([]Entry, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Entry
	}
	return out
}

// Lookup returns the entry starting exactly at beat.
func (m *Map) Lookup(beat float64) (Entry, bool) {
	i, ok := m.find(beat)
	if !ok {
		return Entry{}, false
	}
	return m.entries[i].Entry, true
}

// Upsert inserts a tempo change at beat, replacing any entry already there.
// On error the map is left unchanged.
func (m *Map) Upsert(beat, tempo float64) error {
	if math.IsNaN(beat) || math.IsInf(beat, 0) || beat < 0 {
		return fmt.Errorf("upsert at beat %v: %w", beat, ErrInvalidBeat)
	}
	if math.IsNaN(tempo) || math.IsInf(tempo, 0) || tempo <= 0 {
		return fmt.Errorf("upsert %v bpm: %w", tempo, ErrInvalidTempo)
	}

	e := &entry{Entry: Entry{Beat: beat, Tempo: tempo}}
	if i, ok := m.find(beat); ok {
		m.entries[i] = e
	} else {
		m.entries = slices.Insert(m.entries, i, e)
	}
	m.invalidateFrom(beat)
	m.logger.Debug("upsert", "beat", beat, "tempo", tempo, "entries", len(m.entries))
	return nil
}

// RemoveAt deletes the entry at beat. It reports whether one existed.
func (m *Map) RemoveAt(beat float64) bool {
	i, ok := m.find(beat)
	if !ok {
		return false
	}
	m.entries = slices.Delete(m.entries, i, i+1)
	m.invalidateFrom(beat)
	return true
}

// RemoveAfter deletes every entry at or after beat and returns how many went.
func (m *Map) RemoveAfter(beat float64) int {
	i, _ := m.find(beat)
	n := len(m.entries) - i
	if n == 0 {
		return 0
	}
	m.entries = m.entries[:i]
	return n
}

// Invalidate drops memoized times of entries at or after beat.
func (m *Map) Invalidate(beat float64) {
	m.invalidateFrom(beat)
}

// invalidateFrom clears the memo on entries with Beat >= beat. Their times
// integrate over the changed segment.
func (m *Map) invalidateFrom(beat float64) {
	for _, e := range m.entries {
		if e.Beat >= beat {
			e.cached = false
		}
	}
}

// find returns the index of beat, or its insertion point.
func (m *Map) find(beat float64) (int, bool) {
	return slices.BinarySearchFunc(m.entries, beat, func(e *entry, b float64) int {
		switch {
		case e.Beat < b:
			return -1
		case e.Beat > b:
			return 1
		}
		return 0
	})
}

// elapsedAt returns the memoized seconds from start to entry i, filling the
// memo for i and every earlier entry as needed.
func (m *Map) elapsedAt(i int) float64 {
	e := m.entries[i]
	if e.cached {
		return e.elapsed
	}
	prevBeat, rate, elapsed := 0.0, 1.0, 0.0
	if i > 0 {
		prev := m.entries[i-1]
		prevBeat, rate, elapsed = prev.Beat, prev.Rate(), m.elapsedAt(i-1)
	}
	e.elapsed = elapsed + (e.Beat-prevBeat)/rate
	e.cached = true
	return e.elapsed
}

// TempoAt returns the tempo in effect at beat. A change at exactly beat applies.
func (m *Map) TempoAt(beat float64) float64 {
	i, ok := m.find(beat)
	if !ok {
		i--
	}
	if i < 0 {
		return DefaultTempo
	}
	return m.entries[i].Tempo
}

// TimeAtBeat returns the clock time of beat.
func (m *Map) TimeAtBeat(beat float64) float64 {
	// segment is the last entry strictly before beat; a beat sitting exactly
	// on an entry is reached through the previous segment, which is
	// continuous with the entry's own.
	segment, _ := m.find(beat)
	segment--
	if segment < 0 {
		return m.start + beat
	}
	e := m.entries[segment]
	return m.start + m.elapsedAt(segment) + (beat-e.Beat)/e.Rate()
}

// BeatAtTime returns the beat at clock time t. It is the inverse of TimeAtBeat.
func (m *Map) BeatAtTime(t float64) float64 {
	// Before the first entry the implicit segment runs at rate 1 from the
	// start time, which also covers t < start.
	beat, origin, rate := 0.0, m.start, 1.0
	for i, e := range m.entries {
		at := m.start + m.elapsedAt(i)
		if at > t {
			break
		}
		beat, origin, rate = e.Beat, at, e.Rate()
	}
	return beat + (t-origin)*rate
}
