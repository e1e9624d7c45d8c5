package timer

import (
	"math"
	"time"
)

// Manual is a Source whose time only moves when Advance is called. Due
// functions run synchronously inside Advance, earliest first, on the caller's
// goroutine. It is used for tests and offline rendering.
type Manual struct {
	now     float64
	nextID  int
	pending map[int]*manualTimer

	// Cancelled counts Cancel calls that removed a live timer.
	Cancelled int
}

type manualTimer struct {
	at float64
	fn func(fired float64)
}

var _ Source = (*Manual)(nil)

// NewManual creates a manual source reading start.
func NewManual(start float64) *Manual {
	return &Manual{
		now:     start,
		pending: make(map[int]*manualTimer),
	}
}

// Now returns the current manual time.
func (m *Manual) Now() float64 { return m.now }

// After schedules fn to run once d has elapsed.
func (m *Manual) After(d time.Duration, fn func(fired float64)) int {
	m.nextID++
	m.pending[m.nextID] = &manualTimer{at: m.now + d.Seconds(), fn: fn}
	return m.nextID
}

// Cancel removes a pending timer.
func (m *Manual) Cancel(id int) {
	if _, ok := m.pending[id]; ok {
		delete(m.pending, id)
		m.Cancelled++
	}
}

// Len returns the number of pending timers.
func (m *Manual) Len() int { return len(m.pending) }

// Advance moves time forward by d, running due timers in order.
func (m *Manual) Advance(d time.Duration) int {
	return m.AdvanceTo(m.now + d.Seconds())
}

// AdvanceTo moves time to t, running every timer due at or before t. Timers
// scheduled by a running function are eligible in the same call. Equal due
// times run in scheduling order. Returns the number of functions run.
func (m *Manual) AdvanceTo(t float64) int {
	ran := 0
	for {
		id, next := m.earliest()
		if next == nil || next.at > t {
			break
		}
		delete(m.pending, id)
		if next.at > m.now {
			m.now = next.at
		}
		next.fn(m.now)
		ran++
	}
	if t > m.now {
		m.now = t
	}
	return ran
}

func (m *Manual) earliest() (int, *manualTimer) {
	bestID, best := 0, (*manualTimer)(nil)
	bestAt := math.Inf(1)
	for id, mt := range m.pending {
		if mt.at < bestAt || (mt.at == bestAt && id < bestID) {
			bestID, best, bestAt = id, mt, mt.at
		}
	}
	return bestID, best
}
