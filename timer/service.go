package timer

import (
	"sync"
	"time"
)

// Source is the clock a cue set schedules against. Times are seconds on a
// monotonic timeline. A non-positive delay fires as soon as practical.
type Source interface {
	Now() float64
	After(d time.Duration, fn func(fired float64)) int
	Cancel(id int)
}

// Event is sent when a timer fires. It must be passed back to Dispatch on
// the goroutine that owns the scheduled functions.
type Event struct {
	ID        int
	Repeating bool
}

// Service manages timed wake-ups with full lifecycle ownership.
// It owns: ID generation, scheduling, repeating logic, cancellation.
// Timers fire on runtime goroutines, which only post an Event; the function
// itself runs when the receiver calls Dispatch.
type Service struct {
	events chan<- Event
	timers map[int]*entry
	nextID int
	epoch  time.Time
	stop   chan struct{}
	once   sync.Once
	mu     sync.Mutex
}

type entry struct {
	interval time.Duration // 0 = one-shot, >0 = repeating
	cancel   func() bool   // time.Timer.Stop
	fn       func(fired float64)
	queued   bool // repeating event posted but not yet dispatched
}

var _ Source = (*Service)(nil)

// NewService creates a timer service that sends fired timer events.
func NewService(events chan<- Event) *Service {
	return &Service{
		events: events,
		timers: make(map[int]*entry),
		epoch:  time.Now(),
		stop:   make(chan struct{}),
	}
}

// Now returns seconds since the service was created.
func (s *Service) Now() float64 {
	return time.Since(s.epoch).Seconds()
}

// After schedules a one-shot timer. Returns the timer ID.
func (s *Service) After(d time.Duration, fn func(fired float64)) int {
	return s.schedule(d, 0, fn)
}

// Every schedules a repeating timer. Returns the timer ID.
func (s *Service) Every(d time.Duration, fn func(fired float64)) int {
	return s.schedule(d, d, fn)
}

func (s *Service) schedule(d, interval time.Duration, fn func(float64)) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID

	t := time.AfterFunc(d, func() {
		s.fire(id)
	})

	s.timers[id] = &entry{
		interval: interval,
		cancel:   t.Stop,
		fn:       fn,
	}

	return id
}

// fire posts the timer event and reschedules if repeating.
func (s *Service) fire(id int) {
	s.mu.Lock()
	e, ok := s.timers[id]
	if !ok {
		s.mu.Unlock()
		return // Cancelled before firing
	}

	repeating := e.interval > 0
	if repeating {
		// Fixed-interval: reschedule immediately
		t := time.AfterFunc(e.interval, func() {
			s.fire(id)
		})
		e.cancel = t.Stop

		// Ticks coalesce while the receiver is behind
		if e.queued {
			s.mu.Unlock()
			return
		}
		e.queued = true
	}
	s.mu.Unlock()

	// One-shot events carry cues and are never dropped: the send waits for
	// the receiver or Close.
	select {
	case s.events <- Event{ID: id, Repeating: repeating}:
	case <-s.stop:
	}
}

// Dispatch runs the function of a fired timer. One-shot timers are removed
// first. A timer cancelled after it fired but before dispatch is ignored.
func (s *Service) Dispatch(ev Event) {
	s.mu.Lock()
	e, ok := s.timers[ev.ID]
	if !ok {
		s.mu.Unlock()
		return
	}
	if e.interval == 0 {
		delete(s.timers, ev.ID)
	} else {
		e.queued = false
	}
	fn := e.fn
	s.mu.Unlock()

	if fn != nil {
		fn(s.Now())
	}
}

// Cancel stops a timer and removes it.
func (s *Service) Cancel(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.timers[id]; ok {
		e.cancel()
		delete(s.timers, id)
	}
}

// CancelAll stops all timers and clears the map.
func (s *Service) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.timers {
		e.cancel()
	}
	s.timers = make(map[int]*entry)
}

// Len returns the number of live timers.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Close cancels every timer and releases goroutines blocked posting events.
func (s *Service) Close() {
	s.once.Do(func() {
		close(s.stop)
	})
	s.CancelAll()
}
