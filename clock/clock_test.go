package clock

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/drake/beatclock/cue"
	"github.com/drake/beatclock/tempo"
	"github.com/drake/beatclock/timer"
)

const eps = 1e-9

type firing struct {
	name string
	at   float64 // source time when the callback ran
	time float64 // target time it was called with
}

// harness wires a Clock to a manual source and records callback firings.
type harness struct {
	src   *timer.Manual
	clock *Clock
	fired []firing
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	src := timer.NewManual(0)
	return &harness{src: src, clock: New(src, opts...)}
}

func (h *harness) callback(name string) *cue.Callback {
	return cue.NewCallback(name, func(t float64) {
		h.fired = append(h.fired, firing{name: name, at: h.src.Now(), time: t})
	})
}

func mustTempo(t *testing.T, c *Clock, bpm, beat float64) {
	t.Helper()
	if _, err := c.SetTempoAt(bpm, beat); err != nil {
		t.Fatalf("SetTempoAt(%v, %v): %v", bpm, beat, err)
	}
}

func TestCurrentBeatFollowsSource(t *testing.T) {
	h := newHarness(t)
	mustTempo(t, h.clock, 120, 0)
	h.src.AdvanceTo(1.5)
	if got := h.clock.Time(); got != 1.5 {
		t.Fatalf("Time = %v, want 1.5", got)
	}
	if got := h.clock.Beat(); math.Abs(got-3) > eps {
		t.Fatalf("Beat = %v, want 3", got)
	}
	if got := h.clock.Tempo(); got != 120 {
		t.Fatalf("Tempo = %v, want 120", got)
	}
}

func TestStartAtMovesOrigin(t *testing.T) {
	h := newHarness(t)
	mustTempo(t, h.clock, 60, 0)
	mustTempo(t, h.clock, 120, 4)
	h.clock.StartAt(10)
	if got := h.clock.StartTime(); got != 10 {
		t.Fatalf("StartTime = %v", got)
	}
	if got := h.clock.TimeAtBeat(6); math.Abs(got-15) > eps {
		t.Fatalf("TimeAtBeat(6) = %v, want 15", got)
	}

	h.src.AdvanceTo(3)
	h.clock.Start()
	if got := h.clock.Beat(); got != 0 {
		t.Fatalf("Beat after Start = %v, want 0", got)
	}
}

func TestStartDoesNotRecue(t *testing.T) {
	h := newHarness(t)
	h.clock.On(2, h.callback("a"))
	h.clock.StartAt(5)
	h.src.AdvanceTo(3)
	if len(h.fired) != 1 || h.fired[0].time != 2 {
		t.Fatalf("fired = %+v, want the cue at its original time 2", h.fired)
	}
}

func TestSetTempoDefaultsToCurrentBeat(t *testing.T) {
	h := newHarness(t)
	h.src.AdvanceTo(3)
	e, err := h.clock.SetTempo(90)
	if err != nil {
		t.Fatal(err)
	}
	if e.Beat != 3 || e.Tempo != 90 {
		t.Fatalf("entry = %+v", e)
	}
	if got := h.clock.Tempos(); len(got) != 1 || got[0] != e {
		t.Fatalf("Tempos = %+v", got)
	}
}

func TestSetTempoInvalidLeavesMapUnchanged(t *testing.T) {
	h := newHarness(t)
	mustTempo(t, h.clock, 100, 0)
	h.clock.On(8, h.callback("a"))
	if _, err := h.clock.SetTempoAt(0, 2); !errors.Is(err, tempo.ErrInvalidTempo) {
		t.Fatalf("err = %v, want ErrInvalidTempo", err)
	}
	if got := h.clock.Tempos(); len(got) != 1 {
		t.Fatalf("Tempos = %+v", got)
	}
	if p := h.clock.Pending(); len(p) != 1 || p[0].Time != h.clock.TimeAtBeat(8) {
		t.Fatalf("pending changed: %+v", p)
	}
}

func TestCueUsesLookahead(t *testing.T) {
	h := newHarness(t)
	h.clock.Cue(2, h.callback("early"))
	h.clock.On(2, h.callback("on"))

	h.src.AdvanceTo(1.95)
	if len(h.fired) != 1 || h.fired[0].name != "early" {
		t.Fatalf("fired = %+v, want only the lookahead cue", h.fired)
	}
	if h.fired[0].time != 2 {
		t.Fatalf("callback time = %v, want target 2", h.fired[0].time)
	}
	h.src.AdvanceTo(2)
	if len(h.fired) != 2 || h.fired[1].name != "on" || h.fired[1].at != 2 {
		t.Fatalf("fired = %+v", h.fired)
	}
}

func TestCustomLookahead(t *testing.T) {
	h := newHarness(t, WithLookahead(-500*time.Millisecond))
	if h.clock.Lookahead() != -500*time.Millisecond {
		t.Fatalf("Lookahead = %v", h.clock.Lookahead())
	}
	h.clock.CueTime(1, h.callback("a"))
	h.clock.CueLead(1, h.callback("b"), -100*time.Millisecond)
	h.src.AdvanceTo(0.5)
	if len(h.fired) != 1 || h.fired[0].name != "a" {
		t.Fatalf("fired = %+v", h.fired)
	}
}

func TestTimeFamilyBypassesTempoMap(t *testing.T) {
	h := newHarness(t)
	mustTempo(t, h.clock, 240, 0)
	h.clock.OnTime(3, h.callback("t"))
	h.clock.On(3, h.callback("b")) // beat 3 is 0.75s
	h.src.AdvanceTo(10)
	if len(h.fired) != 2 {
		t.Fatalf("fired = %+v", h.fired)
	}
	if h.fired[0].name != "b" || math.Abs(h.fired[0].time-0.75) > eps {
		t.Fatalf("beat cue = %+v", h.fired[0])
	}
	if h.fired[1].name != "t" || h.fired[1].time != 3 {
		t.Fatalf("time cue = %+v", h.fired[1])
	}
}

func TestTempoChangeRecuesPendingCues(t *testing.T) {
	h := newHarness(t)
	mustTempo(t, h.clock, 60, 0)
	h.clock.On(1, h.callback("b1"))
	h.clock.On(2, h.callback("b2"))
	h.clock.On(4, h.callback("b4"))
	h.clock.OnTime(6, h.callback("t6"))

	// Doubling the tempo at beat 2 moves beat 4 from 4s to 3s.
	mustTempo(t, h.clock, 120, 2)

	h.src.AdvanceTo(3.5)
	names := make([]string, len(h.fired))
	for i, f := range h.fired {
		names[i] = f.name
	}
	if len(h.fired) != 3 || names[2] != "b4" {
		t.Fatalf("fired = %v, want b1 b2 b4 by 3.5s", names)
	}
	if h.fired[2].at != 3 || h.fired[2].time != 3 {
		t.Fatalf("b4 fired %+v, want at 3 with time 3", h.fired[2])
	}

	// Nothing is left that would fire at the pre-change time of beat 4.
	h.src.AdvanceTo(4)
	if len(h.fired) != 3 {
		t.Fatalf("stale timer fired: %+v", h.fired[3:])
	}
	h.src.AdvanceTo(10)
	if len(h.fired) != 4 || h.fired[3].name != "t6" || h.fired[3].time != 6 {
		t.Fatalf("time cue moved: %+v", h.fired)
	}
}

func TestTempoChangeThenCancelAllLeavesNoTimers(t *testing.T) {
	h := newHarness(t)
	for b := 2.0; b <= 6; b++ {
		h.clock.Cue(b, h.callback("x"))
	}
	mustTempo(t, h.clock, 180, 2)
	if n := h.clock.UncueAll(); n != 5 {
		t.Fatalf("UncueAll = %d, want 5", n)
	}
	if h.src.Len() != 0 {
		t.Fatalf("%d stale timers remain", h.src.Len())
	}
	h.src.AdvanceTo(100)
	if len(h.fired) != 0 {
		t.Fatalf("fired after UncueAll: %+v", h.fired)
	}
}

func TestUncueAllThenTempoChangeFiresNothing(t *testing.T) {
	h := newHarness(t)
	h.clock.Cue(1, h.callback("a"))
	h.clock.CueTime(2, h.callback("b"))
	h.clock.UncueAll()
	mustTempo(t, h.clock, 30, 0)
	h.src.AdvanceTo(60)
	if len(h.fired) != 0 {
		t.Fatalf("fired = %+v", h.fired)
	}
}

func TestRemoveTempoRecues(t *testing.T) {
	h := newHarness(t)
	mustTempo(t, h.clock, 120, 0)
	h.clock.On(4, h.callback("b4")) // 2s
	if !h.clock.RemoveTempo(0) {
		t.Fatal("RemoveTempo = false")
	}
	if h.clock.RemoveTempo(0) {
		t.Fatal("second RemoveTempo = true")
	}
	h.src.AdvanceTo(3)
	if len(h.fired) != 0 {
		t.Fatalf("fired at old time: %+v", h.fired)
	}
	h.src.AdvanceTo(4)
	if len(h.fired) != 1 || h.fired[0].time != 4 {
		t.Fatalf("fired = %+v", h.fired)
	}
}

func TestUncueVariants(t *testing.T) {
	type setup struct {
		h    *harness
		a, b *cue.Callback
	}
	build := func(t *testing.T) setup {
		h := newHarness(t)
		mustTempo(t, h.clock, 120, 0)
		a, b := h.callback("a"), h.callback("b")
		h.clock.Cue(2, a)
		h.clock.Cue(2, b)
		h.clock.Cue(4, a)
		h.clock.CueTime(2, a) // time 2 == beat 4
		return setup{h, a, b}
	}

	tests := []struct {
		name string
		run  func(s setup) int
		want int
	}{
		{"beat any callback", func(s setup) int { return s.h.clock.Uncue(2, nil) }, 2},
		{"beat and callback", func(s setup) int { return s.h.clock.Uncue(2, s.b) }, 1},
		{"beat resolves to shared time", func(s setup) int { return s.h.clock.Uncue(4, nil) }, 2},
		{"callback only", func(s setup) int { return s.h.clock.UncueCallback(s.a) }, 3},
		{"time any callback", func(s setup) int { return s.h.clock.UncueTime(1, nil) }, 2},
		{"time callback only", func(s setup) int { return s.h.clock.UncueTimeCallback(s.b) }, 1},
		{"after beat", func(s setup) int { return s.h.clock.UncueAfter(3, nil) }, 2},
		{"after beat with callback", func(s setup) int { return s.h.clock.UncueAfter(0, s.b) }, 1},
		{"after time", func(s setup) int { return s.h.clock.UncueAfterTime(1.5, s.a) }, 2},
		{"nothing matches", func(s setup) int { return s.h.clock.Uncue(7, nil) }, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := build(t)
			if got := tt.run(s); got != tt.want {
				t.Fatalf("cancelled %d, want %d", got, tt.want)
			}
			if got := s.h.clock.PendingCount(); got != 4-tt.want {
				t.Fatalf("pending = %d, want %d", got, 4-tt.want)
			}
		})
	}
}

func TestUncueAfterKeepsEarlierCue(t *testing.T) {
	h := newHarness(t)
	h.clock.Cue(5, h.callback("late"))
	h.clock.Cue(3, h.callback("early"))
	if n := h.clock.UncueAfter(4, nil); n != 1 {
		t.Fatalf("UncueAfter = %d, want 1", n)
	}
	h.src.AdvanceTo(10)
	if len(h.fired) != 1 || h.fired[0].name != "early" {
		t.Fatalf("fired = %+v", h.fired)
	}
}

func TestCancelTwiceIsNoop(t *testing.T) {
	h := newHarness(t)
	id := h.clock.Cue(1, h.callback("a"))
	if !h.clock.Cancel(id) {
		t.Fatal("Cancel = false")
	}
	if h.clock.Cancel(id) {
		t.Fatal("second Cancel = true")
	}
	if h.src.Cancelled != 1 {
		t.Fatalf("handle cancelled %d times", h.src.Cancelled)
	}
}

func TestCallbackCanScheduleNextBeat(t *testing.T) {
	h := newHarness(t)
	mustTempo(t, h.clock, 120, 0)
	var beats []float64
	var tick *cue.Callback
	next := 0.0
	tick = cue.NewCallback("tick", func(t float64) {
		beats = append(beats, h.clock.BeatAtTime(t))
		next++
		if next < 4 {
			h.clock.On(next, tick)
		}
	})
	h.clock.On(0, tick)
	h.src.AdvanceTo(10)
	if len(beats) != 4 {
		t.Fatalf("beats = %v", beats)
	}
	for i, b := range beats {
		if math.Abs(b-float64(i)) > eps {
			t.Fatalf("beat %d fired as %v", i, b)
		}
	}
}

func TestRateListener(t *testing.T) {
	type change struct{ rate, time float64 }
	var got []change
	h := newHarness(t, WithRateListener(func(rate, time float64) {
		got = append(got, change{rate, time})
	}))
	mustTempo(t, h.clock, 120, 4)
	if len(got) != 1 || got[0] != (change{2, 4}) {
		t.Fatalf("changes = %+v", got)
	}

	// An earlier change moves the later entry, so both are reported.
	got = nil
	mustTempo(t, h.clock, 240, 0)
	want := []change{{4, 0}, {2, 1}}
	if len(got) != len(want) {
		t.Fatalf("changes = %+v, want %+v", got, want)
	}
	for i := range want {
		if math.Abs(got[i].rate-want[i].rate) > eps || math.Abs(got[i].time-want[i].time) > eps {
			t.Fatalf("changes = %+v, want %+v", got, want)
		}
	}

	got = nil
	h.clock.RemoveTempo(0)
	if len(got) != 2 || got[0] != (change{1, 0}) {
		t.Fatalf("after remove changes = %+v", got)
	}
}

func TestStartNotifiesRateListeners(t *testing.T) {
	type change struct{ rate, time float64 }
	var got []change
	h := newHarness(t, WithRateListener(func(rate, time float64) {
		got = append(got, change{rate, time})
	}))
	mustTempo(t, h.clock, 120, 0)
	mustTempo(t, h.clock, 240, 4)

	got = nil
	h.clock.StartAt(10)
	want := []change{{2, 10}, {4, 12}}
	if len(got) != len(want) {
		t.Fatalf("changes = %+v, want %+v", got, want)
	}
	for i := range want {
		if math.Abs(got[i].rate-want[i].rate) > eps || math.Abs(got[i].time-want[i].time) > eps {
			t.Fatalf("changes = %+v, want %+v", got, want)
		}
	}
}
