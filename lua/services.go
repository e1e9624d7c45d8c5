package lua

import (
	"time"

	"github.com/drake/beatclock/cue"
	"github.com/drake/beatclock/tempo"
)

// ClockService is the beat clock scripts drive. *clock.Clock implements it.
type ClockService interface {
	Time() float64
	Beat() float64
	StartTime() float64
	Start()
	StartAt(t float64)

	Tempo() float64
	TempoAt(beat float64) float64
	Tempos() []tempo.Entry
	SetTempo(bpm float64) (tempo.Entry, error)
	SetTempoAt(bpm, beat float64) (tempo.Entry, error)
	RemoveTempo(beat float64) bool
	TimeAtBeat(beat float64) float64
	BeatAtTime(t float64) float64

	Lookahead() time.Duration
	CueLead(beat float64, cb *cue.Callback, lead time.Duration) cue.ID
	CueTimeLead(t float64, cb *cue.Callback, lead time.Duration) cue.ID
	Cancel(id cue.ID) bool
	UncueAll() int
	Uncue(beat float64, cb *cue.Callback) int
	UncueCallback(cb *cue.Callback) int
	UncueTime(t float64, cb *cue.Callback) int
	UncueAfter(beat float64, cb *cue.Callback) int
	UncueAfterTime(t float64, cb *cue.Callback) int
	Pending() []cue.Cue
}

// UIService handles visual elements.
type UIService interface {
	Print(text string)
}

// SystemService handles app lifecycle.
type SystemService interface {
	Quit()
	Reload()
	Load(path string)
}
