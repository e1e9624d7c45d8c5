package ui

import (
	"fmt"

	"github.com/mattn/go-runewidth"
)

// Transport is a snapshot of the clock for display.
type Transport struct {
	Time    float64 // seconds on the source timeline
	Start   float64 // time of beat 0
	Beat    float64
	Tempo   float64
	Pending int
}

// String renders the transport as one plain line.
func (t Transport) String() string {
	return fmt.Sprintf("▶ %9.3fs │ beat %9.2f │ %7.2f bpm │ %d cues", t.Time-t.Start, t.Beat, t.Tempo, t.Pending)
}

// fit truncates or pads s to exactly width terminal cells.
func fit(s string, width int) string {
	if width <= 0 {
		return s
	}
	if runewidth.StringWidth(s) > width {
		s = runewidth.Truncate(s, width, "…")
	}
	return runewidth.FillRight(s, width)
}
