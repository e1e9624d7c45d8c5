package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
)

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	return update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func TestEnterSendsTrimmedLine(t *testing.T) {
	in := make(chan string, 1)
	m := NewModel(in)
	m = typeText(t, m, "  tempo 120 ")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	select {
	case got := <-in:
		if got != "tempo 120" {
			t.Fatalf("sent %q", got)
		}
	default:
		t.Fatal("nothing sent")
	}
	if m.input.Value() != "" {
		t.Fatalf("input not cleared: %q", m.input.Value())
	}
}

func TestEnterOnBlankSendsNothing(t *testing.T) {
	in := make(chan string, 1)
	m := NewModel(in)
	update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if len(in) != 0 {
		t.Fatal("blank line sent")
	}
}

func TestFullInputChannelDropsWithNotice(t *testing.T) {
	in := make(chan string) // unbuffered, no reader
	m := NewModel(in)
	m = typeText(t, m, "where")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if len(m.Lines()) != 1 || !strings.Contains(m.Lines()[0], "input dropped") {
		t.Fatalf("lines = %q", m.Lines())
	}
}

func TestHistoryNavigation(t *testing.T) {
	in := make(chan string, 8)
	m := NewModel(in)
	for _, cmd := range []string{"tempo 90", "where", "where"} {
		m = typeText(t, m, cmd)
		m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	}
	if len(m.history) != 2 {
		t.Fatalf("history = %q, want duplicates collapsed", m.history)
	}

	m = typeText(t, m, "dra")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyUp})
	if m.input.Value() != "where" {
		t.Fatalf("up = %q", m.input.Value())
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyUp})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyUp})
	if m.input.Value() != "tempo 90" {
		t.Fatalf("up up up = %q", m.input.Value())
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if m.input.Value() != "dra" {
		t.Fatalf("back to draft = %q", m.input.Value())
	}
}

func TestCtrlCClearsThenQuits(t *testing.T) {
	m := NewModel(make(chan string, 1))
	m = typeText(t, m, "metro")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = next.(Model)
	if cmd != nil || m.input.Value() != "" {
		t.Fatalf("first ctrl+c: cmd %v input %q", cmd, m.input.Value())
	}
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("second ctrl+c did not quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("second ctrl+c did not return tea.Quit")
	}
}

func TestPrintSplitsAndCapsScrollback(t *testing.T) {
	m := NewModel(make(chan string, 1))
	m.lineLimit = 3
	m = update(t, m, PrintMsg("a\nb"))
	m = update(t, m, PrintMsg("c"))
	m = update(t, m, PrintMsg("d"))
	got := strings.Join(m.Lines(), ",")
	if got != "b,c,d" {
		t.Fatalf("lines = %s", got)
	}
}

func TestViewShowsTransportAndNewestLines(t *testing.T) {
	m := NewModel(make(chan string, 1))
	m = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 4})
	m = update(t, m, TransportMsg{Time: 12.5, Start: 2.5, Beat: 20, Tempo: 120, Pending: 3})
	for _, line := range []string{"one", "two", "three"} {
		m = update(t, m, PrintMsg(line))
	}

	view := m.View()
	for _, want := range []string{"10.000s", "beat     20.00", "120.00 bpm", "3 cues", "two", "three"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
	if strings.Contains(view, "one") {
		t.Errorf("view shows a line that does not fit:\n%s", view)
	}
}

func TestFit(t *testing.T) {
	tests := []struct {
		in    string
		width int
	}{
		{"short", 10},
		{"exactly ten", 11},
		{"much too long for the bar", 8},
		{"▶ │ wide ♩", 6},
	}
	for _, tt := range tests {
		got := fit(tt.in, tt.width)
		if w := runewidth.StringWidth(got); w != tt.width {
			t.Errorf("fit(%q, %d) = %q, width %d", tt.in, tt.width, got, w)
		}
	}
	if got := fit("as is", 0); got != "as is" {
		t.Errorf("fit with zero width = %q", got)
	}
}

func TestConsoleUI(t *testing.T) {
	var out bytes.Buffer
	c := NewConsoleUIWith(strings.NewReader("tempo 120\nwhere\n"), &out)

	errc := make(chan error, 1)
	go func() { errc <- c.Run() }()

	for _, want := range []string{"tempo 120", "where"} {
		select {
		case got := <-c.Input():
			if got != want {
				t.Fatalf("input = %q, want %q", got, want)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for input")
		}
	}

	select {
	case err := <-errc:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return at end of input")
	}
	select {
	case <-c.Done():
	default:
		t.Fatal("Done not closed at end of input")
	}

	c.Print("120.00 bpm")
	if out.String() != "120.00 bpm\n" {
		t.Fatalf("output = %q", out.String())
	}
}
