package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// BubbleTeaUI implements UI using Bubble Tea.
// It bridges the session's channel-based loop with Bubble Tea's
// model/update/view event loop.
type BubbleTeaUI struct {
	program   *tea.Program
	inputChan chan string

	// Synchronization for startup
	ready     chan struct{}
	readyOnce sync.Once

	// Shutdown coordination
	done     chan struct{}
	doneOnce sync.Once

	// Messages queued before the program starts
	pendingMsgs  []tea.Msg
	pendingMsgMu sync.Mutex
}

// NewBubbleTeaUI creates a new Bubble Tea-based UI.
func NewBubbleTeaUI() *BubbleTeaUI {
	return &BubbleTeaUI{
		inputChan: make(chan string, 100),
		ready:     make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// sendOrQueue sends a message to the program, or queues it if not ready yet.
func (b *BubbleTeaUI) sendOrQueue(msg tea.Msg) {
	select {
	case <-b.ready:
		b.program.Send(msg)
	default:
		b.pendingMsgMu.Lock()
		b.pendingMsgs = append(b.pendingMsgs, msg)
		b.pendingMsgMu.Unlock()
	}
}

// Print appends a line to the scrollback.
func (b *BubbleTeaUI) Print(text string) {
	b.sendOrQueue(PrintMsg(text))
}

// Echo shows a line the user entered.
func (b *BubbleTeaUI) Echo(text string) {
	b.sendOrQueue(EchoMsg(text))
}

// SetTransport updates the transport bar. Updates before the program
// starts are dropped; the next refresh replaces them anyway.
func (b *BubbleTeaUI) SetTransport(t Transport) {
	select {
	case <-b.ready:
		b.program.Send(TransportMsg(t))
	default:
	}
}

// Input returns the channel of entered lines.
func (b *BubbleTeaUI) Input() <-chan string {
	return b.inputChan
}

// Run starts the TUI and blocks until exit.
func (b *BubbleTeaUI) Run() error {
	b.program = tea.NewProgram(
		NewModel(b.inputChan),
		tea.WithAltScreen(),
		tea.WithInputTTY(),
	)

	// Flush queued messages once the program loop is running
	go func() {
		b.pendingMsgMu.Lock()
		msgs := b.pendingMsgs
		b.pendingMsgs = nil
		b.pendingMsgMu.Unlock()

		for _, msg := range msgs {
			b.program.Send(msg)
		}
	}()

	b.readyOnce.Do(func() {
		close(b.ready)
	})

	// Run blocks until quit
	_, err := b.program.Run()

	b.doneOnce.Do(func() {
		close(b.done)
	})

	return err
}

// Done returns a channel that closes when the UI exits.
func (b *BubbleTeaUI) Done() <-chan struct{} {
	return b.done
}

// Quit signals the TUI to exit.
func (b *BubbleTeaUI) Quit() {
	select {
	case <-b.ready:
		if b.program != nil {
			b.program.Quit()
		}
	default:
		// Not started yet, just close done
		b.doneOnce.Do(func() {
			close(b.done)
		})
	}
}
