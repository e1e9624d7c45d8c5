package ui

// UI defines the contract for the terminal display layer.
// BubbleTeaUI and ConsoleUI implement it.
type UI interface {
	Run() error
	Quit()
	Done() <-chan struct{}

	// Input/Output
	Input() <-chan string
	Print(text string)
	Echo(text string)

	// Updates
	SetTransport(t Transport)
}

var (
	_ UI = (*BubbleTeaUI)(nil)
	_ UI = (*ConsoleUI)(nil)
)
