package event

// Type identifies the source of the message
type Type int

const (
	UserInput     Type = iota
	SystemControl      // Quit, reload, script loading
)

// Control action constants
const (
	ActionQuit       = "quit"
	ActionReload     = "reload"
	ActionLoadScript = "load_script"
)

// ControlOp contains control operation details
type ControlOp struct {
	Action     string // Use Action* constants
	ScriptPath string
}

// Event is the universal packet sent to the session loop.
// Timer firings travel on their own channel as timer.Event.
type Event struct {
	Type    Type
	Payload string    // For user input
	Control ControlOp // For SystemControl events
}
