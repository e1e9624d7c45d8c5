package ui

// PrintMsg appends a line to the scrollback.
type PrintMsg string

// EchoMsg appends a line the user typed to the scrollback.
type EchoMsg string

// TransportMsg replaces the transport bar contents.
type TransportMsg Transport
