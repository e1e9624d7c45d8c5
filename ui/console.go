package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"
)

// ConsoleUI implements a simple line-based UI on a reader and writer.
type ConsoleUI struct {
	in  io.Reader
	out io.Writer
	mu  sync.Mutex

	inputChan chan string
	done      chan struct{}
	doneOnce  sync.Once
}

// NewConsoleUI initializes a stdin/stdout based terminal interface.
func NewConsoleUI() *ConsoleUI {
	return NewConsoleUIWith(os.Stdin, os.Stdout)
}

// NewConsoleUIWith reads lines from in and writes to out.
func NewConsoleUIWith(in io.Reader, out io.Writer) *ConsoleUI {
	return &ConsoleUI{
		in:        in,
		out:       out,
		inputChan: make(chan string, 2048),
		done:      make(chan struct{}),
	}
}

// Print writes a line.
func (c *ConsoleUI) Print(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, text)
}

// Echo is silent: the terminal already shows what was typed.
func (c *ConsoleUI) Echo(string) {}

// SetTransport is a no-op; use the where command in simple mode.
func (c *ConsoleUI) SetTransport(Transport) {}

// Input returns the channel for receiving user input
func (c *ConsoleUI) Input() <-chan string {
	return c.inputChan
}

// Run reads lines until the input ends or Quit is called. End of input
// quits.
func (c *ConsoleUI) Run() error {
	scanner := bufio.NewScanner(c.in)
	scanDone := make(chan error, 1)

	go func() {
		for scanner.Scan() {
			select {
			case <-c.done:
				scanDone <- nil
				return
			case c.inputChan <- scanner.Text():
			}
		}
		scanDone <- scanner.Err()
	}()

	select {
	case <-c.done:
		return nil
	case err := <-scanDone:
		c.Quit()
		return err
	}
}

// Done returns a channel that closes when the UI is done
func (c *ConsoleUI) Done() <-chan struct{} {
	return c.done
}

// Quit requests the console UI to exit.
func (c *ConsoleUI) Quit() {
	c.doneOnce.Do(func() {
		close(c.done)
	})
}
