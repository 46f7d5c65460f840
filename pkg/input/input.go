// Package input reads lines from the terminal and tracks Ctrl-C so the
// chat state machine can tell a single interrupt (cancel the current
// operation) from a second one in a row (exit the session).
package input

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
)

// Source reads one line of user input at a time and exposes the process's
// interrupt signal so long-running operations can race against it.
type Source struct {
	scanner     *bufio.Scanner
	sigCh       chan os.Signal
	interrupted atomic.Int32
	lines       chan lineResult
}

type lineResult struct {
	text string
	err  error
}

// New wraps r (typically os.Stdin) as a Source, starts forwarding
// SIGINT/SIGTERM onto a buffered channel, and starts the single background
// reader goroutine that feeds ReadLine.
func New(r io.Reader) *Source {
	s := &Source{
		scanner: bufio.NewScanner(r),
		sigCh:   make(chan os.Signal, 4),
		lines:   make(chan lineResult, 1),
	}
	s.scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	signal.Notify(s.sigCh, syscall.SIGINT, syscall.SIGTERM)
	go s.readLoop()
	return s
}

// readLoop is the sole goroutine that calls scanner.Scan(); ReadLine never
// touches the scanner directly so repeated calls can't race each other.
func (s *Source) readLoop() {
	for s.scanner.Scan() {
		s.lines <- lineResult{text: s.scanner.Text()}
	}
	err := s.scanner.Err()
	if err == nil {
		err = io.EOF
	}
	s.lines <- lineResult{err: err}
}

// Prompt writes a prompt string without a trailing newline, flushing
// stdout first so it appears before any concurrent log output.
func Prompt(w io.Writer, text string) {
	fmt.Fprint(w, text)
	if f, ok := w.(*os.File); ok {
		_ = f.Sync()
	}
}

// ReadLine blocks for the next line of input, racing it against ctx
// cancellation and the process interrupt signal. A received interrupt
// increments the running count returned by Interrupts and still returns
// ErrInterrupted so the caller can decide whether this is the first or
// second Ctrl-C.
func (s *Source) ReadLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-s.sigCh:
		s.interrupted.Add(1)
		return "", ErrInterrupted
	case res := <-s.lines:
		return strings.TrimRight(res.text, "\r\n"), res.err
	}
}

// Interrupts returns how many SIGINT/SIGTERM signals have been observed
// since the Source was created or last reset. The chat loop resets this
// after every line it reads successfully, so a Ctrl-C followed by normal
// input doesn't make a later Ctrl-C look like a double press.
func (s *Source) Interrupts() int {
	return int(s.interrupted.Load())
}

// ResetInterrupts clears the interrupt counter.
func (s *Source) ResetInterrupts() {
	s.interrupted.Store(0)
}

// ErrInterrupted is returned by ReadLine when Ctrl-C (or SIGTERM) arrived
// instead of a line of text.
var ErrInterrupted = fmt.Errorf("input: interrupted")
