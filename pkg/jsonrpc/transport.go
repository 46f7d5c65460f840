package jsonrpc

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"mcpchat/pkg/logx"
	"mcpchat/pkg/mcperrors"
)

// maxLineBytes bounds a single stdio frame; MCP servers are expected to
// emit one JSON value per line, but a misbehaving server could otherwise
// grow the scanner buffer without bound.
const maxLineBytes = 16 * 1024 * 1024

// Transport is a bidirectional line-oriented channel to an MCP server.
// Exactly one JSON-RPC message is sent or received per line.
type Transport interface {
	// Send writes a single framed message line.
	Send(ctx context.Context, line []byte) error
	// Lines returns the channel of raw message lines read from the peer.
	// The channel is closed when the transport shuts down, after which
	// Err reports why.
	Lines() <-chan []byte
	// Err returns the reason Lines() closed, or nil on a clean shutdown.
	Err() error
	// Close terminates the transport and releases its resources.
	Close() error
}

// StdioTransport spawns a server command and speaks line-delimited
// JSON-RPC over its stdin/stdout, logging stderr for diagnostics.
type StdioTransport struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	lines   chan []byte
	logger  *logx.Logger
	closeMu sync.Mutex
	closed  bool
	err     error
}

// StdioConfig describes how to launch an MCP server subprocess.
type StdioConfig struct {
	Command string
	Args    []string
	Env     []string // extra KEY=VALUE entries appended to the current environment
	Dir     string
}

// NewStdioTransport starts the configured command and begins reading its
// stdout in a background goroutine.
func NewStdioTransport(ctx context.Context, cfg StdioConfig, logger *logx.Logger) (*StdioTransport, error) {
	if cfg.Command == "" {
		return nil, mcperrors.New(mcperrors.KindInvalidPath, "empty server command")
	}

	cmd := exec.CommandContext(ctx, cfg.Command, cfg.Args...)
	cmd.Dir = cfg.Dir
	if len(cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), cfg.Env...)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, mcperrors.Wrap(mcperrors.KindTransport, err, "open stdin pipe")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, mcperrors.Wrap(mcperrors.KindTransport, err, "open stdout pipe")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, mcperrors.Wrap(mcperrors.KindTransport, err, "open stderr pipe")
	}

	if err := cmd.Start(); err != nil {
		return nil, mcperrors.Wrap(mcperrors.KindProcessLifecycle, err, fmt.Sprintf("start %s", cfg.Command))
	}

	t := &StdioTransport{
		cmd:    cmd,
		stdin:  stdin,
		lines:  make(chan []byte, 64),
		logger: logger,
	}

	go t.readLoop(stdout)
	go t.drainStderr(stderr)

	return t, nil
}

func (t *StdioTransport) readLoop(r io.Reader) {
	defer close(t.lines)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		cp := make([]byte, len(line))
		copy(cp, line)
		t.lines <- cp
	}

	if err := scanner.Err(); err != nil {
		t.setErr(mcperrors.Wrap(mcperrors.KindTransport, err, "read server stdout"))
		return
	}
	// EOF with no scanner error means the peer closed stdout, typically
	// because the subprocess exited.
	waitErr := t.cmd.Wait()
	if waitErr != nil {
		t.setErr(mcperrors.Wrap(mcperrors.KindProcessLifecycle, waitErr, "server process exited"))
	}
}

func (t *StdioTransport) drainStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		if t.logger != nil {
			t.logger.Debug("server stderr: %s", scanner.Text())
		}
	}
}

func (t *StdioTransport) setErr(err error) {
	t.closeMu.Lock()
	defer t.closeMu.Unlock()
	if t.err == nil {
		t.err = err
	}
}

// Send writes line followed by a newline to the subprocess's stdin.
func (t *StdioTransport) Send(ctx context.Context, line []byte) error {
	done := make(chan error, 1)
	go func() {
		_, err := t.stdin.Write(append(line, '\n'))
		done <- err
	}()

	select {
	case <-ctx.Done():
		return mcperrors.Wrap(mcperrors.KindTimeout, ctx.Err(), "write to server stdin")
	case err := <-done:
		if err != nil {
			return mcperrors.Wrap(mcperrors.KindTransport, err, "write to server stdin")
		}
		return nil
	}
}

// Lines returns the channel of raw message lines.
func (t *StdioTransport) Lines() <-chan []byte {
	return t.lines
}

// Err reports why the read loop stopped.
func (t *StdioTransport) Err() error {
	t.closeMu.Lock()
	defer t.closeMu.Unlock()
	return t.err
}

// Close closes stdin, prompting a well-behaved server to exit, then kills
// the process if it has not exited already.
func (t *StdioTransport) Close() error {
	t.closeMu.Lock()
	if t.closed {
		t.closeMu.Unlock()
		return nil
	}
	t.closed = true
	t.closeMu.Unlock()

	_ = t.stdin.Close()
	if t.cmd.Process != nil {
		_ = t.cmd.Process.Kill()
	}
	return nil
}
