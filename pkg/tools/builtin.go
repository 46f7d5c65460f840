package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"

	"mcpchat/pkg/mcperrors"
)

// ExecuteShellTool runs a shell command on the host: stdout/stderr
// captured separately, exit code reported rather than surfaced as an
// error. It is one of the three tools (with fs_read and fs_write) the
// client itself implements rather than proxying to an MCP server.
type ExecuteShellTool struct{}

// NewExecuteShellTool creates the built-in shell tool.
func NewExecuteShellTool() *ExecuteShellTool { return &ExecuteShellTool{} }

// Name returns the tool identifier the model uses.
func (s *ExecuteShellTool) Name() string { return "execute_bash" }

// Description documents the tool's purpose and parameters for the model.
func (s *ExecuteShellTool) Description() string {
	return "Execute a shell command on the local machine and return its stdout, stderr, and exit code."
}

// InputSchema returns the JSON Schema for this tool's arguments.
func (s *ExecuteShellTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"command": {"type": "string", "description": "the shell command to run"},
			"cwd": {"type": "string", "description": "working directory, defaults to the current one"}
		},
		"required": ["command"]
	}`)
}

// RequiresAcceptance is always true: arbitrary shell execution is the
// highest-risk built-in action the client can take on the model's behalf.
func (s *ExecuteShellTool) RequiresAcceptance() bool { return true }

// Invoke runs the requested command and returns its captured output.
func (s *ExecuteShellTool) Invoke(ctx context.Context, args map[string]any) (*Result, error) {
	command, ok := args["command"].(string)
	if !ok || command == "" {
		return nil, mcperrors.New(mcperrors.KindClient, "command argument is required")
	}

	cwd, _ := args["cwd"].(string)

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	if cwd != "" {
		if _, err := os.Stat(cwd); err != nil {
			return nil, mcperrors.Wrap(mcperrors.KindInvalidPath, err, "working directory does not exist")
		}
		cmd.Dir = cwd
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if ok := asExitError(runErr, &exitErr); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, mcperrors.Wrap(mcperrors.KindIO, runErr, "failed to execute command")
		}
	}

	content := fmt.Sprintf("exit_code: %d\nstdout:\n%s\nstderr:\n%s", exitCode, stdout.String(), stderr.String())
	return &Result{Content: content, IsError: exitCode != 0}, nil
}

func asExitError(err error, target **exec.ExitError) bool {
	if ee, ok := err.(*exec.ExitError); ok {
		*target = ee
		return true
	}
	return false
}

// ReadFileTool reads a file from the local filesystem. Read-only, so it
// never requires acceptance.
type ReadFileTool struct{}

// NewReadFileTool creates the built-in file-read tool.
func NewReadFileTool() *ReadFileTool { return &ReadFileTool{} }

// Name returns the tool identifier the model uses.
func (t *ReadFileTool) Name() string { return "fs_read" }

// Description documents the tool's purpose and parameters for the model.
func (t *ReadFileTool) Description() string {
	return "Read the contents of a file on the local filesystem and return it as text."
}

// InputSchema returns the JSON Schema for this tool's arguments.
func (t *ReadFileTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"path": {"type": "string", "description": "path to the file to read"}
		},
		"required": ["path"]
	}`)
}

// RequiresAcceptance is always false: reading a file cannot mutate state.
func (t *ReadFileTool) RequiresAcceptance() bool { return false }

// Invoke reads the requested file and returns its contents.
func (t *ReadFileTool) Invoke(_ context.Context, args map[string]any) (*Result, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, mcperrors.New(mcperrors.KindClient, "path argument is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return &Result{Content: err.Error(), IsError: true}, nil
	}
	return &Result{Content: string(data)}, nil
}

// WriteFileTool writes (creating or overwriting) a file on the local
// filesystem. Mutates host state, so it always requires acceptance.
type WriteFileTool struct{}

// NewWriteFileTool creates the built-in file-write tool.
func NewWriteFileTool() *WriteFileTool { return &WriteFileTool{} }

// Name returns the tool identifier the model uses.
func (t *WriteFileTool) Name() string { return "fs_write" }

// Description documents the tool's purpose and parameters for the model.
func (t *WriteFileTool) Description() string {
	return "Write text content to a file on the local filesystem, creating it or overwriting it entirely."
}

// InputSchema returns the JSON Schema for this tool's arguments.
func (t *WriteFileTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"path": {"type": "string", "description": "path to the file to write"},
			"content": {"type": "string", "description": "text content to write"}
		},
		"required": ["path", "content"]
	}`)
}

// RequiresAcceptance is always true: writing to the filesystem can
// destroy existing content.
func (t *WriteFileTool) RequiresAcceptance() bool { return true }

// Invoke writes the requested content to path, creating the file with mode
// 0644 or truncating an existing one. Parent directories are not created.
func (t *WriteFileTool) Invoke(_ context.Context, args map[string]any) (*Result, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, mcperrors.New(mcperrors.KindClient, "path argument is required")
	}
	content, ok := args["content"].(string)
	if !ok {
		return nil, mcperrors.New(mcperrors.KindClient, "content argument is required")
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return &Result{Content: err.Error(), IsError: true}, nil
	}
	return &Result{Content: fmt.Sprintf("wrote %d bytes to %s", len(content), path)}, nil
}
