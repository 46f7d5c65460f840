package logx

import (
	"fmt"
	"testing"
)

func ExampleLogger_session_usage() {
	// Example of how the chat client wires one Logger per session through
	// every component it touches.
	fmt.Println("=== Chat Session Logging Demo ===")

	session := NewLogger("session-4f2a")
	session.Info("Starting chat loop")
	SetDebugEnabled(true)
	session.Debug("Loading config from %s", "~/.mcpchat/config.yaml")
	SetDebugEnabled(false)

	registry := NewLogger("session-4f2a")
	registry.Info("Connected MCP server: %s", "filesystem")
	registry.Warn("Server %q sent a malformed notification, dropping it", "filesystem")

	provider := NewLogger("session-4f2a")
	provider.Info("Streaming reply from %s/%s", "anthropic", "claude-sonnet")
	provider.Error("Request failed: %v", "context deadline exceeded")

	session.Info("Exiting")

	fmt.Println("=== End Demo ===")
}

func TestSessionLoggingUsage(t *testing.T) {
	ExampleLogger_session_usage()
}
