package logx

import (
	"testing"
	"time"
)

// TestDebugToggle verifies debug logging can be enabled/disabled.
func TestDebugToggle(t *testing.T) {
	SetDebugEnabled(false)
	defer SetDebugEnabled(false)

	if IsDebugEnabled() {
		t.Error("Debug should be disabled after SetDebugEnabled(false)")
	}

	SetDebugEnabled(true)
	if !IsDebugEnabled() {
		t.Error("Debug should be enabled after SetDebugEnabled(true)")
	}

	SetDebugEnabled(false)
	if IsDebugEnabled() {
		t.Error("Debug should be disabled after SetDebugEnabled(false)")
	}
}

// TestDebugBackwardsCompatibility verifies the level methods don't panic or
// error regardless of debug toggle state.
func TestDebugBackwardsCompatibility(t *testing.T) {
	logger := NewLogger("session-1")

	SetDebugEnabled(true)
	defer SetDebugEnabled(false)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warning message")
	logger.Error("error message")
}

// TestConcurrentDebugConfig verifies thread-safe configuration changes.
func TestConcurrentDebugConfig(t *testing.T) {
	const numGoroutines = 10
	const numIterations = 100

	done := make(chan bool, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer func() { done <- true }()

			logger := NewLogger("concurrent-session")

			for j := 0; j < numIterations; j++ {
				enabled := (j % 2) == 0
				SetDebugEnabled(enabled)
				logger.Debug("concurrent debug test %d-%d", id, j)
				IsDebugEnabled()
			}
		}(i)
	}

	for i := 0; i < numGoroutines; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("concurrent test timed out")
		}
	}

	SetDebugEnabled(false)
}
