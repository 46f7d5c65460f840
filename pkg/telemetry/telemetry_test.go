package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRequestIncrementsCounters(t *testing.T) {
	r := NewRecorder(nil)
	r.ObserveRequest("anthropic", "claude-sonnet-4", 100, 50, true, "", 200*time.Millisecond)

	if got := testutil.ToFloat64(r.requestsTotal.WithLabelValues("anthropic", "claude-sonnet-4", "success", "")); got != 1 {
		t.Fatalf("requestsTotal = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.tokensTotal.WithLabelValues("anthropic", "claude-sonnet-4", "prompt")); got != 100 {
		t.Fatalf("prompt tokens = %v, want 100", got)
	}
}

func TestObserveRequestFailureSkipsTokenCounts(t *testing.T) {
	r := NewRecorder(nil)
	r.ObserveRequest("openai", "gpt-4o", 10, 5, false, "timeout", time.Second)

	if got := testutil.ToFloat64(r.requestsTotal.WithLabelValues("openai", "gpt-4o", "error", "timeout")); got != 1 {
		t.Fatalf("requestsTotal = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.tokensTotal.WithLabelValues("openai", "gpt-4o", "prompt")); got != 0 {
		t.Fatalf("prompt tokens = %v, want 0 on failure", got)
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.ObserveRequest("anthropic", "claude", 1, 1, true, "", time.Millisecond)
	r.ObserveTool("ls", true, time.Millisecond)
	r.SetServerConnected("fs", true)
	r.IncRetry("anthropic", "claude")
}

func TestObserveToolRecordsOutcome(t *testing.T) {
	r := NewRecorder(nil)
	r.ObserveTool("execute_bash", false, 5*time.Millisecond)

	if got := testutil.ToFloat64(r.toolInvocations.WithLabelValues("execute_bash", "error")); got != 1 {
		t.Fatalf("toolInvocations = %v, want 1", got)
	}
}

func TestSetServerConnectedTogglesGauge(t *testing.T) {
	r := NewRecorder(nil)
	r.SetServerConnected("filesystem", true)
	if got := testutil.ToFloat64(r.serverStatus.WithLabelValues("filesystem")); got != 1 {
		t.Fatalf("serverStatus = %v, want 1", got)
	}
	r.SetServerConnected("filesystem", false)
	if got := testutil.ToFloat64(r.serverStatus.WithLabelValues("filesystem")); got != 0 {
		t.Fatalf("serverStatus = %v, want 0", got)
	}
}
