// Package telemetry records Prometheus metrics for model requests, tool
// invocations, and MCP server health so a long-running chat session can be
// observed the same way the rest of this codebase instruments LLM calls.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder records chat-session metrics. A nil *Recorder is safe to call
// every method on — callers that don't want telemetry just pass nil rather
// than threading an enabled flag through every call site.
type Recorder struct {
	requestsTotal   *prometheus.CounterVec
	tokensTotal     *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	toolInvocations *prometheus.CounterVec
	toolDuration    *prometheus.HistogramVec
	serverStatus    *prometheus.GaugeVec
	retriesTotal    *prometheus.CounterVec
}

// NewRecorder builds a Recorder and registers its collectors with reg. Pass
// nil to register against a fresh, private registry (the right choice for
// tests and for any caller that doesn't want to touch the global default
// registerer); pass prometheus.DefaultRegisterer to expose metrics on the
// process-wide /metrics endpoint.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Recorder{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpchat_llm_requests_total",
				Help: "Total number of LLM requests by provider, model, and outcome",
			},
			[]string{"provider", "model", "status", "error_kind"},
		),
		tokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpchat_llm_tokens_total",
				Help: "Total tokens exchanged with the model, by provider, model, and direction",
			},
			[]string{"provider", "model", "direction"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mcpchat_llm_request_duration_seconds",
				Help:    "Duration of LLM requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider", "model"},
		),
		toolInvocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpchat_tool_invocations_total",
				Help: "Total tool invocations by name and outcome",
			},
			[]string{"tool", "status"},
		),
		toolDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mcpchat_tool_duration_seconds",
				Help:    "Duration of tool invocations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tool"},
		),
		serverStatus: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mcpchat_mcp_server_connected",
				Help: "1 if the named MCP server is currently connected, else 0",
			},
			[]string{"server"},
		),
		retriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpchat_llm_retries_total",
				Help: "Total retry attempts against the model provider",
			},
			[]string{"provider", "model"},
		),
	}
}

// ObserveRequest records one completed (successful or failed) LLM request.
func (r *Recorder) ObserveRequest(provider, model string, promptTokens, completionTokens int, success bool, errorKind string, duration time.Duration) {
	if r == nil {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	r.requestsTotal.WithLabelValues(provider, model, status, errorKind).Inc()
	if success {
		r.tokensTotal.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
		r.tokensTotal.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
	}
	r.requestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
}

// ObserveTool records one tool invocation.
func (r *Recorder) ObserveTool(tool string, success bool, duration time.Duration) {
	if r == nil {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	r.toolInvocations.WithLabelValues(tool, status).Inc()
	r.toolDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// SetServerConnected records the live/dead state of a named MCP server.
func (r *Recorder) SetServerConnected(server string, connected bool) {
	if r == nil {
		return
	}
	value := 0.0
	if connected {
		value = 1.0
	}
	r.serverStatus.WithLabelValues(server).Set(value)
}

// IncRetry records one retry attempt against a model provider.
func (r *Recorder) IncRetry(provider, model string) {
	if r == nil {
		return
	}
	r.retriesTotal.WithLabelValues(provider, model).Inc()
}
