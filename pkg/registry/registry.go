// Package registry tracks the set of configured MCP servers and the live
// mcpclient.Client connected to each, along with the load history needed to
// report per-server startup failures back to the chat UI.
package registry

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"mcpchat/pkg/jsonrpc"
	"mcpchat/pkg/logx"
	"mcpchat/pkg/mcperrors"
	"mcpchat/pkg/mcpclient"
)

// ServerConfig describes how to launch one configured MCP server.
type ServerConfig struct {
	Name    string
	Command string
	Args    []string
	Env     []string
	Timeout time.Duration
	Disabled bool
}

// LoadStatus is the outcome of (re)loading a single server.
type LoadStatus int8

const (
	// LoadStatusOK means the server initialized successfully.
	LoadStatusOK LoadStatus = iota
	// LoadStatusFailed means the server process or handshake failed.
	LoadStatusFailed
	// LoadStatusDisabled means the server was skipped by configuration.
	LoadStatusDisabled
)

// LoadRecord is one entry in a server's loading history, surfaced by the
// chat UI's /mcp status output.
type LoadRecord struct {
	At     time.Time
	Status LoadStatus
	Detail string
}

// entry pairs a server's configuration with its current connection state.
type entry struct {
	cfg     ServerConfig
	client  *mcpclient.Client
	history []LoadRecord
	prompts []mcpclient.Prompt
}

// Registry is the RWMutex-guarded catalog of named server connections,
// grounded on the same sealed-map idiom used elsewhere in this codebase
// for concurrent read-mostly lookup tables.
type Registry struct {
	mu      sync.RWMutex
	servers map[string]*entry
	logger  *logx.Logger

	samplingHandler     mcpclient.SamplingHandler
	notificationHandler mcpclient.NotificationHandler

	promptCatalogVersion atomic.Uint64
}

// New creates an empty Registry. Sampling and notification handlers are
// shared across every server connection the registry manages.
func New(logger *logx.Logger, sampling mcpclient.SamplingHandler, notifications mcpclient.NotificationHandler) *Registry {
	return &Registry{
		servers:             make(map[string]*entry),
		logger:              logger,
		samplingHandler:     sampling,
		notificationHandler: notifications,
	}
}

// Load starts (or restarts) the named server: spawns its subprocess,
// performs the MCP handshake, and records the outcome in its history. A
// prior live connection for the same name is closed first.
func (r *Registry) Load(ctx context.Context, cfg ServerConfig) error {
	if cfg.Disabled {
		r.record(cfg.Name, LoadRecord{At: now(), Status: LoadStatusDisabled, Detail: "disabled by configuration"})
		return nil
	}

	r.mu.Lock()
	if existing, ok := r.servers[cfg.Name]; ok && existing.client != nil {
		_ = existing.client.Close()
		existing.client = nil
	}
	r.mu.Unlock()

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = mcpclient.DefaultRequestTimeout
	}

	transport, err := jsonrpc.NewStdioTransport(ctx, jsonrpc.StdioConfig{
		Command: cfg.Command,
		Args:    cfg.Args,
		Env:     cfg.Env,
	}, r.logger)
	if err != nil {
		wrapped := mcperrors.WrapServer(mcperrors.KindTransport, cfg.Name, err, "spawn server")
		r.record(cfg.Name, LoadRecord{At: now(), Status: LoadStatusFailed, Detail: wrapped.Error()})
		return wrapped
	}

	client := mcpclient.New(transport, mcpclient.Options{
		Name:           cfg.Name,
		Logger:         r.logger,
		OnSampling:     r.samplingHandler,
		OnNotification: r.notificationHandler,
	})

	initCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Initialize(initCtx, mcpclient.Implementation{Name: "mcpchat", Version: clientVersion}, mcpclient.ClientCapabilities{
		Sampling: &struct{}{},
	}); err != nil {
		_ = client.Close()
		r.record(cfg.Name, LoadRecord{At: now(), Status: LoadStatusFailed, Detail: err.Error()})
		return err
	}

	r.mu.Lock()
	e, ok := r.servers[cfg.Name]
	if !ok {
		e = &entry{}
		r.servers[cfg.Name] = e
	}
	e.cfg = cfg
	e.client = client
	e.prompts = nil
	r.mu.Unlock()

	r.record(cfg.Name, LoadRecord{At: now(), Status: LoadStatusOK, Detail: fmt.Sprintf("connected to %s", client.ServerInfo().Name)})
	return nil
}

// clientVersion is the version string this client reports to servers
// during initialize.
const clientVersion = "0.1.0"

func (r *Registry) record(name string, rec LoadRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.servers[name]
	if !ok {
		e = &entry{}
		r.servers[name] = e
	}
	e.history = append(e.history, rec)
}

// RefreshPrompts re-lists prompts/list for name and replaces its cached
// prompt catalog. Call after a server (re)connects or emits
// notifications/prompts/list_changed.
func (r *Registry) RefreshPrompts(ctx context.Context, name string) error {
	client, ok := r.Get(name)
	if !ok {
		return mcperrors.New(mcperrors.KindClient, fmt.Sprintf("server %q is not connected", name))
	}
	prompts, err := client.ListPrompts(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if e, ok := r.servers[name]; ok {
		e.prompts = prompts
	}
	r.mu.Unlock()
	r.promptCatalogVersion.Add(1)
	return nil
}

// PromptCatalogVersion is a monotonic counter bumped every time any
// server's prompt catalog is refreshed.
func (r *Registry) PromptCatalogVersion() uint64 {
	return r.promptCatalogVersion.Load()
}

// Prompts returns the last-fetched prompt catalog for name.
func (r *Registry) Prompts(name string) []mcpclient.Prompt {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.servers[name]
	if !ok {
		return nil
	}
	return append([]mcpclient.Prompt(nil), e.prompts...)
}

// Get returns the live client for name, or false if it is not connected.
func (r *Registry) Get(name string) (*mcpclient.Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.servers[name]
	if !ok || e.client == nil {
		return nil, false
	}
	return e.client, true
}

// Names returns every configured server name, connected or not.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.servers))
	for name := range r.servers {
		names = append(names, name)
	}
	return names
}

// Connected returns every server name with a live connection.
func (r *Registry) Connected() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.servers))
	for name, e := range r.servers {
		if e.client != nil {
			names = append(names, name)
		}
	}
	return names
}

// History returns the loading history for a server, oldest first.
func (r *Registry) History(name string) []LoadRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.servers[name]
	if !ok {
		return nil
	}
	return append([]LoadRecord(nil), e.history...)
}

// CloseAll shuts down every live server connection.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.servers {
		if e.client != nil {
			_ = e.client.Close()
			e.client = nil
		}
	}
}

var now = time.Now
