package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"mcpchat/pkg/mcperrors"
	"mcpchat/pkg/registry"
)

// Manager is the sealed-after-refresh catalog of tools available to the
// model: a handful of built-ins plus every tool exposed by a connected MCP
// server, refreshed whenever a server's tool list changes.
type Manager struct {
	mu       sync.RWMutex
	builtins map[string]Tool
	proxied  map[string]Tool // keyed by "server/toolName"
	registry *registry.Registry

	catalogVersion atomic.Uint64
}

// NewManager creates a Manager backed by reg for proxied tools. Built-in
// tools are registered separately via Register.
func NewManager(reg *registry.Registry) *Manager {
	return &Manager{
		builtins: make(map[string]Tool),
		proxied:  make(map[string]Tool),
		registry: reg,
	}
}

// Register adds a built-in tool, keyed by its own name.
func (m *Manager) Register(t Tool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.builtins[t.Name()] = t
}

// RefreshServer re-lists tools/list for server and replaces its entries in
// the proxied catalog. Call after a server (re)connects or emits
// notifications/tools/list_changed.
func (m *Manager) RefreshServer(ctx context.Context, server string) error {
	client, ok := m.registry.Get(server)
	if !ok {
		return mcperrors.New(mcperrors.KindClient, fmt.Sprintf("server %q is not connected", server))
	}

	remoteTools, err := client.ListTools(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	prefix := server + "/"
	for key := range m.proxied {
		if hasPrefix(key, prefix) {
			delete(m.proxied, key)
		}
	}
	for _, rt := range remoteTools {
		m.proxied[prefix+rt.Name] = &proxyTool{
			server:      server,
			name:        rt.Name,
			description: rt.Description,
			schema:      rt.InputSchema,
			client:      client,
		}
	}
	m.catalogVersion.Add(1)
	return nil
}

// CatalogVersion is a monotonic counter bumped every time the tool catalog
// changes, so callers can detect a stale snapshot without re-diffing it.
func (m *Manager) CatalogVersion() uint64 {
	return m.catalogVersion.Load()
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// List returns the specs of every tool currently available, built-in
// tools first, followed by proxied tools grouped by server.
func (m *Manager) List() []Spec {
	m.mu.RLock()
	defer m.mu.RUnlock()

	specs := make([]Spec, 0, len(m.builtins)+len(m.proxied))
	for _, t := range m.builtins {
		specs = append(specs, Spec{Name: t.Name(), Description: t.Description(), InputSchema: t.InputSchema()})
	}
	keys := make([]string, 0, len(m.proxied))
	for key := range m.proxied {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		t := m.proxied[key]
		specs = append(specs, Spec{Name: t.Name(), Description: t.Description(), InputSchema: t.InputSchema()})
	}
	return specs
}

// Lookup resolves a model-facing tool name to its implementation. Proxied
// tools are addressed by their bare name as advertised to the model;
// server-qualified names are an internal bookkeeping detail, not part of
// the model-facing contract. If two servers expose the same tool name,
// which of the two is returned is not defined.
func (m *Manager) Lookup(name string) (Tool, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if t, ok := m.builtins[name]; ok {
		return t, true
	}
	for key, t := range m.proxied {
		if t.Name() == name {
			_ = key
			return t, true
		}
	}
	return nil, false
}

// Validate checks that args is well-formed JSON decoding to an object.
// Full JSON-Schema validation is intentionally not performed here: MCP
// servers are trusted to reject malformed arguments themselves, and the
// model already sees the schema when choosing arguments.
func Validate(rawArgs json.RawMessage) (map[string]any, error) {
	if len(rawArgs) == 0 {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal(rawArgs, &args); err != nil {
		return nil, mcperrors.Wrap(mcperrors.KindSerialization, err, "decode tool arguments")
	}
	return args, nil
}
