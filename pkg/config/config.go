// Package config loads and resolves chat CLI configuration: provider
// selection, MCP server definitions, tool trust, and encrypted secrets at
// rest. Server definitions are YAML; secrets never live in that file
// (see secrets.go).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider names accepted in Config.Model.Provider.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGoogle    = "google"
	ProviderOllama    = "ollama"
)

// Default model per provider, used when Config.Model.Name is empty.
const (
	DefaultAnthropicModel = "claude-sonnet-4-20250514"
	DefaultOpenAIModel    = "gpt-4o"
	DefaultGoogleModel    = "gemini-2.0-flash"
	DefaultOllamaModel    = "llama3.1"
)

// ServerDef is one MCP server entry in the YAML config file.
type ServerDef struct {
	Name       string            `yaml:"name"`
	Command    string            `yaml:"command"`
	Args       []string          `yaml:"args,omitempty"`
	Env        map[string]string `yaml:"env,omitempty"`
	TimeoutSec int               `yaml:"timeout_sec,omitempty"`
	Disabled   bool              `yaml:"disabled,omitempty"`
}

// Timeout returns the configured server timeout, or zero to mean "use the
// client default".
func (s ServerDef) Timeout() time.Duration {
	if s.TimeoutSec <= 0 {
		return 0
	}
	return time.Duration(s.TimeoutSec) * time.Second
}

// ModelDef selects a provider and model.
type ModelDef struct {
	Provider string `yaml:"provider"`
	Name     string `yaml:"name,omitempty"`
	BaseURL  string `yaml:"base_url,omitempty"` // used by the ollama provider
}

// ResolvedModel returns Name if set, else the provider's default.
func (m ModelDef) ResolvedModel() string {
	if m.Name != "" {
		return m.Name
	}
	switch m.Provider {
	case ProviderOpenAI:
		return DefaultOpenAIModel
	case ProviderGoogle:
		return DefaultGoogleModel
	case ProviderOllama:
		return DefaultOllamaModel
	default:
		return DefaultAnthropicModel
	}
}

// ToolPermissions mirrors the session-scoped trust set described by the
// chat state machine: a global "trust everything" switch plus a per-tool
// override map.
type ToolPermissions struct {
	TrustAll bool            `yaml:"trust_all,omitempty"`
	PerTool  map[string]bool `yaml:"trust,omitempty"`
}

// Config is one named profile: a model choice, the MCP servers to launch,
// and default tool trust.
type Config struct {
	Model       ModelDef         `yaml:"model"`
	Servers     []ServerDef      `yaml:"servers,omitempty"`
	Permissions ToolPermissions  `yaml:"permissions,omitempty"`
	RetryMax    int              `yaml:"retry_max,omitempty"`
	TimeoutSec  int              `yaml:"timeout_sec,omitempty"`
}

// RequestTimeout returns the configured default request timeout, falling
// back to a generous 120s default.
func (c Config) RequestTimeout() time.Duration {
	if c.TimeoutSec <= 0 {
		return 120 * time.Second
	}
	return time.Duration(c.TimeoutSec) * time.Second
}

// File is the top-level YAML document: a set of named profiles plus which
// one is the default.
type File struct {
	DefaultProfile string            `yaml:"default_profile,omitempty"`
	Profiles       map[string]Config `yaml:"profiles"`
}

// Load reads and parses a config file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &f, nil
}

// Profile returns the named profile, or the default profile if name is
// empty. An empty File with no profiles yields a zero-value Config so a
// first run works without any config file at all (Anthropic provider,
// no MCP servers).
func (f *File) Profile(name string) (Config, error) {
	if f == nil || len(f.Profiles) == 0 {
		if name != "" {
			return Config{}, fmt.Errorf("config: profile %q not found: no config file loaded", name)
		}
		return Config{Model: ModelDef{Provider: ProviderAnthropic}}, nil
	}

	if name == "" {
		name = f.DefaultProfile
	}
	if name == "" {
		if len(f.Profiles) == 1 {
			for _, cfg := range f.Profiles {
				return cfg, nil
			}
		}
		return Config{}, fmt.Errorf("config: no profile specified and no default_profile set")
	}

	cfg, ok := f.Profiles[name]
	if !ok {
		return Config{}, fmt.Errorf("config: profile %q not found", name)
	}
	return cfg, nil
}

// UserConfigDir is the directory name holding this CLI's config, secrets,
// and conversation database inside the user's home directory.
const UserConfigDir = ".mcpchat"

// DefaultConfigDir returns ~/.mcpchat, creating it if necessary.
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home directory: %w", err)
	}
	dir := filepath.Join(home, UserConfigDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("config: create %s: %w", dir, err)
	}
	return dir, nil
}

// FindProjectConfig walks up from startDir looking for a .mcpchat.yaml
// file, the project-local override of the user-level config. Returns ""
// with a nil error if none is found.
func FindProjectConfig(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("config: resolve %s: %w", startDir, err)
	}

	for {
		candidate := filepath.Join(dir, ".mcpchat.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}
