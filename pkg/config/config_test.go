package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleYAML = `
default_profile: work
profiles:
  work:
    model:
      provider: anthropic
      name: claude-sonnet-4-20250514
    servers:
      - name: filesystem
        command: mcp-server-filesystem
        args: ["--root", "."]
    permissions:
      trust_all: false
      trust:
        read_file: true
  scratch:
    model:
      provider: ollama
      base_url: http://localhost:11434
`

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestLoadParsesProfilesAndServers(t *testing.T) {
	f, err := Load(writeTemp(t, sampleYAML))
	require.NoError(t, err)
	require.Equal(t, "work", f.DefaultProfile)
	require.Len(t, f.Profiles, 2)

	work := f.Profiles["work"]
	require.Equal(t, ProviderAnthropic, work.Model.Provider)
	require.Len(t, work.Servers, 1)
	require.Equal(t, "filesystem", work.Servers[0].Name)
}

func TestProfileReturnsDefaultWhenNameEmpty(t *testing.T) {
	f, err := Load(writeTemp(t, sampleYAML))
	require.NoError(t, err)

	cfg, err := f.Profile("")
	require.NoError(t, err)
	require.Equal(t, "claude-sonnet-4-20250514", cfg.Model.ResolvedModel())
}

func TestProfileReturnsNamedProfile(t *testing.T) {
	f, err := Load(writeTemp(t, sampleYAML))
	require.NoError(t, err)

	cfg, err := f.Profile("scratch")
	require.NoError(t, err)
	require.Equal(t, ProviderOllama, cfg.Model.Provider)
	require.Equal(t, DefaultOllamaModel, cfg.Model.ResolvedModel())
}

func TestProfileErrorsOnUnknownName(t *testing.T) {
	f, err := Load(writeTemp(t, sampleYAML))
	require.NoError(t, err)

	_, err = f.Profile("nonexistent")
	require.Error(t, err)
}

func TestNilFileYieldsAnthropicDefault(t *testing.T) {
	var f *File
	cfg, err := f.Profile("")
	require.NoError(t, err)
	require.Equal(t, ProviderAnthropic, cfg.Model.Provider)
}

func TestFindProjectConfigWalksUpToAncestor(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".mcpchat.yaml"), []byte("profiles: {}\n"), 0644))

	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0755))

	found, err := FindProjectConfig(nested)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, ".mcpchat.yaml"), found)
}

func TestFindProjectConfigReturnsEmptyWhenAbsent(t *testing.T) {
	found, err := FindProjectConfig(t.TempDir())
	require.NoError(t, err)
	require.Empty(t, found)
}
