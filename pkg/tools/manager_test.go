package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"mcpchat/pkg/registry"
)

func TestRegisterAndLookupBuiltin(t *testing.T) {
	m := NewManager(registry.New(nil, nil, nil))
	m.Register(NewExecuteShellTool())

	tool, ok := m.Lookup("execute_bash")
	require.True(t, ok)
	require.Equal(t, "execute_bash", tool.Name())
	require.True(t, tool.RequiresAcceptance())
}

func TestListIncludesBuiltins(t *testing.T) {
	m := NewManager(registry.New(nil, nil, nil))
	m.Register(NewExecuteShellTool())

	specs := m.List()
	require.Len(t, specs, 1)
	require.Equal(t, "execute_bash", specs[0].Name)
}

func TestValidateRejectsMalformedJSON(t *testing.T) {
	_, err := Validate([]byte(`{not json`))
	require.Error(t, err)
}

func TestValidateEmptyArgsYieldsEmptyMap(t *testing.T) {
	args, err := Validate(nil)
	require.NoError(t, err)
	require.Empty(t, args)
}

func TestExecuteShellToolRunsCommand(t *testing.T) {
	tool := NewExecuteShellTool()
	result, err := tool.Invoke(context.Background(), map[string]any{"command": "echo hi"})
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Contains(t, result.Content, "hi")
}

func TestExecuteShellToolReportsNonZeroExit(t *testing.T) {
	tool := NewExecuteShellTool()
	result, err := tool.Invoke(context.Background(), map[string]any{"command": "exit 3"})
	require.NoError(t, err)
	require.True(t, result.IsError)
}

func TestExecuteShellToolRequiresCommand(t *testing.T) {
	tool := NewExecuteShellTool()
	_, err := tool.Invoke(context.Background(), map[string]any{})
	require.Error(t, err)
}
