package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDisabledServerRecordsHistoryWithoutConnecting(t *testing.T) {
	r := New(nil, nil, nil)

	err := r.Load(context.Background(), ServerConfig{Name: "disabled-one", Disabled: true})
	require.NoError(t, err)

	_, ok := r.Get("disabled-one")
	require.False(t, ok)

	hist := r.History("disabled-one")
	require.Len(t, hist, 1)
	require.Equal(t, LoadStatusDisabled, hist[0].Status)
}

func TestLoadUnresolvableCommandRecordsFailure(t *testing.T) {
	r := New(nil, nil, nil)

	err := r.Load(context.Background(), ServerConfig{Name: "broken", Command: "/no/such/binary-xyz"})
	require.Error(t, err)

	hist := r.History("broken")
	require.Len(t, hist, 1)
	require.Equal(t, LoadStatusFailed, hist[0].Status)
}

func TestNamesAndConnectedReflectLoadedServers(t *testing.T) {
	r := New(nil, nil, nil)
	_ = r.Load(context.Background(), ServerConfig{Name: "a", Disabled: true})
	require.Contains(t, r.Names(), "a")
	require.NotContains(t, r.Connected(), "a")
}
