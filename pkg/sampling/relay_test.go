package sampling

import (
	"testing"

	"github.com/stretchr/testify/require"

	"mcpchat/pkg/mcpclient"
)

func TestPlaceholderResultUsesModelHint(t *testing.T) {
	result := PlaceholderResult(mcpclient.CreateMessageParams{
		ModelPreferences: &mcpclient.ModelPreferences{Hints: []mcpclient.ModelHint{{Name: "claude-sonnet-4"}}},
	})
	require.Equal(t, "claude-sonnet-4", result.Model)
	require.Equal(t, "assistant", result.Role)
	require.NotEmpty(t, result.Content.Text)
}

func TestPlaceholderResultDefaultsModelWhenNoHint(t *testing.T) {
	result := PlaceholderResult(mcpclient.CreateMessageParams{})
	require.Equal(t, "none", result.Model)
}
