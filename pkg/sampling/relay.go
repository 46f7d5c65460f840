package sampling

import (
	"context"

	"mcpchat/pkg/mcpclient"
)

// Relay actually runs a sampling request against a model, returning the
// CreateMessageResult to hand back to the requesting server. Wiring a
// Relay is optional: without one, Bridge.Resolve's caller falls back to a
// documented placeholder response on approval (see PlaceholderResult).
type Relay func(ctx context.Context, server string, params mcpclient.CreateMessageParams) (*mcpclient.CreateMessageResult, error)

// PlaceholderResult builds the canned approval response used when no Relay
// is configured: a text reply noting that sampling was approved but no
// model relay is wired up, carrying through the caller's model hint if one
// was given.
func PlaceholderResult(params mcpclient.CreateMessageParams) *mcpclient.CreateMessageResult {
	model := "none"
	if params.ModelPreferences != nil && len(params.ModelPreferences.Hints) > 0 && params.ModelPreferences.Hints[0].Name != "" {
		model = params.ModelPreferences.Hints[0].Name
	}
	return &mcpclient.CreateMessageResult{
		Role:       "assistant",
		Content:    mcpclient.ContentItem{Type: "text", Text: "sampling approved; no model relay configured for this session"},
		Model:      model,
		StopReason: "endTurn",
	}
}
