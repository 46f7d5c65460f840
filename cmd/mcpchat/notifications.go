package main

import (
	"context"
	"encoding/json"
	"time"

	"mcpchat/pkg/logx"
	"mcpchat/pkg/registry"
	"mcpchat/pkg/tools"
)

// catalogRefresher recognizes the two list_changed notifications and
// refetches the affected catalog. tools is set once the tool manager
// exists, after the registry (and the notification handler it requires)
// has already been constructed.
type catalogRefresher struct {
	reg    *registry.Registry
	tools  *tools.Manager
	logger *logx.Logger
}

const refreshTimeout = 20 * time.Second

// Handle is a mcpclient.NotificationHandler. Unrecognized notifications are
// dropped silently, matching the MCP convention that a client only acts on
// methods it understands.
func (c *catalogRefresher) Handle(server, method string, _ json.RawMessage) {
	switch method {
	case "notifications/tools/list_changed":
		if c.tools == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		if err := c.tools.RefreshServer(ctx, server); err != nil && c.logger != nil {
			c.logger.Warn("refresh tools for %s: %v", server, err)
		}
	case "notifications/prompts/list_changed":
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		if err := c.reg.RefreshPrompts(ctx, server); err != nil && c.logger != nil {
			c.logger.Warn("refresh prompts for %s: %v", server, err)
		}
	case "notifications/message":
		// Server log forwarding; nothing to refetch.
	default:
		if c.logger != nil {
			c.logger.Debug("%s: unrecognized notification %s", server, method)
		}
	}
}
