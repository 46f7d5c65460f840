package mcpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"mcpchat/pkg/jsonrpc"
	"mcpchat/pkg/logx"
	"mcpchat/pkg/mcperrors"
)

// DefaultRequestTimeout is the deadline RequestWithTimeout applies when it
// is given no positive timeout, and the registry's default bound on a
// server's initialize handshake. Request itself adds no deadline beyond
// the one carried by its ctx.
const DefaultRequestTimeout = 60 * time.Second

// SamplingHandler answers a server-initiated sampling/createMessage
// request. Implementations typically hand the request to a human approval
// flow before calling a model.
type SamplingHandler func(ctx context.Context, server string, params CreateMessageParams) (*CreateMessageResult, error)

// NotificationHandler observes a notification delivered by a server.
type NotificationHandler func(server, method string, params json.RawMessage)

// Client is a single connection to one MCP server: it owns the transport,
// correlates requests to responses by id, and dispatches inbound
// server-initiated requests and notifications.
type Client struct {
	transport jsonrpc.Transport
	name      string
	logger    *logx.Logger

	nextID atomic.Uint64

	mu      sync.Mutex
	pending map[uint64]chan *jsonrpc.Response
	closed  bool

	onSampling     SamplingHandler
	onNotification NotificationHandler

	serverInfo   Implementation
	capabilities ServerCapabilities

	done chan struct{}
}

// Options configures a Client at construction time.
type Options struct {
	Name           string
	Logger         *logx.Logger
	OnSampling     SamplingHandler
	OnNotification NotificationHandler
}

// New wraps an already-established Transport in a JSON-RPC peer. Call
// Initialize before issuing any other request.
func New(transport jsonrpc.Transport, opts Options) *Client {
	c := &Client{
		transport:      transport,
		name:           opts.Name,
		logger:         opts.Logger,
		pending:        make(map[uint64]chan *jsonrpc.Response),
		onSampling:     opts.OnSampling,
		onNotification: opts.OnNotification,
		done:           make(chan struct{}),
	}
	go c.dispatchLoop()
	return c
}

// Name returns the server name this client was constructed with.
func (c *Client) Name() string { return c.name }

// ServerInfo returns the Implementation reported by the server during
// initialize. Valid only after Initialize has returned successfully.
func (c *Client) ServerInfo() Implementation { return c.serverInfo }

// Capabilities returns the capabilities reported by the server.
func (c *Client) Capabilities() ServerCapabilities { return c.capabilities }

// dispatchLoop reads framed lines from the transport and routes each one
// to either a pending request's waiter, the sampling handler, or the
// notification handler.
func (c *Client) dispatchLoop() {
	defer close(c.done)

	for line := range c.transport.Lines() {
		req, notif, resp, err := jsonrpc.Classify(line)
		if err != nil {
			if c.logger != nil {
				c.logger.Warn("%s: malformed message: %v", c.name, err)
			}
			continue
		}

		switch {
		case resp != nil:
			c.deliverResponse(resp)
		case notif != nil:
			if c.onNotification != nil {
				c.onNotification(c.name, notif.Method, notif.Params)
			}
		case req != nil:
			go c.handleServerRequest(req)
		}
	}
}

func (c *Client) deliverResponse(resp *jsonrpc.Response) {
	key, ok := idKey(resp.ID)
	if !ok {
		return
	}

	c.mu.Lock()
	ch, ok := c.pending[key]
	if ok {
		delete(c.pending, key)
	}
	c.mu.Unlock()

	if ok {
		ch <- resp
	}
}

// handleServerRequest answers a server-initiated request. sampling/createMessage
// is the only server-to-client request MCP currently defines.
func (c *Client) handleServerRequest(req *jsonrpc.Request) {
	ctx := context.Background()

	if req.Method != "sampling/createMessage" {
		resp := jsonrpc.NewErrorResponse(req.ID, jsonrpc.CodeMethodNotFound,
			fmt.Sprintf("method not supported: %s", req.Method), nil)
		c.sendResponse(ctx, resp)
		return
	}

	if c.onSampling == nil {
		resp := jsonrpc.NewErrorResponse(req.ID, jsonrpc.CodeInternalError, "no sampling handler configured", nil)
		c.sendResponse(ctx, resp)
		return
	}

	var params CreateMessageParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		resp := jsonrpc.NewErrorResponse(req.ID, jsonrpc.CodeInvalidParams, err.Error(), nil)
		c.sendResponse(ctx, resp)
		return
	}

	result, err := c.onSampling(ctx, c.name, params)
	if err != nil {
		code := jsonrpc.CodeInternalError
		if mcperrors.Is(err, mcperrors.KindClient) {
			code = jsonrpc.CodeUserRejected
		}
		resp := jsonrpc.NewErrorResponse(req.ID, code, err.Error(), nil)
		c.sendResponse(ctx, resp)
		return
	}

	resp, err := jsonrpc.NewResultResponse(req.ID, result)
	if err != nil {
		resp = jsonrpc.NewErrorResponse(req.ID, jsonrpc.CodeInternalError, err.Error(), nil)
	}
	c.sendResponse(ctx, resp)
}

func (c *Client) sendResponse(ctx context.Context, resp *jsonrpc.Response) {
	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if sendErr := c.transport.Send(ctx, raw); sendErr != nil && c.logger != nil {
		c.logger.Warn("%s: failed to send response: %v", c.name, sendErr)
	}
}

// Request sends method with params and blocks until a matching response
// arrives, ctx is cancelled, or the peer shuts down. result, if non-nil,
// receives the decoded result payload.
func (c *Client) Request(ctx context.Context, method string, params any, result any) error {
	id := c.nextID.Add(1)

	req, err := jsonrpc.NewRequest(id, method, params)
	if err != nil {
		return mcperrors.WrapServer(mcperrors.KindSerialization, c.name, err, "encode request")
	}

	waiter := make(chan *jsonrpc.Response, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return mcperrors.New(mcperrors.KindClient, "client is closed")
	}
	c.pending[id] = waiter
	c.mu.Unlock()

	raw, err := json.Marshal(req)
	if err != nil {
		c.dropPending(id)
		return mcperrors.WrapServer(mcperrors.KindSerialization, c.name, err, "encode request")
	}

	if err := c.transport.Send(ctx, raw); err != nil {
		c.dropPending(id)
		return mcperrors.WrapServer(mcperrors.KindTransport, c.name, err, "send request")
	}

	select {
	case <-ctx.Done():
		c.dropPending(id)
		return mcperrors.WrapServer(mcperrors.KindTimeout, c.name, ctx.Err(), fmt.Sprintf("%s timed out", method))
	case resp, ok := <-waiter:
		if !ok {
			return mcperrors.New(mcperrors.KindClient, "client is closed")
		}
		if resp.Error != nil {
			return mcperrors.WrapServer(mcperrors.KindCustom, c.name, resp.Error,
				fmt.Sprintf("%s failed", method))
		}
		if result != nil && resp.Result != nil {
			if err := json.Unmarshal(resp.Result, result); err != nil {
				return mcperrors.WrapServer(mcperrors.KindSerialization, c.name, err, "decode result")
			}
		}
		return nil
	case <-c.done:
		return mcperrors.New(mcperrors.KindProcessLifecycle, "transport closed while awaiting response")
	}
}

// RequestWithTimeout is Request with a bounded deadline layered onto ctx.
func (c *Client) RequestWithTimeout(ctx context.Context, timeout time.Duration, method string, params, result any) error {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.Request(ctx, method, params, result)
}

// Notify sends a one-way notification; no response is expected.
func (c *Client) Notify(ctx context.Context, method string, params any) error {
	notif, err := jsonrpc.NewNotification(method, params)
	if err != nil {
		return mcperrors.WrapServer(mcperrors.KindSerialization, c.name, err, "encode notification")
	}
	raw, err := json.Marshal(notif)
	if err != nil {
		return mcperrors.WrapServer(mcperrors.KindSerialization, c.name, err, "encode notification")
	}
	if err := c.transport.Send(ctx, raw); err != nil {
		return mcperrors.WrapServer(mcperrors.KindTransport, c.name, err, "send notification")
	}
	return nil
}

func (c *Client) dropPending(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// Initialize performs the MCP handshake: send initialize, wait for the
// server's capabilities, then send the initialized notification.
func (c *Client) Initialize(ctx context.Context, clientInfo Implementation, caps ClientCapabilities) error {
	params := InitializeParams{
		ProtocolVersion: ProtocolVersion,
		Capabilities:    caps,
		ClientInfo:      clientInfo,
	}

	var result InitializeResult
	if err := c.Request(ctx, "initialize", params, &result); err != nil {
		return mcperrors.WrapServer(mcperrors.KindNegotiation, c.name, err, "initialize")
	}

	if result.ProtocolVersion == "" {
		return mcperrors.New(mcperrors.KindNegotiation, fmt.Sprintf("%s: initialize result missing protocol_version", c.name))
	}
	if result.ProtocolVersion != ProtocolVersion {
		return mcperrors.New(mcperrors.KindNegotiation,
			fmt.Sprintf("%s: server protocol version %s does not match client %s", c.name, result.ProtocolVersion, ProtocolVersion))
	}

	c.serverInfo = result.ServerInfo
	c.capabilities = result.Capabilities

	if err := c.Notify(ctx, "notifications/initialized", struct{}{}); err != nil {
		return mcperrors.WrapServer(mcperrors.KindNegotiation, c.name, err, "send initialized notification")
	}
	return nil
}

// Close shuts down the underlying transport and unblocks any in-flight
// requests with a client-closed error.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	waiters := make([]chan *jsonrpc.Response, 0, len(c.pending))
	for _, ch := range c.pending {
		waiters = append(waiters, ch)
	}
	c.pending = make(map[uint64]chan *jsonrpc.Response)
	c.mu.Unlock()

	for _, ch := range waiters {
		close(ch)
	}

	return c.transport.Close()
}

func idKey(id any) (uint64, bool) {
	switch v := id.(type) {
	case float64:
		return uint64(v), true
	case uint64:
		return v, true
	case int:
		return uint64(v), true
	default:
		return 0, false
	}
}
