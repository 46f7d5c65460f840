// Package sampling implements the hand-off between an MCP server's
// sampling/createMessage request and the human sitting at the chat
// session: a pending request is queued for the chat loop to render and
// decide on (trust, approve, or reject) on the main goroutine, while the
// goroutine mcpclient started to handle that request blocks on the
// outcome; the client's dispatch loop keeps running.
package sampling

import (
	"context"
	"sync"
	"sync/atomic"

	"mcpchat/pkg/mcperrors"
	"mcpchat/pkg/mcpclient"
)

// Verdict is the human's decision on a pending sampling request.
type Verdict int8

const (
	// VerdictPending means no decision has been made yet.
	VerdictPending Verdict = iota
	// VerdictApproveOnce runs the request and asks again next time.
	VerdictApproveOnce
	// VerdictTrustServer runs this and all future requests from the same
	// server without asking again for the lifetime of the session.
	VerdictTrustServer
	// VerdictReject declines the request outright.
	VerdictReject
)

// Request is one sampling/createMessage call awaiting a verdict.
type Request struct {
	ID     uint64
	Server string
	Params mcpclient.CreateMessageParams

	resultCh chan outcome
}

type outcome struct {
	result *mcpclient.CreateMessageResult
	err    error
}

// Bridge queues sampling requests for the chat loop and resolves them once
// a human verdict (and, for approvals, a model response) is available.
type Bridge struct {
	nextID atomic.Uint64

	mu       sync.Mutex
	pending  map[uint64]*Request
	trusted  map[string]bool
	incoming chan *Request
	relay    Relay
}

// New creates an empty Bridge. incomingBuffer bounds how many undelivered
// requests may queue before Submit blocks on enqueueing a new one.
func New(incomingBuffer int) *Bridge {
	if incomingBuffer <= 0 {
		incomingBuffer = 16
	}
	return &Bridge{
		pending:  make(map[uint64]*Request),
		trusted:  make(map[string]bool),
		incoming: make(chan *Request, incomingBuffer),
	}
}

// IsTrusted reports whether server has been blanket-trusted for the rest
// of the session.
func (b *Bridge) IsTrusted(server string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.trusted[server]
}

// SetRelay installs the Relay Submit uses to auto-approve requests from a
// trusted server without involving the chat loop at all. A Bridge with no
// Relay installed still auto-approves trusted servers, falling back to
// PlaceholderResult the same way a manual "y"/"t" approval does.
func (b *Bridge) SetRelay(relay Relay) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.relay = relay
}

// Handler returns an mcpclient.SamplingHandler backed by this bridge,
// suitable for wiring into mcpclient.Options.OnSampling.
func (b *Bridge) Handler() mcpclient.SamplingHandler {
	return b.Submit
}

// Submit resolves a sampling request for a trusted server immediately,
// without ever queuing it for the chat loop. Otherwise it enqueues the
// request and blocks until Resolve is called for it, or ctx is cancelled.
func (b *Bridge) Submit(ctx context.Context, server string, params mcpclient.CreateMessageParams) (*mcpclient.CreateMessageResult, error) {
	if b.IsTrusted(server) {
		return b.autoApprove(ctx, server, params), nil
	}

	req := &Request{
		ID:       b.nextID.Add(1),
		Server:   server,
		Params:   params,
		resultCh: make(chan outcome, 1),
	}

	b.mu.Lock()
	b.pending[req.ID] = req
	b.mu.Unlock()

	select {
	case b.incoming <- req:
	case <-ctx.Done():
		b.drop(req.ID)
		return nil, mcperrors.New(mcperrors.KindTimeout, "sampling queue full")
	}

	select {
	case <-ctx.Done():
		b.drop(req.ID)
		return nil, mcperrors.WrapServer(mcperrors.KindTimeout, server, ctx.Err(), "sampling request cancelled")
	case out := <-req.resultCh:
		return out.result, out.err
	}
}

// autoApprove builds the result for a trusted-server request that bypassed
// the queue entirely: relay it if a Relay is installed, else fall back to
// the same placeholder a manual approval would get.
func (b *Bridge) autoApprove(ctx context.Context, server string, params mcpclient.CreateMessageParams) *mcpclient.CreateMessageResult {
	b.mu.Lock()
	relay := b.relay
	b.mu.Unlock()

	if relay != nil {
		if result, err := relay(ctx, server, params); err == nil {
			return result
		}
	}
	return PlaceholderResult(params)
}

// Next returns the next queued sampling request for the chat loop to
// present to the user, blocking until one arrives or ctx is cancelled.
func (b *Bridge) Next(ctx context.Context) (*Request, error) {
	select {
	case req := <-b.incoming:
		return req, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryNext returns the next queued sampling request without blocking, for
// callers that poll between other blocking operations (the chat loop
// checks this before settling into ReadLine).
func (b *Bridge) TryNext() (*Request, bool) {
	select {
	case req := <-b.incoming:
		return req, true
	default:
		return nil, false
	}
}

// Resolve delivers the human's verdict for a pending request. For
// VerdictApproveOnce and VerdictTrustServer, result must be the model
// response to return to the server; for VerdictReject, result is ignored
// and a KindClient rejection error is delivered instead.
func (b *Bridge) Resolve(id uint64, verdict Verdict, result *mcpclient.CreateMessageResult) {
	b.mu.Lock()
	req, ok := b.pending[id]
	if ok {
		delete(b.pending, id)
	}
	if verdict == VerdictTrustServer && ok {
		b.trusted[req.Server] = true
	}
	b.mu.Unlock()

	if !ok {
		return
	}

	switch verdict {
	case VerdictApproveOnce, VerdictTrustServer:
		req.resultCh <- outcome{result: result}
	case VerdictReject:
		req.resultCh <- outcome{err: mcperrors.New(mcperrors.KindClient, "sampling request rejected by user")}
	default:
		req.resultCh <- outcome{err: mcperrors.New(mcperrors.KindClient, "no verdict reached")}
	}
}

func (b *Bridge) drop(id uint64) {
	b.mu.Lock()
	delete(b.pending, id)
	b.mu.Unlock()
}

// Pending returns the ids of requests still awaiting a verdict, for
// diagnostics and the /mcp status display.
func (b *Bridge) Pending() []uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]uint64, 0, len(b.pending))
	for id := range b.pending {
		ids = append(ids, id)
	}
	return ids
}
