package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"mcpchat/pkg/convo"
	"mcpchat/pkg/input"
	"mcpchat/pkg/llmstream"
	"mcpchat/pkg/logx"
	"mcpchat/pkg/mcpclient"
	"mcpchat/pkg/registry"
	"mcpchat/pkg/sampling"
	"mcpchat/pkg/telemetry"
	"mcpchat/pkg/tokenbudget"
	"mcpchat/pkg/tools"
)

// Session holds every component the chat loop coordinates and the small
// amount of state (pending tool/sampling approvals) that must survive a
// PromptUser/HandleInput round trip.
type Session struct {
	convo          *convo.State
	provider       llmstream.Provider
	providerName   string
	modelName      string
	tools          *tools.Manager
	registry       *registry.Registry
	samplingBridge *sampling.Bridge
	samplingRelay  sampling.Relay
	permissions    Permissions
	counter        *tokenbudget.Counter
	budget         tokenbudget.Budget
	store          convo.Store
	storePath      string
	in             *input.Source
	out            io.Writer
	logger         *logx.Logger
	recorder       *telemetry.Recorder
	systemPrompt   string
	maxReplyTokens int

	pendingTool     *QueuedTool
	pendingToolRest []QueuedTool
	pendingResults  []llmstream.ToolResult
	pendingSampling *sampling.Request
}

// Permissions is the session-scoped tool trust set: a blanket override
// plus per-tool grants, mutated only by explicit user consent ("t"/"T" at
// a tool approval prompt) or a /trust command.
type Permissions struct {
	TrustAll bool
	PerTool  map[string]bool
}

// Trusts reports whether name may run without per-invocation consent.
func (p Permissions) Trusts(name string) bool {
	if p.TrustAll {
		return true
	}
	return p.PerTool[name]
}

// Options configures a new Session.
type Options struct {
	Convo          *convo.State
	Provider       llmstream.Provider
	ProviderName   string
	ModelName      string
	Tools          *tools.Manager
	Registry       *registry.Registry
	SamplingBridge *sampling.Bridge
	SamplingRelay  sampling.Relay
	Permissions    Permissions
	Counter        *tokenbudget.Counter
	Budget         tokenbudget.Budget
	Store          convo.Store
	StorePath      string
	Input          *input.Source
	Output         io.Writer
	Logger         *logx.Logger
	Recorder       *telemetry.Recorder
	SystemPrompt   string
	MaxReplyTokens int
}

// New builds a Session ready for Run.
func New(opts Options) *Session {
	if opts.Permissions.PerTool == nil {
		opts.Permissions.PerTool = make(map[string]bool)
	}
	if opts.MaxReplyTokens <= 0 {
		opts.MaxReplyTokens = 4096
	}
	return &Session{
		convo:          opts.Convo,
		provider:       opts.Provider,
		providerName:   opts.ProviderName,
		modelName:      opts.ModelName,
		tools:          opts.Tools,
		registry:       opts.Registry,
		samplingBridge: opts.SamplingBridge,
		samplingRelay:  opts.SamplingRelay,
		permissions:    opts.Permissions,
		counter:        opts.Counter,
		budget:         opts.Budget,
		store:          opts.Store,
		storePath:      opts.StorePath,
		in:             opts.Input,
		out:            opts.Output,
		logger:         opts.Logger,
		recorder:       opts.Recorder,
		systemPrompt:   opts.SystemPrompt,
		maxReplyTokens: opts.MaxReplyTokens,
	}
}

// Run drives the state machine to completion (Exit) or ctx cancellation.
func (s *Session) Run(ctx context.Context) error {
	state := State{Kind: KindPromptUser}
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		var err error
		switch state.Kind {
		case KindPromptUser:
			state, err = s.promptUser(ctx, state)
		case KindHandleInput:
			state, err = s.handleInput(ctx, state)
		case KindValidateTools:
			state, err = s.validateTools(ctx, state)
		case KindExecuteTools:
			state, err = s.executeTools(ctx, state)
		case KindHandleResponseStream:
			state, err = s.handleResponseStream(ctx, state)
		case KindCompactHistory:
			state, err = s.compactHistory(ctx, state)
		case KindExit:
			s.persist(ctx)
			return nil
		default:
			return fmt.Errorf("chat: unknown state kind %d", state.Kind)
		}
		if err != nil {
			return err
		}
	}
}

func (s *Session) persist(ctx context.Context) {
	if s.store == nil || s.storePath == "" {
		return
	}
	if err := s.store.Save(ctx, &convo.Conversation{Path: s.storePath, Messages: s.convo.Messages}); err != nil && s.logger != nil {
		s.logger.Warn("failed to save conversation: %v", err)
	}
}

// promptUser reads one line. Ctrl-C once warns and re-prompts; twice
// exits.
func (s *Session) promptUser(ctx context.Context, _ State) (State, error) {
	if s.pendingTool == nil && s.pendingSampling == nil && s.samplingBridge != nil {
		if req, ok := s.samplingBridge.TryNext(); ok {
			s.pendingSampling = req
		}
	}

	switch {
	case s.pendingTool != nil:
		fmt.Fprintf(s.out, "%s wants to run %q with %v\nallow? [y]es once / [t]rust always / [n]o: ", "the model", s.pendingTool.Name, s.pendingTool.Args)
	case s.pendingSampling != nil:
		fmt.Fprintf(s.out, "MCP server %q is requesting a model completion on your behalf\nallow? [y]es once / [t]rust server / [n]o: ", s.pendingSampling.Server)
	default:
		input.Prompt(s.out, "> ")
	}

	line, err := s.in.ReadLine(ctx)

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return State{Kind: KindExit}, nil
	case errors.Is(err, input.ErrInterrupted):
		if s.in.Interrupts() >= 2 {
			fmt.Fprintln(s.out, "\nInterrupted twice, exiting.")
			return State{Kind: KindExit}, nil
		}
		fmt.Fprintln(s.out, "\n(Ctrl-C again to exit)")
		return State{Kind: KindPromptUser}, nil
	case errors.Is(err, io.EOF):
		return State{Kind: KindExit}, nil
	case err != nil:
		if s.logger != nil {
			s.logger.Error("input error: %v", err)
		}
		return State{Kind: KindExit}, nil
	}

	s.in.ResetInterrupts()
	return State{Kind: KindHandleInput, Line: line}, nil
}

// handleInput branches on the first character of the line, per the chat
// state machine's HandleInput transition.
func (s *Session) handleInput(ctx context.Context, st State) (State, error) {
	line := st.Line

	switch {
	case strings.HasPrefix(line, "/"):
		return s.handleSlashCommand(line)
	case strings.HasPrefix(line, "!"):
		s.runShell(ctx, strings.TrimPrefix(line, "!"))
		return State{Kind: KindPromptUser}, nil
	case s.pendingTool != nil:
		return s.resolvePendingTool(ctx, line)
	case s.pendingSampling != nil:
		return s.resolvePendingSampling(ctx, line)
	default:
		s.convo.AppendUser(line)
		return State{Kind: KindHandleResponseStream}, nil
	}
}

func (s *Session) runShell(ctx context.Context, command string) {
	command = strings.TrimSpace(command)
	if command == "" {
		return
	}
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	out, err := cmd.CombinedOutput()
	fmt.Fprint(s.out, string(out))
	if err != nil {
		fmt.Fprintf(s.out, "(shell exited with error: %v)\n", err)
	}
}

// resolvePendingTool consumes the y/t/n decision for s.pendingTool.
func (s *Session) resolvePendingTool(_ context.Context, line string) (State, error) {
	tool := *s.pendingTool
	rest := s.pendingToolRest
	s.pendingTool = nil
	s.pendingToolRest = nil

	decision := firstRune(line)
	switch decision {
	case 'y', 'Y':
		tool.Accepted = true
		return State{Kind: KindExecuteTools, Queued: append([]QueuedTool{tool}, rest...)}, nil
	case 't', 'T':
		tool.Accepted = true
		s.permissions.PerTool[tool.Name] = true
		return State{Kind: KindExecuteTools, Queued: append([]QueuedTool{tool}, rest...)}, nil
	default:
		s.pendingResults = append(s.pendingResults, llmstream.ToolResult{
			ToolCallID: tool.ID,
			Content:    "rejected by user",
			IsError:    true,
		})
		for _, q := range rest {
			s.pendingResults = append(s.pendingResults, llmstream.ToolResult{ToolCallID: q.ID, Content: "cancelled: prior tool rejected", IsError: true})
		}
		s.convo.AppendToolResults(s.pendingResults)
		s.pendingResults = nil
		return State{Kind: KindHandleResponseStream}, nil
	}
}

// resolvePendingSampling consumes the y/t/n decision for s.pendingSampling.
func (s *Session) resolvePendingSampling(ctx context.Context, line string) (State, error) {
	req := s.pendingSampling
	s.pendingSampling = nil

	decision := firstRune(line)
	switch decision {
	case 'y', 'Y':
		s.samplingBridge.Resolve(req.ID, sampling.VerdictApproveOnce, s.relayOrPlaceholder(ctx, req))
	case 't', 'T':
		s.samplingBridge.Resolve(req.ID, sampling.VerdictTrustServer, s.relayOrPlaceholder(ctx, req))
	default:
		s.samplingBridge.Resolve(req.ID, sampling.VerdictReject, nil)
	}
	return State{Kind: KindPromptUser}, nil
}

func (s *Session) relayOrPlaceholder(ctx context.Context, req *sampling.Request) *mcpclient.CreateMessageResult {
	if s.samplingRelay != nil {
		result, err := s.samplingRelay(ctx, req.Server, req.Params)
		if err == nil {
			return result
		}
		if s.logger != nil {
			s.logger.Warn("sampling relay failed, falling back to placeholder: %v", err)
		}
	}
	return sampling.PlaceholderResult(req.Params)
}

func firstRune(s string) rune {
	s = strings.TrimSpace(s)
	for _, r := range s {
		return r
	}
	return 0
}
