package chat

import (
	"fmt"
	"sort"
	"strings"
)

// handleSlashCommand dispatches a "/"-prefixed line to a built-in command.
func (s *Session) handleSlashCommand(line string) (State, error) {
	fields := strings.Fields(line)
	cmd := fields[0]
	args := fields[1:]

	switch cmd {
	case "/exit", "/quit":
		return State{Kind: KindExit}, nil

	case "/help":
		s.printHelp()
		return State{Kind: KindPromptUser}, nil

	case "/mcp":
		s.printServerStatus()
		return State{Kind: KindPromptUser}, nil

	case "/compact":
		return State{Kind: KindCompactHistory, CompactPrompt: strings.Join(args, " "), ShowSummary: true, Resume: KindPromptUser}, nil

	case "/trust":
		if len(args) == 0 {
			fmt.Fprintln(s.out, "usage: /trust <tool-name>")
			return State{Kind: KindPromptUser}, nil
		}
		s.permissions.PerTool[args[0]] = true
		fmt.Fprintf(s.out, "trusting %q for the rest of this session\n", args[0])
		return State{Kind: KindPromptUser}, nil

	default:
		fmt.Fprintf(s.out, "unrecognized command %q (try /help)\n", cmd)
		return State{Kind: KindPromptUser}, nil
	}
}

func (s *Session) printHelp() {
	fmt.Fprint(s.out, `commands:
  /exit, /quit     leave the session
  /help            show this message
  /mcp             show configured MCP server status
  /compact [note]  summarize history now, optionally steering the summary
  /trust <tool>    run a tool without asking again this session

other input:
  !<command>       run a shell command and print its output
  y / t / n        answer a pending tool or sampling approval prompt
`)
}

func (s *Session) printServerStatus() {
	if s.registry == nil {
		fmt.Fprintln(s.out, "no MCP servers configured")
		return
	}
	names := s.registry.Names()
	sort.Strings(names)
	connected := make(map[string]bool)
	for _, n := range s.registry.Connected() {
		connected[n] = true
	}
	if len(names) == 0 {
		fmt.Fprintln(s.out, "no MCP servers configured")
		return
	}
	for _, name := range names {
		status := "disconnected"
		if connected[name] {
			status = "connected"
		}
		fmt.Fprintf(s.out, "  %-20s %s\n", name, status)
		for _, rec := range s.registry.History(name) {
			fmt.Fprintf(s.out, "    %s  %s\n", rec.At.Format("15:04:05"), rec.Detail)
		}
	}
	if s.samplingBridge != nil {
		if pending := s.samplingBridge.Pending(); len(pending) > 0 {
			fmt.Fprintf(s.out, "  %d sampling request(s) awaiting a decision\n", len(pending))
		}
	}
}
