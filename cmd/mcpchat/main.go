// Command mcpchat is a terminal chat client that talks to a model
// provider and, optionally, a set of Model Context Protocol servers,
// brokering tool use and sampling requests with the person at the
// keyboard.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/term"

	"mcpchat/pkg/chat"
	"mcpchat/pkg/config"
	"mcpchat/pkg/convo"
	"mcpchat/pkg/input"
	"mcpchat/pkg/logx"
	"mcpchat/pkg/registry"
	"mcpchat/pkg/sampling"
	"mcpchat/pkg/telemetry"
	"mcpchat/pkg/tokenbudget"
	"mcpchat/pkg/tools"
)

func main() {
	if len(os.Args) < 2 || os.Args[1] != "chat" {
		fmt.Fprintln(os.Stderr, "usage: mcpchat chat [--resume] [--profile NAME] [--model NAME] [--trust-tools a,b,c] [--trust-all] [--non-interactive] [initial input...]")
		os.Exit(1)
	}

	if err := runChat(os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "mcpchat:", err)
		os.Exit(1)
	}
}

func runChat(args []string) error {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	resume := fs.Bool("resume", false, "resume the saved conversation for this directory")
	profile := fs.String("profile", "", "config profile to use (default: the file's default_profile)")
	modelOverride := fs.String("model", "", "override the profile's model name")
	trustTools := fs.String("trust-tools", "", "comma-separated tool names to trust without prompting")
	trustAll := fs.Bool("trust-all", false, "run every tool without prompting (dangerous)")
	nonInteractive := fs.Bool("non-interactive", false, "send the initial input once and exit after the reply")
	if err := fs.Parse(args); err != nil {
		return err
	}
	initialInput := strings.Join(fs.Args(), " ")

	if *nonInteractive && initialInput == "" {
		return fmt.Errorf("--non-interactive requires initial input")
	}

	logger := logx.NewLogger(uuid.NewString())
	ctx := context.Background()

	configDir, err := config.DefaultConfigDir()
	if err != nil {
		return err
	}
	if err := loadSecrets(configDir); err != nil {
		return err
	}

	cfgFile, err := loadConfigFile()
	if err != nil {
		return err
	}
	profileCfg, err := cfgFile.Profile(*profile)
	if err != nil {
		return err
	}
	if *modelOverride != "" {
		profileCfg.Model.Name = *modelOverride
	}

	provider, err := buildProvider(ctx, profileCfg.Model, profileCfg.RequestTimeout(), logger)
	if err != nil {
		return err
	}

	recorder := telemetry.NewRecorder(nil)
	bridge := sampling.New(16)

	refresher := &catalogRefresher{logger: logger}
	reg := registry.New(logger, bridge.Handler(), refresher.Handle)
	refresher.reg = reg
	for _, sdef := range profileCfg.Servers {
		env := make([]string, 0, len(sdef.Env))
		for k, v := range sdef.Env {
			env = append(env, k+"="+v)
		}
		err := reg.Load(ctx, registry.ServerConfig{
			Name:     sdef.Name,
			Command:  sdef.Command,
			Args:     sdef.Args,
			Env:      env,
			Timeout:  sdef.Timeout(),
			Disabled: sdef.Disabled,
		})
		connected := err == nil && !sdef.Disabled
		recorder.SetServerConnected(sdef.Name, connected)
		if err != nil {
			fmt.Fprintf(os.Stderr, "mcpchat: failed to start MCP server %q: %v\n", sdef.Name, err)
		}
	}

	toolManager := tools.NewManager(reg)
	toolManager.Register(tools.NewExecuteShellTool())
	toolManager.Register(tools.NewReadFileTool())
	toolManager.Register(tools.NewWriteFileTool())
	refresher.tools = toolManager
	for _, name := range reg.Connected() {
		if err := toolManager.RefreshServer(ctx, name); err != nil {
			fmt.Fprintf(os.Stderr, "mcpchat: failed to list tools for %q: %v\n", name, err)
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	store, err := convo.OpenSQLiteStore(filepath.Join(configDir, "conversations.db"))
	if err != nil {
		return err
	}
	defer store.Close()

	state := convo.New(systemPrompt())
	if *resume {
		if saved, err := store.GetConversationByPath(ctx, cwd); err == nil {
			state.Messages = saved.Messages
		} else if err != convo.ErrNotFound {
			fmt.Fprintf(os.Stderr, "mcpchat: failed to resume conversation: %v\n", err)
		}
	}

	permissions := chat.Permissions{TrustAll: *trustAll, PerTool: make(map[string]bool)}
	for _, name := range strings.Split(*trustTools, ",") {
		if name = strings.TrimSpace(name); name != "" {
			permissions.PerTool[name] = true
		}
	}

	counter, err := tokenbudget.NewCounter(profileCfg.Model.ResolvedModel())
	if err != nil {
		return err
	}

	var in *input.Source
	switch {
	case *nonInteractive:
		in = input.New(strings.NewReader(initialInput + "\n"))
	case initialInput != "":
		in = input.New(io.MultiReader(strings.NewReader(initialInput+"\n"), os.Stdin))
	default:
		in = input.New(os.Stdin)
	}

	session := chat.New(chat.Options{
		Convo:          state,
		Provider:       provider,
		ProviderName:   profileCfg.Model.Provider,
		ModelName:      profileCfg.Model.ResolvedModel(),
		Tools:          toolManager,
		Registry:       reg,
		SamplingBridge: bridge,
		Permissions:    permissions,
		Counter:        counter,
		Budget:         tokenbudget.DefaultBudget,
		Store:          store,
		StorePath:      cwd,
		Input:          in,
		Output:         os.Stdout,
		Logger:         logger,
		Recorder:       recorder,
	})

	err = session.Run(ctx)
	reg.CloseAll()
	return err
}

func systemPrompt() string {
	return "You are a helpful assistant running in a terminal chat client. " +
		"You can call tools exposed by connected MCP servers and a local shell tool; " +
		"the user approves any tool invocation that could change their system."
}

func loadSecrets(configDir string) error {
	if !config.SecretsFileExists(configDir) {
		return nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil
	}
	fmt.Fprint(os.Stderr, "secrets passphrase: ")
	passwordBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("read passphrase: %w", err)
	}
	secrets, err := config.DecryptSecretsFile(configDir, string(passwordBytes))
	if err != nil {
		return fmt.Errorf("decrypt secrets: %w", err)
	}
	config.SetDecryptedSecrets(secrets)
	return nil
}

func loadConfigFile() (*config.File, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	if path, err := config.FindProjectConfig(cwd); err == nil && path != "" {
		return config.Load(path)
	}

	configDir, err := config.DefaultConfigDir()
	if err != nil {
		return nil, err
	}
	userConfig := filepath.Join(configDir, "config.yaml")
	if _, err := os.Stat(userConfig); err == nil {
		return config.Load(userConfig)
	}
	return &config.File{}, nil
}
