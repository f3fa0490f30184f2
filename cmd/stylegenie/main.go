// StyleGenie is a conversational fashion assistant.
//
// It chats about outfits, edits outfit photos on request, searches the
// web for shopping links localized to the user's country, and remembers
// durable facts about each user across conversations.
//
// Usage:
//
//	stylegenie serve             Start the API server
//	stylegenie ask <question>    Ask a single question (for testing)
//	stylegenie version           Print version and build information
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/keynar/stylegenie/internal/agent"
	"github.com/keynar/stylegenie/internal/api"
	"github.com/keynar/stylegenie/internal/buildinfo"
	"github.com/keynar/stylegenie/internal/config"
	"github.com/keynar/stylegenie/internal/country"
	"github.com/keynar/stylegenie/internal/imagegen"
	"github.com/keynar/stylegenie/internal/llm"
	"github.com/keynar/stylegenie/internal/memory"
	"github.com/keynar/stylegenie/internal/search"
	"github.com/keynar/stylegenie/internal/session"
	"github.com/keynar/stylegenie/internal/store"
	"github.com/keynar/stylegenie/internal/tools"
)

// main is intentionally minimal. It constructs the OS-level environment
// and delegates immediately to [run], keeping os.Exit, os.Stdout, and
// os.Args out of the application logic so the full lifecycle can be
// driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point. Arguments are parsed by hand: the flag
// package relies on package-level globals, which makes it impossible to
// call run() concurrently from tests, and the argument surface here is
// small.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	var configPath string
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	switch command {
	case "serve":
		return runServe(ctx, stdout, configPath)
	case "ask":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: stylegenie ask <question>")
		}
		return runAsk(ctx, stdout, configPath, cmdArgs)
	case "version":
		fmt.Fprintln(stdout, buildinfo.String())
		return nil
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "StyleGenie - Conversational Fashion Assistant")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: stylegenie [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve        Start the API server")
	fmt.Fprintln(w, "  ask          Ask a single question (for testing)")
	fmt.Fprintln(w, "  version      Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./config.yaml, ~/.config/stylegenie/config.yaml, /etc/stylegenie/config.yaml")
	return nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))
}

func loadConfig(explicit string) (*config.Config, string, error) {
	cfgPath, err := config.FindConfig(explicit)
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, cfgPath, err
	}
	return cfg, cfgPath, nil
}

// createLLMClient selects the chat backend from configuration.
// Validate() has already confirmed the provider and its credential.
func createLLMClient(cfg *config.Config, logger *slog.Logger) llm.Client {
	if cfg.Model.Provider == "anthropic" {
		return llm.NewAnthropicClient(cfg.Credentials.AnthropicAPIKey, logger)
	}
	return llm.NewGeminiClient(cfg.Credentials.GeminiAPIKey, logger)
}

// buildRegistry constructs the tool registry from whatever backends the
// configuration enables.
func buildRegistry(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*tools.Registry, *imagegen.Editor, error) {
	editor, err := imagegen.New(ctx, cfg.Credentials.GeminiAPIKey, cfg.ImageEdit.Model, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("image editor: %w", err)
	}

	searchMgr := search.NewManager(cfg.Search.Primary)
	if cfg.Credentials.TavilyAPIKey != "" {
		searchMgr.Register(search.NewTavily(cfg.Credentials.TavilyAPIKey))
	}
	if cfg.Credentials.LinkupAPIKey != "" {
		searchMgr.Register(search.NewLinkup(cfg.Credentials.LinkupAPIKey))
	}
	if searchMgr.Configured() {
		logger.Info("search providers registered",
			"providers", searchMgr.Providers(), "primary", cfg.Search.Primary)
	} else {
		logger.Warn("no search provider configured, web_search tool disabled")
	}

	var memories *memory.Client
	if cfg.Credentials.Mem0APIKey != "" {
		memories = memory.NewClient(cfg.Memory.BaseURL, cfg.Credentials.Mem0APIKey, cfg.Memory.PageSize, logger)
	} else {
		logger.Warn("mem0 not configured, long-term memory tools disabled")
	}

	return tools.NewRegistry(editor, searchMgr, country.NewClient(), memories), editor, nil
}

// runServe starts the full HTTP service and blocks until the context is
// cancelled or the server fails.
func runServe(ctx context.Context, stdout io.Writer, configPath string) error {
	logger := newLogger(stdout, slog.LevelInfo)
	logger.Info("starting StyleGenie",
		"version", buildinfo.Version, "commit", buildinfo.GitCommit, "built", buildinfo.BuildTime)

	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	if cfg.LogLevel != "" {
		level, err := config.ParseLogLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		logger = newLogger(stdout, level)
	}
	logger.Info("config loaded",
		"path", cfgPath,
		"port", cfg.Listen.Port,
		"model", cfg.Model.Name,
		"provider", cfg.Model.Provider,
		"search", cfg.Search.Primary,
	)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data directory %s: %w", cfg.DataDir, err)
	}

	dbPath := filepath.Join(cfg.DataDir, "stylegenie.db")
	st, err := store.Open(dbPath, logger)
	if err != nil {
		return fmt.Errorf("open conversation database %s: %w", dbPath, err)
	}
	defer st.Close()
	logger.Info("conversation database opened", "path", dbPath)

	registry, editor, err := buildRegistry(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer editor.Close()

	llmClient := createLLMClient(cfg, logger)
	pingCtx, cancelPing := context.WithTimeout(ctx, 10*time.Second)
	if err := llmClient.Ping(pingCtx); err != nil {
		logger.Warn("model backend unreachable at startup", "provider", cfg.Model.Provider, "error", err)
	} else {
		logger.Info("model backend reachable", "provider", cfg.Model.Provider, "model", cfg.Model.Name)
	}
	cancelPing()

	ag := agent.New(logger, llmClient, registry, st, cfg.Model.Name, cfg.MaxIterations)

	listen := fmt.Sprintf("%s:%d", cfg.Listen.Address, cfg.Listen.Port)
	server := api.NewServer(listen, ag, st, session.NewResolver(st), logger)

	// Graceful shutdown on SIGINT/SIGTERM or context cancellation.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(ctx)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// runAsk boots a minimal one-shot agent against a throwaway database
// and prints the answer. Useful for smoke tests without the HTTP layer.
func runAsk(ctx context.Context, stdout io.Writer, configPath string, args []string) error {
	logger := newLogger(stdout, slog.LevelWarn)
	question := strings.Join(args, " ")

	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	dir, err := os.MkdirTemp("", "stylegenie-ask-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	st, err := store.Open(filepath.Join(dir, "ask.db"), logger)
	if err != nil {
		return err
	}
	defer st.Close()

	registry, editor, err := buildRegistry(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer editor.Close()

	conv, err := st.Create("cli", "")
	if err != nil {
		return err
	}

	ag := agent.New(logger, createLLMClient(cfg, logger), registry, st, cfg.Model.Name, cfg.MaxIterations)
	result, err := ag.Run(ctx, agent.TurnInput{
		UserID:         "cli",
		ConversationID: conv.ID,
		Text:           question,
	})
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}

	fmt.Fprintln(stdout, result.Text)
	return nil
}
