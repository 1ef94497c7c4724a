package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/crosstalk-ai/crosstalk/chat"
	"github.com/crosstalk-ai/crosstalk/config"
	"github.com/crosstalk-ai/crosstalk/llm"
	xtlogger "github.com/crosstalk-ai/crosstalk/logger"
	"github.com/crosstalk-ai/crosstalk/provider"
)

func main() {
	// Parse command-line flags
	var (
		providerID = flag.String("provider", "", "Provider id from config (defaults to default_provider)")
		model      = flag.String("model", "", "Model name override")
		system     = flag.String("system", "", "System prompt")
		noStream   = flag.Bool("no-stream", false, "Use the non-streaming path")
		logFile    = flag.String("logfile", "", "Path to log file. If not set, logs to stdout/stderr")
		pretty     = flag.Bool("pretty", false, "Use pretty console output (only valid when logfile is not set)")
	)
	flag.Parse()

	if *logFile != "" && *pretty {
		fmt.Fprintf(os.Stderr, "Error: --logfile and --pretty are mutually exclusive\n")
		os.Exit(1)
	}

	prompt := strings.Join(flag.Args(), " ")
	if prompt == "" {
		fmt.Fprintf(os.Stderr, "Usage: crosstalk [flags] <prompt>\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	logger, err := xtlogger.InitWithOptions(*logFile, *pretty)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(config.GetConfigPath())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	id := *providerID
	if id == "" {
		id = cfg.DefaultProvider
	}
	llmCfg, ok := cfg.Providers[id]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown provider %q; configure it in %s\n", id, config.GetConfigPath())
		os.Exit(1)
	}

	cache := provider.NewCache(provider.NewRegistry(logger), logger)
	cache.Start(provider.DefaultSweepInterval)
	defer cache.Stop()

	orchestrator := chat.NewOrchestrator(cache, logger)

	// Abort the in-flight turn on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info().Msg("Aborting on signal")
		orchestrator.Abort()
	}()

	timeout := time.Duration(cfg.ChatTimeout) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req := &llm.Request{
		Model:    *model,
		System:   *system,
		Messages: []llm.Message{llm.NewTextMessage(llm.RoleUser, prompt)},
		Stream:   !*noStream,
	}

	exitCode := 0
	handler := chat.HandlerFuncs{
		Text: func(text string) {
			fmt.Print(text)
		},
		ToolCallStart: func(id, name string) {
			fmt.Printf("\n[tool call: %s]\n", name)
		},
		ToolCallEnd: func(call llm.ToolUseBlock) {
			fmt.Printf("[tool call %s finished]\n", call.Name)
		},
		Complete: func(result *llm.Result) {
			if *noStream {
				fmt.Print(result.Content)
			}
			fmt.Println()
			if result.Usage != nil {
				logger.Info().
					Int64("input_tokens", result.Usage.InputTokens).
					Int64("output_tokens", result.Usage.OutputTokens).
					Msg("Chat turn complete")
			}
		},
		Error: func(err *llm.Error) {
			fmt.Fprintf(os.Stderr, "\nError (%s): %s\n", err.Type, err.Message)
			exitCode = 1
		},
	}

	orchestrator.Send(ctx, id, llmCfg, req, handler)
	os.Exit(exitCode)
}
