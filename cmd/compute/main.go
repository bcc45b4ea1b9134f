package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/computeuse/backend/internal/infrastructure/config"
	"github.com/computeuse/backend/internal/infrastructure/logging"
	"github.com/computeuse/backend/internal/llm"
	"github.com/computeuse/backend/internal/loop"
	"github.com/computeuse/backend/internal/providers/bash"
	"github.com/computeuse/backend/internal/tools"
)

func main() {
	os.Exit(run())
}

func run() int {
	model := flag.String("model", "", "Model id (overrides ANTHROPIC_MODEL)")
	maxOps := flag.Int("max-ops", 0, "Operation budget (overrides LOOP_MAX_OPERATIONS)")
	timeout := flag.Duration("timeout", 0, "Task timeout (overrides LOOP_TASK_TIMEOUT)")
	quiet := flag.Bool("quiet", false, "Only print model text and command output")
	flag.Parse()

	task := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if task == "" {
		fmt.Fprintln(os.Stderr, "usage: compute [flags] <task>")
		flag.PrintDefaults()
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *model != "" {
		cfg.Anthropic.Model = *model
	}
	if *maxOps > 0 {
		cfg.Loop.MaxOperations = *maxOps
	}
	if *timeout > 0 {
		cfg.Loop.TaskTimeout = *timeout
	}
	if cfg.Anthropic.APIKey == "" {
		fmt.Fprintln(os.Stderr, "ANTHROPIC_API_KEY is not set")
		return 2
	}

	// Stdout belongs to the transcript
	logger := logging.NewNop()

	shell := bash.NewProvider(bash.Config{
		Shell:          cfg.Session.Shell,
		CommandTimeout: cfg.Session.CommandTimeout,
		PollInterval:   cfg.Session.PollInterval,
	}, logger, nil)
	defer shell.Close()

	client := llm.NewClient(llm.Config{
		APIKey:            cfg.Anthropic.APIKey,
		BaseURL:           cfg.Anthropic.BaseURL,
		MaxRetries:        cfg.Anthropic.MaxRetries,
		RequestsPerSecond: cfg.Anthropic.RequestsPerSecond,
		PromptCaching:     cfg.Anthropic.PromptCaching,
	}, logger, nil)

	agentLoop := loop.New(loop.Config{
		Model:         cfg.Anthropic.Model,
		MaxTokens:     cfg.Anthropic.MaxTokens,
		MaxOperations: cfg.Loop.MaxOperations,
		PromptCaching: cfg.Anthropic.PromptCaching,
	}, client, tools.NewCollection(shell), logger, nil)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Loop.TaskTimeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	events, _ := agentLoop.RunTask(ctx, task)

	code := 0
	for ev := range events {
		switch ev.Kind {
		case loop.EventText:
			fmt.Println(ev.Text)
		case loop.EventToolUse:
			if *quiet {
				continue
			}
			if command, ok := ev.Input["command"].(string); ok && command != "" {
				fmt.Printf("$ %s\n", command)
			} else {
				fmt.Println("$ [session restart]")
			}
		case loop.EventToolResult:
			if ev.Text != "" {
				fmt.Println(ev.Text)
			}
		case loop.EventSystem:
			if !*quiet {
				fmt.Printf("[%s]\n", ev.Text)
			}
		case loop.EventError:
			fmt.Fprintln(os.Stderr, ev.Text)
			code = 1
		case loop.EventDone:
			if !*quiet {
				fmt.Printf("[%s]\n", ev.Text)
			}
			if ev.Text != loop.OutcomeCompleted {
				code = 1
			}
		}
	}
	return code
}
