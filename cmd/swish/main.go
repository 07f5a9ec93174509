package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/marcelocantos/swish/internal/audit"
	"github.com/marcelocantos/swish/internal/cli"
	"github.com/marcelocantos/swish/internal/config"
	"github.com/marcelocantos/swish/internal/logging"
	"github.com/marcelocantos/swish/internal/policy"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	args := os.Args[1:]
	if len(args) > 0 {
		switch args[0] {
		case "--help", "-h":
			return cli.RunHelp(os.Stdout)
		case "--version":
			fmt.Printf("swish %s\n", version)
			return 0
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "swish: config: %v\n", err)
		return 2
	}

	log, err := logging.New(cfg.LoggingConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "swish: logging: %v\n", err)
		return 2
	}
	defer func() { _ = log.Sync() }()

	if len(args) > 0 && args[0] == "--audit" {
		return cli.RunAudit(os.Stdout, cfg.Audit.Path, args[1:])
	}

	engine := policy.New(cfg.Policy.RuleSet())
	if cfg.Policy.Script != "" {
		engine, err = policy.Load(cfg.Policy.Script)
		if err != nil {
			fmt.Fprintf(os.Stderr, "swish: %v\n", err)
			return 2
		}
		engine.WithRules(cfg.Policy.RuleSet())
	}

	var auditLog *audit.Logger
	if cfg.Audit.Enabled {
		auditLog, err = audit.NewLogger(cfg.Audit.Path)
		if err != nil {
			// Continue without audit logging.
			log.Warn("audit log unavailable", zap.String("path", cfg.Audit.Path), zap.Error(err))
			auditLog = nil
		}
	}

	app := &cli.App{
		Policy: engine,
		Audit:  auditLog,
		Log:    log,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}

	if len(args) == 0 && term.IsTerminal(int(os.Stdin.Fd())) {
		return app.RunInteractive(context.Background(), cfg.Shell.Prompt, cfg.Shell.HistoryFile)
	}

	// Set up context with cancellation on interrupt.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if len(args) == 0 {
		app.Stdin = nil
		return app.RunScript(ctx, os.Stdin)
	}

	switch args[0] {
	case "-c":
		if len(args) != 2 {
			fmt.Fprintln(os.Stderr, "usage: swish -c '<line>'")
			return 2
		}
		return app.RunLine(ctx, args[1])
	case "--pipe":
		return app.RunTokens(ctx, args[1:])
	case "--mcp":
		app.Stdin = nil
		return app.RunMCP(version)
	default:
		fmt.Fprintf(os.Stderr, "swish: unknown option %q\n", args[0])
		cli.RunHelp(os.Stderr)
		return 2
	}
}
