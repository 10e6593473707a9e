// ABOUTME: Entry point for coven-chatops, the group-chat assistant and moderator
// ABOUTME: Cobra root runs the bot; init writes a config; version prints build info

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/2389/coven-chatops/internal/ai"
	"github.com/2389/coven-chatops/internal/config"
	"github.com/2389/coven-chatops/internal/store"
)

const banner = `
                                               _           _
  ___ _____   _____ _ __         ___| |__   __ _| |_ ___  _ __  ___
 / __/ _ \ \ / / _ \ '_ \ _____ / __| '_ \ / _' | __/ _ \| '_ \/ __|
| (_| (_) \ V /  __/ | | |_____| (__| | | | (_| | || (_) | |_) \__ \
 \___\___/ \_/ \___|_| |_|      \___|_| |_|\__,_|\__\___/| .__/|___/
                                                         |_|
`

// Set at build time with -ldflags "-X main.version=...".
var version = "dev"

// shutdownTimeout bounds how long queued events may take to drain.
const shutdownTimeout = 30 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "coven-chatops",
		Short:         "Group chat assistant and moderator for Matrix and Discord",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default "+config.Path()+")")

	root.AddCommand(
		&cobra.Command{
			Use:   "init",
			Short: "Interactively write a config file",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runInit(resolveConfigPath(configPath))
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Println("coven-chatops", version)
			},
		},
	)
	return root
}

func resolveConfigPath(flag string) string {
	if flag != "" {
		return flag
	}
	return config.Path()
}

func run(parent context.Context, configFlag string) error {
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	configPath := resolveConfigPath(configFlag)
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config from %s: %w", configPath, err)
	}

	logger := setupLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)
	printSummary(configPath, cfg)

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	completer, err := ai.New(ai.Options{
		Provider:  cfg.AI.Provider,
		APIKey:    cfg.AI.APIKey,
		BaseURL:   cfg.AI.BaseURL,
		Model:     cfg.AI.Model,
		MaxTokens: cfg.AI.MaxTokens,
		Timeout:   cfg.AI.Timeout,
	})
	if err != nil {
		return fmt.Errorf("creating AI client: %w", err)
	}

	var audit store.AuditLog
	if cfg.Audit.Enabled {
		ledger, err := store.NewSQLiteStore(cfg.Audit.Path, logger)
		if err != nil {
			return fmt.Errorf("opening audit ledger: %w", err)
		}
		defer ledger.Close()
		audit = ledger
	}

	deps := frontendDeps{cfg: cfg, completer: completer, audit: audit, logger: logger}

	frontends, err := buildFrontends(logger, []frontendBuilder{
		{name: "matrix", enabled: cfg.Matrix.Enabled, build: func() (frontend, error) {
			return newMatrixFrontend(ctx, deps)
		}},
		{name: "discord", enabled: cfg.Discord.Enabled, build: func() (frontend, error) {
			return newDiscordFrontend(deps)
		}},
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, f := range frontends {
		g.Go(func() error {
			return f.run(gctx)
		})
	}
	runErr := g.Wait()

	shutdownFrontends(logger, frontends)

	logger.Info("stopped")
	return runErr
}

func printSummary(configPath string, cfg *config.Config) {
	green := color.New(color.FgGreen)
	line := func(label, value string) {
		green.Print("    ▶ ")
		fmt.Printf("%-12s%s\n", label+":", value)
	}

	line("Config", configPath)
	line("AI", cfg.AI.Provider+" / "+cfg.AI.Model)
	line("Prefix", cfg.Bot.CommandPrefix)
	if cfg.Matrix.Enabled {
		line("Matrix", cfg.Matrix.Username+" @ "+cfg.Matrix.Homeserver)
		if cfg.Matrix.RecoveryKey != "" {
			line("Encryption", "enabled")
		}
	}
	if cfg.Discord.Enabled {
		line("Discord", "enabled")
	}
	if cfg.Audit.Enabled {
		line("Audit", cfg.Audit.Path)
	}
	fmt.Println()
}

func setupLogger(level, format string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
