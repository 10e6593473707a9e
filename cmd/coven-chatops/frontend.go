// ABOUTME: Wires one chat network to its own conversation store and handlers
// ABOUTME: Each frontend owns a coordinator; the AI client and audit ledger are shared

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/2389/coven-chatops/internal/ai"
	"github.com/2389/coven-chatops/internal/assistant"
	"github.com/2389/coven-chatops/internal/commands"
	"github.com/2389/coven-chatops/internal/config"
	"github.com/2389/coven-chatops/internal/conversation"
	"github.com/2389/coven-chatops/internal/discord"
	"github.com/2389/coven-chatops/internal/matrix"
	"github.com/2389/coven-chatops/internal/moderation"
	"github.com/2389/coven-chatops/internal/session"
	"github.com/2389/coven-chatops/internal/store"
)

type frontendDeps struct {
	cfg       *config.Config
	completer ai.Completer
	audit     store.AuditLog
	logger    *slog.Logger
}

type frontend struct {
	name     string
	run      func(ctx context.Context) error
	shutdown func(ctx context.Context) error
}

type frontendBuilder struct {
	name    string
	enabled bool
	build   func() (frontend, error)
}

// buildFrontends builds every enabled frontend. If one fails, the ones
// already built are shut down before the error is returned.
func buildFrontends(logger *slog.Logger, builders []frontendBuilder) ([]frontend, error) {
	var built []frontend
	for _, b := range builders {
		if !b.enabled {
			continue
		}
		f, err := b.build()
		if err != nil {
			shutdownFrontends(logger, built)
			return nil, err
		}
		built = append(built, f)
	}
	if len(built) == 0 {
		return nil, errors.New("no chat network enabled")
	}
	return built, nil
}

// shutdownFrontends drains and closes frontends, bounded by shutdownTimeout.
func shutdownFrontends(logger *slog.Logger, frontends []frontend) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, f := range frontends {
		if err := f.shutdown(ctx); err != nil {
			logger.Warn("shutdown incomplete", "frontend", f.name, "error", err)
		}
	}
}

// newCoordinator builds the core for one channel.
func newCoordinator(d frontendDeps, channel session.Channel, logger *slog.Logger) (*session.Coordinator, error) {
	st := conversation.NewStore(
		conversation.WithWindow(d.cfg.Bot.HistoryWindow),
		conversation.WithSystemPrompt(d.cfg.AI.SystemPrompt),
	)

	cmdOpts := []commands.Option{
		commands.WithPrefix(d.cfg.Bot.CommandPrefix),
		commands.WithLogger(logger),
	}
	modOpts := []moderation.Option{
		moderation.WithSpamPredicate(moderation.LongerThan(d.cfg.Bot.SpamThreshold)),
		moderation.WithLogger(logger),
	}
	if d.audit != nil {
		cmdOpts = append(cmdOpts, commands.WithAuditLog(d.audit))
		modOpts = append(modOpts, moderation.WithRecorder(d.audit))
	}

	orchestrator := assistant.New(st, d.completer,
		assistant.WithDefaultSystem(d.cfg.AI.SystemPrompt),
		assistant.WithLogger(logger),
	)

	return session.New(session.Config{
		Store:           st,
		Channel:         channel,
		Commands:        commands.NewDispatcher(st, channel, cmdOpts...),
		Moderation:      moderation.NewPipeline(channel, modOpts...),
		Assistant:       orchestrator,
		TypingIndicator: d.cfg.Bot.Typing(),
		Logger:          logger,
	})
}

func newMatrixFrontend(ctx context.Context, d frontendDeps) (frontend, error) {
	logger := d.logger.With("network", "matrix")
	m := d.cfg.Matrix

	channel, err := matrix.New(matrix.Config{
		Homeserver:      m.Homeserver,
		Username:        m.Username,
		Password:        m.Password,
		RecoveryKey:     m.RecoveryKey,
		AllowedRooms:    m.AllowedRooms,
		AdminPowerLevel: m.AdminPowerLevel,
		AutoJoin:        m.JoinOnInvite(),
		DataDir:         config.DataDir(),
	}, logger)
	if err != nil {
		return frontend{}, fmt.Errorf("creating matrix channel: %w", err)
	}
	if err := channel.Login(ctx); err != nil {
		return frontend{}, fmt.Errorf("matrix login: %w", err)
	}

	coord, err := newCoordinator(d, channel, logger)
	if err != nil {
		_ = channel.Close()
		return frontend{}, fmt.Errorf("creating matrix coordinator: %w", err)
	}

	return frontend{
		name: "matrix",
		run: func(ctx context.Context) error {
			return channel.Run(ctx, coord)
		},
		shutdown: func(ctx context.Context) error {
			err := coord.Shutdown(ctx)
			if cerr := channel.Close(); cerr != nil {
				logger.Warn("closing crypto store", "error", cerr)
			}
			return err
		},
	}, nil
}

func newDiscordFrontend(d frontendDeps) (frontend, error) {
	logger := d.logger.With("network", "discord")

	channel, err := discord.New(discord.Config{
		Token:           d.cfg.Discord.Token,
		AllowedChannels: d.cfg.Discord.AllowedChannels,
	}, logger)
	if err != nil {
		return frontend{}, fmt.Errorf("creating discord channel: %w", err)
	}

	coord, err := newCoordinator(d, channel, logger)
	if err != nil {
		return frontend{}, fmt.Errorf("creating discord coordinator: %w", err)
	}

	return frontend{
		name: "discord",
		run: func(ctx context.Context) error {
			return channel.Run(ctx, coord)
		},
		shutdown: coord.Shutdown,
	}, nil
}
