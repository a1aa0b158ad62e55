package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/l101ta/ludo/internal/ai"
	"github.com/l101ta/ludo/internal/audit"
	"github.com/l101ta/ludo/internal/bot"
	"github.com/l101ta/ludo/internal/config"
	"github.com/l101ta/ludo/internal/prompt"
	"github.com/l101ta/ludo/internal/rules"
	"github.com/l101ta/ludo/internal/session"
	"github.com/l101ta/ludo/internal/store"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	setupLogging(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	return cfg, nil
}

func setupLogging(w io.Writer, level, format string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	if format == "console" {
		w = zerolog.ConsoleWriter{Out: w}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}

func newCompleter(ctx context.Context, cfg *config.Config) (ai.Completer, error) {
	if err := cfg.RequireModel(); err != nil {
		return nil, err
	}
	var c ai.Completer
	switch cfg.Provider {
	case config.ProviderGemini:
		g, err := ai.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiBaseURL)
		if err != nil {
			return nil, err
		}
		c = g
	default:
		c = ai.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	}
	return ai.WithTimeout(c, cfg.CompletionTimeout), nil
}

// newAuditSink wires every configured sink. A sink that fails to start is
// skipped; logging is best-effort and never stops the bot from serving.
func newAuditSink(ctx context.Context, cfg *config.Config) (audit.Sink, func()) {
	var sinks audit.Multi
	var closers []func()

	if cfg.GoogleCredsJSON != "" {
		s, err := audit.NewSheets(ctx, audit.SheetsConfig{
			CredentialsJSON: []byte(cfg.GoogleCredsJSON),
			SpreadsheetID:   cfg.SheetID,
			SpreadsheetName: cfg.SheetName,
			Worksheet:       cfg.WorksheetName,
		})
		if err != nil {
			log.Warn().Err(err).Str("component", "audit").Msg("google sheets disabled")
		} else {
			sinks = append(sinks, s)
			log.Info().Str("component", "audit").Str("worksheet", cfg.WorksheetName).Msg("logging to google sheets")
		}
	}

	if cfg.AuditDB != "" {
		db, err := store.NewBoltStore(cfg.AuditDB)
		if err != nil {
			log.Warn().Err(err).Str("component", "audit").Str("path", cfg.AuditDB).Msg("local audit log disabled")
		} else {
			sinks = append(sinks, db)
			closers = append(closers, func() { db.Close() })
			log.Info().Str("component", "audit").Str("path", cfg.AuditDB).Msg("logging to local db")
		}
	}

	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	if len(sinks) == 0 {
		log.Info().Str("component", "audit").Msg("no audit sink configured")
		return audit.Discard{}, closeAll
	}
	return sinks, closeAll
}

func newComposer(cfg *config.Config) *prompt.Composer {
	return prompt.NewComposer(prompt.Options{
		Domain:  cfg.Domain,
		Topics:  cfg.Topics,
		Refusal: cfg.RefusalText,
		Budget:  cfg.ReplyBudget,
	})
}

func newDispatcher(
	cfg *config.Config,
	table *rules.Table,
	sessions session.Store,
	completer ai.Completer,
	sender bot.Sender,
	auditLog bot.AuditLog,
) *bot.Dispatcher {
	return bot.NewDispatcher(
		table,
		sessions,
		prompt.NewUsers(cfg.PrivilegedUsers...),
		newComposer(cfg),
		completer,
		sender,
		auditLog,
		bot.Options{
			ReplyLimit:      cfg.ReplyLimit,
			MaxOutputTokens: cfg.MaxOutputTokens,
			FailureReply:    cfg.FailureReply,
		},
	)
}
