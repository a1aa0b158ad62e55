package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/l101ta/ludo/internal/audit"
	"github.com/l101ta/ludo/internal/bot"
	"github.com/l101ta/ludo/internal/config"
	"github.com/l101ta/ludo/internal/line"
	"github.com/l101ta/ludo/internal/rules"
	"github.com/l101ta/ludo/internal/session"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the LINE webhook server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireServe(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	table, err := rules.Load(cfg.RulesFile)
	if err != nil {
		return err
	}
	completer, err := newCompleter(ctx, cfg)
	if err != nil {
		return err
	}

	sink, closeSink := newAuditSink(ctx, cfg)
	defer closeSink()
	auditLog := audit.NewLogger(sink, cfg.AuditQueueSize, 0)

	lineClient, err := line.NewClient(cfg.LineChannelAccessToken)
	if err != nil {
		return err
	}

	sessions := session.NewMemory(cfg.HistoryWindow)
	dispatcher := newDispatcher(cfg, table, sessions, completer, lineClient, auditLog)
	webhook := line.NewWebhookHandler(cfg.LineChannelSecret, func(msgs []line.TextMessage) {
		dispatcher.Submit(toEvents(msgs)...)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newRouter(log.Logger, webhook),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		log.Info().Str("port", cfg.Port).Str("provider", cfg.Provider).Int("rules", table.Len()).Msg("ludo: listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	eg.Go(func() error {
		<-egCtx.Done()
		log.Info().Msg("ludo: shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		if werr := dispatcher.Shutdown(shutdownCtx); werr != nil {
			log.Warn().Err(werr).Msg("ludo: requests still in flight")
		}
		if cerr := auditLog.Close(shutdownCtx); cerr != nil {
			log.Warn().Err(cerr).Msg("ludo: audit rows not flushed")
		}
		log.Info().Msg("ludo: stopped")
		return err
	})

	// Sessions live for the whole process unless an idle TTL is configured.
	if cfg.SessionIdleTTL > 0 {
		eg.Go(func() error {
			ticker := time.NewTicker(cleanupInterval(cfg.SessionIdleTTL))
			defer ticker.Stop()
			for {
				select {
				case <-egCtx.Done():
					return nil
				case <-ticker.C:
					if n := sessions.Cleanup(cfg.SessionIdleTTL); n > 0 {
						log.Info().Int("removed", n).Int("remaining", sessions.Len()).Msg("session cleanup")
					}
				}
			}
		})
	}

	return eg.Wait()
}

func newRouter(logger zerolog.Logger, webhook *line.WebhookHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(hlog.NewHandler(logger.With().Str("component", "http").Logger()))
	r.Use(hlog.RemoteAddrHandler("remote"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Post("/callback", webhook.HandleCallback)
	return r
}

func toEvents(msgs []line.TextMessage) []bot.Event {
	events := make([]bot.Event, len(msgs))
	for i, m := range msgs {
		events[i] = bot.Event{
			UserID:     m.UserID,
			Text:       m.Text,
			ReplyToken: m.ReplyToken,
			EventID:    m.EventID,
			Redelivery: m.Redelivery,
		}
	}
	return events
}

func cleanupInterval(ttl time.Duration) time.Duration {
	if d := ttl / 2; d > time.Minute {
		return d
	}
	return time.Minute
}
