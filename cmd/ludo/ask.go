package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/l101ta/ludo/internal/audit"
	"github.com/l101ta/ludo/internal/bot"
	"github.com/l101ta/ludo/internal/rules"
	"github.com/l101ta/ludo/internal/session"
)

// printSender writes replies to a terminal instead of LINE.
type printSender struct {
	w io.Writer
}

func (p printSender) Reply(_ context.Context, _ string, text string) error {
	_, err := fmt.Fprintln(p.w, text)
	return err
}

func newAskCommand() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Answer one message from the terminal, as the bot would",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			table, err := rules.Load(cfg.RulesFile)
			if err != nil {
				return err
			}
			completer, err := newCompleter(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			d := newDispatcher(cfg, table, session.NewMemory(cfg.HistoryWindow), completer,
				printSender{w: cmd.OutOrStdout()}, noAudit{})
			out := d.Handle(cmd.Context(), askEvent(userID, args))
			return out.Err
		},
	}
	cmd.Flags().StringVar(&userID, "user", "cli", "user ID to ask as (privileged IDs get the open instruction)")
	return cmd
}

func askEvent(userID string, args []string) bot.Event {
	return bot.Event{UserID: userID, Text: strings.Join(args, " "), ReplyToken: "cli"}
}

type noAudit struct{}

func (noAudit) Log(audit.Row) bool { return true }
