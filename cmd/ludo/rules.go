package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/l101ta/ludo/internal/rules"
)

func newRulesCommand() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "rules [message]",
		Short: "List the fixed-reply rules, or show which one a message hits",
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := rules.Load(file)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) > 0 {
				r, ok := table.Find(strings.Join(args, " "))
				if !ok {
					fmt.Fprintln(out, "no rule matches; the message goes to the model")
					return nil
				}
				fmt.Fprintf(out, "%s\t%s\n", r.Keyword, r.Reply)
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tKEYWORD\tREPLY")
			for i, r := range table.Rules() {
				fmt.Fprintf(tw, "%d\t%s\t%s\n", i+1, r.Keyword, r.Reply)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML rule file (default: built-in rules, or $RULES_FILE)")
	cmd.PreRun = func(cmd *cobra.Command, _ []string) {
		if file != "" {
			return
		}
		cfg, err := loadConfig()
		if err != nil {
			// Listing rules needs no other settings, so keep going.
			file = os.Getenv("RULES_FILE")
			log.Warn().Err(err).Str("rules_file", file).Msg("configuration invalid, reading RULES_FILE directly")
			return
		}
		file = cfg.RulesFile
	}
	return cmd
}
