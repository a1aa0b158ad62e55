package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "ludo",
		Short:         "LINE assistant for board game design questions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand(), newAskCommand(), newRulesCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ludo:", err)
		os.Exit(1)
	}
}
