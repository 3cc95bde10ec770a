package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for metacrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metacrawl",
		Short: "Crawl tournament results into a ranked deck snapshot",
		Long: `metacrawl reads the metagame index of play.limitlesstcg.com, follows every
deck to its tournament finishes and every finish to its decklist, and writes
the most played decks with their most successful card lists to decks.json.

Each crawl is also kept in a local history database so that snapshots can be
compared over time.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("log-format", "text", "Log format: text or json")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
