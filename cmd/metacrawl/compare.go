package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/metacrawl/internal/config"
	"github.com/nao1215/metacrawl/internal/database"
	"github.com/nao1215/metacrawl/internal/meta"
	"github.com/nao1215/metacrawl/internal/model"
	"github.com/nao1215/metacrawl/internal/report"
	"github.com/spf13/cobra"
)

// errNoHistory is returned when the history database does not exist yet.
var errNoHistory = errors.New("no snapshot history found (run 'metacrawl crawl' first)")

// NewCompareCmd creates the compare command.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare stored metagame snapshots",
		Long: `Compare shows how the metagame moved between two crawls stored in the
history database:
- decks that entered or dropped out of the ranking
- rank, share, win rate and player count changes of the others
- how many of each deck's decklists are new

By default the latest two snapshots are compared.

Examples:
  # Compare the latest two snapshots
  metacrawl compare

  # List stored snapshots
  metacrawl compare --list

  # Compare the latest snapshot with an older one
  metacrawl compare --with-snapshot-id 6f1c...

  # Show one deck across every snapshot
  metacrawl compare --deck "Mewtwo ex Gardevoir"

  # Output as JSON or Markdown
  metacrawl compare --json
  metacrawl compare --markdown`,
		Args: cobra.NoArgs,
		RunE: runCompareCmd,
	}

	cmd.Flags().BoolP("list", "l", false,
		"List stored snapshots")
	cmd.Flags().StringP("deck", "d", "",
		"Show the trend of one deck across all snapshots")
	cmd.Flags().StringP("with-snapshot-id", "i", "",
		"Compare the latest snapshot with this one (use --list to see IDs)")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output in Markdown format")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")
	cmd.MarkFlagsMutuallyExclusive("json", "markdown")
	cmd.MarkFlagsMutuallyExclusive("list", "deck", "with-snapshot-id")

	return cmd
}

// outputFormat selects how compare renders its result.
type outputFormat int

const (
	formatText outputFormat = iota
	formatJSON
	formatMarkdown
)

func runCompareCmd(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()

	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return err
	}
	list, err := flags.GetBool("list")
	if err != nil {
		return err
	}
	deckName, err := flags.GetString("deck")
	if err != nil {
		return err
	}
	withID, err := flags.GetString("with-snapshot-id")
	if err != nil {
		return err
	}
	jsonOutput, err := flags.GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := flags.GetBool("markdown")
	if err != nil {
		return err
	}

	format := formatText
	switch {
	case jsonOutput:
		format = formatJSON
	case markdownOutput:
		format = formatMarkdown
	}

	db, err := openHistory(dbDir)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	out := cmd.OutOrStdout()

	switch {
	case list:
		return listSnapshots(ctx, db, out, format)
	case deckName != "":
		return showDeckTrend(ctx, db, out, deckName, format)
	default:
		return runComparison(ctx, db, out, withID, format)
	}
}

// openHistory opens an existing history database without creating one.
func openHistory(dbDir string) (*database.SnapshotDB, error) {
	if _, err := os.Stat(filepath.Join(dbDir, database.FileName)); os.IsNotExist(err) {
		return nil, errNoHistory
	}
	db, err := database.Open(dbDir, database.Options{EnableWAL: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func listSnapshots(ctx context.Context, db *database.SnapshotDB, out io.Writer, format outputFormat) error {
	history, err := db.GetSnapshotHistoryWithMetadata(ctx)
	if err != nil {
		return fmt.Errorf("failed to get snapshot history: %w", err)
	}

	if format == formatJSON {
		if history == nil {
			history = []database.SnapshotMetadata{}
		}
		_, err := report.NewJSONWriter(out).WriteValue(history)
		return err
	}

	if len(history) == 0 {
		fmt.Fprintln(out, "No snapshots stored yet.")
		return nil
	}

	fmt.Fprintf(out, "Stored snapshots (%d):\n\n", len(history))
	fmt.Fprintf(out, "  %-36s  %-19s  %5s  %s\n", "ID", "Crawled", "Decks", "Top deck")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 80))
	for _, m := range history {
		top := m.TopDeck
		if top == "" {
			top = "-"
		}
		fmt.Fprintf(out, "  %-36s  %-19s  %5d  %s\n",
			m.ID, m.Timestamp.Format("2006-01-02 15:04:05"), m.DeckCount, top)
	}
	fmt.Fprintln(out, "\nUse 'metacrawl compare --with-snapshot-id <id>' to compare the latest snapshot with another.")
	return nil
}

func showDeckTrend(ctx context.Context, db *database.SnapshotDB, out io.Writer, deckName string, format outputFormat) error {
	trend, err := db.GetDeckTrend(ctx, deckName)
	if err != nil {
		return fmt.Errorf("failed to get deck trend: %w", err)
	}
	if len(trend) == 0 {
		return fmt.Errorf("deck %q was not ranked in any snapshot", deckName)
	}

	if format == formatJSON {
		_, err := report.NewJSONWriter(out).WriteValue(trend)
		return err
	}

	fmt.Fprintf(out, "Trend for %s (%d snapshots):\n\n", deckName, len(trend))
	fmt.Fprintf(out, "  %-19s  %4s  %7s  %7s  %6s  %8s\n", "Crawled", "Rank", "Share", "Players", "Games", "Win rate")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 62))
	for _, p := range trend {
		fmt.Fprintf(out, "  %-19s  %4d  %6.2f%%  %7d  %6d  %7.2f%%\n",
			p.Timestamp.Format("2006-01-02 15:04:05"), p.Rank, p.Share*100, p.PlayerCount, p.Games, p.WinRate*100)
	}
	return nil
}

func runComparison(ctx context.Context, db *database.SnapshotDB, out io.Writer, withID string, format outputFormat) error {
	latest, err := db.GetLatestSnapshots(ctx, 2)
	if err != nil {
		return fmt.Errorf("failed to get snapshots: %w", err)
	}
	if len(latest) == 0 {
		return errNoHistory
	}

	current := latest[0]
	var previous *model.Snapshot

	if withID != "" {
		if withID == current.ID {
			return fmt.Errorf("snapshot %s is the latest one; choose an older snapshot", withID)
		}
		previous, err = db.GetSnapshotByID(ctx, withID)
		if err != nil {
			return fmt.Errorf("failed to get snapshot %s: %w", withID, err)
		}
		if previous == nil {
			return fmt.Errorf("snapshot %s not found", withID)
		}
	} else {
		if len(latest) < 2 {
			return fmt.Errorf("at least 2 snapshots are required for comparison (found %d)", len(latest))
		}
		previous = latest[1]
	}

	comparison := meta.Compare(previous, current)

	switch format {
	case formatJSON:
		_, err = report.NewJSONWriter(out).WriteValue(comparison)
	case formatMarkdown:
		_, err = report.NewMarkdownWriter(out).WriteComparison(comparison)
	default:
		_, err = report.NewSimpleWriter(out).WriteComparison(comparison)
	}
	return err
}
