package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/metacrawl/internal/meta"
	"github.com/nao1215/metacrawl/internal/model"
)

const (
	deckColumnWidth = 32
	ruleWidth       = 78
)

// SimpleWriter prints a plain-text summary for the terminal.
type SimpleWriter struct {
	baseWriter

	// showDecklists prints each deck's decklist stats under its row.
	showDecklists bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithDecklists prints the selected decklists under every deck.
func WithDecklists(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showDecklists = show
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write implements Writer.
func (w *SimpleWriter) Write(snap *model.Snapshot) (int, error) {
	var sb strings.Builder

	sb.WriteString("Metagame snapshot " + snap.ID + "\n")
	sb.WriteString(strings.Repeat("=", ruleWidth) + "\n")
	fmt.Fprintf(&sb, "Origin:   %s\n", snap.Origin)
	fmt.Fprintf(&sb, "Crawled:  %s\n", snap.CrawledAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&sb, "Pages:    %s results, %s decklists\n",
		pagesRead(snap.Stats.FinishTasks, snap.Stats.FinishFailures),
		pagesRead(snap.Stats.CardTasks, snap.Stats.CardFailures))
	if failures := snap.TotalFailures(); failures > 0 {
		fmt.Fprintf(&sb, "Warning:  %d page(s) could not be read\n", failures)
	}
	sb.WriteString("\n")

	if len(snap.Decks) == 0 {
		sb.WriteString("No deck was ranked.\n")
		return io.WriteString(w.output, sb.String())
	}

	fmt.Fprintf(&sb, "  %-3s  %-*s  %7s  %7s  %-14s  %8s\n",
		"#", deckColumnWidth, "Deck", "Share", "Players", "Record", "Win rate")
	sb.WriteString("  " + strings.Repeat("-", ruleWidth-2) + "\n")

	for i, d := range snap.Decks {
		fmt.Fprintf(&sb, "  %-3d  %-*s  %7s  %7d  %-14s  %8s\n",
			i+1, deckColumnWidth, padRunes(truncate(d.Name, deckColumnWidth), deckColumnWidth),
			formatPercent(d.Share), d.PlayerCount,
			formatRecord(d.Wins, d.Losses, d.Ties), formatPercent(d.WinRate))

		if w.showDecklists {
			for j, dl := range d.Decklists {
				fmt.Fprintf(&sb, "       list %d: %d players, %s, %s, %d cards\n",
					j+1, dl.PlayerCount, formatRecord(dl.Wins, dl.Losses, dl.Ties),
					formatPercent(dl.WinRate), len(dl.Cards))
			}
		}
	}

	return io.WriteString(w.output, sb.String())
}

// WriteComparison prints the difference between two snapshots.
func (w *SimpleWriter) WriteComparison(c *meta.Comparison) (int, error) {
	var sb strings.Builder

	sb.WriteString("Metagame comparison\n")
	sb.WriteString(strings.Repeat("=", ruleWidth) + "\n")
	fmt.Fprintf(&sb, "Previous: %s  %s  (%d decks)\n",
		c.Previous.CrawledAt.Format("2006-01-02 15:04:05"), c.Previous.ID, c.Previous.DeckCount)
	fmt.Fprintf(&sb, "Current:  %s  %s  (%d decks)\n",
		c.Current.CrawledAt.Format("2006-01-02 15:04:05"), c.Current.ID, c.Current.DeckCount)

	if len(c.Entered) > 0 {
		fmt.Fprintf(&sb, "\nEntered (%d):\n", len(c.Entered))
		for _, e := range c.Entered {
			fmt.Fprintf(&sb, "  [+] #%-3d %s  %s\n", e.CurrentRank, e.Name, formatPercent(e.CurrentShare))
		}
	}

	if len(c.Dropped) > 0 {
		fmt.Fprintf(&sb, "\nDropped (%d):\n", len(c.Dropped))
		for _, d := range c.Dropped {
			fmt.Fprintf(&sb, "  [-] was #%-3d %s  %s\n", d.PreviousRank, d.Name, formatPercent(d.PreviousShare))
		}
	}

	if len(c.Changed) > 0 {
		sb.WriteString("\nMovement:\n")
		fmt.Fprintf(&sb, "  %-9s  %-*s  %9s  %9s  %7s\n",
			"Rank", deckColumnWidth, "Deck", "Share", "Win rate", "Players")
		sb.WriteString("  " + strings.Repeat("-", ruleWidth-2) + "\n")
		for _, ch := range c.Changed {
			fmt.Fprintf(&sb, "  %-9s  %-*s  %9s  %9s  %7s\n",
				fmt.Sprintf("%d -> %d", ch.PreviousRank, ch.CurrentRank),
				deckColumnWidth, padRunes(truncate(ch.Name, deckColumnWidth), deckColumnWidth),
				formatSignedPercent(ch.ShareDelta), formatSignedPercent(ch.WinRateDelta),
				formatDelta(ch.PlayerDelta))
		}
	}

	return io.WriteString(w.output, sb.String())
}

// padRunes pads s with spaces to width runes. fmt pads by bytes, which
// misaligns names with accented letters.
func padRunes(s string, width int) string {
	if n := len([]rune(s)); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}
