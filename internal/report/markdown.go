package report

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/metacrawl/internal/meta"
	"github.com/nao1215/metacrawl/internal/model"
)

// pieSlices is how many decks get their own slice; the rest share "Other".
const pieSlices = 10

// MarkdownWriter renders a snapshot as a GitHub-flavored Markdown report.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write implements Writer.
func (w *MarkdownWriter) Write(snap *model.Snapshot) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, snap)
	w.writeShare(md, snap)
	w.writeDeckTable(md, snap)
	for i := range snap.Decks {
		w.writeDeck(md, i+1, &snap.Decks[i])
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, snap *model.Snapshot) {
	md.H1("Metagame Snapshot")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Origin", snap.Origin},
			{"Crawled", snap.CrawledAt.Format("2006-01-02 15:04:05 MST")},
			{"Snapshot ID", "`" + snap.ID + "`"},
			{"Decks ranked", strconv.Itoa(len(snap.Decks))},
			{"Results pages", pagesRead(snap.Stats.FinishTasks, snap.Stats.FinishFailures)},
			{"Decklist pages", pagesRead(snap.Stats.CardTasks, snap.Stats.CardFailures)},
			{"Elapsed", snap.Stats.Elapsed.Round(time.Millisecond).String()},
		},
	})
	md.PlainText("")

	if failures := snap.TotalFailures(); failures > 0 {
		md.Warningf("%d page(s) could not be read. Counts for the affected decks are lower than on the site.", failures)
		md.PlainText("")
	}
}

func pagesRead(tasks, failures int) string {
	return strconv.Itoa(tasks-failures) + " / " + strconv.Itoa(tasks)
}

func (w *MarkdownWriter) writeShare(md *markdown.Markdown, snap *model.Snapshot) {
	if len(snap.Decks) == 0 {
		return
	}

	md.H2("Player Share")
	md.PlainText("")

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Players per deck"),
		piechart.WithShowData(true),
	)
	var other int
	for i, d := range snap.Decks {
		if i < pieSlices {
			chart.LabelAndIntValue(d.Name, uint64(max(d.PlayerCount, 0))) //nolint:gosec // clamped to non-negative
			continue
		}
		other += d.PlayerCount
	}
	if other > 0 {
		chart.LabelAndIntValue("Other", uint64(other)) //nolint:gosec // sum of non-negative counts
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeDeckTable(md *markdown.Markdown, snap *model.Snapshot) {
	md.H2("Decks")
	md.PlainText("")

	if len(snap.Decks) == 0 {
		md.Note("No deck was ranked in this snapshot.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(snap.Decks))
	for i, d := range snap.Decks {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			d.Name,
			formatPercent(d.Share),
			strconv.Itoa(d.PlayerCount),
			formatRecord(d.Wins, d.Losses, d.Ties),
			formatPercent(d.WinRate),
			strconv.Itoa(len(d.Decklists)),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "Deck", "Share", "Players", "Record", "Win rate", "Lists"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeDeck(md *markdown.Markdown, rank int, d *model.Deck) {
	md.PlainText("### " + strconv.Itoa(rank) + ". " + d.Name)
	md.PlainText("")

	if len(d.Decklists) == 0 {
		md.PlainText("No decklist could be read for this deck.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(d.Decklists))
	for i, dl := range d.Decklists {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			strconv.Itoa(dl.PlayerCount),
			formatRecord(dl.Wins, dl.Losses, dl.Ties),
			formatPercent(dl.WinRate),
			strconv.Itoa(len(dl.Cards)),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"List", "Players", "Record", "Win rate", "Cards"},
		Rows:   rows,
	})
	md.PlainText("")

	for i, dl := range d.Decklists {
		md.Details("List "+strconv.Itoa(i+1)+" cards", cardList(dl.Cards))
	}
	md.PlainText("")
}

func cardList(cards []string) string {
	var sb strings.Builder
	for _, c := range cards {
		sb.WriteString("- ")
		sb.WriteString(c)
		sb.WriteString("\n")
	}
	return sb.String()
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [metacrawl](https://github.com/nao1215/metacrawl)*")
}

// WriteComparison renders the difference between two snapshots.
func (w *MarkdownWriter) WriteComparison(c *meta.Comparison) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Metagame Comparison")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"", "Previous", "Current"},
		Rows: [][]string{
			{"Snapshot", "`" + c.Previous.ID + "`", "`" + c.Current.ID + "`"},
			{"Crawled", c.Previous.CrawledAt.Format("2006-01-02 15:04"), c.Current.CrawledAt.Format("2006-01-02 15:04")},
			{"Decks", strconv.Itoa(c.Previous.DeckCount), strconv.Itoa(c.Current.DeckCount)},
		},
	})
	md.PlainText("")

	if len(c.Entered) == 0 && len(c.Dropped) == 0 && len(c.Changed) == 0 {
		md.Note("Neither snapshot ranked any deck.")
		md.PlainText("")
	}

	if len(c.Entered) > 0 {
		md.H2("Entered (" + strconv.Itoa(len(c.Entered)) + ")")
		md.PlainText("")
		rows := make([][]string, len(c.Entered))
		for i, e := range c.Entered {
			rows[i] = []string{strconv.Itoa(e.CurrentRank), e.Name, formatPercent(e.CurrentShare), formatPercent(e.CurrentWinRate)}
		}
		md.Table(markdown.TableSet{Header: []string{"Rank", "Deck", "Share", "Win rate"}, Rows: rows})
		md.PlainText("")
	}

	if len(c.Dropped) > 0 {
		md.H2("Dropped (" + strconv.Itoa(len(c.Dropped)) + ")")
		md.PlainText("")
		rows := make([][]string, len(c.Dropped))
		for i, d := range c.Dropped {
			rows[i] = []string{strconv.Itoa(d.PreviousRank), "~~" + d.Name + "~~", formatPercent(d.PreviousShare)}
		}
		md.Table(markdown.TableSet{Header: []string{"Was", "Deck", "Share"}, Rows: rows})
		md.PlainText("")
	}

	if len(c.Changed) > 0 {
		md.H2("Movement")
		md.PlainText("")
		rows := make([][]string, len(c.Changed))
		for i, ch := range c.Changed {
			rows[i] = []string{
				strconv.Itoa(ch.PreviousRank) + " → " + strconv.Itoa(ch.CurrentRank),
				ch.Name,
				formatSignedPercent(ch.ShareDelta),
				formatSignedPercent(ch.WinRateDelta),
				formatDelta(ch.PlayerDelta),
				strconv.Itoa(ch.NewDecklists),
			}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Rank", "Deck", "Share", "Win rate", "Players", "New lists"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	w.writeFooter(md)
	return len(md.String()), md.Build()
}
