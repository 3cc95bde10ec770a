// Package report renders crawl snapshots.
//
//   - JSONWriter writes decks.json, the ranked deck array
//   - MarkdownWriter writes a shareable report with a player share chart
//   - SimpleWriter prints a terminal summary
//
// MarkdownWriter and SimpleWriter also render snapshot comparisons.
package report
