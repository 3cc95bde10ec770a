package report

import (
	"io"
	"strconv"

	"github.com/nao1215/metacrawl/internal/model"
)

// Writer renders a snapshot to its destination.
type Writer interface {
	// Write renders snap and returns the number of bytes written.
	Write(snap *model.Snapshot) (int, error)
}

type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// formatPercent renders a 0..1 fraction as "12.34%".
func formatPercent(f float64) string {
	return strconv.FormatFloat(f*100, 'f', 2, 64) + "%"
}

// formatSignedPercent renders a fraction delta as "+1.50pp" or "-0.25pp".
func formatSignedPercent(f float64) string {
	s := strconv.FormatFloat(f*100, 'f', 2, 64)
	switch {
	case s == "0.00" || s == "-0.00":
		return "0.00pp"
	case f > 0:
		return "+" + s + "pp"
	default:
		return s + "pp"
	}
}

// formatDelta formats a count delta with its sign.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}

// formatRecord renders wins-losses-ties the way the site prints it.
func formatRecord(wins, losses, ties int) string {
	return strconv.Itoa(wins) + "-" + strconv.Itoa(losses) + "-" + strconv.Itoa(ties)
}

// truncate shortens s to maxLen runes with a trailing ellipsis.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
