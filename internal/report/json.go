package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/metacrawl/internal/model"
)

// JSONWriter writes decks.json: the ranked decks as a JSON array.
// Card names are written as-is, without HTML escaping of <, > or &.
type JSONWriter struct {
	baseWriter

	// full writes the whole snapshot object instead of the deck array.
	full bool
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithFullSnapshot writes the snapshot with its ID, origin and stats
// rather than only the deck array.
func WithFullSnapshot() JSONWriterOption {
	return func(w *JSONWriter) {
		w.full = true
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write implements Writer.
func (w *JSONWriter) Write(snap *model.Snapshot) (int, error) {
	if w.full {
		return w.WriteValue(snap)
	}
	decks := snap.Decks
	if decks == nil {
		decks = []model.Deck{}
	}
	return w.WriteValue(decks)
}

// WriteValue encodes any value with the writer's settings.
func (w *JSONWriter) WriteValue(v any) (int, error) {
	cw := &countingWriter{w: w.output}
	enc := json.NewEncoder(cw)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	err := enc.Encode(v)
	return cw.n, err
}

type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}
