package pipeline

import (
	"fmt"
	"log/slog"
	"math"
)

// DefaultProgressEvery is the default progress reporting cadence.
const DefaultProgressEvery = 10

// ProgressMeter logs "<done>/<total> (<pct>%) <label> done" every Nth
// completion. It is not safe for concurrent use; RunBatch serializes
// calls under its completion mutex.
type ProgressMeter struct {
	total  int
	done   int
	every  int
	label  string
	logger *slog.Logger
}

// NewProgressMeter creates a meter for total completions.
func NewProgressMeter(total int, label string, every int, logger *slog.Logger) *ProgressMeter {
	if every <= 0 {
		every = DefaultProgressEvery
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProgressMeter{
		total:  total,
		every:  every,
		label:  label,
		logger: logger,
	}
}

// Increment records one completion and reports progress on cadence.
func (m *ProgressMeter) Increment() {
	m.done++
	if m.done%m.every == 0 {
		m.logger.Info(m.String(), "done", m.done, "total", m.total)
	}
}

// Done returns the number of completions recorded so far.
func (m *ProgressMeter) Done() int {
	return m.done
}

// Percent returns completion as a whole percentage.
func (m *ProgressMeter) Percent() int {
	if m.total == 0 {
		return 100
	}
	return int(math.Round(float64(m.done) / float64(m.total) * 100))
}

func (m *ProgressMeter) String() string {
	return fmt.Sprintf("%d/%d (%d%%) %s done", m.done, m.total, m.Percent(), m.label)
}
