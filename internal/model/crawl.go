package model

import "time"

// Crawl is the working state passed from one pipeline step to the next.
// Each step reads what earlier steps left behind and adds its own part.
type Crawl struct {
	// Origin is the site root every relative link is resolved against.
	Origin string

	// IndexURL is the metagame index page that seeds the crawl.
	IndexURL string

	// StartedAt is when the crawl began.
	StartedAt time.Time

	// Decks holds the ranked decks. Steps replace it wholesale rather
	// than appending to it.
	Decks []Deck

	// Stats accumulates per-stage task and failure counts.
	Stats Stats

	// Snapshot is set by the final step.
	Snapshot *Snapshot

	// PerformedSteps lists the steps that ran, in order.
	PerformedSteps []string

	// Error is the error that stopped the crawl, if any.
	Error error
}

// NewCrawl creates the state for a crawl of indexURL.
func NewCrawl(origin, indexURL string) *Crawl {
	return &Crawl{
		Origin:         origin,
		IndexURL:       indexURL,
		StartedAt:      time.Now(),
		Decks:          make([]Deck, 0),
		PerformedSteps: make([]string, 0),
	}
}

// FinishCount returns the number of finishes attached across all decks.
func (c *Crawl) FinishCount() int {
	n := 0
	for _, d := range c.Decks {
		n += len(d.Finishes)
	}
	return n
}
