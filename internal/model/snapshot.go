package model

import (
	"time"

	"github.com/google/uuid"
)

// Stats summarizes how a crawl went. Failures are counted, never fatal.
type Stats struct {
	// IndexRows is the number of decks parsed from the index page.
	IndexRows int `json:"index_rows"`

	// RankedDecks is the number of decks kept after ranking.
	RankedDecks int `json:"ranked_decks"`

	FinishTasks    int `json:"finish_tasks"`
	FinishFailures int `json:"finish_failures"`
	CardTasks      int `json:"card_tasks"`
	CardFailures   int `json:"card_failures"`

	// Elapsed is the wall time of the whole crawl.
	Elapsed time.Duration `json:"elapsed"`
}

// Snapshot is the ranked result of one crawl.
type Snapshot struct {
	ID        string    `json:"id"`
	Origin    string    `json:"origin"`
	CrawledAt time.Time `json:"crawled_at"`
	Decks     []Deck    `json:"decks"`
	Stats     Stats     `json:"stats"`
}

// NewSnapshot creates a snapshot with a fresh ID.
func NewSnapshot(origin string, crawledAt time.Time, decks []Deck) *Snapshot {
	if decks == nil {
		decks = []Deck{}
	}
	return &Snapshot{
		ID:        uuid.NewString(),
		Origin:    origin,
		CrawledAt: crawledAt,
		Decks:     decks,
	}
}

// FindDeck returns the deck named name and its zero-based rank.
func (s *Snapshot) FindDeck(name string) (*Deck, int, bool) {
	for i := range s.Decks {
		if s.Decks[i].Name == name {
			return &s.Decks[i], i, true
		}
	}
	return nil, -1, false
}

// TotalFailures is the number of fan-out tasks that failed.
func (s *Snapshot) TotalFailures() int {
	return s.Stats.FinishFailures + s.Stats.CardFailures
}
