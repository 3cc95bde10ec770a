package meta

import (
	"time"

	"github.com/nao1215/metacrawl/internal/model"
)

// SnapshotSummary identifies one side of a comparison.
type SnapshotSummary struct {
	ID        string    `json:"id"`
	CrawledAt time.Time `json:"crawled_at"`
	DeckCount int       `json:"deck_count"`
}

// DeckChange describes how one deck moved between two snapshots.
// Ranks are 1-based; 0 means the deck was not ranked in that snapshot.
type DeckChange struct {
	Name string `json:"deck_name"`

	PreviousRank int `json:"previous_rank"`
	CurrentRank  int `json:"current_rank"`

	PreviousShare float64 `json:"previous_share"`
	CurrentShare  float64 `json:"current_share"`
	ShareDelta    float64 `json:"share_delta"`

	PreviousWinRate float64 `json:"previous_winrate"`
	CurrentWinRate  float64 `json:"current_winrate"`
	WinRateDelta    float64 `json:"winrate_delta"`

	PlayerDelta int `json:"player_delta"`

	// NewDecklists counts current decklists whose card list was not among
	// the deck's previous decklists.
	NewDecklists int `json:"new_decklists"`
}

// RankDelta is positive when the deck climbed.
func (c DeckChange) RankDelta() int {
	if c.PreviousRank == 0 || c.CurrentRank == 0 {
		return 0
	}
	return c.PreviousRank - c.CurrentRank
}

// Comparison is the difference between two snapshots.
type Comparison struct {
	Previous SnapshotSummary `json:"previous"`
	Current  SnapshotSummary `json:"current"`

	// Entered lists decks ranked now but not before, in current rank order.
	Entered []DeckChange `json:"entered"`

	// Dropped lists decks ranked before but not now, in previous rank order.
	Dropped []DeckChange `json:"dropped"`

	// Changed lists decks ranked in both, in current rank order.
	Changed []DeckChange `json:"changed"`
}

// Compare diffs two snapshots by deck name.
func Compare(previous, current *model.Snapshot) *Comparison {
	c := &Comparison{
		Previous: summarize(previous),
		Current:  summarize(current),
		Entered:  []DeckChange{},
		Dropped:  []DeckChange{},
		Changed:  []DeckChange{},
	}

	for i, cur := range current.Decks {
		change := DeckChange{
			Name:           cur.Name,
			CurrentRank:    i + 1,
			CurrentShare:   cur.Share,
			CurrentWinRate: cur.WinRate,
		}

		prev, rank, ok := previous.FindDeck(cur.Name)
		if !ok {
			change.ShareDelta = cur.Share
			change.PlayerDelta = cur.PlayerCount
			change.NewDecklists = len(cur.Decklists)
			c.Entered = append(c.Entered, change)
			continue
		}

		change.PreviousRank = rank + 1
		change.PreviousShare = prev.Share
		change.PreviousWinRate = prev.WinRate
		change.ShareDelta = model.Round4(cur.Share - prev.Share)
		change.WinRateDelta = model.Round4(cur.WinRate - prev.WinRate)
		change.PlayerDelta = cur.PlayerCount - prev.PlayerCount
		change.NewDecklists = newDecklists(prev.Decklists, cur.Decklists)
		c.Changed = append(c.Changed, change)
	}

	for i, prev := range previous.Decks {
		if _, _, ok := current.FindDeck(prev.Name); ok {
			continue
		}
		c.Dropped = append(c.Dropped, DeckChange{
			Name:            prev.Name,
			PreviousRank:    i + 1,
			PreviousShare:   prev.Share,
			PreviousWinRate: prev.WinRate,
			ShareDelta:      -prev.Share,
			PlayerDelta:     -prev.PlayerCount,
		})
	}

	return c
}

func summarize(s *model.Snapshot) SnapshotSummary {
	return SnapshotSummary{ID: s.ID, CrawledAt: s.CrawledAt, DeckCount: len(s.Decks)}
}

// newDecklists compares by fingerprint since stored snapshots do not
// carry one.
func newDecklists(previous, current []model.Decklist) int {
	seen := make(map[string]struct{}, len(previous))
	for _, dl := range previous {
		seen[Fingerprint(dl.Cards)] = struct{}{}
	}
	n := 0
	for _, dl := range current {
		if _, ok := seen[Fingerprint(dl.Cards)]; !ok {
			n++
		}
	}
	return n
}
