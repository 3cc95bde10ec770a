package meta

import (
	"cmp"
	"slices"

	"github.com/nao1215/metacrawl/internal/model"
)

const (
	// DefaultMinGames is the minimum number of games a deck or decklist
	// needs to be kept.
	DefaultMinGames = 100

	// DefaultMaxDecklists caps the decklists kept per deck.
	DefaultMaxDecklists = 3

	// DeckFallbackCount is how many decks are kept when none reaches
	// the minimum number of games.
	DeckFallbackCount = 10
)

// byPopularity orders by player count, then games, both descending.
func byPopularity(aPlayers, aGames, bPlayers, bGames int) int {
	if c := cmp.Compare(bPlayers, aPlayers); c != 0 {
		return c
	}
	return cmp.Compare(bGames, aGames)
}

// RankDecks sorts decks by popularity and keeps those with at least
// minGames games. Ties keep their extraction order.
//
// If no deck qualifies, the DeckFallbackCount most popular decks are
// returned instead.
func RankDecks(decks []model.Deck, minGames int) []model.Deck {
	sorted := slices.Clone(decks)
	slices.SortStableFunc(sorted, func(a, b model.Deck) int {
		return byPopularity(a.PlayerCount, a.Games, b.PlayerCount, b.Games)
	})

	kept := make([]model.Deck, 0, len(sorted))
	for _, d := range sorted {
		if d.Games >= minGames {
			kept = append(kept, d)
		}
	}
	if len(kept) > 0 {
		return kept
	}

	return sorted[:min(DeckFallbackCount, len(sorted))]
}

// RankDecklists sorts decklists by popularity and keeps at most
// maxDecklists of those with at least minGames games.
//
// If no decklist qualifies, only the single most popular one is
// returned. An empty input yields an empty result. A non-positive
// maxDecklists means DefaultMaxDecklists.
func RankDecklists(decklists []model.Decklist, minGames, maxDecklists int) []model.Decklist {
	if maxDecklists <= 0 {
		maxDecklists = DefaultMaxDecklists
	}

	sorted := slices.Clone(decklists)
	slices.SortStableFunc(sorted, func(a, b model.Decklist) int {
		return byPopularity(a.PlayerCount, a.Games, b.PlayerCount, b.Games)
	})

	kept := make([]model.Decklist, 0, maxDecklists)
	for _, dl := range sorted {
		if len(kept) == maxDecklists {
			break
		}
		if dl.Games >= minGames {
			kept = append(kept, dl)
		}
	}
	if len(kept) > 0 {
		return kept
	}

	if len(sorted) == 0 {
		return []model.Decklist{}
	}
	return sorted[:1]
}
