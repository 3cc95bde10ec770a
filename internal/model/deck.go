package model

import (
	"math"
	"slices"
	"strings"
)

// Record is a wins-losses-ties triple as printed by the site ("5-2-1").
type Record struct {
	Wins   int
	Losses int
	Ties   int
}

// Games returns the number of games the record covers.
func (r Record) Games() int {
	return r.Wins + r.Losses + r.Ties
}

// Deck is a named archetype from the metagame index.
//
// URL and Finishes are only populated while crawling. The snapshot
// assembler clears them before the deck is written anywhere.
type Deck struct {
	// Name is the archetype name as shown in the index table.
	Name string `json:"deck_name"`

	// Share is the archetype's metagame share as a fraction, rounded to 4 places.
	Share float64 `json:"share"`

	// PlayerCount is the number of players who registered the archetype.
	PlayerCount int `json:"player_count"`

	Games  int `json:"games"`
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Ties   int `json:"ties"`

	// WinRate is the site's reported win rate, 0 when the site omits it.
	WinRate float64 `json:"winrate"`

	// Decklists holds the ranked card lists selected for output.
	Decklists []Decklist `json:"decklists"`

	// URL is the absolute URL of the deck's results page.
	URL string `json:"-"`

	// Finishes are the tournament placements extracted from the results page.
	Finishes []Finish `json:"-"`
}

// SetRecord stores r in the deck's counters, keeping Games in sync.
func (d *Deck) SetRecord(r Record) {
	d.Wins = r.Wins
	d.Losses = r.Losses
	d.Ties = r.Ties
	d.Games = r.Games()
}

// Finish is one tournament placement of a deck.
type Finish struct {
	Record

	// URL is the absolute URL of the placement's decklist page.
	URL string

	// Cards is the card list in descending lexical order. It is set once,
	// after the decklist page has been fetched.
	Cards []string

	// Resolved reports whether Cards has been attached.
	Resolved bool
}

// Decklist aggregates every finish of a deck that used the same card list.
type Decklist struct {
	Cards       []string `json:"cards"`
	PlayerCount int      `json:"player_count"`
	Games       int      `json:"games"`
	Wins        int      `json:"wins"`
	Losses      int      `json:"losses"`
	Ties        int      `json:"ties"`
	WinRate     float64  `json:"winrate"`

	// Fingerprint identifies the card list. Two decklists share a
	// fingerprint only when their sorted card sequences are identical.
	Fingerprint string `json:"-"`
}

// Add folds one finish into the decklist counters.
func (d *Decklist) Add(r Record) {
	d.PlayerCount++
	d.Wins += r.Wins
	d.Losses += r.Losses
	d.Ties += r.Ties
	d.Games += r.Games()
}

// Round4 rounds x to four decimal places.
func Round4(x float64) float64 {
	return math.Round(x*1e4) / 1e4
}

// SortCards returns a copy of cards in descending lexical order.
// This ordering defines decklist identity, so every producer of card
// lists goes through it.
func SortCards(cards []string) []string {
	sorted := slices.Clone(cards)
	if sorted == nil {
		sorted = []string{}
	}
	slices.SortFunc(sorted, func(a, b string) int {
		return strings.Compare(b, a)
	})
	return sorted
}
