// Package meta turns raw tournament finishes into ranked deck and
// decklist summaries.
//
// Aggregate groups a deck's finishes by card list fingerprint.
// RankDecks and RankDecklists order candidates by popularity and apply
// the minimum-sample threshold, each with its own fallback when the
// threshold would leave nothing.
package meta
