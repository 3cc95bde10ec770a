// Package model defines the data structures shared by the crawler, the
// aggregation code, the history database and the report writers.
//
// This package contains the following main types:
//   - Deck: a deck archetype as listed on the metagame index
//   - Finish: one tournament placement of a deck
//   - Decklist: finishes grouped by identical card list
//   - Crawl: the mutable state threaded through the crawl pipeline
//   - Snapshot: the finished, ranked result of one crawl
//
// Deck and Decklist serialize to the decks.json layout. Fields that only
// exist while crawling are tagged `json:"-"`.
package model
