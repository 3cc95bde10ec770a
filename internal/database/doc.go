// Package database keeps a history of crawl snapshots in SQLite
// (modernc.org/sqlite, no cgo).
//
// Each snapshot is stored whole as JSON in the snapshots table, and its
// ranked decks are also flattened into deck_stats so that a single deck's
// trend across crawls is a plain SQL query.
package database
