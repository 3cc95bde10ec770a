// Package main provides the entry point for the metacrawl CLI.
//
// metacrawl crawls a tournament statistics site and writes the most played
// decks, each with its most successful card lists, to decks.json.
//
// Usage:
//
//	metacrawl crawl
//	metacrawl compare
//
// See --help for all available options.
package main

func main() {
	Execute()
}
