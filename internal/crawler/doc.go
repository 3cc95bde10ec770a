// Package crawler fetches the tournament site's pages and extracts
// structured records from them.
//
// # Components
//
//   - Fetcher: GETs pages over one pooled http.Client, retrying gateway
//     errors (502, 503, 504) with exponential backoff and optionally
//     throttling with a rate limiter.
//   - Parser: pure extraction of decks from the index page, finishes from
//     a deck's results page and card labels from a decklist page.
//
// Both report failures with typed errors, FetchError and ExtractionError,
// so callers can log the offending URL and carry on.
//
// # Usage
//
//	fetcher := crawler.NewFetcher(crawler.WithPoolSize(16))
//	parser, _ := crawler.NewParser("https://play.limitlesstcg.com")
//	body, err := fetcher.Fetch(ctx, indexURL)
//	decks, err := parser.ParseIndex(bytes.NewReader(body))
package crawler
