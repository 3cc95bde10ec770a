// Package pipeline runs a crawl as a sequence of steps over a shared
// model.Crawl.
//
// The default pipeline has four steps: IndexStep reads and ranks the
// deck index, FinishStep fans out over deck results pages, CardStep fans
// out over decklist pages, and AggregateStep turns finishes into ranked
// decklists and builds the snapshot.
//
// Both fan-out steps use RunBatch, which runs tasks on a bounded errgroup.
// A failing task is logged with its URL and counted; it never cancels the
// rest of the batch. RunBatch returns only after every task has finished,
// so each step is a full barrier before the next one starts.
package pipeline
