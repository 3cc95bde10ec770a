package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/metacrawl/internal/crawler"
	"github.com/nao1215/metacrawl/internal/meta"
	"github.com/nao1215/metacrawl/internal/model"
)

// Fetcher retrieves a page body. *crawler.Fetcher implements it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// IndexStep fetches the metagame index, extracts every deck and keeps
// the ranked subset. Failing to fetch or parse the index ends the crawl.
type IndexStep struct {
	fetcher  Fetcher
	parser   *crawler.Parser
	minGames int
	logger   *slog.Logger
}

// NewIndexStep creates the index step.
func NewIndexStep(fetcher Fetcher, parser *crawler.Parser, minGames int, logger *slog.Logger) *IndexStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexStep{fetcher: fetcher, parser: parser, minGames: minGames, logger: logger}
}

// Name returns the step name.
func (s *IndexStep) Name() string {
	return "index"
}

// Do executes the index step.
func (s *IndexStep) Do(ctx context.Context, crawl *model.Crawl) error {
	body, err := s.fetcher.Fetch(ctx, crawl.IndexURL)
	if err != nil {
		return fmt.Errorf("fetch index: %w", err)
	}

	decks, err := s.parser.ParseIndex(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("parse index: %w", err)
	}

	crawl.Stats.IndexRows = len(decks)
	crawl.Decks = meta.RankDecks(decks, s.minGames)
	crawl.Stats.RankedDecks = len(crawl.Decks)

	s.logger.Info("parsed index",
		"decks", len(decks),
		"kept", len(crawl.Decks),
		"min_games", s.minGames,
	)

	return nil
}

// FinishStep fetches every kept deck's results page concurrently and
// attaches the extracted finishes to their deck.
type FinishStep struct {
	fetcher Fetcher
	parser  *crawler.Parser
	batch   *BatchProcessor

	// maxFinishes keeps only the first N finishes per deck. Zero keeps all.
	maxFinishes int

	logger *slog.Logger
}

// NewFinishStep creates the finish step.
func NewFinishStep(fetcher Fetcher, parser *crawler.Parser, batch *BatchProcessor, maxFinishes int, logger *slog.Logger) *FinishStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &FinishStep{fetcher: fetcher, parser: parser, batch: batch, maxFinishes: maxFinishes, logger: logger}
}

// Name returns the step name.
func (s *FinishStep) Name() string {
	return "finishes"
}

// Do executes the finish step.
func (s *FinishStep) Do(ctx context.Context, crawl *model.Crawl) error {
	start := time.Now()

	tasks := make([]Task[[]model.Finish], len(crawl.Decks))
	for i, deck := range crawl.Decks {
		tasks[i] = Task[[]model.Finish]{
			URL: deck.URL,
			Run: func(ctx context.Context) ([]model.Finish, error) {
				body, err := s.fetcher.Fetch(ctx, deck.URL)
				if err != nil {
					return nil, err
				}
				finishes, err := s.parser.ParseResults(bytes.NewReader(body))
				if err != nil {
					return nil, err
				}
				if s.maxFinishes > 0 && len(finishes) > s.maxFinishes {
					finishes = finishes[:s.maxFinishes]
				}
				return finishes, nil
			},
		}
	}

	results, failures := RunBatch(ctx, s.batch, "decks", tasks)

	// Each result belongs to exactly one deck; the batch has fully
	// drained, so attaching here needs no locking.
	for _, r := range results {
		crawl.Decks[r.Index].Finishes = r.Value
	}

	crawl.Stats.FinishTasks = len(tasks)
	crawl.Stats.FinishFailures = len(failures)

	s.logger.Info(fmt.Sprintf("done attaching finishes in %.2fs", time.Since(start).Seconds()),
		"finishes", crawl.FinishCount(),
		"failed_decks", len(failures),
	)

	return nil
}

// CardStep fetches the decklist page of every finish concurrently and
// attaches the card list to its finish.
type CardStep struct {
	fetcher Fetcher
	parser  *crawler.Parser
	batch   *BatchProcessor
	logger  *slog.Logger
}

// NewCardStep creates the card step.
func NewCardStep(fetcher Fetcher, parser *crawler.Parser, batch *BatchProcessor, logger *slog.Logger) *CardStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &CardStep{fetcher: fetcher, parser: parser, batch: batch, logger: logger}
}

// Name returns the step name.
func (s *CardStep) Name() string {
	return "cards"
}

// finishRef locates a finish within the crawl.
type finishRef struct {
	deck   int
	finish int
}

// Do executes the card step.
func (s *CardStep) Do(ctx context.Context, crawl *model.Crawl) error {
	start := time.Now()

	refs := make([]finishRef, 0, crawl.FinishCount())
	tasks := make([]Task[[]string], 0, crawl.FinishCount())
	for di, deck := range crawl.Decks {
		for fi, finish := range deck.Finishes {
			refs = append(refs, finishRef{deck: di, finish: fi})
			tasks = append(tasks, Task[[]string]{
				URL: finish.URL,
				Run: func(ctx context.Context) ([]string, error) {
					body, err := s.fetcher.Fetch(ctx, finish.URL)
					if err != nil {
						return nil, err
					}
					return s.parser.ParseDecklist(bytes.NewReader(body))
				},
			})
		}
	}

	results, failures := RunBatch(ctx, s.batch, "finishes", tasks)

	for _, r := range results {
		ref := refs[r.Index]
		f := &crawl.Decks[ref.deck].Finishes[ref.finish]
		f.Cards = r.Value
		f.Resolved = true
	}

	crawl.Stats.CardTasks = len(tasks)
	crawl.Stats.CardFailures = len(failures)

	s.logger.Info(fmt.Sprintf("done attaching cards in %.2fs", time.Since(start).Seconds()),
		"resolved", len(results),
		"failed", len(failures),
	)

	return nil
}

// AggregateStep groups each deck's finishes into decklists, keeps the
// ranked subset, drops crawl-only fields and builds the snapshot.
type AggregateStep struct {
	minGames     int
	maxDecklists int
	logger       *slog.Logger
}

// NewAggregateStep creates the aggregation step.
func NewAggregateStep(minGames, maxDecklists int, logger *slog.Logger) *AggregateStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &AggregateStep{minGames: minGames, maxDecklists: maxDecklists, logger: logger}
}

// Name returns the step name.
func (s *AggregateStep) Name() string {
	return "aggregate"
}

// Do executes the aggregation step.
func (s *AggregateStep) Do(_ context.Context, crawl *model.Crawl) error {
	decks := make([]model.Deck, len(crawl.Decks))
	for i, deck := range crawl.Decks {
		deck.Decklists = meta.RankDecklists(meta.Aggregate(deck.Finishes), s.minGames, s.maxDecklists)
		deck.URL = ""
		deck.Finishes = nil
		decks[i] = deck
	}

	crawl.Decks = decks
	crawl.Stats.Elapsed = time.Since(crawl.StartedAt)

	snapshot := model.NewSnapshot(crawl.Origin, crawl.StartedAt, decks)
	snapshot.Stats = crawl.Stats
	crawl.Snapshot = snapshot

	s.logger.Debug("aggregated decklists",
		"decks", len(decks),
		"snapshot", snapshot.ID,
	)

	return nil
}

// DefaultPipelineConfig holds configuration for the default pipeline.
type DefaultPipelineConfig struct {
	// Concurrency is the worker limit of both fan-out stages.
	Concurrency int

	// ProgressEvery is the progress log cadence of both fan-out stages.
	ProgressEvery int

	// MinGames is the minimum-sample threshold for decks and decklists.
	MinGames int

	// MaxDecklists caps the decklists kept per deck.
	MaxDecklists int

	// MaxFinishes caps the finishes read per deck. Zero reads all of them.
	MaxFinishes int
}

// DefaultPipelineOption configures a DefaultPipelineConfig.
type DefaultPipelineOption func(*DefaultPipelineConfig)

// WithPipelineConcurrency sets the fan-out worker limit.
func WithPipelineConcurrency(n int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Concurrency = n
	}
}

// WithPipelineProgressEvery sets the progress log cadence.
func WithPipelineProgressEvery(n int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.ProgressEvery = n
	}
}

// WithPipelineMinGames sets the minimum-sample threshold.
func WithPipelineMinGames(n int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.MinGames = n
	}
}

// WithPipelineMaxDecklists sets the per-deck decklist cap. Non-positive
// values are ignored.
func WithPipelineMaxDecklists(n int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		if n > 0 {
			c.MaxDecklists = n
		}
	}
}

// WithPipelineMaxFinishes sets the per-deck finish cap.
func WithPipelineMaxFinishes(n int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.MaxFinishes = n
	}
}

// DefaultPipeline creates the standard crawl: index, finishes, cards,
// aggregate. Both fan-out stages share one BatchProcessor, so the
// concurrency limit also bounds requests against the fetcher's pool.
func DefaultPipeline(fetcher Fetcher, parser *crawler.Parser, pipelineOpts []Option, configOpts ...DefaultPipelineOption) *Pipeline {
	p := New(pipelineOpts...)

	cfg := &DefaultPipelineConfig{
		Concurrency:   DefaultConcurrency,
		ProgressEvery: DefaultProgressEvery,
		MinGames:      meta.DefaultMinGames,
		MaxDecklists:  meta.DefaultMaxDecklists,
	}
	for _, opt := range configOpts {
		opt(cfg)
	}

	batch := NewBatchProcessor(
		WithConcurrency(cfg.Concurrency),
		WithProgressEvery(cfg.ProgressEvery),
		WithBatchLogger(p.logger),
	)

	p.AddSteps(
		NewIndexStep(fetcher, parser, cfg.MinGames, p.logger),
		NewFinishStep(fetcher, parser, batch, cfg.MaxFinishes, p.logger),
		NewCardStep(fetcher, parser, batch, p.logger),
		NewAggregateStep(cfg.MinGames, cfg.MaxDecklists, p.logger),
	)

	return p
}
