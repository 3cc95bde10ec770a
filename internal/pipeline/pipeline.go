package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/metacrawl/internal/model"
)

// Step is one stage of a crawl. Steps run in sequence, each receiving
// the crawl state left behind by the previous ones.
type Step interface {
	// Do executes the step. It returns an error only when the crawl
	// cannot continue; individual page failures are logged and counted
	// in the crawl stats instead.
	Do(ctx context.Context, crawl *model.Crawl) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline runs crawl steps one after another.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. A nil logger keeps slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New returns an empty pipeline. Add steps with AddStep or AddSteps.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs the steps in order. The context is only consulted between
// steps; a step in flight sees cancellation through its own ctx use.
// The first failing step ends the run; its error is returned and kept on
// crawl.Error.
func (p *Pipeline) Execute(ctx context.Context, crawl *model.Crawl) error {
	for _, step := range p.steps {
		name := step.Name()

		if err := ctx.Err(); err != nil {
			p.logger.Warn("crawl cancelled", "before", name, "reason", err)
			crawl.Error = err
			return err
		}

		started := time.Now()
		p.logger.Debug("step started", "step", name)

		err := step.Do(ctx, crawl)
		crawl.PerformedSteps = append(crawl.PerformedSteps, name)
		if err != nil {
			p.logger.Error("step failed", "step", name, "error", err)
			crawl.Error = err
			return err
		}

		p.logger.Debug("step done",
			"step", name,
			"decks", len(crawl.Decks),
			"took", time.Since(started).Round(time.Millisecond),
		)
	}

	return nil
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
