package enrich

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Pipeline applies its stages to one item at a time.
type Pipeline[T any] struct {
	stages []Stage[T]
	logger *slog.Logger
}

func NewPipeline[T any](stages ...Stage[T]) *Pipeline[T] {
	return &Pipeline[T]{stages: stages, logger: slog.Default()}
}

func (p *Pipeline[T]) WithLogger(l *slog.Logger) *Pipeline[T] {
	p.logger = l
	return p
}

// Run applies every stage to item and returns the errors of the steps that
// failed. A cancelled ctx stops before the next stage starts.
func (p *Pipeline[T]) Run(ctx context.Context, item *T) []error {
	var (
		mu   sync.Mutex
		errs []error
	)
	for i, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return append(errs, err)
		}
		var g errgroup.Group
		for _, step := range stage.steps {
			g.Go(func() error {
				if err := step(ctx, item); err != nil {
					p.logger.Warn("step failed", "stage", i, "error", err)
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
				}
				return nil
			})
		}
		_ = g.Wait()
	}
	return errs
}

// Process runs the pipeline over every item received from in and reports
// each finished item to done. It returns when in is closed.
func (p *Pipeline[T]) Process(ctx context.Context, in <-chan *T, done func(item *T, errs []error)) {
	for item := range in {
		errs := p.Run(ctx, item)
		if done != nil {
			done(item, errs)
		}
	}
}
