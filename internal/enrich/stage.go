// Package enrich assembles detail views from several backend calls: steps
// of one stage run in parallel, stages run one after the other, and a failed
// step is recorded without stopping the rest.
package enrich

import (
	"context"
	"fmt"
)

// Step fills in part of item. Steps of the same stage run concurrently on
// the same item and must write disjoint fields.
type Step[T any] func(ctx context.Context, item *T) error

// Named prefixes the errors of step with name.
func Named[T any](name string, step Step[T]) Step[T] {
	return func(ctx context.Context, item *T) error {
		if err := step(ctx, item); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	}
}

// Stage groups steps that do not depend on each other.
type Stage[T any] struct {
	steps []Step[T]
}

func NewStage[T any](steps ...Step[T]) Stage[T] {
	return Stage[T]{steps: steps}
}
