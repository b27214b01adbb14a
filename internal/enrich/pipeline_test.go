package enrich

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"
)

type pipelineItem struct {
	mu      sync.Mutex
	Results map[string]any
}

func newPipelineItem() *pipelineItem {
	return &pipelineItem{Results: make(map[string]any)}
}

func stepAddValue(key string, val any) Step[pipelineItem] {
	return func(_ context.Context, item *pipelineItem) error {
		item.mu.Lock()
		defer item.mu.Unlock()
		item.Results[key] = val
		return nil
	}
}

func stepCopy(from, to string) Step[pipelineItem] {
	return func(_ context.Context, item *pipelineItem) error {
		item.mu.Lock()
		defer item.mu.Unlock()
		v, ok := item.Results[from]
		if !ok {
			return errors.New(from + " missing")
		}
		item.Results[to] = v
		return nil
	}
}

func stepError(_ context.Context, _ *pipelineItem) error {
	return errors.New("mock step failed")
}

func TestPipeline_Run(t *testing.T) {
	tests := []struct {
		name     string
		stages   []Stage[pipelineItem]
		expected map[string]any
		errs     int
	}{
		{
			name:     "single step",
			stages:   []Stage[pipelineItem]{NewStage(stepAddValue("foo", "bar"))},
			expected: map[string]any{"foo": "bar"},
		},
		{
			name:     "two steps in one stage",
			stages:   []Stage[pipelineItem]{NewStage(stepAddValue("x", 1), stepAddValue("y", 2))},
			expected: map[string]any{"x": 1, "y": 2},
		},
		{
			name: "later stage sees earlier results",
			stages: []Stage[pipelineItem]{
				NewStage(stepAddValue("a", "first")),
				NewStage(stepCopy("a", "b")),
			},
			expected: map[string]any{"a": "first", "b": "first"},
		},
		{
			name: "step error does not break pipeline",
			stages: []Stage[pipelineItem]{
				NewStage(stepError),
				NewStage(stepAddValue("ok", true)),
			},
			expected: map[string]any{"ok": true},
			errs:     1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			item := newPipelineItem()
			errs := NewPipeline(tt.stages...).Run(ctx, item)

			if !reflect.DeepEqual(item.Results, tt.expected) {
				t.Errorf("got %+v, expected %+v", item.Results, tt.expected)
			}
			if len(errs) != tt.errs {
				t.Errorf("got %d errors, expected %d: %v", len(errs), tt.errs, errs)
			}
		})
	}
}

func TestPipeline_StopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stop := func(_ context.Context, _ *pipelineItem) error {
		cancel()
		return nil
	}
	item := newPipelineItem()
	errs := NewPipeline(NewStage(stop), NewStage(stepAddValue("late", true))).Run(ctx, item)

	if _, ok := item.Results["late"]; ok {
		t.Error("second stage ran after cancellation")
	}
	if len(errs) != 1 || !errors.Is(errs[0], context.Canceled) {
		t.Errorf("expected a single context.Canceled, got %v", errs)
	}
}

func TestPipeline_Process(t *testing.T) {
	in := make(chan *pipelineItem, 2)
	in <- newPipelineItem()
	in <- newPipelineItem()
	close(in)

	done := 0
	p := NewPipeline(NewStage(Named("fail", stepError)))
	p.Process(context.Background(), in, func(item *pipelineItem, errs []error) {
		done++
		if len(errs) != 1 || errs[0].Error() != "fail: mock step failed" {
			t.Errorf("unexpected errors %v", errs)
		}
	})
	if done != 2 {
		t.Errorf("processed %d items, expected 2", done)
	}
}
