package parallel

import (
	"context"
	"iter"

	"golang.org/x/sync/errgroup"
)

type result[D any] struct {
	d D
	e error
}

// Map runs mapFunc over an input sequence with bounded concurrency and
// yields the outcomes as they complete. Input and output are iterators,
// so the typical usage is
//
//	m := parallel.NewMap(ctx, jobs, loadAndRun)
//	for report, err := range m.Iter(paths) {}
//
// Map is context aware: once the context is cancelled no new work starts
// and the output sequence ends early. Per-element errors do not stop the
// other elements.
type Map[E, D any] struct {
	parentCtx    context.Context
	cancelParent context.CancelFunc
	g            *errgroup.Group
	gctx         context.Context
	results      chan result[D]
	mapFunc      func(context.Context, E) (D, error)
}

func NewMap[E, D any](parentCtx context.Context, limit int, mapFunc func(context.Context, E) (D, error)) *Map[E, D] {
	parentCtx, cancelParent := context.WithCancel(parentCtx)
	g, gctx := errgroup.WithContext(parentCtx)
	// one extra slot for the feeding goroutine
	g.SetLimit(limit + 1)

	return &Map[E, D]{
		parentCtx:    parentCtx,
		cancelParent: cancelParent,
		g:            g,
		gctx:         gctx,
		results:      make(chan result[D], limit),
		mapFunc:      mapFunc,
	}
}

func (m *Map[E, D]) feed(seq iter.Seq2[E, error]) {
	m.g.Go(func() error {
		for entry, err := range seq {
			if err != nil {
				continue
			}
			m.g.Go(func() error {
				d, mapErr := m.mapFunc(m.gctx, entry)
				// the send must stay cancellable, or an abandoned
				// consumer would strand this goroutine
				select {
				case <-m.gctx.Done():
					return m.gctx.Err()
				case m.results <- result[D]{d: d, e: mapErr}:
				}
				return nil
			})
		}
		return nil
	})
}

// Iter consumes seq and returns the sequence of mapped outcomes in
// completion order. It can be used once per Map.
func (m *Map[E, D]) Iter(seq iter.Seq2[E, error]) iter.Seq2[D, error] {
	return func(yield func(D, error) bool) {
		defer m.cancelParent()
		m.feed(seq)

		go func() {
			_ = m.g.Wait()
			close(m.results)
		}()

		for r := range m.results {
			if m.parentCtx.Err() != nil {
				return
			}
			if !yield(r.d, r.e) {
				return
			}
		}
	}
}
