package kizami

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ParQueryIter runs a query over worker goroutines. The matched rows are cut
// into batches of at most batchSize rows; a batch never spans two tables or
// archetypes. Each batch gets its own iterator state. The order in which
// batches run is unspecified.
type ParQueryIter struct {
	world     *World
	state     *QueryState
	ticks     SystemTicks
	batchSize int
	workers   int
}

// queryBatch is a row range inside one matched table or archetype.
type queryBatch struct {
	storage int
	start   int
	end     int
}

// BatchSize returns the number of rows per batch.
func (p *ParQueryIter) BatchSize() int { return p.batchSize }

func (p *ParQueryIter) batches() []queryBatch {
	var out []queryBatch
	s := p.state
	n := len(s.matchedArchetypes)
	if s.dense {
		n = len(s.matchedTables)
	}
	for i := range n {
		var rows int
		if s.dense {
			rows = p.world.tables.tables[s.matchedTables[i]].Len()
		} else {
			rows = p.world.archetypes.archetypes[s.matchedArchetypes[i]].Len()
		}
		for start := 0; start < rows; start += p.batchSize {
			out = append(out, queryBatch{storage: i, start: start, end: min(start+p.batchSize, rows)})
		}
	}
	return out
}

func (p *ParQueryIter) group(ctx context.Context) (*errgroup.Group, context.Context) {
	g, ctx := errgroup.WithContext(ctx)
	if p.workers > 0 {
		g.SetLimit(p.workers)
	}
	return g, ctx
}

// ForEach calls fn for every matching entity and waits for all batches.
// fn receives an iterator positioned on the entity; it must not keep it.
func (p *ParQueryIter) ForEach(fn func(it *QueryIter)) {
	_ = p.ForEachContext(context.Background(), func(_ context.Context, it *QueryIter) error {
		fn(it)
		return nil
	})
}

// ForEachContext is ForEach with cancellation. The first error returned by fn
// cancels ctx for the remaining batches and is returned.
func (p *ParQueryIter) ForEachContext(ctx context.Context, fn func(ctx context.Context, it *QueryIter) error) error {
	g, ctx := p.group(ctx)
	for _, b := range p.batches() {
		g.Go(func() error {
			var it QueryIter
			it.initBatch(p.world, p.state, p.ticks, b.storage, b.start, b.end)
			for it.Next() {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := fn(ctx, &it); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// ParFold folds every batch into its own accumulator, created by init, and
// combines the per-batch results with reduce in batch order.
func ParFold[R any](p *ParQueryIter, init func() R, fold func(acc R, it *QueryIter) R, reduce func(a, b R) R) R {
	batches := p.batches()
	partial := make([]R, len(batches))
	g, _ := p.group(context.Background())
	for i, b := range batches {
		g.Go(func() error {
			var it QueryIter
			it.initBatch(p.world, p.state, p.ticks, b.storage, b.start, b.end)
			acc := init()
			for it.Next() {
				acc = fold(acc, &it)
			}
			partial[i] = acc
			return nil
		})
	}
	_ = g.Wait()
	result := init()
	for _, r := range partial {
		result = reduce(result, r)
	}
	return result
}
