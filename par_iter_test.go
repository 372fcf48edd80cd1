package kizami_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edwinsyarief/kizami"
)

func spawnMany(w *kizami.World, n int) {
	b := kizami.NewBuilder2[Position, Velocity](w)
	for i := range n {
		e := b.NewEntity()
		p, v := b.Get(e)
		p.X = float32(i)
		v.VX = 1
	}
}

// go test -run ^TestParIter$ . -count 1
func TestParIter(t *testing.T) {
	w, _, _, _ := setupWorld(t)
	const n = 10_000
	spawnMany(w, n)
	// A second archetype so batches span more than one table.
	for range 100 {
		w.Spawn(Position{}, Velocity{VX: 1}, Health{})
	}

	q := kizami.NewQuery2[Position, Velocity](w)

	t.Run("visits every entity once", func(t *testing.T) {
		var visited atomic.Int64
		q.ParForEachMut(256, func(_ kizami.Entity, p *Position, v *Velocity) {
			p.Y += v.VX
			visited.Add(1)
		})
		assert.Equal(t, int64(n+100), visited.Load())
		q.Reset()
		for q.Next() {
			p, _ := q.Get()
			require.Equal(t, float32(1), p.Y)
		}
	})

	t.Run("batches stay inside one storage", func(t *testing.T) {
		it := q.ParIter(1000)
		assert.Equal(t, 1000, it.BatchSize())
		var mixed atomic.Bool
		err := it.ForEachContext(context.Background(), func(_ context.Context, it *kizami.QueryIter) error {
			if !w.Contains(it.Entity(), kizami.ComponentIDOrInsert[Position](w.Components())) {
				mixed.Store(true)
			}
			return nil
		})
		require.NoError(t, err)
		assert.False(t, mixed.Load())
	})

	t.Run("fold", func(t *testing.T) {
		sum := kizami.ParFold(q.ParIter(512),
			func() float64 { return 0 },
			func(acc float64, it *kizami.QueryIter) float64 {
				return acc + float64((*Position)(it.Ptr(0)).X)
			},
			func(a, b float64) float64 { return a + b })
		assert.Equal(t, float64(n*(n-1)/2), sum)
	})

	t.Run("error cancels", func(t *testing.T) {
		boom := errors.New("boom")
		err := q.ParIter(64).ForEachContext(context.Background(), func(_ context.Context, it *kizami.QueryIter) error {
			if (*Position)(it.Ptr(0)).X == 42 {
				return boom
			}
			return nil
		})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("default batch size", func(t *testing.T) {
		assert.Equal(t, w.Config().BatchSize, q.ParIter(0).BatchSize())
	})
}

// go test -run ^TestParIterNonSend$ . -count 1
func TestParIterNonSend(t *testing.T) {
	w := kizami.NewWorld()
	w.Spawn(Window{Title: "main"})
	q := kizami.NewQuery[Window](w)
	assert.Panics(t, func() { q.ParIter(0) })

	// Sequential iteration is fine.
	require.True(t, q.Next())
	assert.Equal(t, "main", q.Get().Title)
}

// go test -run ^TestParIterEmpty$ . -count 1
func TestParIterEmpty(t *testing.T) {
	w := kizami.NewWorld()
	q := kizami.NewQuery[Position](w)
	called := false
	q.ParForEach(0, func(kizami.Entity, *Position) { called = true })
	assert.False(t, called)
	assert.Zero(t, kizami.ParFold(q.ParIter(0),
		func() int { return 0 },
		func(acc int, _ *kizami.QueryIter) int { return acc + 1 },
		func(a, b int) int { return a + b }))
}
