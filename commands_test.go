package kizami_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/edwinsyarief/kizami"
)

// go test -run ^TestCommands$ . -count 1
func TestCommands(t *testing.T) {
	w, posID, velID, healthID := setupWorld(t)
	cmds := kizami.NewCommands(w)

	e := cmds.Spawn(Position{X: 1}, Velocity{VX: 2})
	assert.False(t, w.IsAlive(e), "reserved entities appear on Apply")
	assert.Equal(t, 1, cmds.Len())

	require.NoError(t, cmds.Apply(w))
	assert.Zero(t, cmds.Len())
	require.True(t, w.IsAlive(e))
	assert.Equal(t, float32(1), kizami.GetComponent[Position](w, e).X)
	assert.True(t, w.Contains(e, velID))

	t.Run("fifo", func(t *testing.T) {
		cmds.Insert(e, Health{Current: 1})
		cmds.Insert(e, Health{Current: 2})
		cmds.Remove(e, velID)
		require.NoError(t, cmds.Apply(w))
		assert.Equal(t, 2, kizami.GetComponent[Health](w, e).Current)
		assert.False(t, w.Contains(e, velID))
	})

	t.Run("reserved entity usable by later commands", func(t *testing.T) {
		empty := cmds.SpawnEmpty()
		cmds.Insert(empty, Tag{})
		require.NoError(t, cmds.Apply(w))
		assert.True(t, kizami.HasComponent[Tag](w, empty))
	})

	t.Run("double despawn is a no-op", func(t *testing.T) {
		victim := w.Spawn(Position{})
		cmds.Despawn(victim).Despawn(victim)
		require.NoError(t, cmds.Apply(w))
		assert.False(t, w.IsAlive(victim))
	})

	t.Run("remove falls back to intersection", func(t *testing.T) {
		target := w.Spawn(Position{}, Health{})
		cmds.Remove(target, healthID, velID)
		require.NoError(t, cmds.Apply(w))
		assert.False(t, w.Contains(target, healthID))
		assert.True(t, w.Contains(target, posID))
	})

	t.Run("errors are combined", func(t *testing.T) {
		dead := w.Spawn(Position{})
		require.NoError(t, w.Despawn(dead))
		boom := errors.New("boom")
		ran := false
		cmds.Insert(dead, Health{})
		cmds.Add(kizami.CommandFunc(func(*kizami.World) error { return boom }))
		cmds.Add(kizami.CommandFunc(func(*kizami.World) error { ran = true; return nil }))

		err := cmds.Apply(w)
		require.Error(t, err)
		assert.Len(t, multierr.Errors(err), 2)
		assert.ErrorIs(t, err, kizami.ErrNoSuchEntity)
		assert.ErrorIs(t, err, boom)
		assert.True(t, ran, "a failing command does not stop the queue")
		assert.Zero(t, cmds.Len())
	})

	t.Run("resources", func(t *testing.T) {
		type Gravity struct{ G float32 }
		cmds.InsertResource(Gravity{G: 9.8})
		require.NoError(t, cmds.Apply(w))
		require.True(t, kizami.HasResource[Gravity](w))
		assert.Equal(t, float32(9.8), kizami.GetResource[Gravity](w).G)

		id, ok := kizami.ResourceIDOf[Gravity](w.Components())
		require.True(t, ok)
		cmds.RemoveResource(id)
		require.NoError(t, cmds.Apply(w))
		assert.False(t, kizami.HasResource[Gravity](w))
	})

	t.Run("remove of generic type", func(t *testing.T) {
		target := w.Spawn(Position{}, Health{})
		kizami.RemoveOf[Health](cmds, w, target)
		require.NoError(t, cmds.Apply(w))
		assert.False(t, kizami.HasComponent[Health](w, target))
	})
}

// go test -run ^TestCommandsLogging$ . -count 1
func TestCommandsLogging(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	w := kizami.NewWorld(kizami.WithLogger(zap.New(core)))
	healthID := kizami.RegisterComponent[Health](w)
	velID := kizami.RegisterComponent[Velocity](w)
	e := w.Spawn(Health{})

	cmds := kizami.NewCommands(w)
	cmds.Remove(e, healthID, velID)
	require.NoError(t, cmds.Apply(w))

	entries := logs.FilterMessageSnippet("bundle not present").All()
	require.Len(t, entries, 1)
	assert.Equal(t, e.String(), entries[0].ContextMap()["entity"])
}

// go test -run ^TestCommandsReserveAcrossBlocks$ . -count 1
func TestCommandsReserveAcrossBlocks(t *testing.T) {
	w := kizami.NewWorld()
	cmds := kizami.NewCommands(w)
	direct := w.Spawn(Position{})
	reserved := make([]kizami.Entity, 0, kizami.BlockSize+5)
	for range kizami.BlockSize + 5 {
		reserved = append(reserved, cmds.Spawn(Position{}))
	}
	require.NoError(t, cmds.Apply(w))
	assert.Equal(t, kizami.BlockSize+6, w.Len())
	assert.True(t, w.IsAlive(direct))
	for _, e := range reserved {
		require.True(t, w.IsAlive(e))
		assert.NotEqual(t, direct.Index, e.Index)
	}
}

// go test -run ^TestCommandsReuseBlocks$ . -count 1
func TestCommandsReuseBlocks(t *testing.T) {
	w := kizami.NewWorld()
	pool := w.Entities().Pool()

	t.Run("one buffer per frame", func(t *testing.T) {
		for range 3000 {
			cmds := kizami.NewCommands(w)
			cmds.Spawn(Position{})
			require.NoError(t, cmds.Apply(w))
		}
		assert.Equal(t, 3000, w.Len())
		assert.LessOrEqual(t, pool.Blocks(), 3)
	})

	t.Run("long lived buffer", func(t *testing.T) {
		cmds := kizami.NewCommands(w)
		for range 3000 {
			e := cmds.Spawn(Position{})
			require.NoError(t, cmds.Apply(w))
			require.NoError(t, w.Despawn(e))
		}
		assert.LessOrEqual(t, pool.Blocks(), 3)
	})

	t.Run("reservation dropped by clear", func(t *testing.T) {
		cmds := kizami.NewCommands(w)
		e := cmds.Spawn(Position{})
		w.Clear()
		err := cmds.Apply(w)
		assert.ErrorIs(t, err, kizami.ErrNoSuchEntity)
		assert.False(t, w.IsAlive(e))
		assert.Zero(t, w.Len())
	})

	t.Run("other world panics", func(t *testing.T) {
		cmds := kizami.NewCommands(w)
		cmds.SpawnEmpty()
		assert.Panics(t, func() { _ = cmds.Apply(kizami.NewWorld()) })
	})
}
