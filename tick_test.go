package kizami

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// go test -run ^TestTickIsNewerThan$ . -count 1
func TestTickIsNewerThan(t *testing.T) {
	tests := []struct {
		name             string
		tick             Tick
		lastRun, thisRun Tick
		want             bool
	}{
		{"after last run", 5, 4, 6, true},
		{"at last run", 4, 4, 6, false},
		{"before last run", 3, 4, 6, false},
		{"at this run", 6, 4, 6, true},
		{"across wraparound", 2, math.MaxUint32 - 1, 3, true},
		{"old across wraparound", math.MaxUint32 - 2, math.MaxUint32 - 1, 3, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tick.IsNewerThan(tt.lastRun, tt.thisRun))
		})
	}
}

// go test -run ^TestTickCheck$ . -count 1
func TestTickCheck(t *testing.T) {
	t.Run("recent tick untouched", func(t *testing.T) {
		tick := Tick(100)
		assert.False(t, tick.Check(200))
		assert.Equal(t, Tick(100), tick)
	})

	t.Run("old tick rebased", func(t *testing.T) {
		now := Tick(MaxChangeAge) + 1000
		tick := Tick(10)
		assert.True(t, tick.Check(now))
		assert.Equal(t, now-Tick(MaxChangeAge), tick)
		assert.False(t, tick.Check(now))
	})

	t.Run("rebased tick stays older than recent runs", func(t *testing.T) {
		now := Tick(math.MaxUint32)
		tick := Tick(1)
		tick.Check(now)
		assert.False(t, tick.IsNewerThan(now-10, now))
	})
}

// go test -run ^TestComponentTicks$ . -count 1
func TestComponentTicks(t *testing.T) {
	c := NewComponentTicks(5)
	assert.True(t, c.IsAdded(4, 6))
	assert.True(t, c.IsChanged(4, 6))
	assert.False(t, c.IsAdded(5, 6))

	c.SetChanged(8)
	assert.False(t, c.IsAdded(6, 9))
	assert.True(t, c.IsChanged(6, 9))
}

// go test -run ^TestCheckChangeTicks$ . -count 1
func TestCheckChangeTicks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CheckTickThreshold = 10
	w := NewWorld(WithConfig(cfg))
	e := w.Spawn(struct{ N int }{N: 1})

	assert.False(t, w.CheckChangeTicks(), "threshold not reached")

	w.changeTick.Store(uint32(MaxChangeAge) + 100)
	assert.True(t, w.CheckChangeTicks())

	loc, _ := w.Location(e)
	col := w.tables.Get(loc.TableID).Columns()[0]
	ticks := col.Ticks(loc.TableRow)
	assert.Equal(t, w.ChangeTick()-Tick(MaxChangeAge), ticks.Added)
	assert.Equal(t, w.ChangeTick()-Tick(MaxChangeAge), ticks.Changed)

	assert.False(t, w.CheckChangeTicks(), "scans are rate limited")
}
