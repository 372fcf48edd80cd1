package kizami

import "math"

const (
	// CheckTickThreshold is the minimum number of world tick increments between
	// two CheckChangeTicks scans.
	CheckTickThreshold uint32 = 518_400_000

	// MaxChangeAge is the largest age a tick may reach before CheckChangeTicks
	// rebases it. Changes older than this stop being detected.
	MaxChangeAge uint32 = (math.MaxUint32 / 4) * 3
)

// Tick is a wrapping timestamp taken from the world change counter.
type Tick uint32

// IsNewerThan reports whether t happened after lastRun, as seen from thisRun.
// Both ages are computed with wrapping subtraction so the comparison stays
// correct across uint32 overflow as long as no tick is older than
// MaxChangeAge.
func (t Tick) IsNewerThan(lastRun, thisRun Tick) bool {
	sinceInsert := uint32(thisRun - t)
	sinceSystem := uint32(thisRun - lastRun)
	return sinceSystem > sinceInsert
}

// Check rebases t when it is more than MaxChangeAge behind thisRun.
// It reports whether the tick was modified.
func (t *Tick) Check(thisRun Tick) bool {
	if uint32(thisRun-*t) > MaxChangeAge {
		*t = thisRun - Tick(MaxChangeAge)
		return true
	}
	return false
}

// ComponentTicks records when a component slot was added and last changed.
type ComponentTicks struct {
	Added   Tick
	Changed Tick
}

// NewComponentTicks returns ticks with both stamps set to changeTick.
func NewComponentTicks(changeTick Tick) ComponentTicks {
	return ComponentTicks{Added: changeTick, Changed: changeTick}
}

// IsAdded reports whether the slot was added after lastRun.
func (c ComponentTicks) IsAdded(lastRun, thisRun Tick) bool {
	return c.Added.IsNewerThan(lastRun, thisRun)
}

// IsChanged reports whether the slot was added or written after lastRun.
func (c ComponentTicks) IsChanged(lastRun, thisRun Tick) bool {
	return c.Changed.IsNewerThan(lastRun, thisRun)
}

// SetChanged stamps the changed tick.
func (c *ComponentTicks) SetChanged(changeTick Tick) {
	c.Changed = changeTick
}

// SystemTicks is the (last run, this run) pair threaded through every query
// and fetch constructor.
type SystemTicks struct {
	LastRun Tick
	ThisRun Tick
}

func checkTickSlice(ticks []Tick, thisRun Tick) int {
	n := 0
	for i := range ticks {
		if ticks[i].Check(thisRun) {
			n++
		}
	}
	return n
}
