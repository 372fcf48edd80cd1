package kizami

// Tracked is a component pointer paired with its change ticks. Reading
// through Get leaves the ticks alone; GetMut stamps the changed tick.
type Tracked[T any] struct {
	value   *T
	added   *Tick
	changed *Tick
	ticks   SystemTicks
}

// Get returns the value without marking it changed.
func (t Tracked[T]) Get() *T { return t.value }

// GetMut returns the value and marks it changed at the current run tick.
func (t Tracked[T]) GetMut() *T {
	*t.changed = t.ticks.ThisRun
	return t.value
}

// SetChanged marks the value changed without accessing it.
func (t Tracked[T]) SetChanged() { *t.changed = t.ticks.ThisRun }

// IsAdded reports whether the component was added since the last run.
func (t Tracked[T]) IsAdded() bool {
	return t.added.IsNewerThan(t.ticks.LastRun, t.ticks.ThisRun)
}

// IsChanged reports whether the component was added or written since the
// last run.
func (t Tracked[T]) IsChanged() bool {
	return t.changed.IsNewerThan(t.ticks.LastRun, t.ticks.ThisRun)
}

// Ticks returns a copy of the stored ticks.
func (t Tracked[T]) Ticks() ComponentTicks {
	return ComponentTicks{Added: *t.added, Changed: *t.changed}
}

// GetTracked returns the T component of e with change tracking relative to
// ticks. The second result is false if e is dead or lacks the component.
func GetTracked[T any](w *World, e Entity, ticks SystemTicks) (Tracked[T], bool) {
	id, ok := ComponentIDOf[T](w.components)
	if !ok {
		return Tracked[T]{}, false
	}
	loc, ok := w.Location(e)
	if !ok {
		return Tracked[T]{}, false
	}
	a := w.archetypes.archetypes[loc.ArchetypeID]
	if !a.Contains(id) {
		return Tracked[T]{}, false
	}
	var col *Column
	var row TableRow
	if a.sparseMask.containsBit(id) {
		s := w.sparseSets[id]
		row, _ = s.denseIndex(e)
		col = s.dense
	} else {
		col = w.tables.tables[loc.TableID].byID[id]
		row = loc.TableRow
	}
	return Tracked[T]{
		value:   (*T)(col.Get(row)),
		added:   &col.added[row],
		changed: &col.changed[row],
		ticks:   ticks,
	}, true
}
