package kizami

import "unsafe"

// ComponentSparseSet stores the values of one sparse-set component. Values are
// packed densely; the sparse index maps an entity index to its dense row.
type ComponentSparseSet struct {
	dense    *Column
	entities []Entity // dense row to entity
	sparse   []int32  // entity index to dense row, -1 when absent
}

func newComponentSparseSet(info *ComponentInfo, capacity int) *ComponentSparseSet {
	return &ComponentSparseSet{
		dense:    newColumn(info, capacity),
		entities: make([]Entity, 0, capacity),
	}
}

// Len returns the number of stored values.
func (s *ComponentSparseSet) Len() int { return len(s.entities) }

// Entities returns the entities in dense order.
func (s *ComponentSparseSet) Entities() []Entity { return s.entities }

func (s *ComponentSparseSet) denseIndex(e Entity) (TableRow, bool) {
	if int(e.Index) >= len(s.sparse) {
		return 0, false
	}
	i := s.sparse[e.Index]
	if i < 0 || s.entities[i] != e {
		return 0, false
	}
	return TableRow(i), true
}

// Contains reports whether e has a value in the set.
func (s *ComponentSparseSet) Contains(e Entity) bool {
	_, ok := s.denseIndex(e)
	return ok
}

// Get returns a pointer to the value of e, or nil.
func (s *ComponentSparseSet) Get(e Entity) unsafe.Pointer {
	i, ok := s.denseIndex(e)
	if !ok {
		return nil
	}
	return s.dense.Get(i)
}

// GetWithTicks returns the value pointer and the ticks of e.
func (s *ComponentSparseSet) GetWithTicks(e Entity) (unsafe.Pointer, ComponentTicks, bool) {
	i, ok := s.denseIndex(e)
	if !ok {
		return nil, ComponentTicks{}, false
	}
	return s.dense.Get(i), s.dense.Ticks(i), true
}

// Ticks returns the ticks of e.
func (s *ComponentSparseSet) Ticks(e Entity) (ComponentTicks, bool) {
	i, ok := s.denseIndex(e)
	if !ok {
		return ComponentTicks{}, false
	}
	return s.dense.Ticks(i), true
}

func (s *ComponentSparseSet) setChanged(e Entity, tick Tick) {
	if i, ok := s.denseIndex(e); ok {
		s.dense.changed[i] = tick
	}
}

// insert writes the value for e. An existing value is dropped and replaced,
// keeping its added tick.
func (s *ComponentSparseSet) insert(e Entity, src unsafe.Pointer, changeTick Tick) {
	if i, ok := s.denseIndex(e); ok {
		s.dense.replace(i, src, changeTick)
		return
	}
	if int(e.Index) >= len(s.sparse) {
		n := max(int(e.Index)+1, 2*len(s.sparse))
		grown := make([]int32, n)
		copy(grown, s.sparse)
		for j := len(s.sparse); j < n; j++ {
			grown[j] = -1
		}
		s.sparse = grown
	}
	row := TableRow(len(s.entities))
	s.entities = append(s.entities, e)
	s.dense.pushZero()
	s.dense.initialize(row, src, NewComponentTicks(changeTick))
	s.sparse[e.Index] = int32(row)
}

// remove deletes the value of e, dropping it when drop is set. It reports
// whether a value was present.
func (s *ComponentSparseSet) remove(e Entity, drop bool) bool {
	i, ok := s.denseIndex(e)
	if !ok {
		return false
	}
	s.dense.swapRemove(i, drop)
	last := len(s.entities) - 1
	if int(i) != last {
		moved := s.entities[last]
		s.entities[i] = moved
		s.sparse[moved.Index] = int32(i)
	}
	s.entities = s.entities[:last]
	s.sparse[e.Index] = -1
	return true
}

func (s *ComponentSparseSet) clear() {
	s.dense.clear()
	for _, e := range s.entities {
		s.sparse[e.Index] = -1
	}
	s.entities = s.entities[:0]
}

func (s *ComponentSparseSet) checkChangeTicks(thisRun Tick) int {
	return s.dense.checkChangeTicks(thisRun)
}
