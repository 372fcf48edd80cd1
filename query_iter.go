package kizami

import (
	"fmt"
	"unsafe"
)

// QueryIter walks the entities matched by a QueryState. Dense queries walk
// the rows of matched tables; the others walk the members of matched
// archetypes. The world must not be structurally changed during iteration.
type QueryIter struct {
	world         *World
	state         *QueryState
	fetch         []fetchState
	filter        []filterState
	tableEntities []Entity
	archEntities  []ArchetypeEntity
	ticks         SystemTicks
	cursor        int // index into the matched tables or archetypes
	end           int // one past the last storage to visit
	row           int
	rowEnd        int
	entity        Entity
	tableRow      TableRow
}

func (it *QueryIter) init(w *World, s *QueryState, ticks SystemTicks) {
	it.world = w
	it.state = s
	it.ticks = ticks
	if cap(it.fetch) < len(s.fetches) {
		it.fetch = make([]fetchState, len(s.fetches))
	}
	it.fetch = it.fetch[:len(s.fetches)]
	if cap(it.filter) < s.filterSize {
		it.filter = make([]filterState, s.filterSize)
	}
	it.filter = it.filter[:s.filterSize]
	it.cursor = -1
	it.end = it.storageCount()
	it.row = 0
	it.rowEnd = 0
}

// initBatch restricts the iterator to rows [start, end) of one storage.
func (it *QueryIter) initBatch(w *World, s *QueryState, ticks SystemTicks, storage, start, end int) {
	it.init(w, s, ticks)
	it.cursor = storage
	it.end = storage + 1
	it.setStorage(storage)
	it.row = start - 1
	it.rowEnd = end
}

func (it *QueryIter) storageCount() int {
	if it.state.dense {
		return len(it.state.matchedTables)
	}
	return len(it.state.matchedArchetypes)
}

func (it *QueryIter) setStorage(i int) {
	s := it.state
	w := it.world
	if s.dense {
		t := w.tables.tables[s.matchedTables[i]]
		for j := range s.fetches {
			s.fetches[j].setTable(&it.fetch[j], t)
		}
		s.filter.setTable(it.filter, t)
		it.tableEntities = t.entities
		it.rowEnd = len(t.entities)
		return
	}
	a := w.archetypes.archetypes[s.matchedArchetypes[i]]
	t := w.tables.tables[a.tableID]
	for j := range s.fetches {
		s.fetches[j].setArchetype(&it.fetch[j], w, a, t)
	}
	s.filter.setArchetype(it.filter, w, a, t)
	it.archEntities = a.entities
	it.rowEnd = len(a.entities)
}

// Next advances to the next matching entity. It returns false once the
// iteration is complete.
func (it *QueryIter) Next() bool {
	for {
		if it.row+1 >= it.rowEnd {
			it.cursor++
			if it.cursor >= it.end {
				it.row = it.rowEnd
				return false
			}
			it.setStorage(it.cursor)
			it.row = -1
			continue
		}
		it.row++
		if it.state.dense {
			it.entity = it.tableEntities[it.row]
			it.tableRow = TableRow(it.row)
		} else {
			ae := it.archEntities[it.row]
			it.entity = ae.Entity
			it.tableRow = ae.TableRow
		}
		if it.state.rowFilter && !it.state.filter.fetch(it.filter, it.entity, it.tableRow, it.ticks) {
			continue
		}
		return true
	}
}

// Entity returns the current entity.
func (it *QueryIter) Entity() Entity { return it.entity }

// TableRow returns the table row of the current entity.
func (it *QueryIter) TableRow() TableRow { return it.tableRow }

// SystemTicks returns the change ticks the iterator evaluates against.
func (it *QueryIter) SystemTicks() SystemTicks { return it.ticks }

// Len returns the number of fetch terms.
func (it *QueryIter) Len() int { return len(it.state.fetches) }

// Ptr returns a read pointer to fetch term i of the current entity, or nil
// when an optional term is absent.
func (it *QueryIter) Ptr(i int) unsafe.Pointer {
	return it.state.fetches[i].ptr(&it.fetch[i], it.entity, it.tableRow)
}

// MutPtr returns a pointer to fetch term i and marks the value changed. It
// panics if the term was not declared writable.
func (it *QueryIter) MutPtr(i int) unsafe.Pointer {
	f := &it.state.fetches[i]
	if !f.write {
		panic(fmt.Sprintf("kizami: query term %d (component %d) is read-only", i, f.id))
	}
	f.markChanged(&it.fetch[i], it.entity, it.tableRow, it.ticks.ThisRun)
	return f.ptr(&it.fetch[i], it.entity, it.tableRow)
}

// Has reports whether fetch term i is present on the current entity.
func (it *QueryIter) Has(i int) bool {
	return it.Ptr(i) != nil
}

// Ticks returns the change ticks of fetch term i on the current entity.
func (it *QueryIter) Ticks(i int) (ComponentTicks, bool) {
	return it.state.fetches[i].ticks(&it.fetch[i], it.entity, it.tableRow)
}
