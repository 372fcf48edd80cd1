package kizami

import (
	"encoding/binary"
	"reflect"
)

// Filter narrows the set of entities a query visits without fetching any
// data. Filters are plain descriptions; a query binds them to component IDs
// when it is built.
type Filter interface {
	bind(w *World) filterTerm
}

// componentRef names a component either by Go type or by ID.
type componentRef struct {
	typ reflect.Type
	id  ComponentID
}

func (r componentRef) resolve(w *World) ComponentID {
	if r.typ != nil {
		return w.components.componentIDOrInsert(r.typ)
	}
	return r.id
}

type withFilter struct{ ref componentRef }

type withoutFilter struct{ ref componentRef }

type tickFilter struct {
	ref   componentRef
	added bool
}

type orFilter struct{ filters []Filter }

type allFilter struct{ filters []Filter }

// With matches entities that have a T, without fetching it.
func With[T any]() Filter { return withFilter{componentRef{typ: reflect.TypeFor[T]()}} }

// WithID is With for a component ID.
func WithID(id ComponentID) Filter { return withFilter{componentRef{id: id}} }

// Without matches entities that do not have a T.
func Without[T any]() Filter { return withoutFilter{componentRef{typ: reflect.TypeFor[T]()}} }

// WithoutID is Without for a component ID.
func WithoutID(id ComponentID) Filter { return withoutFilter{componentRef{id: id}} }

// Added matches entities whose T was added since the query's last run.
func Added[T any]() Filter { return tickFilter{ref: componentRef{typ: reflect.TypeFor[T]()}, added: true} }

// AddedID is Added for a component ID.
func AddedID(id ComponentID) Filter { return tickFilter{ref: componentRef{id: id}, added: true} }

// Changed matches entities whose T was added or written since the query's
// last run.
func Changed[T any]() Filter { return tickFilter{ref: componentRef{typ: reflect.TypeFor[T]()}} }

// ChangedID is Changed for a component ID.
func ChangedID(id ComponentID) Filter { return tickFilter{ref: componentRef{id: id}} }

// Or matches entities matched by at least one of filters.
func Or(filters ...Filter) Filter { return orFilter{filters: filters} }

// All matches entities matched by every one of filters.
func All(filters ...Filter) Filter { return allFilter{filters: filters} }

func (f withFilter) bind(w *World) filterTerm {
	id := f.ref.resolve(w)
	return &withTerm{id: id, sparse: w.isSparse(id)}
}

func (f withoutFilter) bind(w *World) filterTerm {
	id := f.ref.resolve(w)
	return &withoutTerm{id: id, sparse: w.isSparse(id)}
}

func (f tickFilter) bind(w *World) filterTerm {
	id := f.ref.resolve(w)
	return &tickTerm{id: id, sparse: w.isSparse(id), added: f.added}
}

func (f orFilter) bind(w *World) filterTerm {
	t := &orTerm{subs: make([]filterTerm, len(f.filters))}
	for i, sub := range f.filters {
		t.subs[i] = sub.bind(w)
	}
	return t
}

func (f allFilter) bind(w *World) filterTerm {
	t := &allTerm{subs: make([]filterTerm, len(f.filters))}
	for i, sub := range f.filters {
		t.subs[i] = sub.bind(w)
	}
	return t
}

func (w *World) isSparse(id ComponentID) bool {
	info, ok := w.components.Info(id)
	return ok && info.desc.Storage == StorageSparseSet
}

// filterState is the per-iterator cache of one filter term.
type filterState struct {
	ticks   []Tick // added or changed ticks of the bound table column
	set     *ComponentSparseSet
	matches bool // whether an Or branch matches the current table/archetype
}

// filterTerm is a filter bound to component IDs.
type filterTerm interface {
	updateAccess(a *FilteredAccess)
	// matches reports whether an archetype with the given components can
	// contain matching entities.
	matches(mask bitmask256) bool
	// dense reports whether the term can be evaluated from tables alone.
	dense() bool
	// stateSize is the number of filterState slots the term uses.
	stateSize() int
	// rowFilter reports whether fetch may reject individual rows.
	rowFilter() bool
	setTable(st []filterState, t *Table)
	setArchetype(st []filterState, w *World, a *Archetype, t *Table)
	fetch(st []filterState, e Entity, row TableRow, ticks SystemTicks) bool
	encode(b []byte) []byte
}

func encodeID(b []byte, kind byte, id ComponentID) []byte {
	b = append(b, kind)
	return binary.LittleEndian.AppendUint32(b, uint32(id))
}

type withTerm struct {
	id     ComponentID
	sparse bool
}

func (t *withTerm) updateAccess(a *FilteredAccess) { a.AndWith(t.id) }
func (t *withTerm) matches(mask bitmask256) bool { return mask.containsBit(t.id) }
func (t *withTerm) dense() bool { return !t.sparse }
func (t *withTerm) stateSize() int { return 0 }
func (t *withTerm) rowFilter() bool { return false }
func (t *withTerm) setTable([]filterState, *Table) {}
func (t *withTerm) setArchetype([]filterState, *World, *Archetype, *Table) {}
func (t *withTerm) fetch([]filterState, Entity, TableRow, SystemTicks) bool { return true }
func (t *withTerm) encode(b []byte) []byte { return encodeID(b, 'w', t.id) }

type withoutTerm struct {
	id     ComponentID
	sparse bool
}

func (t *withoutTerm) updateAccess(a *FilteredAccess) { a.AndWithout(t.id) }
func (t *withoutTerm) matches(mask bitmask256) bool { return !mask.containsBit(t.id) }
func (t *withoutTerm) dense() bool { return !t.sparse }
func (t *withoutTerm) stateSize() int { return 0 }
func (t *withoutTerm) rowFilter() bool { return false }
func (t *withoutTerm) setTable([]filterState, *Table) {}
func (t *withoutTerm) setArchetype([]filterState, *World, *Archetype, *Table) {}
func (t *withoutTerm) fetch([]filterState, Entity, TableRow, SystemTicks) bool { return true }
func (t *withoutTerm) encode(b []byte) []byte { return encodeID(b, 'x', t.id) }

// tickTerm implements Added and Changed.
type tickTerm struct {
	id     ComponentID
	sparse bool
	added  bool
}

func (t *tickTerm) updateAccess(a *FilteredAccess) {
	a.access.AddRead(t.id)
	a.AndWith(t.id)
}

func (t *tickTerm) matches(mask bitmask256) bool { return mask.containsBit(t.id) }
func (t *tickTerm) dense() bool { return !t.sparse }
func (t *tickTerm) stateSize() int { return 1 }
func (t *tickTerm) rowFilter() bool { return true }

func (t *tickTerm) setTable(st []filterState, tb *Table) {
	st[0].ticks = nil
	if col := tb.Column(t.id); col != nil {
		if t.added {
			st[0].ticks = col.added
		} else {
			st[0].ticks = col.changed
		}
	}
}

func (t *tickTerm) setArchetype(st []filterState, w *World, _ *Archetype, tb *Table) {
	if t.sparse {
		st[0].set = w.SparseSet(t.id)
		return
	}
	t.setTable(st, tb)
}

func (t *tickTerm) fetch(st []filterState, e Entity, row TableRow, ticks SystemTicks) bool {
	if !t.sparse {
		return st[0].ticks[row].IsNewerThan(ticks.LastRun, ticks.ThisRun)
	}
	ct, ok := st[0].set.Ticks(e)
	if !ok {
		return false
	}
	if t.added {
		return ct.IsAdded(ticks.LastRun, ticks.ThisRun)
	}
	return ct.IsChanged(ticks.LastRun, ticks.ThisRun)
}

func (t *tickTerm) encode(b []byte) []byte {
	if t.added {
		return encodeID(b, 'a', t.id)
	}
	return encodeID(b, 'c', t.id)
}

// orTerm matches when any branch matches. Each branch owns one slot for its
// matches flag followed by its own state.
type orTerm struct {
	subs []filterTerm
}

func (t *orTerm) updateAccess(a *FilteredAccess) {
	combined := matchesNothing()
	for _, sub := range t.subs {
		branch := a.Clone()
		sub.updateAccess(&branch)
		combined.AppendOr(&branch)
		combined.ExtendAccess(&branch)
	}
	combined.required = a.required
	*a = combined
}

func (t *orTerm) matches(mask bitmask256) bool {
	for _, sub := range t.subs {
		if sub.matches(mask) {
			return true
		}
	}
	return false
}

func (t *orTerm) dense() bool {
	for _, sub := range t.subs {
		if !sub.dense() {
			return false
		}
	}
	return true
}

func (t *orTerm) stateSize() int {
	n := 0
	for _, sub := range t.subs {
		n += 1 + sub.stateSize()
	}
	return n
}

// An Or over archetype filters still rejects rows: it has to consult each
// branch's matches flag per table or archetype.
func (t *orTerm) rowFilter() bool { return true }

func (t *orTerm) setTable(st []filterState, tb *Table) {
	for _, sub := range t.subs {
		n := sub.stateSize()
		st[0].matches = sub.matches(tb.mask)
		if st[0].matches {
			sub.setTable(st[1:1+n], tb)
		}
		st = st[1+n:]
	}
}

func (t *orTerm) setArchetype(st []filterState, w *World, a *Archetype, tb *Table) {
	for _, sub := range t.subs {
		n := sub.stateSize()
		st[0].matches = sub.matches(a.mask)
		if st[0].matches {
			sub.setArchetype(st[1:1+n], w, a, tb)
		}
		st = st[1+n:]
	}
}

func (t *orTerm) fetch(st []filterState, e Entity, row TableRow, ticks SystemTicks) bool {
	for _, sub := range t.subs {
		n := sub.stateSize()
		if st[0].matches && sub.fetch(st[1:1+n], e, row, ticks) {
			return true
		}
		st = st[1+n:]
	}
	return false
}

func (t *orTerm) encode(b []byte) []byte {
	b = append(b, 'o', byte(len(t.subs)))
	for _, sub := range t.subs {
		b = sub.encode(b)
	}
	return append(b, ')')
}

// allTerm matches when every sub-filter matches.
type allTerm struct {
	subs []filterTerm
}

func (t *allTerm) updateAccess(a *FilteredAccess) {
	for _, sub := range t.subs {
		sub.updateAccess(a)
	}
}

func (t *allTerm) matches(mask bitmask256) bool {
	for _, sub := range t.subs {
		if !sub.matches(mask) {
			return false
		}
	}
	return true
}

func (t *allTerm) dense() bool {
	for _, sub := range t.subs {
		if !sub.dense() {
			return false
		}
	}
	return true
}

func (t *allTerm) stateSize() int {
	n := 0
	for _, sub := range t.subs {
		n += sub.stateSize()
	}
	return n
}

func (t *allTerm) rowFilter() bool {
	for _, sub := range t.subs {
		if sub.rowFilter() {
			return true
		}
	}
	return false
}

func (t *allTerm) setTable(st []filterState, tb *Table) {
	for _, sub := range t.subs {
		n := sub.stateSize()
		sub.setTable(st[:n], tb)
		st = st[n:]
	}
}

func (t *allTerm) setArchetype(st []filterState, w *World, a *Archetype, tb *Table) {
	for _, sub := range t.subs {
		n := sub.stateSize()
		sub.setArchetype(st[:n], w, a, tb)
		st = st[n:]
	}
}

func (t *allTerm) fetch(st []filterState, e Entity, row TableRow, ticks SystemTicks) bool {
	for _, sub := range t.subs {
		n := sub.stateSize()
		if !sub.fetch(st[:n], e, row, ticks) {
			return false
		}
		st = st[n:]
	}
	return true
}

func (t *allTerm) encode(b []byte) []byte {
	b = append(b, '&', byte(len(t.subs)))
	for _, sub := range t.subs {
		b = sub.encode(b)
	}
	return append(b, ')')
}
