package kizami

import "unsafe"

type fetchKind uint8

const (
	fetchRef fetchKind = iota
	fetchMut
	fetchOptional
)

// fetchTerm is one data term of a query: a component read, written, or read
// when present.
type fetchTerm struct {
	id     ComponentID
	kind   fetchKind
	write  bool // optional terms that may be written
	sparse bool
	send   bool
}

func newFetchTerm(w *World, id ComponentID, kind fetchKind, write bool) fetchTerm {
	t := fetchTerm{id: id, kind: kind, write: write || kind == fetchMut, send: true}
	if info, ok := w.components.Info(id); ok {
		t.sparse = info.desc.Storage == StorageSparseSet
		t.send = info.desc.Send
	}
	return t
}

func (t *fetchTerm) updateAccess(a *FilteredAccess) {
	switch t.kind {
	case fetchRef:
		a.AddRead(t.id)
	case fetchMut:
		a.AddWrite(t.id)
	case fetchOptional:
		if t.write {
			a.access.AddWrite(t.id)
		} else {
			a.access.AddRead(t.id)
		}
	}
}

func (t *fetchTerm) matches(mask bitmask256) bool {
	return t.kind == fetchOptional || mask.containsBit(t.id)
}

func (t *fetchTerm) encode(b []byte) []byte {
	switch {
	case t.kind == fetchRef:
		return encodeID(b, 'r', t.id)
	case t.kind == fetchMut:
		return encodeID(b, 'm', t.id)
	case t.write:
		return encodeID(b, 'Q', t.id)
	}
	return encodeID(b, 'q', t.id)
}

// fetchState is the per-iterator cache of one fetch term for the current
// table or archetype.
type fetchState struct {
	base    unsafe.Pointer
	added   []Tick
	changed []Tick
	set     *ComponentSparseSet
	size    uintptr
	present bool
}

func (t *fetchTerm) setTable(fs *fetchState, tb *Table) {
	col := tb.Column(t.id)
	if col == nil {
		*fs = fetchState{}
		return
	}
	fs.base = col.base
	fs.size = col.size
	fs.added = col.added
	fs.changed = col.changed
	fs.set = nil
	fs.present = true
}

func (t *fetchTerm) setArchetype(fs *fetchState, w *World, a *Archetype, tb *Table) {
	if !t.sparse {
		t.setTable(fs, tb)
		return
	}
	*fs = fetchState{}
	if a.Contains(t.id) {
		fs.set = w.SparseSet(t.id)
		fs.present = fs.set != nil
	}
}

func (t *fetchTerm) ptr(fs *fetchState, e Entity, row TableRow) unsafe.Pointer {
	if !fs.present {
		return nil
	}
	if fs.set != nil {
		return fs.set.Get(e)
	}
	return unsafe.Add(fs.base, uintptr(row)*fs.size)
}

func (t *fetchTerm) ticks(fs *fetchState, e Entity, row TableRow) (ComponentTicks, bool) {
	if !fs.present {
		return ComponentTicks{}, false
	}
	if fs.set != nil {
		return fs.set.Ticks(e)
	}
	return ComponentTicks{Added: fs.added[row], Changed: fs.changed[row]}, true
}

func (t *fetchTerm) markChanged(fs *fetchState, e Entity, row TableRow, tick Tick) {
	if !fs.present {
		return
	}
	if fs.set != nil {
		fs.set.setChanged(e, tick)
		return
	}
	fs.changed[row] = tick
}
