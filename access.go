package kizami

import "slices"

// Access records which components something reads and writes.
type Access struct {
	reads     bitmask256
	writes    bitmask256
	readsAll  bool
	writesAll bool
}

// AddRead records read access to id.
func (a *Access) AddRead(id ComponentID) { a.reads.set(id) }

// AddWrite records write access to id. Writing implies reading.
func (a *Access) AddWrite(id ComponentID) {
	a.reads.set(id)
	a.writes.set(id)
}

// ReadAll grants read access to every component.
func (a *Access) ReadAll() { a.readsAll = true }

// WriteAll grants write access to every component.
func (a *Access) WriteAll() {
	a.readsAll = true
	a.writesAll = true
}

// HasRead reports whether id may be read.
func (a *Access) HasRead(id ComponentID) bool {
	return a.readsAll || a.reads.containsBit(id)
}

// HasWrite reports whether id may be written.
func (a *Access) HasWrite(id ComponentID) bool {
	return a.writesAll || a.writes.containsBit(id)
}

// Reads returns the component IDs that are read, ascending.
func (a *Access) Reads() []ComponentID { return a.reads.ids(nil) }

// Writes returns the component IDs that are written, ascending.
func (a *Access) Writes() []ComponentID { return a.writes.ids(nil) }

// Extend adds every access of other.
func (a *Access) Extend(other *Access) {
	a.reads = a.reads.or(other.reads)
	a.writes = a.writes.or(other.writes)
	a.readsAll = a.readsAll || other.readsAll
	a.writesAll = a.writesAll || other.writesAll
}

// IsCompatible reports whether a and other can be held at the same time: no
// component is written by one side and touched by the other.
func (a *Access) IsCompatible(other *Access) bool {
	if a.writesAll {
		return !other.readsAll && other.reads.isEmpty()
	}
	if other.writesAll {
		return !a.readsAll && a.reads.isEmpty()
	}
	if a.readsAll {
		return other.writes.isEmpty()
	}
	if other.readsAll {
		return a.writes.isEmpty()
	}
	return !a.writes.intersects(other.reads) &&
		!a.reads.intersects(other.writes)
}

// Conflicts returns the component IDs that make a and other incompatible.
func (a *Access) Conflicts(other *Access) []ComponentID {
	c := a.writes.and(other.reads).or(a.reads.and(other.writes))
	return c.ids(nil)
}

// AccessFilters is one conjunction of With and Without requirements.
type AccessFilters struct {
	with    bitmask256
	without bitmask256
}

// isRuledOutBy reports whether no entity can satisfy both f and other.
func (f AccessFilters) isRuledOutBy(other AccessFilters) bool {
	return f.with.intersects(other.without) || f.without.intersects(other.with)
}

// FilteredAccess is an Access together with the archetype filters that limit
// which entities the access applies to. The filters are kept in disjunctive
// normal form: a list of conjunctions, any of which may match.
type FilteredAccess struct {
	filterSets []AccessFilters
	access     Access
	required   bitmask256
}

// NewFilteredAccess returns an access that matches every entity.
func NewFilteredAccess() FilteredAccess {
	return FilteredAccess{filterSets: []AccessFilters{{}}}
}

// matchesNothing returns an access without any filter set, the identity of
// AppendOr.
func matchesNothing() FilteredAccess {
	return FilteredAccess{}
}

// Access returns the unfiltered component access.
func (f *FilteredAccess) Access() *Access { return &f.access }

// Required returns the components an entity must have to match.
func (f *FilteredAccess) Required() []ComponentID { return f.required.ids(nil) }

// AddRead records read access to id and requires it.
func (f *FilteredAccess) AddRead(id ComponentID) {
	f.access.AddRead(id)
	f.required.set(id)
	f.AndWith(id)
}

// AddWrite records write access to id and requires it.
func (f *FilteredAccess) AddWrite(id ComponentID) {
	f.access.AddWrite(id)
	f.required.set(id)
	f.AndWith(id)
}

// AndWith adds a With(id) requirement to every filter set.
func (f *FilteredAccess) AndWith(id ComponentID) {
	for i := range f.filterSets {
		f.filterSets[i].with.set(id)
	}
}

// AndWithout adds a Without(id) requirement to every filter set.
func (f *FilteredAccess) AndWithout(id ComponentID) {
	for i := range f.filterSets {
		f.filterSets[i].without.set(id)
	}
}

// AppendOr makes other's filter sets alternatives of f's.
func (f *FilteredAccess) AppendOr(other *FilteredAccess) {
	f.filterSets = append(f.filterSets, other.filterSets...)
}

// ExtendAccess adds other's component access without touching the filters.
func (f *FilteredAccess) ExtendAccess(other *FilteredAccess) {
	f.access.Extend(&other.access)
}

// Extend conjoins other with f: accesses are merged and every filter set of
// f is combined with every filter set of other.
func (f *FilteredAccess) Extend(other *FilteredAccess) {
	f.access.Extend(&other.access)
	f.required = f.required.or(other.required)
	if len(other.filterSets) == 1 {
		o := other.filterSets[0]
		for i := range f.filterSets {
			f.filterSets[i].with = f.filterSets[i].with.or(o.with)
			f.filterSets[i].without = f.filterSets[i].without.or(o.without)
		}
		return
	}
	combined := make([]AccessFilters, 0, len(f.filterSets)*len(other.filterSets))
	for _, fs := range f.filterSets {
		for _, o := range other.filterSets {
			combined = append(combined, AccessFilters{
				with:    fs.with.or(o.with),
				without: fs.without.or(o.without),
			})
		}
	}
	f.filterSets = combined
}

// IsCompatible reports whether f and other can run at the same time. They can
// if their component accesses do not conflict, or if every filter set of one
// excludes every filter set of the other, so no entity is seen by both.
func (f *FilteredAccess) IsCompatible(other *FilteredAccess) bool {
	if f.access.IsCompatible(&other.access) {
		return true
	}
	for _, fs := range f.filterSets {
		for _, o := range other.filterSets {
			if !fs.isRuledOutBy(o) {
				return false
			}
		}
	}
	return true
}

// Clone returns a deep copy.
func (f *FilteredAccess) Clone() FilteredAccess {
	c := *f
	c.filterSets = slices.Clone(f.filterSets)
	return c
}
