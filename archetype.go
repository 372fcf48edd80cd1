package kizami

// ArchetypeID identifies an archetype in a World. IDs are assigned densely in
// creation order, so the number of archetypes doubles as a generation counter.
type ArchetypeID uint32

// ArchetypeRow is the position of an entity inside its archetype.
type ArchetypeRow uint32

const (
	invalidArchetypeID = ^ArchetypeID(0)
	emptyArchetypeID   = ArchetypeID(0)
)

// ArchetypeEntity is one member of an archetype and its row in the table.
type ArchetypeEntity struct {
	Entity   Entity
	TableRow TableRow
}

// Archetype groups every entity with exactly the same component set. Table
// components live in the archetype's table; sparse components live in the
// world's sparse sets.
type Archetype struct {
	insertEdges      map[bitmask256]ArchetypeID
	removeEdges      map[bitmask256]ArchetypeID
	tableComponents  []ComponentID
	sparseComponents []ComponentID
	entities         []ArchetypeEntity
	mask             bitmask256
	sparseMask       bitmask256
	id               ArchetypeID
	tableID          TableID
}

func newArchetype(id ArchetypeID, tableID TableID, tableComponents, sparseComponents []ComponentID) *Archetype {
	a := &Archetype{
		id:               id,
		tableID:          tableID,
		tableComponents:  tableComponents,
		sparseComponents: sparseComponents,
		insertEdges:      make(map[bitmask256]ArchetypeID),
		removeEdges:      make(map[bitmask256]ArchetypeID),
	}
	for _, cid := range tableComponents {
		a.mask.set(cid)
	}
	for _, cid := range sparseComponents {
		a.mask.set(cid)
		a.sparseMask.set(cid)
	}
	return a
}

// ID returns the archetype ID.
func (a *Archetype) ID() ArchetypeID { return a.id }

// TableID returns the table holding the archetype's table components.
func (a *Archetype) TableID() TableID { return a.tableID }

// Len returns the number of entities.
func (a *Archetype) Len() int { return len(a.entities) }

// Entities returns the members. The slice is owned by the archetype.
func (a *Archetype) Entities() []ArchetypeEntity { return a.entities }

// Contains reports whether the archetype has component id.
func (a *Archetype) Contains(id ComponentID) bool { return a.mask.containsBit(id) }

// Components returns every component ID of the archetype, ascending.
func (a *Archetype) Components() []ComponentID {
	return a.mask.ids(make([]ComponentID, 0, a.mask.count()))
}

// TableComponents returns the table-stored component IDs.
func (a *Archetype) TableComponents() []ComponentID { return a.tableComponents }

// SparseComponents returns the sparse-set component IDs.
func (a *Archetype) SparseComponents() []ComponentID { return a.sparseComponents }

func (a *Archetype) allocate(e Entity, row TableRow) ArchetypeRow {
	a.entities = append(a.entities, ArchetypeEntity{Entity: e, TableRow: row})
	return ArchetypeRow(len(a.entities) - 1)
}

// swapRemove removes row and returns the member moved into it, if any.
func (a *Archetype) swapRemove(row ArchetypeRow) (ArchetypeEntity, bool) {
	last := len(a.entities) - 1
	moved := int(row) != last
	var swapped ArchetypeEntity
	if moved {
		swapped = a.entities[last]
		a.entities[row] = swapped
	}
	a.entities = a.entities[:last]
	return swapped, moved
}

func (a *Archetype) setEntityTableRow(row ArchetypeRow, tableRow TableRow) {
	a.entities[row].TableRow = tableRow
}

func (a *Archetype) clearEntities() {
	a.entities = a.entities[:0]
}

// Archetypes is the set of archetypes of a World, indexed by ID and by
// component mask.
type Archetypes struct {
	archetypes []*Archetype
	byMask     map[bitmask256]ArchetypeID
}

// Len returns the number of archetypes, which is also the archetype
// generation: it only ever grows.
func (s *Archetypes) Len() int { return len(s.archetypes) }

// Get returns the archetype with the given ID, or nil.
func (s *Archetypes) Get(id ArchetypeID) *Archetype {
	if int(id) >= len(s.archetypes) {
		return nil
	}
	return s.archetypes[id]
}

// All returns every archetype in creation order.
func (s *Archetypes) All() []*Archetype { return s.archetypes }

// Tables is the set of tables of a World.
type Tables struct {
	tables []*Table
	byMask map[bitmask256]TableID
}

// Len returns the number of tables.
func (s *Tables) Len() int { return len(s.tables) }

// Get returns the table with the given ID, or nil.
func (s *Tables) Get(id TableID) *Table {
	if int(id) >= len(s.tables) {
		return nil
	}
	return s.tables[id]
}

// All returns every table in creation order.
func (s *Tables) All() []*Table { return s.tables }
