package kizami

import "unsafe"

// TableID identifies a table in a World.
type TableID uint32

// TableRow is a row index inside one table. It is only meaningful for that
// table and is invalidated when a swap-remove moves another row into it.
type TableRow uint32

const invalidTableID = ^TableID(0)

// Table is the columnar storage shared by every archetype with the same set of
// table-stored components.
type Table struct {
	columns  []*Column // ordered by component id
	byID     []*Column // indexed by component id, nil when absent
	entities []Entity
	mask     bitmask256
	id       TableID
}

func newTable(id TableID, infos []*ComponentInfo, capacity int) *Table {
	t := &Table{
		id:       id,
		columns:  make([]*Column, 0, len(infos)),
		entities: make([]Entity, 0, capacity),
	}
	maxID := -1
	for _, info := range infos {
		maxID = max(maxID, int(info.id))
	}
	t.byID = make([]*Column, maxID+1)
	for _, info := range infos {
		col := newColumn(info, capacity)
		t.columns = append(t.columns, col)
		t.byID[info.id] = col
		t.mask.set(info.id)
	}
	return t
}

// ID returns the table ID.
func (t *Table) ID() TableID { return t.id }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.entities) }

// Entities returns the entity stored in every row. The slice is owned by the
// table and must not be modified.
func (t *Table) Entities() []Entity { return t.entities }

// Columns returns the columns in component id order.
func (t *Table) Columns() []*Column { return t.columns }

// Column returns the column of id, or nil.
func (t *Table) Column(id ComponentID) *Column {
	if int(id) >= len(t.byID) {
		return nil
	}
	return t.byID[id]
}

// HasColumn reports whether the table stores id.
func (t *Table) HasColumn(id ComponentID) bool {
	return t.Column(id) != nil
}

// allocate appends a row holding zero values for e.
func (t *Table) allocate(e Entity) TableRow {
	row := TableRow(len(t.entities))
	t.entities = append(t.entities, e)
	for _, col := range t.columns {
		col.pushZero()
	}
	return row
}

func (t *Table) reserve(additional int) {
	if cap(t.entities)-len(t.entities) < additional {
		grown := make([]Entity, len(t.entities), len(t.entities)+additional)
		copy(grown, t.entities)
		t.entities = grown
	}
	for _, col := range t.columns {
		col.reserve(additional)
	}
}

// swapRemoveEntity removes the entity slot and returns the entity that was
// moved into row, if any.
func (t *Table) swapRemoveEntity(row TableRow) (Entity, bool) {
	last := len(t.entities) - 1
	moved := int(row) != last
	var swapped Entity
	if moved {
		swapped = t.entities[last]
		t.entities[row] = swapped
	}
	t.entities = t.entities[:last]
	return swapped, moved
}

// swapRemoveAndDrop destroys row. It returns the entity now stored at row.
func (t *Table) swapRemoveAndDrop(row TableRow) (Entity, bool) {
	for _, col := range t.columns {
		col.swapRemove(row, true)
	}
	return t.swapRemoveEntity(row)
}

// tableMoveResult is the outcome of moving a row between tables.
type tableMoveResult struct {
	swapped    Entity // entity now stored at the vacated source row
	newRow     TableRow
	hasSwapped bool
}

// moveToSuperset moves row into dst, which must contain every column of t.
func (t *Table) moveToSuperset(row TableRow, dst *Table) tableMoveResult {
	newRow := dst.allocate(t.entities[row])
	for _, col := range t.columns {
		dst.byID[col.info.id].initializeFrom(newRow, col, row)
		col.swapRemove(row, false)
	}
	swapped, ok := t.swapRemoveEntity(row)
	return tableMoveResult{swapped: swapped, newRow: newRow, hasSwapped: ok}
}

// moveToAndDropMissing moves row into dst, dropping values of columns dst
// does not have.
func (t *Table) moveToAndDropMissing(row TableRow, dst *Table) tableMoveResult {
	return t.moveTo(row, dst, true)
}

// moveToAndForgetMissing moves row into dst. Values of columns dst does not
// have are discarded without running their drop function; the caller must
// already have taken them.
func (t *Table) moveToAndForgetMissing(row TableRow, dst *Table) tableMoveResult {
	return t.moveTo(row, dst, false)
}

func (t *Table) moveTo(row TableRow, dst *Table, drop bool) tableMoveResult {
	newRow := dst.allocate(t.entities[row])
	for _, col := range t.columns {
		if target := dst.Column(col.info.id); target != nil {
			target.initializeFrom(newRow, col, row)
			col.swapRemove(row, false)
		} else {
			col.swapRemove(row, drop)
		}
	}
	swapped, ok := t.swapRemoveEntity(row)
	return tableMoveResult{swapped: swapped, newRow: newRow, hasSwapped: ok}
}

// get returns a pointer to the value of id at row, or nil.
func (t *Table) get(id ComponentID, row TableRow) unsafe.Pointer {
	col := t.Column(id)
	if col == nil {
		return nil
	}
	return col.Get(row)
}

func (t *Table) clear() {
	for _, col := range t.columns {
		col.clear()
	}
	clear(t.entities)
	t.entities = t.entities[:0]
}

func (t *Table) checkChangeTicks(thisRun Tick) int {
	n := 0
	for _, col := range t.columns {
		n += col.checkChangeTicks(thisRun)
	}
	return n
}
