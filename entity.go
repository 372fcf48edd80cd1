// Package kizami implements an archetype based Entity Component System core:
// columnar table storage with sparse-set side storage, a component registry,
// generational entity allocation, change ticks, composable queries with
// parallel iteration, and a deferred command buffer.
package kizami

import "strconv"

// Entity is an opaque handle to a row of components in a World. It combines a
// 32-bit index with a 32-bit generation so that a recycled index is never
// confused with the entity that used it before.
type Entity struct {
	// Index is the recyclable slot number of the entity.
	Index uint32
	// Generation is bumped every time the slot is freed. A handle whose
	// generation does not match the slot is stale.
	Generation uint32
}

// IsZero reports whether e is the zero handle. The zero handle is never alive.
func (e Entity) IsZero() bool {
	return e.Index == 0 && e.Generation == 0
}

// String formats the handle as "<index>v<generation>".
func (e Entity) String() string {
	return strconv.FormatUint(uint64(e.Index), 10) + "v" + strconv.FormatUint(uint64(e.Generation), 10)
}

// EntityLocation is where an entity currently lives.
type EntityLocation struct {
	ArchetypeID  ArchetypeID
	ArchetypeRow ArchetypeRow
	TableID      TableID
	TableRow     TableRow
}

// invalidLocation marks a slot that is not placed in any archetype.
var invalidLocation = EntityLocation{
	ArchetypeID:  invalidArchetypeID,
	ArchetypeRow: ^ArchetypeRow(0),
	TableID:      invalidTableID,
	TableRow:     ^TableRow(0),
}

// IsValid reports whether the location points into storage.
func (l EntityLocation) IsValid() bool {
	return l.ArchetypeID != invalidArchetypeID
}
