package kizami

import (
	"reflect"
	"unsafe"
)

// spawnInto creates an entity directly in archetype a with zero values, every
// component stamped added at tick.
func (w *World) spawnInto(a *Archetype, tick Tick) (Entity, EntityLocation) {
	e := w.entities.CreateEntity()
	w.ensureLocation(e.Index)
	t := w.tables.tables[a.tableID]
	row := t.allocate(e)
	for _, col := range t.columns {
		col.added[row] = tick
		col.changed[row] = tick
	}
	for _, id := range a.sparseComponents {
		s := w.sparseSets[id]
		s.insert(e, reflect.New(s.dense.info.backing).UnsafePointer(), tick)
	}
	loc := EntityLocation{ArchetypeID: a.id, ArchetypeRow: a.allocate(e, row), TableID: a.tableID, TableRow: row}
	w.locations[e.Index] = loc
	return e, loc
}

// reserveIn grows the storage of a for count more entities.
func (w *World) reserveIn(a *Archetype, count int) {
	w.tables.tables[a.tableID].reserve(count)
	if need := len(w.locations) + count; need > cap(w.locations) {
		grown := make([]EntityLocation, len(w.locations), need)
		copy(grown, w.locations)
		w.locations = grown
	}
}

// componentPtr returns the storage of id for an entity at loc.
func (w *World) componentPtr(a *Archetype, e Entity, loc EntityLocation, id ComponentID) unsafe.Pointer {
	if a.sparseMask.containsBit(id) {
		return w.sparseSets[id].Get(e)
	}
	return w.tables.tables[loc.TableID].byID[id].Get(loc.TableRow)
}

// Builder spawns entities with one component straight into their archetype,
// skipping the archetype lookup and moves of World.Spawn.
type Builder[T any] struct {
	world  *World
	arch   *Archetype
	compID ComponentID
}

// NewBuilder creates a Builder for entities holding a T.
func NewBuilder[T any](w *World) *Builder[T] {
	id := ComponentIDOrInsert[T](w.components)
	return &Builder[T]{world: w, arch: w.archetypeFor(id), compID: id}
}

// New is a convenience method that creates another builder of the same shape.
func (b *Builder[T]) New(w *World) *Builder[T] {
	return NewBuilder[T](w)
}

// NewEntity spawns one entity with a zero T.
func (b *Builder[T]) NewEntity() Entity {
	e, _ := b.world.spawnInto(b.arch, b.world.ChangeTick())
	return e
}

// NewEntityWithValue spawns one entity holding comp.
func (b *Builder[T]) NewEntityWithValue(comp T) Entity {
	w := b.world
	e, loc := w.spawnInto(b.arch, w.ChangeTick())
	*(*T)(w.componentPtr(b.arch, e, loc, b.compID)) = comp
	return e
}

// NewEntities spawns count entities with a zero T.
func (b *Builder[T]) NewEntities(count int) {
	if count <= 0 {
		return
	}
	w := b.world
	w.reserveIn(b.arch, count)
	tick := w.ChangeTick()
	for range count {
		w.spawnInto(b.arch, tick)
	}
}

// NewEntitiesWithValueSet spawns count entities all holding comp.
func (b *Builder[T]) NewEntitiesWithValueSet(count int, comp T) {
	if count <= 0 {
		return
	}
	w := b.world
	w.reserveIn(b.arch, count)
	tick := w.ChangeTick()
	for range count {
		e, loc := w.spawnInto(b.arch, tick)
		*(*T)(w.componentPtr(b.arch, e, loc, b.compID)) = comp
	}
}

// Get returns the T of e, or nil.
func (b *Builder[T]) Get(e Entity) *T {
	return (*T)(b.world.GetByID(e, b.compID))
}

// Set writes comp to e, adding the component if needed.
func (b *Builder[T]) Set(e Entity, comp T) error {
	return SetComponent(b.world, e, comp)
}

// SetBatch calls Set for every entity, stopping at the first error.
func (b *Builder[T]) SetBatch(entities []Entity, comp T) error {
	for _, e := range entities {
		if err := b.Set(e, comp); err != nil {
			return err
		}
	}
	return nil
}

// Builder2 spawns entities with two components.
type Builder2[A, B any] struct {
	world *World
	arch  *Archetype
	idA   ComponentID
	idB   ComponentID
}

// NewBuilder2 creates a builder for entities with an A and a B. The target
// archetype is resolved once, so every spawn skips the archetype lookup.
//
// Parameters:
//   - w: The World to spawn into.
//
// Returns:
//   - A new *Builder2[A, B] bound to w.
func NewBuilder2[A, B any](w *World) *Builder2[A, B] {
	idA := ComponentIDOrInsert[A](w.components)
	idB := ComponentIDOrInsert[B](w.components)
	return &Builder2[A, B]{world: w, arch: w.archetypeFor(idA, idB), idA: idA, idB: idB}
}

// NewEntity spawns one entity with zero-valued A and B.
func (b *Builder2[A, B]) NewEntity() Entity {
	e, _ := b.world.spawnInto(b.arch, b.world.ChangeTick())
	return e
}

// NewEntityWithValue spawns one entity holding a and bv.
func (b *Builder2[A, B]) NewEntityWithValue(a A, bv B) Entity {
	w := b.world
	e, loc := w.spawnInto(b.arch, w.ChangeTick())
	*(*A)(w.componentPtr(b.arch, e, loc, b.idA)) = a
	*(*B)(w.componentPtr(b.arch, e, loc, b.idB)) = bv
	return e
}

// NewEntities spawns count entities with zero-valued components. Table space
// for all of them is reserved up front.
//
// Parameters:
//   - count: The number of entities to create. Non-positive counts do nothing.
func (b *Builder2[A, B]) NewEntities(count int) {
	if count <= 0 {
		return
	}
	w := b.world
	w.reserveIn(b.arch, count)
	tick := w.ChangeTick()
	for range count {
		w.spawnInto(b.arch, tick)
	}
}

// NewEntitiesWithValueSet spawns count entities, each holding a copy of a and bv.
func (b *Builder2[A, B]) NewEntitiesWithValueSet(count int, a A, bv B) {
	if count <= 0 {
		return
	}
	w := b.world
	w.reserveIn(b.arch, count)
	tick := w.ChangeTick()
	for range count {
		e, loc := w.spawnInto(b.arch, tick)
		*(*A)(w.componentPtr(b.arch, e, loc, b.idA)) = a
		*(*B)(w.componentPtr(b.arch, e, loc, b.idB)) = bv
	}
}

// Get returns the A and B of e, or nils if e is gone or lacks them.
func (b *Builder2[A, B]) Get(e Entity) (*A, *B) {
	return (*A)(b.world.GetByID(e, b.idA)), (*B)(b.world.GetByID(e, b.idB))
}

// Builder3 spawns entities with three components.
type Builder3[A, B, C any] struct {
	world *World
	arch  *Archetype
	idA   ComponentID
	idB   ComponentID
	idC   ComponentID
}

// NewBuilder3 creates a builder for entities with an A, a B and a C.
func NewBuilder3[A, B, C any](w *World) *Builder3[A, B, C] {
	idA := ComponentIDOrInsert[A](w.components)
	idB := ComponentIDOrInsert[B](w.components)
	idC := ComponentIDOrInsert[C](w.components)
	return &Builder3[A, B, C]{world: w, arch: w.archetypeFor(idA, idB, idC), idA: idA, idB: idB, idC: idC}
}

// NewEntity spawns one entity with zero-valued components.
func (b *Builder3[A, B, C]) NewEntity() Entity {
	e, _ := b.world.spawnInto(b.arch, b.world.ChangeTick())
	return e
}

// NewEntities spawns count entities with zero-valued components.
func (b *Builder3[A, B, C]) NewEntities(count int) {
	if count <= 0 {
		return
	}
	w := b.world
	w.reserveIn(b.arch, count)
	tick := w.ChangeTick()
	for range count {
		w.spawnInto(b.arch, tick)
	}
}

// NewEntitiesWithValueSet spawns count entities holding copies of a, bv and c.
func (b *Builder3[A, B, C]) NewEntitiesWithValueSet(count int, a A, bv B, c C) {
	if count <= 0 {
		return
	}
	w := b.world
	w.reserveIn(b.arch, count)
	tick := w.ChangeTick()
	for range count {
		e, loc := w.spawnInto(b.arch, tick)
		*(*A)(w.componentPtr(b.arch, e, loc, b.idA)) = a
		*(*B)(w.componentPtr(b.arch, e, loc, b.idB)) = bv
		*(*C)(w.componentPtr(b.arch, e, loc, b.idC)) = c
	}
}

// Get returns the components of e, or nils if e is gone or lacks them.
func (b *Builder3[A, B, C]) Get(e Entity) (*A, *B, *C) {
	w := b.world
	return (*A)(w.GetByID(e, b.idA)), (*B)(w.GetByID(e, b.idB)), (*C)(w.GetByID(e, b.idC))
}
