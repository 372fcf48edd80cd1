package kizami

import (
	"fmt"
	"unsafe"
)

// GetComponent retrieves a pointer to the component of type `T` for the given
// entity. It provides a direct, type-safe way to access component data.
// Writing through the pointer is not tracked; use GetComponentMut for that.
//
// If the entity is not alive or does not have the component, this function
// returns nil.
//
// Parameters:
//   - w: The World containing the entity.
//   - e: The Entity from which to retrieve the component.
//
// Returns:
//   - A pointer to the component data (*T), or nil if not found.
func GetComponent[T any](w *World, e Entity) *T {
	id, ok := ComponentIDOf[T](w.components)
	if !ok {
		return nil
	}
	return (*T)(w.GetByID(e, id))
}

// GetComponentMut is GetComponent that marks the component changed at the
// current world tick.
func GetComponentMut[T any](w *World, e Entity) *T {
	id, ok := ComponentIDOf[T](w.components)
	if !ok {
		return nil
	}
	return (*T)(w.GetMutByID(e, id))
}

// HasComponent reports whether e is alive and has a component of type T.
func HasComponent[T any](w *World, e Entity) bool {
	id, ok := ComponentIDOf[T](w.components)
	return ok && w.Contains(e, id)
}

// ComponentTicksOf returns the added and changed ticks of the T component of e.
func ComponentTicksOf[T any](w *World, e Entity) (ComponentTicks, bool) {
	id, ok := ComponentIDOf[T](w.components)
	if !ok {
		return ComponentTicks{}, false
	}
	return w.TicksByID(e, id)
}

// SetComponent adds a component of type `T` with the given value to an entity,
// or replaces it if the component already exists.
//
// If the entity does not already have the component, adding it will cause the
// entity to move to a different archetype. This is a relatively expensive
// operation compared to updating an existing component.
//
// Parameters:
//   - w: The World where the entity resides.
//   - e: The Entity to modify.
//   - val: The component data of type `T` to set.
//
// Returns:
//   - ErrNoSuchEntity if e is not alive.
func SetComponent[T any](w *World, e Entity, val T) error {
	loc, ok := w.Location(e)
	if !ok {
		return fmt.Errorf("set component on %v: %w", e, ErrNoSuchEntity)
	}
	var b bundle
	b.comps = make([]bundleComponent, 0, 1)
	b.add(ComponentIDOrInsert[T](w.components), unsafe.Pointer(&val))
	w.insertBundle(e, loc, &b, w.ChangeTick())
	return nil
}

// RemoveComponent removes the component of type `T` from the specified entity.
//
// This operation will cause the entity to move to a new archetype that does not
// include the removed component, unless the component uses sparse-set storage.
// Removing a component the entity does not have is not an error.
func RemoveComponent[T any](w *World, e Entity) error {
	id := ComponentIDOrInsert[T](w.components)
	return w.RemoveIntersection(e, id)
}

// TakeComponent removes the T component of e and returns its value. The
// value's drop function is not run, ownership passes to the caller.
func TakeComponent[T any](w *World, e Entity) (T, bool) {
	var out T
	id, ok := ComponentIDOf[T](w.components)
	if !ok {
		return out, false
	}
	p := (*T)(w.GetByID(e, id))
	if p == nil {
		return out, false
	}
	out = *p
	if err := w.remove(e, []ComponentID{id}, true, false); err != nil {
		return out, false
	}
	return out, true
}

// Spawn1 creates an entity with one component without boxing the value.
func Spawn1[A any](w *World, a A) Entity {
	e := w.SpawnEmpty()
	var b bundle
	b.comps = make([]bundleComponent, 0, 1)
	b.add(ComponentIDOrInsert[A](w.components), unsafe.Pointer(&a))
	w.insertBundle(e, w.locations[e.Index], &b, w.ChangeTick())
	return e
}

// Spawn2 creates an entity with two components.
func Spawn2[A, B any](w *World, a A, b B) Entity {
	e := w.SpawnEmpty()
	var bn bundle
	bn.comps = make([]bundleComponent, 0, 2)
	bn.add(ComponentIDOrInsert[A](w.components), unsafe.Pointer(&a))
	bn.add(ComponentIDOrInsert[B](w.components), unsafe.Pointer(&b))
	w.insertBundle(e, w.locations[e.Index], &bn, w.ChangeTick())
	return e
}

// Spawn3 creates an entity with three components.
func Spawn3[A, B, C any](w *World, a A, b B, c C) Entity {
	e := w.SpawnEmpty()
	var bn bundle
	bn.comps = make([]bundleComponent, 0, 3)
	bn.add(ComponentIDOrInsert[A](w.components), unsafe.Pointer(&a))
	bn.add(ComponentIDOrInsert[B](w.components), unsafe.Pointer(&b))
	bn.add(ComponentIDOrInsert[C](w.components), unsafe.Pointer(&c))
	w.insertBundle(e, w.locations[e.Index], &bn, w.ChangeTick())
	return e
}
