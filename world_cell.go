package kizami

import "fmt"

// WorldCell hands out resource borrows that may be held simultaneously from
// several goroutines. Each resource tracks its borrows: any number of shared
// borrows, or exactly one exclusive borrow. A conflicting borrow panics.
//
// The world must not be structurally changed while borrows are outstanding.
type WorldCell struct {
	world *World
}

// Cell returns a WorldCell over w.
func (w *World) Cell() *WorldCell {
	return &WorldCell{world: w}
}

// ResourceRef is a shared borrow of a resource.
type ResourceRef[T any] struct {
	data     *resourceData
	released bool
}

// Value returns the borrowed resource.
func (r *ResourceRef[T]) Value() *T {
	return (*T)(r.data.ptr)
}

// Ticks returns the resource's change ticks.
func (r *ResourceRef[T]) Ticks() ComponentTicks {
	return r.data.ticks
}

// Release ends the borrow. Releasing twice is a no-op.
func (r *ResourceRef[T]) Release() {
	if r.released {
		return
	}
	r.released = true
	r.data.borrow.Add(-1)
}

// ResourceMut is an exclusive borrow of a resource.
type ResourceMut[T any] struct {
	data     *resourceData
	tick     Tick
	released bool
}

// Value returns the borrowed resource and marks it changed.
func (r *ResourceMut[T]) Value() *T {
	r.data.ticks.Changed = r.tick
	return (*T)(r.data.ptr)
}

// Peek returns the borrowed resource without marking it changed.
func (r *ResourceMut[T]) Peek() *T {
	return (*T)(r.data.ptr)
}

// Ticks returns the resource's change ticks.
func (r *ResourceMut[T]) Ticks() ComponentTicks {
	return r.data.ticks
}

// Release ends the borrow. Releasing twice is a no-op.
func (r *ResourceMut[T]) Release() {
	if r.released {
		return
	}
	r.released = true
	r.data.borrow.Store(0)
}

func (c *WorldCell) lookup(id ComponentID, ok bool) *resourceData {
	if !ok {
		return nil
	}
	d := c.world.resources.get(id)
	if d == nil || !d.present {
		return nil
	}
	return d
}

// CellResource borrows the T resource shared. It returns false if no such
// resource exists and panics if it is exclusively borrowed.
func CellResource[T any](c *WorldCell) (*ResourceRef[T], bool) {
	d := c.lookup(ResourceIDOf[T](c.world.components))
	if d == nil {
		return nil, false
	}
	for {
		n := d.borrow.Load()
		if n < 0 {
			panic(fmt.Sprintf("kizami: resource %s is already borrowed mutably", d.info.Name()))
		}
		if d.borrow.CompareAndSwap(n, n+1) {
			return &ResourceRef[T]{data: d}, true
		}
	}
}

// CellResourceMut borrows the T resource exclusively. It returns false if no
// such resource exists and panics if it is borrowed at all.
func CellResourceMut[T any](c *WorldCell) (*ResourceMut[T], bool) {
	d := c.lookup(ResourceIDOf[T](c.world.components))
	if d == nil {
		return nil, false
	}
	if !d.borrow.CompareAndSwap(0, -1) {
		if d.borrow.Load() < 0 {
			panic(fmt.Sprintf("kizami: resource %s is already borrowed mutably", d.info.Name()))
		}
		panic(fmt.Sprintf("kizami: resource %s is already borrowed", d.info.Name()))
	}
	return &ResourceMut[T]{data: d, tick: c.world.ChangeTick()}, true
}
