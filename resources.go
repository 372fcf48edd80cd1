package kizami

import (
	"fmt"
	"reflect"
	"sync/atomic"
	"unsafe"
)

// resourceData is the storage slot of one resource type.
type resourceData struct {
	info    *ComponentInfo
	box     reflect.Value // *backing, keeps the value reachable
	ptr     unsafe.Pointer
	ticks   ComponentTicks
	borrow  atomic.Int32 // 0 free, n readers, -1 writer
	present bool
}

func (r *resourceData) copyIn(src unsafe.Pointer) {
	if r.info.hasPointers {
		t := r.info.backing
		reflect.NewAt(t, r.ptr).Elem().Set(reflect.NewAt(t, src).Elem())
		return
	}
	memCopy(r.ptr, src, r.info.valueSize)
}

func (r *resourceData) zero() {
	r.box.Elem().SetZero()
}

// Resources stores singleton values, one per registered resource type. It
// keeps its slots indexed by resource ID; removed slots are reused by the
// next insert of the same type.
type Resources struct {
	data []*resourceData
}

// Len returns the number of resources currently present.
func (r *Resources) Len() int {
	n := 0
	for _, d := range r.data {
		if d != nil && d.present {
			n++
		}
	}
	return n
}

// Has reports whether resource id is present.
func (r *Resources) Has(id ComponentID) bool {
	d := r.get(id)
	return d != nil && d.present
}

func (r *Resources) get(id ComponentID) *resourceData {
	if int(id) >= len(r.data) {
		return nil
	}
	return r.data[id]
}

func (r *Resources) slot(info *ComponentInfo) *resourceData {
	if int(info.id) >= len(r.data) {
		grown := make([]*resourceData, info.id+1)
		copy(grown, r.data)
		r.data = grown
	}
	d := r.data[info.id]
	if d == nil {
		d = &resourceData{info: info, box: reflect.New(info.backing)}
		d.ptr = d.box.UnsafePointer()
		r.data[info.id] = d
	}
	return d
}

func (r *Resources) insert(info *ComponentInfo, src unsafe.Pointer, tick Tick) {
	d := r.slot(info)
	if d.present {
		info.drop(d.ptr)
		d.copyIn(src)
		d.ticks.Changed = tick
		return
	}
	d.copyIn(src)
	d.ticks = NewComponentTicks(tick)
	d.present = true
}

func (r *Resources) remove(id ComponentID, drop bool) bool {
	d := r.get(id)
	if d == nil || !d.present {
		return false
	}
	if drop {
		d.info.drop(d.ptr)
	}
	d.zero()
	d.present = false
	return true
}

// Clear removes every resource.
func (r *Resources) Clear() {
	for i := range r.data {
		r.remove(ComponentID(i), true)
	}
}

func (r *Resources) checkChangeTicks(thisRun Tick) int {
	n := 0
	for _, d := range r.data {
		if d == nil || !d.present {
			continue
		}
		if d.ticks.Added.Check(thisRun) {
			n++
		}
		if d.ticks.Changed.Check(thisRun) {
			n++
		}
	}
	return n
}

// Resources returns the world's resource storage.
func (w *World) Resources() *Resources {
	return &w.resources
}

// InsertResourceByID writes the value at src as resource id, replacing any
// previous value.
func (w *World) InsertResourceByID(id ComponentID, src unsafe.Pointer) error {
	info, ok := w.components.ResourceInfo(id)
	if !ok {
		return fmt.Errorf("insert resource %d: %w", id, ErrUnknownComponent)
	}
	w.resources.insert(info, src, w.ChangeTick())
	return nil
}

// insertResourceValue stores v as the resource of its dynamic type.
func (w *World) insertResourceValue(v any) {
	rv := reflect.ValueOf(v)
	id := w.components.resourceIDOrInsert(rv.Type())
	box := reflect.New(rv.Type())
	box.Elem().Set(rv)
	info, _ := w.components.ResourceInfo(id)
	w.resources.insert(info, box.UnsafePointer(), w.ChangeTick())
}

// RemoveResourceByID drops resource id. It reports whether it was present.
func (w *World) RemoveResourceByID(id ComponentID) bool {
	return w.resources.remove(id, true)
}

// GetResourceByID returns a pointer to resource id, or nil.
func (w *World) GetResourceByID(id ComponentID) unsafe.Pointer {
	d := w.resources.get(id)
	if d == nil || !d.present {
		return nil
	}
	return d.ptr
}

// InsertResource stores value as the resource of type T.
func InsertResource[T any](w *World, value T) {
	id := ResourceIDOrInsert[T](w.components)
	info, _ := w.components.ResourceInfo(id)
	w.resources.insert(info, unsafe.Pointer(&value), w.ChangeTick())
}

// HasResource reports whether a resource of type T is present.
func HasResource[T any](w *World) bool {
	id, ok := ResourceIDOf[T](w.components)
	return ok && w.resources.Has(id)
}

// GetResource returns the resource of type T, or nil.
func GetResource[T any](w *World) *T {
	id, ok := ResourceIDOf[T](w.components)
	if !ok {
		return nil
	}
	return (*T)(w.GetResourceByID(id))
}

// GetResourceMut returns the resource of type T and marks it changed.
func GetResourceMut[T any](w *World) *T {
	id, ok := ResourceIDOf[T](w.components)
	if !ok {
		return nil
	}
	d := w.resources.get(id)
	if d == nil || !d.present {
		return nil
	}
	d.ticks.Changed = w.ChangeTick()
	return (*T)(d.ptr)
}

// ResourceTicks returns the ticks of the resource of type T.
func ResourceTicks[T any](w *World) (ComponentTicks, bool) {
	id, ok := ResourceIDOf[T](w.components)
	if !ok {
		return ComponentTicks{}, false
	}
	d := w.resources.get(id)
	if d == nil || !d.present {
		return ComponentTicks{}, false
	}
	return d.ticks, true
}

// RemoveResource removes the resource of type T and returns its value. The
// value's drop function is not run.
func RemoveResource[T any](w *World) (T, bool) {
	var out T
	id, ok := ResourceIDOf[T](w.components)
	if !ok {
		return out, false
	}
	d := w.resources.get(id)
	if d == nil || !d.present {
		return out, false
	}
	out = *(*T)(d.ptr)
	w.resources.remove(id, false)
	return out, true
}
