package kizami

import (
	"fmt"
	"reflect"
	"unsafe"
)

// bundleComponent is one value of a bundle, addressed by pointer.
type bundleComponent struct {
	ptr unsafe.Pointer
	id  ComponentID
}

// bundle is a set of component values inserted together.
type bundle struct {
	comps []bundleComponent
	mask  bitmask256
}

func (b *bundle) add(id ComponentID, ptr unsafe.Pointer) {
	if b.mask.containsBit(id) {
		panic(fmt.Sprintf("kizami: component %d appears twice in one bundle", id))
	}
	b.mask.set(id)
	b.comps = append(b.comps, bundleComponent{id: id, ptr: ptr})
}

// makeBundle boxes loose values into a bundle, registering unseen types.
func (w *World) makeBundle(values []any) bundle {
	b := bundle{comps: make([]bundleComponent, 0, len(values))}
	for _, v := range values {
		if v == nil {
			panic("kizami: nil component value")
		}
		rv := reflect.ValueOf(v)
		id := w.components.componentIDOrInsert(rv.Type())
		box := reflect.New(rv.Type())
		box.Elem().Set(rv)
		b.add(id, box.UnsafePointer())
	}
	return b
}

// BundleIDs returns the component IDs of the given values, registering unseen
// types. It is the ID list to pass to RemoveBundle for a bundle of the same
// shape.
func (w *World) BundleIDs(values ...any) []ComponentID {
	ids := make([]ComponentID, len(values))
	for i, v := range values {
		ids[i] = w.components.componentIDOrInsert(reflect.TypeOf(v))
	}
	return ids
}
