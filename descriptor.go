package kizami

import (
	"fmt"
	"reflect"
	"unsafe"
)

// StorageType selects where the values of a component live.
type StorageType uint8

const (
	// StorageTable stores values in the columns of archetype tables. It is the
	// fastest layout to iterate.
	StorageTable StorageType = iota
	// StorageSparseSet stores values in a per-component sparse set, so adding
	// and removing the component never moves the entity between tables.
	StorageSparseSet
)

func (s StorageType) String() string {
	switch s {
	case StorageTable:
		return "table"
	case StorageSparseSet:
		return "sparse_set"
	}
	return fmt.Sprintf("StorageType(%d)", uint8(s))
}

// SparseStorage can be implemented by a component type to choose its storage.
//
//	type Burning struct{ Ticks int }
//
//	func (Burning) ComponentStorage() kizami.StorageType { return kizami.StorageSparseSet }
type SparseStorage interface {
	ComponentStorage() StorageType
}

// NonSendComponent marks a component whose values must stay on the goroutine
// that owns the World. Queries reading such components cannot run in parallel.
type NonSendComponent interface {
	NonSend()
}

// Dropper is implemented by components that release something when their
// value is destroyed (despawn, removal, or replacement by Insert).
type Dropper interface {
	Drop()
}

// Layout is the size and alignment of a component value.
type Layout struct {
	Size  uintptr
	Align uintptr
}

// ComponentDescriptor describes a component or resource before registration.
type ComponentDescriptor struct {
	// Drop is called with a pointer to a value before it is destroyed. Nil
	// means the value is simply zeroed.
	Drop func(unsafe.Pointer)
	// Type is the Go type of the value, nil for dynamic components.
	Type    reflect.Type
	Name    string
	Layout  Layout
	Storage StorageType
	Send    bool
}

// DescriptorOf builds the descriptor for the Go type T.
func DescriptorOf[T any]() ComponentDescriptor {
	return descriptorForType(reflect.TypeFor[T]())
}

func descriptorForType(t reflect.Type) ComponentDescriptor {
	d := ComponentDescriptor{
		Name:   t.String(),
		Type:   t,
		Layout: Layout{Size: t.Size(), Align: uintptr(t.Align())},
		Send:   true,
	}
	zero := reflect.Zero(t).Interface()
	if s, ok := zero.(SparseStorage); ok {
		d.Storage = s.ComponentStorage()
	}
	if _, ok := zero.(NonSendComponent); ok {
		d.Send = false
	}
	pt := reflect.PointerTo(t)
	if pt.Implements(reflect.TypeFor[Dropper]()) {
		d.Drop = func(p unsafe.Pointer) {
			reflect.NewAt(t, p).Interface().(Dropper).Drop()
		}
	}
	return d
}

// NewDynamicDescriptor describes a component that has no Go type of its own,
// only a name and a memory layout. Values are read and written through
// unsafe.Pointer by the ...ByID world methods.
func NewDynamicDescriptor(name string, layout Layout, storage StorageType, send bool, drop func(unsafe.Pointer)) ComponentDescriptor {
	return ComponentDescriptor{
		Name:    name,
		Layout:  layout,
		Storage: storage,
		Send:    send,
		Drop:    drop,
	}
}

// backingType picks the element type of the column slice. Dynamic layouts map
// onto a pointer-free array of unsigned words of the requested alignment.
func (d *ComponentDescriptor) backingType() reflect.Type {
	if d.Type != nil {
		return d.Type
	}
	align := d.Layout.Align
	if align == 0 {
		align = 1
	}
	var word reflect.Type
	switch {
	case align >= 8:
		word, align = reflect.TypeFor[uint64](), 8
	case align >= 4:
		word = reflect.TypeFor[uint32]()
	case align >= 2:
		word = reflect.TypeFor[uint16]()
	default:
		word = reflect.TypeFor[uint8]()
	}
	n := (d.Layout.Size + align - 1) / align
	return reflect.ArrayOf(int(n), word)
}

// hasPointers reports whether values of t contain anything the garbage
// collector has to trace.
func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return false
	case reflect.Array:
		return t.Len() > 0 && hasPointers(t.Elem())
	case reflect.Struct:
		for i := range t.NumField() {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	}
	return true
}
