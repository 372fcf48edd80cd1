package kizami

import (
	"fmt"
	"reflect"
	"sync"
	"unsafe"
)

// MaxComponentTypes defines the maximum number of unique component types that
// can be registered in a World. This value is fixed at 256, one bit of the
// archetype mask each. Resources do not count against it.
const MaxComponentTypes = 256

// ComponentID is the dense identifier of a registered component or resource.
// Component and resource IDs are separate namespaces.
type ComponentID uint32

// ComponentInfo is the registry record of one component or resource.
type ComponentInfo struct {
	desc        ComponentDescriptor
	backing     reflect.Type
	valueSize   uintptr // bytes copied in and out; at most backing.Size()
	id          ComponentID
	hasPointers bool
}

// ID returns the dense ID of the component.
func (i *ComponentInfo) ID() ComponentID { return i.id }

// Name returns the registered name.
func (i *ComponentInfo) Name() string { return i.desc.Name }

// Type returns the Go type, or nil for a dynamic component.
func (i *ComponentInfo) Type() reflect.Type { return i.desc.Type }

// Layout returns the size and alignment of one value.
func (i *ComponentInfo) Layout() Layout { return i.desc.Layout }

// StorageType returns where values of the component are stored.
func (i *ComponentInfo) StorageType() StorageType { return i.desc.Storage }

// IsSend reports whether the values may be accessed from other goroutines.
func (i *ComponentInfo) IsSend() bool { return i.desc.Send }

// Descriptor returns a copy of the descriptor the component was registered with.
func (i *ComponentInfo) Descriptor() ComponentDescriptor { return i.desc }

func (i *ComponentInfo) drop(p unsafe.Pointer) {
	if i.desc.Drop != nil {
		i.desc.Drop(p)
	}
}

func newComponentInfo(id ComponentID, desc ComponentDescriptor) *ComponentInfo {
	info := &ComponentInfo{id: id, desc: desc, backing: desc.backingType()}
	info.hasPointers = hasPointers(info.backing)
	info.valueSize = info.backing.Size()
	if desc.Type == nil {
		// Dynamic values are raw bytes; the backing may be padded past the
		// declared size, which callers' buffers need not cover.
		info.valueSize = min(desc.Layout.Size, info.valueSize)
	}
	return info
}

// Components is the registry of component and resource types. It is safe for
// concurrent use; assigned IDs never change.
type Components struct {
	components      []*ComponentInfo
	resources       []*ComponentInfo
	indices         map[reflect.Type]ComponentID
	resourceIndices map[reflect.Type]ComponentID
	names           map[string]ComponentID
	resourceNames   map[string]ComponentID
	mu              sync.RWMutex
}

// NewComponents creates an empty registry.
func NewComponents() *Components {
	return &Components{
		components:      make([]*ComponentInfo, 0, 16),
		indices:         make(map[reflect.Type]ComponentID, 16),
		resourceIndices: make(map[reflect.Type]ComponentID),
		names:           make(map[string]ComponentID),
		resourceNames:   make(map[string]ComponentID),
	}
}

// NewComponent registers desc as a new component. It fails with
// ErrComponentAlreadyExists when the type (or the name, for dynamic
// descriptors) is already a component, and with ErrTooManyComponents once
// MaxComponentTypes components exist.
func (c *Components) NewComponent(desc ComponentDescriptor) (*ComponentInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if desc.Type != nil {
		if _, ok := c.indices[desc.Type]; ok {
			return nil, fmt.Errorf("%w: %s", ErrComponentAlreadyExists, desc.Type)
		}
	} else if _, ok := c.names[desc.Name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrComponentAlreadyExists, desc.Name)
	}
	return c.insertComponentLocked(desc)
}

func (c *Components) insertComponentLocked(desc ComponentDescriptor) (*ComponentInfo, error) {
	if len(c.components) >= MaxComponentTypes {
		return nil, fmt.Errorf("%w: registering %s", ErrTooManyComponents, desc.Name)
	}
	info := newComponentInfo(ComponentID(len(c.components)), desc)
	c.components = append(c.components, info)
	if desc.Type != nil {
		c.indices[desc.Type] = info.id
	} else {
		c.names[desc.Name] = info.id
	}
	return info, nil
}

// NewResource registers desc in the resource namespace.
func (c *Components) NewResource(desc ComponentDescriptor) (*ComponentInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if desc.Type != nil {
		if _, ok := c.resourceIndices[desc.Type]; ok {
			return nil, fmt.Errorf("%w: %s", ErrResourceAlreadyExists, desc.Type)
		}
	} else if _, ok := c.resourceNames[desc.Name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrResourceAlreadyExists, desc.Name)
	}
	return c.insertResourceLocked(desc), nil
}

func (c *Components) insertResourceLocked(desc ComponentDescriptor) *ComponentInfo {
	info := newComponentInfo(ComponentID(len(c.resources)), desc)
	c.resources = append(c.resources, info)
	if desc.Type != nil {
		c.resourceIndices[desc.Type] = info.id
	} else {
		c.resourceNames[desc.Name] = info.id
	}
	return info
}

// componentIDOrInsert returns the ID of t, registering it on first use.
// Running out of component IDs is a programming error and panics.
func (c *Components) componentIDOrInsert(t reflect.Type) ComponentID {
	c.mu.RLock()
	id, ok := c.indices[t]
	c.mu.RUnlock()
	if ok {
		return id
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if id, ok := c.indices[t]; ok {
		return id
	}
	info, err := c.insertComponentLocked(descriptorForType(t))
	if err != nil {
		panic(err)
	}
	return info.id
}

func (c *Components) resourceIDOrInsert(t reflect.Type) ComponentID {
	c.mu.RLock()
	id, ok := c.resourceIndices[t]
	c.mu.RUnlock()
	if ok {
		return id
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if id, ok := c.resourceIndices[t]; ok {
		return id
	}
	return c.insertResourceLocked(descriptorForType(t)).id
}

func (c *Components) componentID(t reflect.Type) (ComponentID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.indices[t]
	return id, ok
}

func (c *Components) resourceID(t reflect.Type) (ComponentID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.resourceIndices[t]
	return id, ok
}

// ComponentIDOrInsert returns the component ID of T, registering T first if
// needed. Repeated calls return the same ID.
func ComponentIDOrInsert[T any](c *Components) ComponentID {
	return c.componentIDOrInsert(reflect.TypeFor[T]())
}

// ResourceIDOrInsert is ComponentIDOrInsert for the resource namespace.
func ResourceIDOrInsert[T any](c *Components) ComponentID {
	return c.resourceIDOrInsert(reflect.TypeFor[T]())
}

// ComponentIDOf looks up the component ID of T without registering it.
func ComponentIDOf[T any](c *Components) (ComponentID, bool) {
	return c.componentID(reflect.TypeFor[T]())
}

// ResourceIDOf looks up the resource ID of T without registering it.
func ResourceIDOf[T any](c *Components) (ComponentID, bool) {
	return c.resourceID(reflect.TypeFor[T]())
}

// ComponentIDByName looks up a dynamic component by name.
func (c *Components) ComponentIDByName(name string) (ComponentID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.names[name]
	return id, ok
}

// Info returns the component record for id.
func (c *Components) Info(id ComponentID) (*ComponentInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if int(id) >= len(c.components) {
		return nil, false
	}
	return c.components[id], true
}

// InfoUnchecked returns the component record for id without a bounds check
// on the caller's behalf. id must be below Len; otherwise it panics.
func (c *Components) InfoUnchecked(id ComponentID) *ComponentInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.components[id]
}

// ResourceInfo returns the resource record for id.
func (c *Components) ResourceInfo(id ComponentID) (*ComponentInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if int(id) >= len(c.resources) {
		return nil, false
	}
	return c.resources[id], true
}

// Len returns the number of registered components.
func (c *Components) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.components)
}

// ResourceLen returns the number of registered resources.
func (c *Components) ResourceLen() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.resources)
}
