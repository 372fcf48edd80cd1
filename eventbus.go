package kizami

import (
	"reflect"
	"sync"
)

// MaxEventTypes is the number of distinct event types a bus can carry.
const MaxEventTypes = 256

// ArchetypeCreated is published when the world creates an archetype.
type ArchetypeCreated struct {
	ID         ArchetypeID
	Table      TableID
	Components []ComponentID
}

// TableCreated is published when the world creates a table.
type TableCreated struct {
	ID         TableID
	Components []ComponentID
}

// EventBus delivers typed events to subscribed handlers synchronously, in
// subscription order. Subscribing is safe from several goroutines; publishing
// takes a read lock and does not allocate.
type EventBus struct {
	mu        sync.RWMutex
	eventType map[reflect.Type]int
	handlers  [MaxEventTypes][]any
}

// Subscribe registers handler for events of type T.
//
// Parameters:
//   - bus: The EventBus instance to subscribe to.
//   - handler: A function that takes a single argument of type `T`.
func Subscribe[T any](bus *EventBus, handler func(T)) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	id := bus.eventTypeID(reflect.TypeFor[T]())
	if cap(bus.handlers[id]) == 0 {
		bus.handlers[id] = make([]any, 0, 4)
	}
	bus.handlers[id] = append(bus.handlers[id], handler)
}

// Publish sends event to every handler of type T.
func Publish[T any](bus *EventBus, event T) {
	bus.mu.RLock()
	id, ok := bus.eventType[reflect.TypeFor[T]()]
	var hs []any
	if ok {
		hs = bus.handlers[id]
	}
	bus.mu.RUnlock()
	for _, h := range hs {
		h.(func(T))(event)
	}
}

// Subscribers returns the number of handlers registered for T.
func Subscribers[T any](bus *EventBus) int {
	bus.mu.RLock()
	defer bus.mu.RUnlock()
	id, ok := bus.eventType[reflect.TypeFor[T]()]
	if !ok {
		return 0
	}
	return len(bus.handlers[id])
}

func (bus *EventBus) eventTypeID(t reflect.Type) int {
	if bus.eventType == nil {
		bus.eventType = make(map[reflect.Type]int)
	}
	if id, ok := bus.eventType[t]; ok {
		return id
	}
	id := len(bus.eventType)
	if id >= MaxEventTypes {
		panic("kizami: too many event types")
	}
	bus.eventType[t] = id
	return id
}
