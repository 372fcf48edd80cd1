package kizami

import (
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type testEvent struct {
	Value int
}

type otherEvent struct {
	X float32
}

// go test -run ^TestEventBusSubscribeAndPublish$ . -count 1
func TestEventBusSubscribeAndPublish(t *testing.T) {
	bus := &EventBus{}
	received := 0
	Subscribe(bus, func(e testEvent) {
		received += e.Value
	})
	Subscribe(bus, func(e testEvent) {
		received += e.Value * 2
	})
	Publish(bus, testEvent{Value: 1})
	assert.Equal(t, 3, received)
	Publish(bus, testEvent{Value: 2})
	assert.Equal(t, 3+6, received)
	assert.Equal(t, 2, Subscribers[testEvent](bus))
}

// go test -run ^TestEventBusMultipleTypes$ . -count 1
func TestEventBusMultipleTypes(t *testing.T) {
	bus := &EventBus{}
	received1 := 0
	received2 := 0
	Subscribe(bus, func(e testEvent) {
		received1 += e.Value
	})
	Subscribe(bus, func(e otherEvent) {
		received2 += int(e.X)
	})
	Publish(bus, testEvent{Value: 42})
	Publish(bus, otherEvent{X: 10})
	assert.Equal(t, 42, received1)
	assert.Equal(t, 10, received2)
}

// go test -run ^TestEventBusNoHandlers$ . -count 1
func TestEventBusNoHandlers(t *testing.T) {
	bus := &EventBus{}
	assert.NotPanics(t, func() { Publish(bus, testEvent{Value: 42}) })
	assert.Zero(t, Subscribers[testEvent](bus))
}

// go test -run ^TestEventBusManySubscribers$ . -count 1
func TestEventBusManySubscribers(t *testing.T) {
	bus := &EventBus{}
	const numSubs = 100
	received := 0
	for range numSubs {
		Subscribe(bus, func(e testEvent) {
			received += e.Value
		})
	}
	Publish(bus, testEvent{Value: 1})
	assert.Equal(t, numSubs, received)
}

// go test -run ^TestEventBusConcurrentSubscribe$ . -count 1
func TestEventBusConcurrentSubscribe(t *testing.T) {
	bus := &EventBus{}
	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			Subscribe(bus, func(testEvent) {})
			Publish(bus, testEvent{})
		}()
	}
	wg.Wait()
	assert.Equal(t, 32, Subscribers[testEvent](bus))
}

// go test -run ^TestEventBusTooManyTypes$ . -count 1
func TestEventBusTooManyTypes(t *testing.T) {
	bus := &EventBus{}
	for i := range MaxEventTypes {
		bus.eventTypeID(reflect.ArrayOf(i, reflect.TypeFor[byte]()))
	}
	// Known types still resolve.
	assert.Equal(t, 3, bus.eventTypeID(reflect.ArrayOf(3, reflect.TypeFor[byte]())))
	assert.Panics(t, func() {
		bus.eventTypeID(reflect.TypeFor[testEvent]())
	})
}
