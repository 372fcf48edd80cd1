package kizami

import (
	"fmt"
	"unsafe"
)

// queryBase holds what every typed query shares: the compiled state and an
// iterator that is reused across Reset calls.
type queryBase struct {
	world *World
	state *QueryState
	it    QueryIter
}

func newQueryBase(w *World, s *QueryState) queryBase {
	q := queryBase{world: w, state: s}
	q.Reset()
	return q
}

func typedQueryBase(w *World, ids []ComponentID, filters []Filter) queryBase {
	return newQueryBase(w, NewQueryState(w, ids, filters...))
}

// State returns the compiled query state.
func (q *queryBase) State() *QueryState { return q.state }

// Reset rewinds the iterator using the world's change ticks. It should be
// called before every pass. New archetypes created since the last pass are
// picked up here.
func (q *queryBase) Reset() {
	q.ResetWithTicks(q.world.ticks())
}

// ResetWithTicks rewinds the iterator, evaluating change filters against
// ticks. Systems pass their own last and this run ticks.
func (q *queryBase) ResetWithTicks(ticks SystemTicks) {
	q.state.updateArchetypes(q.world)
	q.it.init(q.world, q.state, ticks)
}

// Next advances to the next matching entity. It returns true if an entity was
// found, and false if the iteration is complete.
//
// Example:
//
//	query := kizami.NewQuery2[Position, Velocity](world)
//	for query.Next() {
//	    pos, vel := query.Get()
//	    pos.X += vel.X
//	}
func (q *queryBase) Next() bool { return q.it.Next() }

// Entity returns the current Entity in the iteration.
func (q *queryBase) Entity() Entity { return q.it.entity }

// Iter exposes the underlying iterator.
func (q *queryBase) Iter() *QueryIter { return &q.it }

// Count returns the number of matching entities without disturbing the
// current iteration.
func (q *queryBase) Count() int {
	return q.state.Count(q.world, q.it.ticks)
}

// Entities returns every matching entity in iteration order.
func (q *queryBase) Entities() []Entity {
	var it QueryIter
	q.state.updateArchetypes(q.world)
	it.init(q.world, q.state, q.it.ticks)
	out := make([]Entity, 0, q.state.Count(q.world, q.it.ticks))
	for it.Next() {
		out = append(out, it.entity)
	}
	return out
}

// Contains reports whether e matches the query.
func (q *queryBase) Contains(e Entity) bool {
	return q.state.Contains(q.world, e, q.it.ticks)
}

// ParIter returns a parallel iterator. batchSize <= 0 uses the configured
// default.
func (q *queryBase) ParIter(batchSize int) *ParQueryIter {
	return q.state.ParIter(q.world, q.it.ticks, batchSize)
}

// single finds the only matching entity.
func (q *queryBase) single() (*QueryIter, error) {
	var scan QueryIter
	q.state.updateArchetypes(q.world)
	scan.init(q.world, q.state, q.it.ticks)
	if !scan.Next() {
		return nil, fmt.Errorf("%w: no entity", ErrQueryNotSingle)
	}
	if scan.Next() {
		return nil, fmt.Errorf("%w: several entities", ErrQueryNotSingle)
	}
	it := &QueryIter{}
	it.init(q.world, q.state, q.it.ticks)
	it.Next()
	return it, nil
}

func ptrAs[T any](p unsafe.Pointer) *T { return (*T)(p) }

// Query iterates entities with a T component.
type Query[A any] struct {
	queryBase
}

// NewQuery creates a query over entities with an A that pass filters.
func NewQuery[A any](w *World, filters ...Filter) *Query[A] {
	ids := []ComponentID{ComponentIDOrInsert[A](w.components)}
	return &Query[A]{queryBase: typedQueryBase(w, ids, filters)}
}

// Get returns the component of the current entity.
func (q *Query[A]) Get() *A { return ptrAs[A](q.it.Ptr(0)) }

// GetMut returns the component of the current entity and marks it changed.
func (q *Query[A]) GetMut() *A { return ptrAs[A](q.it.MutPtr(0)) }

// Single returns the only matching entity, or ErrQueryNotSingle.
func (q *Query[A]) Single() (Entity, *A, error) {
	it, err := q.single()
	if err != nil {
		return Entity{}, nil, err
	}
	return it.entity, ptrAs[A](it.Ptr(0)), nil
}

// ParForEach calls fn for every matching entity from worker goroutines.
func (q *Query[A]) ParForEach(batchSize int, fn func(Entity, *A)) {
	q.ParIter(batchSize).ForEach(func(it *QueryIter) {
		fn(it.entity, ptrAs[A](it.Ptr(0)))
	})
}

// ParForEachMut is ParForEach that marks every visited component changed.
func (q *Query[A]) ParForEachMut(batchSize int, fn func(Entity, *A)) {
	q.ParIter(batchSize).ForEach(func(it *QueryIter) {
		fn(it.entity, ptrAs[A](it.MutPtr(0)))
	})
}

// Query2 iterates entities with both an A and a B.
type Query2[A, B any] struct {
	queryBase
}

// NewQuery2 creates a query over entities that have both an A and a B and
// pass every filter. Both components are fetched for writing, so A and B
// must be different types.
//
// Parameters:
//   - w: The World to query.
//   - filters: Extra With/Without/Added/Changed/Or conditions.
//
// Returns:
//   - A query positioned before the first match; call Next to advance.
func NewQuery2[A, B any](w *World, filters ...Filter) *Query2[A, B] {
	ids := []ComponentID{
		ComponentIDOrInsert[A](w.components),
		ComponentIDOrInsert[B](w.components),
	}
	return &Query2[A, B]{queryBase: typedQueryBase(w, ids, filters)}
}

// Get returns the A and B of the current entity without marking them changed.
func (q *Query2[A, B]) Get() (*A, *B) {
	return ptrAs[A](q.it.Ptr(0)), ptrAs[B](q.it.Ptr(1))
}

// GetMut returns the A and B of the current entity and marks each changed.
func (q *Query2[A, B]) GetMut() (*A, *B) {
	return ptrAs[A](q.it.MutPtr(0)), ptrAs[B](q.it.MutPtr(1))
}

// Single returns the only matching entity and its components, or an error
// wrapping ErrQueryNotSingle when zero or several entities match.
func (q *Query2[A, B]) Single() (Entity, *A, *B, error) {
	it, err := q.single()
	if err != nil {
		return Entity{}, nil, nil, err
	}
	return it.entity, ptrAs[A](it.Ptr(0)), ptrAs[B](it.Ptr(1)), nil
}

// ParForEach calls fn for every match from worker goroutines. fn must not
// write through the pointers; use ParForEachMut for that.
func (q *Query2[A, B]) ParForEach(batchSize int, fn func(Entity, *A, *B)) {
	q.ParIter(batchSize).ForEach(func(it *QueryIter) {
		fn(it.entity, ptrAs[A](it.Ptr(0)), ptrAs[B](it.Ptr(1)))
	})
}

// ParForEachMut is ParForEach that marks every visited component changed.
func (q *Query2[A, B]) ParForEachMut(batchSize int, fn func(Entity, *A, *B)) {
	q.ParIter(batchSize).ForEach(func(it *QueryIter) {
		fn(it.entity, ptrAs[A](it.MutPtr(0)), ptrAs[B](it.MutPtr(1)))
	})
}

// Query3 iterates entities with an A, a B and a C.
type Query3[A, B, C any] struct {
	queryBase
}

// NewQuery3 creates a query over entities with an A, a B and a C that pass
// filters. The three types must be distinct.
func NewQuery3[A, B, C any](w *World, filters ...Filter) *Query3[A, B, C] {
	ids := []ComponentID{
		ComponentIDOrInsert[A](w.components),
		ComponentIDOrInsert[B](w.components),
		ComponentIDOrInsert[C](w.components),
	}
	return &Query3[A, B, C]{queryBase: typedQueryBase(w, ids, filters)}
}

// Get returns the A, B and C of the current entity without marking them changed.
func (q *Query3[A, B, C]) Get() (*A, *B, *C) {
	return ptrAs[A](q.it.Ptr(0)), ptrAs[B](q.it.Ptr(1)), ptrAs[C](q.it.Ptr(2))
}

// GetMut returns the A, B and C of the current entity and marks each changed.
func (q *Query3[A, B, C]) GetMut() (*A, *B, *C) {
	return ptrAs[A](q.it.MutPtr(0)), ptrAs[B](q.it.MutPtr(1)), ptrAs[C](q.it.MutPtr(2))
}

// Single returns the only matching entity and its components, or an error
// wrapping ErrQueryNotSingle when zero or several entities match.
func (q *Query3[A, B, C]) Single() (Entity, *A, *B, *C, error) {
	it, err := q.single()
	if err != nil {
		return Entity{}, nil, nil, nil, err
	}
	return it.entity, ptrAs[A](it.Ptr(0)), ptrAs[B](it.Ptr(1)), ptrAs[C](it.Ptr(2)), nil
}

// ParForEach calls fn for every match from worker goroutines. fn must not
// write through the pointers; use ParForEachMut for that.
func (q *Query3[A, B, C]) ParForEach(batchSize int, fn func(Entity, *A, *B, *C)) {
	q.ParIter(batchSize).ForEach(func(it *QueryIter) {
		fn(it.entity, ptrAs[A](it.Ptr(0)), ptrAs[B](it.Ptr(1)), ptrAs[C](it.Ptr(2)))
	})
}

// ParForEachMut is ParForEach that marks every visited component changed.
func (q *Query3[A, B, C]) ParForEachMut(batchSize int, fn func(Entity, *A, *B, *C)) {
	q.ParIter(batchSize).ForEach(func(it *QueryIter) {
		fn(it.entity, ptrAs[A](it.MutPtr(0)), ptrAs[B](it.MutPtr(1)), ptrAs[C](it.MutPtr(2)))
	})
}

// Query4 iterates entities with an A, a B, a C and a D.
type Query4[A, B, C, D any] struct {
	queryBase
}

// NewQuery4 creates a query over entities with an A, a B, a C and a D that
// pass filters. The four types must be distinct.
func NewQuery4[A, B, C, D any](w *World, filters ...Filter) *Query4[A, B, C, D] {
	ids := []ComponentID{
		ComponentIDOrInsert[A](w.components),
		ComponentIDOrInsert[B](w.components),
		ComponentIDOrInsert[C](w.components),
		ComponentIDOrInsert[D](w.components),
	}
	return &Query4[A, B, C, D]{queryBase: typedQueryBase(w, ids, filters)}
}

// Get returns the A, B, C and D of the current entity without marking them changed.
func (q *Query4[A, B, C, D]) Get() (*A, *B, *C, *D) {
	return ptrAs[A](q.it.Ptr(0)), ptrAs[B](q.it.Ptr(1)), ptrAs[C](q.it.Ptr(2)), ptrAs[D](q.it.Ptr(3))
}

// GetMut returns the A, B, C and D of the current entity and marks each changed.
func (q *Query4[A, B, C, D]) GetMut() (*A, *B, *C, *D) {
	return ptrAs[A](q.it.MutPtr(0)), ptrAs[B](q.it.MutPtr(1)), ptrAs[C](q.it.MutPtr(2)), ptrAs[D](q.it.MutPtr(3))
}

// Single returns the only matching entity and its components, or an error
// wrapping ErrQueryNotSingle when zero or several entities match.
func (q *Query4[A, B, C, D]) Single() (Entity, *A, *B, *C, *D, error) {
	it, err := q.single()
	if err != nil {
		return Entity{}, nil, nil, nil, nil, err
	}
	return it.entity, ptrAs[A](it.Ptr(0)), ptrAs[B](it.Ptr(1)), ptrAs[C](it.Ptr(2)), ptrAs[D](it.Ptr(3)), nil
}

// ParForEach calls fn for every match from worker goroutines. fn must not
// write through the pointers; use ParForEachMut for that.
func (q *Query4[A, B, C, D]) ParForEach(batchSize int, fn func(Entity, *A, *B, *C, *D)) {
	q.ParIter(batchSize).ForEach(func(it *QueryIter) {
		fn(it.entity, ptrAs[A](it.Ptr(0)), ptrAs[B](it.Ptr(1)), ptrAs[C](it.Ptr(2)), ptrAs[D](it.Ptr(3)))
	})
}

// ParForEachMut is ParForEach that marks every visited component changed.
func (q *Query4[A, B, C, D]) ParForEachMut(batchSize int, fn func(Entity, *A, *B, *C, *D)) {
	q.ParIter(batchSize).ForEach(func(it *QueryIter) {
		fn(it.entity, ptrAs[A](it.MutPtr(0)), ptrAs[B](it.MutPtr(1)), ptrAs[C](it.MutPtr(2)), ptrAs[D](it.MutPtr(3)))
	})
}
