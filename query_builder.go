package kizami

import (
	"fmt"
	"reflect"
)

// QueryBuilder assembles a query from component IDs at runtime. Terms are
// fetched in the order they are added, so term i of the built query is the
// i-th Ref, Mut or Optional call.
//
//	qs := kizami.NewQueryBuilder(w).
//		RefID(posID).
//		MutID(velID).
//		WithoutID(frozenID).
//		Build()
type QueryBuilder struct {
	world   *World
	fetches []fetchTerm
	filters []filterTerm
}

// NewQueryBuilder starts an empty query on w.
func NewQueryBuilder(w *World) *QueryBuilder {
	return &QueryBuilder{world: w}
}

func (b *QueryBuilder) sub() *QueryBuilder {
	return &QueryBuilder{world: b.world}
}

// Entity requests the entity handle. Every iterator already exposes it, so
// this adds no term.
func (b *QueryBuilder) Entity() *QueryBuilder {
	return b
}

// RefID adds a read of component id. Only entities with id match.
func (b *QueryBuilder) RefID(id ComponentID) *QueryBuilder {
	b.fetches = append(b.fetches, newFetchTerm(b.world, id, fetchRef, false))
	return b
}

// MutID adds a write of component id. Only entities with id match.
func (b *QueryBuilder) MutID(id ComponentID) *QueryBuilder {
	b.fetches = append(b.fetches, newFetchTerm(b.world, id, fetchMut, true))
	return b
}

// OptionalID adds a read of component id that yields nil when absent.
func (b *QueryBuilder) OptionalID(id ComponentID) *QueryBuilder {
	b.fetches = append(b.fetches, newFetchTerm(b.world, id, fetchOptional, false))
	return b
}

// Ref adds a read of T to b.
func Ref[T any](b *QueryBuilder) *QueryBuilder {
	return b.RefID(ComponentIDOrInsert[T](b.world.components))
}

// Mut adds a write of T to b.
func Mut[T any](b *QueryBuilder) *QueryBuilder {
	return b.MutID(ComponentIDOrInsert[T](b.world.components))
}

// Optional adds an optional read of T to b.
func Optional[T any](b *QueryBuilder) *QueryBuilder {
	return b.OptionalID(ComponentIDOrInsert[T](b.world.components))
}

// WithID requires component id without fetching it.
func (b *QueryBuilder) WithID(id ComponentID) *QueryBuilder {
	return b.Filter(WithID(id))
}

// WithoutID excludes entities with component id.
func (b *QueryBuilder) WithoutID(id ComponentID) *QueryBuilder {
	return b.Filter(WithoutID(id))
}

// Filter adds filters that must all match.
func (b *QueryBuilder) Filter(filters ...Filter) *QueryBuilder {
	for _, f := range filters {
		b.filters = append(b.filters, f.bind(b.world))
	}
	return b
}

// branches returns the terms added to a nested builder as filters. Fetch terms
// become With requirements of their component.
func (b *QueryBuilder) branches() []filterTerm {
	out := make([]filterTerm, 0, len(b.fetches)+len(b.filters))
	for _, f := range b.fetches {
		if f.kind != fetchOptional {
			out = append(out, &withTerm{id: f.id, sparse: f.sparse})
		}
	}
	return append(out, b.filters...)
}

// Or adds one filter that matches if any term added inside fn matches.
func (b *QueryBuilder) Or(fn func(*QueryBuilder)) *QueryBuilder {
	s := b.sub()
	fn(s)
	b.filters = append(b.filters, &orTerm{subs: s.branches()})
	return b
}

// And groups the terms added inside fn. Fetch terms are kept; filters are
// combined into a single conjunction.
func (b *QueryBuilder) And(fn func(*QueryBuilder)) *QueryBuilder {
	s := b.sub()
	fn(s)
	b.fetches = append(b.fetches, s.fetches...)
	if len(s.filters) > 0 {
		b.filters = append(b.filters, &allTerm{subs: s.filters})
	}
	return b
}

// Optional turns every fetch added inside fn into an optional fetch, keeping
// its read or write access. Filters added inside fn are dropped.
func (b *QueryBuilder) Optional(fn func(*QueryBuilder)) *QueryBuilder {
	s := b.sub()
	fn(s)
	for _, f := range s.fetches {
		f.kind = fetchOptional
		b.fetches = append(b.fetches, f)
	}
	return b
}

// Access returns the access accumulated so far.
func (b *QueryBuilder) Access() FilteredAccess {
	a := NewFilteredAccess()
	for i := range b.fetches {
		b.fetches[i].updateAccess(&a)
	}
	for _, f := range b.filters {
		f.updateAccess(&a)
	}
	return a
}

// Build compiles the query. Builders with the same terms share one state.
func (b *QueryBuilder) Build() *QueryState {
	return b.world.queryState(append([]fetchTerm(nil), b.fetches...), append([]filterTerm(nil), b.filters...))
}

// transmuteTerms builds the fetch terms of a typed query over types, checking
// that the builder's access covers each of them and every extra filter.
func (b *QueryBuilder) transmuteTerms(types []reflect.Type, extra []Filter) ([]fetchTerm, []filterTerm, error) {
	acc := b.Access()
	fetches := make([]fetchTerm, len(types))
	for i, t := range types {
		id := b.world.components.componentIDOrInsert(t)
		if !acc.access.HasRead(id) {
			return nil, nil, fmt.Errorf("%w: %s is not fetched", ErrTransmuteAccess, t)
		}
		kind := fetchRef
		if acc.access.HasWrite(id) {
			kind = fetchMut
		}
		fetches[i] = newFetchTerm(b.world, id, kind, false)
	}
	// The transmuted query must not match more than the builder did.
	filters := make([]filterTerm, 0, len(b.fetches)+len(b.filters)+len(extra))
	for _, f := range b.fetches {
		if f.kind != fetchOptional {
			filters = append(filters, &withTerm{id: f.id, sparse: f.sparse})
		}
	}
	filters = append(filters, b.filters...)
	for _, f := range extra {
		term := f.bind(b.world)
		need := NewFilteredAccess()
		term.updateAccess(&need)
		for _, id := range need.access.Reads() {
			if !acc.access.HasRead(id) {
				return nil, nil, fmt.Errorf("%w: filter reads component %d", ErrTransmuteAccess, id)
			}
		}
		filters = append(filters, term)
	}
	return fetches, filters, nil
}

// Transmute turns the builder into a typed query over A. The builder must
// already fetch A; A is writable through the query only if the builder
// writes it.
func Transmute[A any](b *QueryBuilder) (*Query[A], error) {
	fetches, filters, err := b.transmuteTerms([]reflect.Type{reflect.TypeFor[A]()}, nil)
	if err != nil {
		return nil, err
	}
	return &Query[A]{queryBase: newQueryBase(b.world, b.world.queryState(fetches, filters))}, nil
}

// Transmute2 turns the builder into a typed query over A and B.
func Transmute2[A, B any](b *QueryBuilder) (*Query2[A, B], error) {
	return TransmuteFiltered2[A, B](b)
}

// TransmuteFiltered2 is Transmute2 with extra filters. Filters that read
// component ticks must be covered by the builder's access.
func TransmuteFiltered2[A, B any](b *QueryBuilder, filters ...Filter) (*Query2[A, B], error) {
	fetches, terms, err := b.transmuteTerms([]reflect.Type{reflect.TypeFor[A](), reflect.TypeFor[B]()}, filters)
	if err != nil {
		return nil, err
	}
	return &Query2[A, B]{queryBase: newQueryBase(b.world, b.world.queryState(fetches, terms))}, nil
}
