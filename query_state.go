package kizami

import (
	"bytes"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// QueryState is a compiled query: its bound terms, the access it needs, and
// the cache of tables and archetypes it matches. The cache is refreshed
// incrementally from the world's archetype list.
type QueryState struct {
	fetches             []fetchTerm
	filter              *allTerm
	key                 []byte
	matchedTables       []TableID
	matchedArchetypes   []ArchetypeID
	tableMatched        []bool // indexed by TableID
	archetypeMatched    []bool // indexed by ArchetypeID
	access              FilteredAccess
	archetypeGeneration int
	filterSize          int
	worldID             uuid.UUID
	dense               bool
	rowFilter           bool
	nonSend             bool
}

// queryState returns the state for the given terms, sharing one instance
// between identical term lists.
func (w *World) queryState(fetches []fetchTerm, filters []filterTerm) *QueryState {
	filter := &allTerm{subs: filters}
	key := make([]byte, 0, 8*(len(fetches)+len(filters)))
	for i := range fetches {
		key = fetches[i].encode(key)
	}
	key = append(key, '|')
	key = filter.encode(key)
	h := xxhash.Sum64(key)
	for _, s := range w.queries[h] {
		if bytes.Equal(s.key, key) {
			return s
		}
	}
	s := newQueryState(w, fetches, filter, key)
	w.queries[h] = append(w.queries[h], s)
	w.log.Debug("query state created",
		zap.Uint64("hash", h),
		zap.Int("fetches", len(fetches)),
		zap.Bool("dense", s.dense))
	return s
}

func newQueryState(w *World, fetches []fetchTerm, filter *allTerm, key []byte) *QueryState {
	s := &QueryState{
		fetches:    fetches,
		filter:     filter,
		key:        key,
		access:     NewFilteredAccess(),
		worldID:    w.id,
		dense:      filter.dense(),
		rowFilter:  filter.rowFilter(),
		filterSize: filter.stateSize(),
	}
	checkFetchConflicts(w, fetches)
	for i := range fetches {
		f := &fetches[i]
		f.updateAccess(&s.access)
		if f.sparse {
			s.dense = false
		}
		if !f.send {
			s.nonSend = true
		}
	}
	filter.updateAccess(&s.access)
	s.updateArchetypes(w)
	return s
}

// checkFetchConflicts panics if two fetch terms alias one component and
// either of them writes it.
func checkFetchConflicts(w *World, fetches []fetchTerm) {
	var seen Access
	for i := range fetches {
		f := &fetches[i]
		if f.write && seen.HasRead(f.id) || !f.write && seen.HasWrite(f.id) {
			name := fmt.Sprint(f.id)
			if info, ok := w.components.Info(f.id); ok {
				name = info.Name()
			}
			panic(fmt.Sprintf("kizami: query term %d (%s) conflicts with a previous access in this query", i, name))
		}
		if f.write {
			seen.AddWrite(f.id)
		} else {
			seen.AddRead(f.id)
		}
	}
}

// validateWorld panics if s was built for another world.
func (s *QueryState) validateWorld(w *World) {
	if s.worldID != w.id {
		panic(fmt.Errorf("%w: state %s, world %s", ErrWorldMismatch, s.worldID, w.id))
	}
}

func (s *QueryState) matchesArchetype(a *Archetype) bool {
	for i := range s.fetches {
		if !s.fetches[i].matches(a.mask) {
			return false
		}
	}
	return s.filter.matches(a.mask)
}

// updateArchetypes adds every archetype created since the last update.
func (s *QueryState) updateArchetypes(w *World) {
	s.validateWorld(w)
	all := w.archetypes.archetypes
	for i := s.archetypeGeneration; i < len(all); i++ {
		a := all[i]
		s.archetypeMatched = append(s.archetypeMatched, false)
		if !s.matchesArchetype(a) {
			continue
		}
		s.archetypeMatched[a.id] = true
		s.matchedArchetypes = append(s.matchedArchetypes, a.id)
		for int(a.tableID) >= len(s.tableMatched) {
			s.tableMatched = append(s.tableMatched, false)
		}
		if !s.tableMatched[a.tableID] {
			s.tableMatched[a.tableID] = true
			s.matchedTables = append(s.matchedTables, a.tableID)
		}
	}
	s.archetypeGeneration = len(all)
}

// UpdateArchetypes refreshes the matched archetype cache from w.
func (s *QueryState) UpdateArchetypes(w *World) { s.updateArchetypes(w) }

// Access returns the access the query needs.
func (s *QueryState) Access() *FilteredAccess { return &s.access }

// IsDense reports whether the query iterates tables rather than archetypes.
func (s *QueryState) IsDense() bool { return s.dense }

// MatchedTables returns the IDs of tables that can hold matching entities.
func (s *QueryState) MatchedTables() []TableID { return s.matchedTables }

// MatchedArchetypes returns the IDs of matching archetypes.
func (s *QueryState) MatchedArchetypes() []ArchetypeID { return s.matchedArchetypes }

// Iter returns an iterator using the world's own change ticks.
func (s *QueryState) Iter(w *World) *QueryIter {
	return s.IterWithTicks(w, w.ticks())
}

// IterWithTicks returns an iterator that evaluates change filters against
// ticks.
func (s *QueryState) IterWithTicks(w *World, ticks SystemTicks) *QueryIter {
	s.updateArchetypes(w)
	it := &QueryIter{}
	it.init(w, s, ticks)
	return it
}

// ParIter returns a parallel iterator over the query. It panics if the query
// fetches a component that is not send.
func (s *QueryState) ParIter(w *World, ticks SystemTicks, batchSize int) *ParQueryIter {
	s.updateArchetypes(w)
	if s.nonSend {
		panic("kizami: query reads a non-send component and cannot be iterated in parallel")
	}
	if batchSize <= 0 {
		batchSize = w.cfg.BatchSize
	}
	return &ParQueryIter{world: w, state: s, ticks: ticks, batchSize: batchSize, workers: w.cfg.Workers}
}

// Count returns the number of matching entities.
func (s *QueryState) Count(w *World, ticks SystemTicks) int {
	s.updateArchetypes(w)
	if !s.rowFilter {
		n := 0
		if s.dense {
			for _, id := range s.matchedTables {
				n += w.tables.tables[id].Len()
			}
		} else {
			for _, id := range s.matchedArchetypes {
				n += w.archetypes.archetypes[id].Len()
			}
		}
		return n
	}
	var it QueryIter
	it.init(w, s, ticks)
	n := 0
	for it.Next() {
		n++
	}
	return n
}

// Contains reports whether e is matched by the query.
func (s *QueryState) Contains(w *World, e Entity, ticks SystemTicks) bool {
	s.updateArchetypes(w)
	loc, ok := w.Location(e)
	if !ok || !s.archetypeMatched[loc.ArchetypeID] {
		return false
	}
	if !s.rowFilter {
		return true
	}
	st := make([]filterState, s.filterSize)
	a := w.archetypes.archetypes[loc.ArchetypeID]
	s.filter.setArchetype(st, w, a, w.tables.tables[loc.TableID])
	return s.filter.fetch(st, e, loc.TableRow, ticks)
}

// NewQueryState compiles a query over the given component IDs. Each ID is
// fetched for writing.
func NewQueryState(w *World, ids []ComponentID, filters ...Filter) *QueryState {
	fetches := make([]fetchTerm, len(ids))
	for i, id := range ids {
		fetches[i] = newFetchTerm(w, id, fetchMut, true)
	}
	return w.queryState(fetches, bindFilters(w, filters))
}

func bindFilters(w *World, filters []Filter) []filterTerm {
	terms := make([]filterTerm, len(filters))
	for i, f := range filters {
		terms[i] = f.bind(w)
	}
	return terms
}
