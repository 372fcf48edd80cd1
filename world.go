package kizami

import (
	"fmt"
	"slices"
	"sync/atomic"
	"unsafe"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// World owns every entity, component value, archetype, table, sparse set and
// resource. It is not safe for concurrent mutation: the caller must hold it
// exclusively to change it, or share it read-only (queries, WorldCell).
type World struct {
	components *Components
	entities   *EntityAllocator
	log        *zap.Logger
	bus        *EventBus
	queries    map[uint64][]*QueryState
	locations  []EntityLocation
	sparseSets []*ComponentSparseSet // indexed by component id
	resources  Resources
	archetypes Archetypes
	tables     Tables
	cfg        Config

	changeTick     atomic.Uint32
	lastChangeTick Tick
	lastCheckTick  Tick
	id             uuid.UUID
}

// Option configures a World at construction.
type Option func(*World)

// WithConfig applies cfg to the world.
func WithConfig(cfg Config) Option {
	return func(w *World) { w.cfg = cfg }
}

// WithLogger sets the logger used for structural debug output and warnings.
func WithLogger(log *zap.Logger) Option {
	return func(w *World) {
		if log != nil {
			w.log = log
		}
	}
}

// WithBlockAllocator makes the world draw entity blocks from pool. Worlds
// sharing a pool can exchange command buffers' reserved entities.
func WithBlockAllocator(pool *BlockAllocator) Option {
	return func(w *World) { w.entities = NewEntityAllocator(pool) }
}

// WithEventBus publishes structural events to bus instead of a private one.
func WithEventBus(bus *EventBus) Option {
	return func(w *World) {
		if bus != nil {
			w.bus = bus
		}
	}
}

// NewWorld creates and initializes a new World. Without options it uses
// DefaultConfig and a no-op logger.
func NewWorld(opts ...Option) *World {
	w := &World{
		components: NewComponents(),
		log:        zap.NewNop(),
		bus:        &EventBus{},
		queries:    make(map[uint64][]*QueryState),
		cfg:        DefaultConfig(),
		id:         uuid.New(),
		archetypes: Archetypes{
			archetypes: make([]*Archetype, 0, 16),
			byMask:     make(map[bitmask256]ArchetypeID),
		},
		tables: Tables{
			tables: make([]*Table, 0, 16),
			byMask: make(map[bitmask256]TableID),
		},
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.entities == nil {
		w.entities = NewEntityAllocator(nil)
	}
	w.cfg.normalize()
	w.locations = make([]EntityLocation, 0, w.cfg.InitialCapacity)
	w.changeTick.Store(1)
	// Pre-create the empty table and archetype
	w.getOrCreateArchetype(bitmask256{})
	return w
}

// ID returns the unique identifier of this world.
func (w *World) ID() uuid.UUID { return w.id }

// Components returns the component registry.
func (w *World) Components() *Components { return w.components }

// Entities returns the world's entity allocator.
func (w *World) Entities() *EntityAllocator { return w.entities }

// Archetypes returns the archetype set.
func (w *World) Archetypes() *Archetypes { return &w.archetypes }

// Tables returns the table set.
func (w *World) Tables() *Tables { return &w.tables }

// Events returns the bus that receives ArchetypeCreated and TableCreated.
func (w *World) Events() *EventBus { return w.bus }

// Logger returns the world logger.
func (w *World) Logger() *zap.Logger { return w.log }

// Config returns the effective configuration.
func (w *World) Config() Config { return w.cfg }

// SparseSet returns the sparse set of id, or nil when none exists yet.
func (w *World) SparseSet(id ComponentID) *ComponentSparseSet {
	if int(id) >= len(w.sparseSets) {
		return nil
	}
	return w.sparseSets[id]
}

// RegisterComponent registers T as a component and returns its ID. Registering
// twice returns the same ID.
func RegisterComponent[T any](w *World) ComponentID {
	return ComponentIDOrInsert[T](w.components)
}

// RegisterResource registers T as a resource and returns its ID.
func RegisterResource[T any](w *World) ComponentID {
	return ResourceIDOrInsert[T](w.components)
}

// ChangeTick returns the current world tick.
func (w *World) ChangeTick() Tick { return Tick(w.changeTick.Load()) }

// IncrementChangeTick advances the world tick and returns the value it had
// before, which becomes the "this run" tick of the caller.
func (w *World) IncrementChangeTick() Tick {
	return Tick(w.changeTick.Add(1) - 1)
}

// LastChangeTick returns the tick recorded by the last ClearTrackers call.
func (w *World) LastChangeTick() Tick { return w.lastChangeTick }

// ClearTrackers makes every change made so far old for queries created from
// the world directly.
func (w *World) ClearTrackers() {
	w.lastChangeTick = w.IncrementChangeTick()
}

// ticks returns the SystemTicks seen by queries run outside a system.
func (w *World) ticks() SystemTicks {
	return SystemTicks{LastRun: w.lastChangeTick, ThisRun: w.ChangeTick()}
}

// CheckChangeTicks rebases every stored tick that is about to become
// ambiguous. It only scans when at least the configured threshold of ticks
// passed since the previous scan, and reports whether it scanned.
func (w *World) CheckChangeTicks() bool {
	thisRun := w.ChangeTick()
	if uint32(thisRun-w.lastCheckTick) < w.cfg.CheckTickThreshold {
		return false
	}
	n := 0
	for _, t := range w.tables.tables {
		n += t.checkChangeTicks(thisRun)
	}
	for _, s := range w.sparseSets {
		if s != nil {
			n += s.checkChangeTicks(thisRun)
		}
	}
	n += w.resources.checkChangeTicks(thisRun)
	w.lastChangeTick.Check(thisRun)
	w.lastCheckTick = thisRun
	w.log.Debug("change ticks checked", zap.Uint32("tick", uint32(thisRun)), zap.Int("rebased", n))
	return true
}

// IsAlive reports whether e is alive and placed in this world.
func (w *World) IsAlive(e Entity) bool {
	return int(e.Index) < len(w.locations) &&
		w.locations[e.Index].IsValid() &&
		w.entities.IsAlive(e)
}

// Location returns where e is stored.
func (w *World) Location(e Entity) (EntityLocation, bool) {
	if !w.IsAlive(e) {
		return invalidLocation, false
	}
	return w.locations[e.Index], true
}

// Len returns the number of entities placed in the world.
func (w *World) Len() int {
	n := 0
	for _, a := range w.archetypes.archetypes {
		n += len(a.entities)
	}
	return n
}

// Contains reports whether e is alive and has component id.
func (w *World) Contains(e Entity, id ComponentID) bool {
	loc, ok := w.Location(e)
	return ok && w.archetypes.archetypes[loc.ArchetypeID].Contains(id)
}

func (w *World) ensureLocation(index uint32) {
	if int(index) < len(w.locations) {
		return
	}
	n := int(index) + 1
	if n > cap(w.locations) {
		grown := make([]EntityLocation, len(w.locations), max(n, 2*cap(w.locations)))
		copy(grown, w.locations)
		w.locations = grown
	}
	for i := len(w.locations); i < n; i++ {
		w.locations = append(w.locations, invalidLocation)
	}
}

// placeEmpty puts a freshly allocated entity into the empty archetype.
func (w *World) placeEmpty(e Entity) EntityLocation {
	w.ensureLocation(e.Index)
	a := w.archetypes.archetypes[emptyArchetypeID]
	row := w.tables.tables[a.tableID].allocate(e)
	loc := EntityLocation{
		ArchetypeID:  a.id,
		ArchetypeRow: a.allocate(e, row),
		TableID:      a.tableID,
		TableRow:     row,
	}
	w.locations[e.Index] = loc
	return loc
}

// SpawnEmpty creates an entity without components.
func (w *World) SpawnEmpty() Entity {
	e := w.entities.CreateEntity()
	w.placeEmpty(e)
	return e
}

// Spawn creates an entity holding the given component values. Each value's
// dynamic type is its component; passing the same type twice panics.
func (w *World) Spawn(components ...any) Entity {
	e := w.SpawnEmpty()
	if len(components) > 0 {
		b := w.makeBundle(components)
		w.insertBundle(e, w.locations[e.Index], &b, w.ChangeTick())
	}
	return e
}

// Despawn destroys e and all of its components.
func (w *World) Despawn(e Entity) error {
	loc, ok := w.Location(e)
	if !ok {
		return fmt.Errorf("despawn %v: %w", e, ErrNoSuchEntity)
	}
	a := w.archetypes.archetypes[loc.ArchetypeID]
	for _, id := range a.sparseComponents {
		w.sparseSets[id].remove(e, true)
	}
	t := w.tables.tables[loc.TableID]
	if swapped, ok := t.swapRemoveAndDrop(loc.TableRow); ok {
		w.setTableRow(swapped, loc.TableRow)
	}
	if moved, ok := a.swapRemove(loc.ArchetypeRow); ok {
		w.locations[moved.Entity.Index].ArchetypeRow = loc.ArchetypeRow
	}
	w.locations[e.Index] = invalidLocation
	w.entities.DeleteEntity(e)
	return nil
}

// Insert adds the given component values to e, replacing values of
// components e already has.
func (w *World) Insert(e Entity, components ...any) error {
	loc, ok := w.Location(e)
	if !ok {
		return fmt.Errorf("insert into %v: %w", e, ErrNoSuchEntity)
	}
	if len(components) == 0 {
		return nil
	}
	b := w.makeBundle(components)
	w.insertBundle(e, loc, &b, w.ChangeTick())
	return nil
}

// InsertByID writes the value at src as component id of e.
func (w *World) InsertByID(e Entity, id ComponentID, src unsafe.Pointer) error {
	loc, ok := w.Location(e)
	if !ok {
		return fmt.Errorf("insert %d into %v: %w", id, e, ErrNoSuchEntity)
	}
	if _, ok := w.components.Info(id); !ok {
		return fmt.Errorf("insert %d into %v: %w", id, e, ErrUnknownComponent)
	}
	b := bundle{comps: []bundleComponent{{id: id, ptr: src}}}
	b.mask.set(id)
	w.insertBundle(e, loc, &b, w.ChangeTick())
	return nil
}

// RemoveBundle removes the components ids from e. If e lacks any of them
// nothing is removed and ErrBundleNotPresent is returned.
func (w *World) RemoveBundle(e Entity, ids ...ComponentID) error {
	return w.remove(e, ids, true, true)
}

// RemoveIntersection removes whichever of ids e has.
func (w *World) RemoveIntersection(e Entity, ids ...ComponentID) error {
	return w.remove(e, ids, false, true)
}

func (w *World) remove(e Entity, ids []ComponentID, strict, drop bool) error {
	loc, ok := w.Location(e)
	if !ok {
		return fmt.Errorf("remove from %v: %w", e, ErrNoSuchEntity)
	}
	var mask bitmask256
	for _, id := range ids {
		if _, ok := w.components.Info(id); !ok {
			return fmt.Errorf("remove %d from %v: %w", id, e, ErrUnknownComponent)
		}
		mask.set(id)
	}
	src := w.archetypes.archetypes[loc.ArchetypeID]
	if strict && !src.mask.contains(mask) {
		return fmt.Errorf("remove from %v: %w", e, ErrBundleNotPresent)
	}
	removed := src.mask.and(mask)
	if removed.isEmpty() {
		return nil
	}
	dst := w.removeTarget(src, removed)
	for _, id := range removed.and(src.sparseMask).ids(nil) {
		w.sparseSets[id].remove(e, drop)
	}
	w.moveEntity(e, loc, dst, drop)
	return nil
}

// GetByID returns a pointer to component id of e, or nil.
func (w *World) GetByID(e Entity, id ComponentID) unsafe.Pointer {
	loc, ok := w.Location(e)
	if !ok {
		return nil
	}
	a := w.archetypes.archetypes[loc.ArchetypeID]
	if !a.Contains(id) {
		return nil
	}
	if a.sparseMask.containsBit(id) {
		return w.sparseSets[id].Get(e)
	}
	return w.tables.tables[loc.TableID].get(id, loc.TableRow)
}

// GetMutByID is GetByID that also marks the component changed at the current
// world tick.
func (w *World) GetMutByID(e Entity, id ComponentID) unsafe.Pointer {
	loc, ok := w.Location(e)
	if !ok {
		return nil
	}
	a := w.archetypes.archetypes[loc.ArchetypeID]
	if !a.Contains(id) {
		return nil
	}
	tick := w.ChangeTick()
	if a.sparseMask.containsBit(id) {
		s := w.sparseSets[id]
		s.setChanged(e, tick)
		return s.Get(e)
	}
	col := w.tables.tables[loc.TableID].Column(id)
	col.changed[loc.TableRow] = tick
	return col.Get(loc.TableRow)
}

// TicksByID returns the change ticks of component id of e.
func (w *World) TicksByID(e Entity, id ComponentID) (ComponentTicks, bool) {
	loc, ok := w.Location(e)
	if !ok {
		return ComponentTicks{}, false
	}
	a := w.archetypes.archetypes[loc.ArchetypeID]
	if !a.Contains(id) {
		return ComponentTicks{}, false
	}
	if a.sparseMask.containsBit(id) {
		return w.sparseSets[id].Ticks(e)
	}
	return w.tables.tables[loc.TableID].Column(id).Ticks(loc.TableRow), true
}

// Clear despawns every entity and returns all entity blocks to the pool.
// Registered components, archetypes and resources are kept.
func (w *World) Clear() {
	for _, t := range w.tables.tables {
		t.clear()
	}
	for _, s := range w.sparseSets {
		if s != nil {
			s.clear()
		}
	}
	for _, a := range w.archetypes.archetypes {
		a.clearEntities()
	}
	w.entities.DeleteAllEntities()
	w.locations = w.locations[:0]
}

// setTableRow records that e now lives at row of its table.
func (w *World) setTableRow(e Entity, row TableRow) {
	loc := &w.locations[e.Index]
	loc.TableRow = row
	w.archetypes.archetypes[loc.ArchetypeID].setEntityTableRow(loc.ArchetypeRow, row)
}

// moveEntity moves e from its current archetype into dst. Table values move
// only if dst uses a different table; columns dst lacks are dropped when drop
// is set and forgotten otherwise. It returns the new location.
func (w *World) moveEntity(e Entity, loc EntityLocation, dst *Archetype, drop bool) EntityLocation {
	src := w.archetypes.archetypes[loc.ArchetypeID]
	if src == dst {
		return loc
	}
	newRow := loc.TableRow
	if dst.tableID != src.tableID {
		srcT := w.tables.tables[src.tableID]
		dstT := w.tables.tables[dst.tableID]
		var res tableMoveResult
		switch {
		case dstT.mask.contains(srcT.mask):
			res = srcT.moveToSuperset(loc.TableRow, dstT)
		case drop:
			res = srcT.moveToAndDropMissing(loc.TableRow, dstT)
		default:
			res = srcT.moveToAndForgetMissing(loc.TableRow, dstT)
		}
		newRow = res.newRow
		if res.hasSwapped {
			w.setTableRow(res.swapped, loc.TableRow)
		}
	}
	if moved, ok := src.swapRemove(loc.ArchetypeRow); ok {
		w.locations[moved.Entity.Index].ArchetypeRow = loc.ArchetypeRow
	}
	newLoc := EntityLocation{
		ArchetypeID:  dst.id,
		ArchetypeRow: dst.allocate(e, newRow),
		TableID:      dst.tableID,
		TableRow:     newRow,
	}
	w.locations[e.Index] = newLoc
	return newLoc
}

// insertBundle moves e to the archetype that also holds b and writes every
// value of b. Components e already had are replaced, keeping their added
// tick; new ones are stamped added and changed at tick.
func (w *World) insertBundle(e Entity, loc EntityLocation, b *bundle, tick Tick) EntityLocation {
	src := w.archetypes.archetypes[loc.ArchetypeID]
	dst := w.insertTarget(src, b.mask)
	newLoc := w.moveEntity(e, loc, dst, true)
	t := w.tables.tables[newLoc.TableID]
	for _, c := range b.comps {
		if dst.sparseMask.containsBit(c.id) {
			w.sparseSets[c.id].insert(e, c.ptr, tick)
			continue
		}
		col := t.Column(c.id)
		if src.mask.containsBit(c.id) {
			col.replace(newLoc.TableRow, c.ptr, tick)
		} else {
			col.initialize(newLoc.TableRow, c.ptr, NewComponentTicks(tick))
		}
	}
	return newLoc
}

// insertTarget returns the archetype reached from src by adding mask.
func (w *World) insertTarget(src *Archetype, mask bitmask256) *Archetype {
	if id, ok := src.insertEdges[mask]; ok {
		return w.archetypes.archetypes[id]
	}
	dst := w.getOrCreateArchetype(src.mask.or(mask))
	src.insertEdges[mask] = dst.id
	return dst
}

// removeTarget returns the archetype reached from src by removing mask, which
// must be a subset of src's components.
func (w *World) removeTarget(src *Archetype, mask bitmask256) *Archetype {
	if id, ok := src.removeEdges[mask]; ok {
		return w.archetypes.archetypes[id]
	}
	dst := w.getOrCreateArchetype(src.mask.andNot(mask))
	src.removeEdges[mask] = dst.id
	return dst
}

// getOrCreateArchetype returns the archetype for the given component mask,
// creating it and its table when missing.
func (w *World) getOrCreateArchetype(mask bitmask256) *Archetype {
	if id, ok := w.archetypes.byMask[mask]; ok {
		return w.archetypes.archetypes[id]
	}
	var tableIDs, sparseIDs []ComponentID
	var tableMask bitmask256
	for _, cid := range mask.ids(make([]ComponentID, 0, mask.count())) {
		info := w.components.InfoUnchecked(cid)
		if info.desc.Storage == StorageSparseSet {
			sparseIDs = append(sparseIDs, cid)
			w.ensureSparseSet(info)
		} else {
			tableIDs = append(tableIDs, cid)
			tableMask.set(cid)
		}
	}
	t := w.getOrCreateTable(tableMask, tableIDs)
	a := newArchetype(ArchetypeID(len(w.archetypes.archetypes)), t.id, tableIDs, sparseIDs)
	w.archetypes.archetypes = append(w.archetypes.archetypes, a)
	w.archetypes.byMask[mask] = a.id
	w.log.Debug("archetype created",
		zap.Uint32("archetype", uint32(a.id)),
		zap.Uint32("table", uint32(t.id)),
		zap.Int("components", len(tableIDs)+len(sparseIDs)))
	Publish(w.bus, ArchetypeCreated{ID: a.id, Table: t.id, Components: slices.Clone(a.Components())})
	return a
}

func (w *World) getOrCreateTable(mask bitmask256, ids []ComponentID) *Table {
	if id, ok := w.tables.byMask[mask]; ok {
		return w.tables.tables[id]
	}
	infos := make([]*ComponentInfo, len(ids))
	for i, cid := range ids {
		infos[i] = w.components.InfoUnchecked(cid)
	}
	t := newTable(TableID(len(w.tables.tables)), infos, w.cfg.TableCapacity)
	w.tables.tables = append(w.tables.tables, t)
	w.tables.byMask[mask] = t.id
	w.log.Debug("table created", zap.Uint32("table", uint32(t.id)), zap.Int("columns", len(ids)))
	Publish(w.bus, TableCreated{ID: t.id, Components: slices.Clone(ids)})
	return t
}

func (w *World) ensureSparseSet(info *ComponentInfo) *ComponentSparseSet {
	if int(info.id) >= len(w.sparseSets) {
		grown := make([]*ComponentSparseSet, info.id+1)
		copy(grown, w.sparseSets)
		w.sparseSets = grown
	}
	if w.sparseSets[info.id] == nil {
		w.sparseSets[info.id] = newComponentSparseSet(info, w.cfg.TableCapacity)
	}
	return w.sparseSets[info.id]
}

// archetypeFor returns the archetype holding exactly ids, creating it if
// necessary.
func (w *World) archetypeFor(ids ...ComponentID) *Archetype {
	return w.getOrCreateArchetype(maskOf(ids...))
}
