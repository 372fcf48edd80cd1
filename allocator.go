package kizami

import (
	"fmt"
	"iter"
	"math"
	"math/bits"
	"sync"
)

// BlockSize is the number of entity slots in one EntityBlock.
const BlockSize = 1024

const maxBlocks = (math.MaxUint32 + 1) / BlockSize

// EntityBlock is a fixed run of BlockSize entity slots owned by at most one
// EntityAllocator at a time.
type EntityBlock struct {
	versions []uint32
	free     []uint32 // stack of recycled offsets
	alive    [BlockSize / 64]uint64
	start    uint32
	next     uint32 // first offset never handed out
	live     int
}

func newEntityBlock(start uint32) *EntityBlock {
	b := &EntityBlock{
		start:    start,
		versions: make([]uint32, BlockSize),
		free:     make([]uint32, 0, 64),
	}
	for i := range b.versions {
		b.versions[i] = 1
	}
	return b
}

// Start returns the first entity index covered by the block.
func (b *EntityBlock) Start() uint32 { return b.start }

// Live returns the number of allocated slots in the block.
func (b *EntityBlock) Live() int { return b.live }

func (b *EntityBlock) isSet(off uint32) bool {
	return b.alive[off>>6]&(uint64(1)<<(off&63)) != 0
}

func (b *EntityBlock) allocate() (Entity, bool) {
	var off uint32
	switch {
	case len(b.free) > 0:
		last := len(b.free) - 1
		off = b.free[last]
		b.free = b.free[:last]
	case b.next < BlockSize:
		off = b.next
		b.next++
	default:
		return Entity{}, false
	}
	b.alive[off>>6] |= uint64(1) << (off & 63)
	b.live++
	return Entity{Index: b.start + off, Generation: b.versions[off]}, true
}

func (b *EntityBlock) isAlive(e Entity) bool {
	off := e.Index - b.start
	return b.isSet(off) && b.versions[off] == e.Generation
}

func (b *EntityBlock) release(off uint32) {
	v := b.versions[off] + 1
	if v == 0 {
		v = 1
	}
	b.versions[off] = v
	b.alive[off>>6] &^= uint64(1) << (off & 63)
	b.free = append(b.free, off)
	b.live--
}

func (b *EntityBlock) delete(e Entity) bool {
	if !b.isAlive(e) {
		return false
	}
	b.release(e.Index - b.start)
	return true
}

// releaseAll frees every allocated slot, bumping its generation even though
// it was never explicitly deleted.
func (b *EntityBlock) releaseAll() {
	for w, word := range b.alive {
		for word != 0 {
			bit := uint32(bits.TrailingZeros64(word))
			word &^= uint64(1) << bit
			b.release(uint32(w)*64 + bit)
		}
	}
}

func (b *EntityBlock) hasFree() bool {
	return len(b.free) > 0 || b.next < BlockSize
}

// BlockAllocator is the shared pool of entity blocks. Several EntityAllocators
// may draw from one pool; it is the only point where they contend.
type BlockAllocator struct {
	free      []*EntityBlock
	mu        sync.Mutex
	allocated uint32
}

// NewBlockAllocator creates an empty pool.
func NewBlockAllocator() *BlockAllocator {
	return &BlockAllocator{}
}

// Allocate hands out a recycled block, or a brand new one when none is free.
func (a *BlockAllocator) Allocate() *EntityBlock {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n := len(a.free); n > 0 {
		b := a.free[n-1]
		a.free = a.free[:n-1]
		return b
	}
	if a.allocated >= maxBlocks {
		panic("kizami: entity index space exhausted")
	}
	b := newEntityBlock(a.allocated * BlockSize)
	a.allocated++
	return b
}

// Free returns blocks to the pool.
func (a *BlockAllocator) Free(blocks ...*EntityBlock) {
	a.mu.Lock()
	a.free = append(a.free, blocks...)
	a.mu.Unlock()
}

// Blocks returns how many distinct blocks the pool has ever created.
func (a *BlockAllocator) Blocks() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return int(a.allocated)
}

// EntityAllocator issues and recycles Entity handles from the blocks it owns.
// All methods are safe for concurrent use. Generations are only mutated under
// the allocator's write lock.
type EntityAllocator struct {
	pool    *BlockAllocator
	blocks  []*EntityBlock // indexed by block number, nil when not owned
	owned   []uint32       // owned block numbers in acquisition order
	mu      sync.RWMutex
	current int // index into owned of the block in use, -1 if none
	live    int
}

// NewEntityAllocator creates an allocator drawing blocks from pool. A nil
// pool gets a private BlockAllocator.
func NewEntityAllocator(pool *BlockAllocator) *EntityAllocator {
	if pool == nil {
		pool = NewBlockAllocator()
	}
	return &EntityAllocator{pool: pool, current: -1}
}

// Pool returns the shared block pool.
func (a *EntityAllocator) Pool() *BlockAllocator { return a.pool }

// CreateEntity allocates one entity. The block in use is tried first, then
// the other owned blocks from the most recently used one backwards, and only
// then a block is taken from the shared pool.
func (a *EntityAllocator) CreateEntity() Entity {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.createLocked()
}

func (a *EntityAllocator) createLocked() Entity {
	if a.current >= 0 {
		if e, ok := a.blocks[a.owned[a.current]].allocate(); ok {
			a.live++
			return e
		}
		for i := a.current - 1; i >= 0; i-- {
			if e, ok := a.tryBlock(i); ok {
				return e
			}
		}
		for i := len(a.owned) - 1; i > a.current; i-- {
			if e, ok := a.tryBlock(i); ok {
				return e
			}
		}
	}
	a.adopt(a.pool.Allocate())
	a.current = len(a.owned) - 1
	e, _ := a.blocks[a.owned[a.current]].allocate()
	a.live++
	return e
}

func (a *EntityAllocator) tryBlock(i int) (Entity, bool) {
	b := a.blocks[a.owned[i]]
	if !b.hasFree() {
		return Entity{}, false
	}
	e, ok := b.allocate()
	if ok {
		a.current = i
		a.live++
	}
	return e, ok
}

func (a *EntityAllocator) adopt(b *EntityBlock) {
	n := b.start / BlockSize
	if int(n) >= len(a.blocks) {
		grown := make([]*EntityBlock, n+1, max(int(n)+1, 2*len(a.blocks)))
		copy(grown, a.blocks)
		a.blocks = grown
	}
	a.blocks[n] = b
	a.owned = append(a.owned, n)
	a.live += b.live
}

// CreateEntities lazily allocates count entities.
func (a *EntityAllocator) CreateEntities(count int) iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		for range count {
			if !yield(a.CreateEntity()) {
				return
			}
		}
	}
}

func (a *EntityAllocator) blockOf(e Entity) *EntityBlock {
	n := e.Index / BlockSize
	if int(n) >= len(a.blocks) {
		return nil
	}
	return a.blocks[n]
}

// DeleteEntity frees e. It returns true only if e was alive at its exact
// generation; stale or out-of-range handles report false.
func (a *EntityAllocator) DeleteEntity(e Entity) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	b := a.blockOf(e)
	if b == nil || !b.delete(e) {
		return false
	}
	a.live--
	return true
}

// IsAlive reports whether e is a live handle issued by this allocator.
func (a *EntityAllocator) IsAlive(e Entity) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	b := a.blockOf(e)
	return b != nil && b.isAlive(e)
}

// Len returns the number of live entities.
func (a *EntityAllocator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.live
}

// DeleteAllEntities frees every allocated slot and returns all blocks to the
// shared pool. Generations of still-live slots are bumped first, so no handle
// issued before the reset can alias a handle issued after it.
func (a *EntityAllocator) DeleteAllEntities() {
	a.mu.Lock()
	defer a.mu.Unlock()
	freed := make([]*EntityBlock, 0, len(a.owned))
	for _, n := range a.owned {
		b := a.blocks[n]
		b.releaseAll()
		a.blocks[n] = nil
		freed = append(freed, b)
	}
	a.pool.Free(freed...)
	a.owned = a.owned[:0]
	a.current = -1
	a.live = 0
}

// Merge moves every block owned by other into a. Both allocators must share
// the same BlockAllocator.
func (a *EntityAllocator) Merge(other *EntityAllocator) {
	if a == other {
		return
	}
	if a.pool != other.pool {
		panic(fmt.Sprintf("kizami: cannot merge entity allocators with different block pools (%p, %p)", a.pool, other.pool))
	}
	other.mu.Lock()
	blocks := make([]*EntityBlock, 0, len(other.owned))
	for _, n := range other.owned {
		blocks = append(blocks, other.blocks[n])
		other.blocks[n] = nil
	}
	other.owned = other.owned[:0]
	other.current = -1
	other.live = 0
	other.mu.Unlock()

	a.mu.Lock()
	for _, b := range blocks {
		a.adopt(b)
	}
	a.mu.Unlock()
}

// forEachLive calls fn for every live entity, block by block.
func (a *EntityAllocator) forEachLive(fn func(Entity)) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, n := range a.owned {
		b := a.blocks[n]
		for w, word := range b.alive {
			for word != 0 {
				bit := uint32(bits.TrailingZeros64(word))
				word &^= uint64(1) << bit
				off := uint32(w)*64 + bit
				fn(Entity{Index: b.start + off, Generation: b.versions[off]})
			}
		}
	}
}
