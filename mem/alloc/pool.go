package alloc

import (
	"fmt"

	"github.com/arenakit/arenakit/mem"
)

// OwnerID identifies one logical owner of a LocalPool. Owners stand in for
// threads: each owner's cache is accessed by a single caller at a time, so
// no synchronization is exercised or required.
type OwnerID uint32

// Default LocalPool parameters, used when the corresponding PoolConfig
// field is zero.
const (
	DefaultObjectSize   = 256
	DefaultPoolCapacity = 32
)

// PoolConfig configures a LocalPool.
type PoolConfig struct {
	// ObjectSize is the uniform block size in bytes. Every allocation
	// occupies exactly one block.
	ObjectSize int64

	// PoolCapacity bounds each owner's cache. Blocks freed beyond the
	// bound are dropped rather than cached, so idle owners cannot grow
	// without limit.
	PoolCapacity int
}

// LocalPool caches fixed-size blocks per owner. Because blocks are
// uniform there is no split or merge logic, and because caches are
// partitioned by owner there is no contention: a block freed by owner A
// is never handed to owner B.
//
// When an owner's cache is full, a freed block is dropped. The backing
// store has no reclamation of its own, so dropped blocks become dead
// space; the trade is bounded per-owner memory for zero sharing.
type LocalPool struct {
	store      *mem.Store
	objectSize int64
	poolCap    int

	pools map[OwnerID][]int64

	// live tracks currently allocated offsets so double-frees are
	// rejected instead of caching the same block twice.
	live map[int64]struct{}

	// next is the carve pointer for fresh blocks.
	next int64

	epoch        uint32
	liveBytes    int64
	pooledBytes  int64
	droppedBytes int64
}

// NewLocalPool creates a per-owner pool over the given store. A nil cfg
// uses the package defaults.
func NewLocalPool(store *mem.Store, cfg *PoolConfig) (*LocalPool, error) {
	objectSize := int64(DefaultObjectSize)
	poolCap := DefaultPoolCapacity
	if cfg != nil {
		if cfg.ObjectSize != 0 {
			objectSize = cfg.ObjectSize
		}
		if cfg.PoolCapacity != 0 {
			poolCap = cfg.PoolCapacity
		}
	}
	if objectSize <= 0 {
		return nil, fmt.Errorf("%w: pool object size %d", ErrBadConfig, objectSize)
	}
	if poolCap <= 0 {
		return nil, fmt.Errorf("%w: pool capacity %d", ErrBadConfig, poolCap)
	}
	return &LocalPool{
		store:      store,
		objectSize: objectSize,
		poolCap:    poolCap,
		pools:      make(map[OwnerID][]int64),
		live:       make(map[int64]struct{}),
		epoch:      1,
	}, nil
}

// Allocate returns a block for the given owner: the owner's cached block
// if one is available, otherwise a fresh carve from the store. size must
// fit the uniform block size.
func (p *LocalPool) Allocate(owner OwnerID, size int64) (mem.Handle, error) {
	if size <= 0 {
		return mem.Handle{}, ErrBadSize
	}
	if size > p.objectSize {
		return mem.Handle{}, ErrOversized
	}

	if q := p.pools[owner]; len(q) > 0 {
		off := q[len(q)-1]
		p.pools[owner] = q[:len(q)-1]
		p.pooledBytes -= p.objectSize
		p.liveBytes += p.objectSize
		p.live[off] = struct{}{}
		return p.store.View(off, p.objectSize, p.epoch), nil
	}

	if p.next+p.objectSize > p.store.Capacity() {
		return mem.Handle{}, ErrOutOfMemory
	}
	off := p.next
	p.next += p.objectSize
	p.liveBytes += p.objectSize
	p.live[off] = struct{}{}
	return p.store.View(off, p.objectSize, p.epoch), nil
}

// Free zero-fills the block and caches it for the owner. When the owner's
// cache is at capacity the block is dropped instead, keeping per-owner
// memory bounded.
func (p *LocalPool) Free(owner OwnerID, h mem.Handle) error {
	if !p.store.Owns(h) || h.Epoch != p.epoch || h.Len != p.objectSize {
		return ErrBadHandle
	}
	if _, ok := p.live[h.Off]; !ok {
		return ErrBadHandle
	}
	delete(p.live, h.Off)
	p.store.Zero(h.Off, h.Len)
	p.liveBytes -= p.objectSize

	q := p.pools[owner]
	if len(q) < p.poolCap {
		p.pools[owner] = append(q, h.Off)
		p.pooledBytes += p.objectSize
		return nil
	}
	p.droppedBytes += p.objectSize
	return nil
}

// Owner returns an Allocator view bound to one owner, for callers that
// work against the shared strategy surface.
func (p *LocalPool) Owner(id OwnerID) *OwnerPool {
	return &OwnerPool{pool: p, id: id}
}

// PooledFor returns how many blocks the owner's cache currently holds.
func (p *LocalPool) PooledFor(owner OwnerID) int {
	return len(p.pools[owner])
}

// Reset drops every cache and rewinds the carve pointer, invalidating all
// outstanding handles.
func (p *LocalPool) Reset() {
	p.pools = make(map[OwnerID][]int64)
	p.live = make(map[int64]struct{})
	p.next = 0
	p.liveBytes = 0
	p.pooledBytes = 0
	p.droppedBytes = 0
	p.epoch++
	p.store.Zero(0, p.store.Capacity())
}

// Stats reports pool accounting. Dropped blocks are dead space and count
// toward neither allocated nor free bytes.
func (p *LocalPool) Stats() Stats {
	free := p.pooledBytes + (p.store.Capacity() - p.next)
	return Stats{
		AllocatedBytes:   p.liveBytes,
		FreeBytes:        free,
		FragmentationPct: fragmentationPct(free, p.liveBytes),
	}
}

// OwnerPool adapts one owner's slice of a LocalPool to the Allocator
// interface.
type OwnerPool struct {
	pool *LocalPool
	id   OwnerID
}

// Allocate allocates from the bound owner's pool.
func (o *OwnerPool) Allocate(size int64) (mem.Handle, error) {
	return o.pool.Allocate(o.id, size)
}

// Free frees into the bound owner's pool.
func (o *OwnerPool) Free(h mem.Handle) error {
	return o.pool.Free(o.id, h)
}

// Reset resets the underlying LocalPool for all owners.
func (o *OwnerPool) Reset() {
	o.pool.Reset()
}

// Stats reports the underlying LocalPool's accounting.
func (o *OwnerPool) Stats() Stats {
	return o.pool.Stats()
}

// Compile-time interface check
var _ Allocator = (*OwnerPool)(nil)
