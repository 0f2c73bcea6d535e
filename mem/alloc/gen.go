package alloc

import (
	"fmt"

	"github.com/arenakit/arenakit/mem"
)

// DefaultPromotionThreshold is the number of minor collections an
// allocation must survive before it moves to the old generation, used
// when GenConfig.PromotionThreshold is zero.
const DefaultPromotionThreshold = 3

// GenConfig configures a GenPool. The backing store must hold at least
// YoungSize + OldSize bytes.
type GenConfig struct {
	// YoungSize is the byte size of the young region, a small
	// fast-cycling bump space at the front of the store.
	YoungSize int64

	// OldSize is the byte size of the old region, placed directly after
	// the young region.
	OldSize int64

	// PromotionThreshold is the survival count (minor collections) at
	// which a young allocation is copied into the old region.
	// DefaultPromotionThreshold when zero.
	PromotionThreshold int
}

// GenPool is a two-generation allocator with a copying minor collection.
// New allocations bump into the young region; each minor collection ages
// every young allocation, copies those that reached the promotion
// threshold into the old region, and compacts the rest to the front of a
// fresh young region. Promoted allocations are never visited by minor
// collection again.
//
// A minor collection is stop-the-world with respect to the pool: it runs
// to completion inside Allocate or MinorCollect, and nothing interleaves
// with it.
//
// Collection relocates young allocations, so handles issued before a
// collection go stale: the young epoch bumps and the pre-collection
// handles fail validation. Current handles are available through Live and
// Lookup, keyed by the stable allocation ID.
type GenPool struct {
	store     *mem.Store
	youngSize int64
	oldSize   int64
	threshold int

	youngTop int64
	oldTop   int64 // relative to the old region's base

	youngEpoch uint32
	oldEpoch   uint32

	recs   []genRecord
	nextID uint64

	minorCollections uint64
	promotions       uint64
}

// genRecord is one tracked allocation. The pool models reachability as
// membership in this list, exactly as a benchmark workload would: there
// is no pointer tracing.
type genRecord struct {
	id  uint64
	h   mem.Handle
	age int
	old bool
}

// Record is a caller-visible snapshot of one live allocation.
type Record struct {
	ID     uint64
	Handle mem.Handle
	Age    int
	Old    bool
}

// GenStats extends the shared Stats with generation-specific accounting.
type GenStats struct {
	YoungUtilizationPct float64
	OldUtilizationPct   float64
	TrackedAllocs       int
	MinorCollections    uint64
	Promotions          uint64
}

// NewGenPool creates a generational pool over the given store. A nil cfg
// splits the store capacity 1/4 young, 3/4 old.
func NewGenPool(store *mem.Store, cfg *GenConfig) (*GenPool, error) {
	capacity := store.Capacity()
	youngSize := capacity / 4
	oldSize := capacity - youngSize
	threshold := DefaultPromotionThreshold
	if cfg != nil {
		if cfg.YoungSize != 0 {
			youngSize = cfg.YoungSize
		}
		if cfg.OldSize != 0 {
			oldSize = cfg.OldSize
		}
		if cfg.PromotionThreshold != 0 {
			threshold = cfg.PromotionThreshold
		}
	}
	if youngSize <= 0 || oldSize <= 0 {
		return nil, fmt.Errorf("%w: generation sizes young=%d old=%d", ErrBadConfig, youngSize, oldSize)
	}
	if youngSize+oldSize > capacity {
		return nil, fmt.Errorf("%w: generations need %d bytes, store holds %d",
			ErrBadConfig, youngSize+oldSize, capacity)
	}
	if threshold <= 0 {
		return nil, fmt.Errorf("%w: promotion threshold %d", ErrBadConfig, threshold)
	}
	return &GenPool{
		store:      store,
		youngSize:  youngSize,
		oldSize:    oldSize,
		threshold:  threshold,
		youngEpoch: 1,
		oldEpoch:   1,
	}, nil
}

// Allocate bump-allocates in the young region. When young is full it runs
// one minor collection and retries; when the object still does not fit,
// or the collection itself failed, it goes directly to the old region
// with its age pinned at the promotion threshold, so minor collections
// never touch it.
func (g *GenPool) Allocate(size int64) (mem.Handle, error) {
	if size <= 0 {
		return mem.Handle{}, ErrBadSize
	}
	if size > g.youngSize && size > g.oldSize {
		return mem.Handle{}, ErrOversized
	}

	if h, ok := g.bumpYoung(size); ok {
		g.track(h, 0, false)
		return h, nil
	}

	// The one internal retry in the package: collect, then try again. A
	// failed collection (promotions would not fit old) is not final; the
	// request itself may still fit old's remainder below.
	if err := g.MinorCollect(); err == nil {
		if h, ok := g.bumpYoung(size); ok {
			g.track(h, 0, false)
			return h, nil
		}
	}

	// Too large to cycle through young right now; place in old directly.
	if h, ok := g.bumpOld(size); ok {
		g.track(h, g.threshold, true)
		return h, nil
	}
	return mem.Handle{}, ErrOutOfMemory
}

// Free drops the matching live record, removing the allocation from all
// future collection bookkeeping. Handles invalidated by a collection
// return ErrBadHandle; the current handle for an allocation is available
// via Lookup.
func (g *GenPool) Free(h mem.Handle) error {
	if !g.store.Owns(h) {
		return ErrBadHandle
	}
	for i := range g.recs {
		if g.recs[i].h == h {
			g.recs = append(g.recs[:i], g.recs[i+1:]...)
			return nil
		}
	}
	return ErrBadHandle
}

// MinorCollect runs one minor collection: every young allocation ages by
// one; those at or past the promotion threshold are copied into the old
// region exactly once with their age pinned; the rest are compacted to
// the front of a fresh young region. The young epoch bumps, invalidating
// all previously issued young handles.
//
// Returns ErrOutOfMemory when the old region cannot hold a promoted
// survivor.
func (g *GenPool) MinorCollect() error {
	// Make sure every promotion fits before mutating anything, so a
	// failed collection leaves the pool untouched.
	var promoteBytes int64
	for i := range g.recs {
		if g.recs[i].old {
			continue
		}
		if g.recs[i].age+1 >= g.threshold {
			promoteBytes += g.recs[i].h.Len
		}
	}
	if g.oldTop+promoteBytes > g.oldSize {
		return ErrOutOfMemory
	}

	g.minorCollections++
	newEpoch := g.youngEpoch + 1
	var newTop int64

	for i := range g.recs {
		r := &g.recs[i]
		if r.old {
			continue
		}
		r.age++

		if r.age >= g.threshold {
			// Promote: copy payload into old, pin the age.
			dst := g.youngSize + g.oldTop
			copy(g.store.Slice(dst, r.h.Len), g.store.Slice(r.h.Off, r.h.Len))
			g.oldTop += r.h.Len
			r.h = g.store.View(dst, r.h.Len, g.oldEpoch)
			r.age = g.threshold
			r.old = true
			g.promotions++
			continue
		}

		// Compact the sub-threshold survivor to the front of the young
		// region. Records sit in allocation order, so the destination
		// never runs ahead of the source and copy handles any overlap.
		if r.h.Off != newTop {
			copy(g.store.Slice(newTop, r.h.Len), g.store.Slice(r.h.Off, r.h.Len))
		}
		r.h = g.store.View(newTop, r.h.Len, newEpoch)
		newTop += r.h.Len
	}

	g.youngTop = newTop
	g.youngEpoch = newEpoch
	return nil
}

// Lookup returns the current handle for a live allocation ID. Collections
// relocate young allocations, so the ID is the stable name for a region.
func (g *GenPool) Lookup(id uint64) (mem.Handle, bool) {
	for i := range g.recs {
		if g.recs[i].id == id {
			return g.recs[i].h, true
		}
	}
	return mem.Handle{}, false
}

// Live returns a snapshot of all tracked allocations in allocation order.
func (g *GenPool) Live() []Record {
	out := make([]Record, len(g.recs))
	for i, r := range g.recs {
		out[i] = Record{ID: r.id, Handle: r.h, Age: r.age, Old: r.old}
	}
	return out
}

// LastID returns the ID assigned to the most recent allocation.
func (g *GenPool) LastID() uint64 {
	return g.nextID
}

// Reset empties both generations and invalidates all outstanding handles.
func (g *GenPool) Reset() {
	g.youngTop = 0
	g.oldTop = 0
	g.recs = nil
	g.youngEpoch++
	g.oldEpoch++
	g.store.Zero(0, g.youngSize+g.oldSize)
}

// Stats reports the shared accounting view: live bytes across both
// generations against the pool's total region.
func (g *GenPool) Stats() Stats {
	allocated := g.youngTop + g.oldTop
	free := (g.youngSize - g.youngTop) + (g.oldSize - g.oldTop)
	return Stats{
		AllocatedBytes:   allocated,
		FreeBytes:        free,
		FragmentationPct: fragmentationPct(free, allocated),
	}
}

// GenStats reports generation-specific utilization and counters.
func (g *GenPool) GenStats() GenStats {
	return GenStats{
		YoungUtilizationPct: 100 * float64(g.youngTop) / float64(g.youngSize),
		OldUtilizationPct:   100 * float64(g.oldTop) / float64(g.oldSize),
		TrackedAllocs:       len(g.recs),
		MinorCollections:    g.minorCollections,
		Promotions:          g.promotions,
	}
}

func (g *GenPool) bumpYoung(size int64) (mem.Handle, bool) {
	if size > g.youngSize-g.youngTop {
		return mem.Handle{}, false
	}
	h := g.store.View(g.youngTop, size, g.youngEpoch)
	g.youngTop += size
	return h, true
}

func (g *GenPool) bumpOld(size int64) (mem.Handle, bool) {
	if size > g.oldSize-g.oldTop {
		return mem.Handle{}, false
	}
	h := g.store.View(g.youngSize+g.oldTop, size, g.oldEpoch)
	g.oldTop += size
	return h, true
}

func (g *GenPool) track(h mem.Handle, age int, old bool) {
	g.nextID++
	g.recs = append(g.recs, genRecord{id: g.nextID, h: h, age: age, old: old})
}

// Compile-time interface check
var _ Allocator = (*GenPool)(nil)
