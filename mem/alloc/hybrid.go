package alloc

import (
	"errors"
	"fmt"

	"github.com/arenakit/arenakit/mem"
)

// DefaultHybridCutoff is the largest request routed to the slab side when
// HybridConfig.Cutoff is zero.
const DefaultHybridCutoff = 1024

// HybridConfig configures a Hybrid allocator.
type HybridConfig struct {
	// Cutoff is the largest request served by the slab; anything bigger
	// goes to the buddy. DefaultHybridCutoff when zero.
	Cutoff int64

	// Slab configures the slab side; nil for defaults.
	Slab *SlabConfig

	// Buddy configures the buddy side; nil for defaults.
	Buddy *BuddyConfig
}

// Hybrid routes small requests to a slab and large ones to a buddy, each
// over its own store. Small allocations get the slab's O(1) class reuse;
// large ones get the buddy's splitting and merging. When the slab side is
// exhausted, small requests fall through to the buddy rather than failing.
//
// Frees route by the handle's arena: every handle names the store it was
// carved from, so a slab handle can never release buddy memory.
type Hybrid struct {
	slab   *Slab
	buddy  *Buddy
	cutoff int64
}

// NewHybrid creates a hybrid allocator from two stores. The buddy store
// must satisfy the buddy's power-of-two constraint.
func NewHybrid(slabStore, buddyStore *mem.Store, cfg *HybridConfig) (*Hybrid, error) {
	cutoff := int64(DefaultHybridCutoff)
	var slabCfg *SlabConfig
	var buddyCfg *BuddyConfig
	if cfg != nil {
		if cfg.Cutoff != 0 {
			cutoff = cfg.Cutoff
		}
		slabCfg = cfg.Slab
		buddyCfg = cfg.Buddy
	}
	if cutoff <= 0 {
		return nil, fmt.Errorf("%w: hybrid cutoff %d", ErrBadConfig, cutoff)
	}
	if slabStore.ID() == buddyStore.ID() {
		return nil, fmt.Errorf("%w: hybrid sides must use distinct stores", ErrBadConfig)
	}

	slab, err := NewSlab(slabStore, slabCfg)
	if err != nil {
		return nil, err
	}
	buddy, err := NewBuddy(buddyStore, buddyCfg)
	if err != nil {
		return nil, err
	}
	return &Hybrid{slab: slab, buddy: buddy, cutoff: cutoff}, nil
}

// Allocate routes by size: at or below the cutoff the slab serves the
// request, falling through to the buddy only when the slab store is
// exhausted. Above the cutoff the buddy serves it directly.
func (hy *Hybrid) Allocate(size int64) (mem.Handle, error) {
	if size <= 0 {
		return mem.Handle{}, ErrBadSize
	}
	if size <= hy.cutoff {
		h, err := hy.slab.Allocate(size)
		if errors.Is(err, ErrOutOfMemory) {
			return hy.buddy.Allocate(size)
		}
		return h, err
	}
	return hy.buddy.Allocate(size)
}

// Free routes by the handle's arena tag.
func (hy *Hybrid) Free(h mem.Handle) error {
	if hy.slab.store.Owns(h) {
		return hy.slab.Free(h)
	}
	return hy.buddy.Free(h)
}

// Reset resets both sides.
func (hy *Hybrid) Reset() {
	hy.slab.Reset()
	hy.buddy.Reset()
}

// Stats merges both sides' accounting. The fragmentation figure follows
// the shared formula over the combined totals.
func (hy *Hybrid) Stats() Stats {
	ss := hy.slab.Stats()
	bs := hy.buddy.Stats()
	allocated := ss.AllocatedBytes + bs.AllocatedBytes
	free := ss.FreeBytes + bs.FreeBytes
	return Stats{
		AllocatedBytes:   allocated,
		FreeBytes:        free,
		FragmentationPct: fragmentationPct(free, allocated),
	}
}

// Compile-time interface check
var _ Allocator = (*Hybrid)(nil)
