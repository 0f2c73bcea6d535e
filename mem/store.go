package mem

import (
	"fmt"
	"sync/atomic"

	"github.com/arenakit/arenakit/internal/buf"
	"github.com/arenakit/arenakit/internal/mmfile"
)

// nextArenaID hands out process-unique store identifiers. Handles embed the
// identifier so a handle from one store can never free memory in another.
var nextArenaID atomic.Uint32

// Store is a fixed-capacity contiguous byte region that allocation
// strategies carve disjoint regions out of. The Store itself does no
// bookkeeping; every invariant over its bytes belongs to the allocator
// that owns it.
//
// Offsets are zero-based. Buddy-style XOR address arithmetic is only sound
// over a zero-based region whose capacity is a power of two; owners that
// rely on it must validate capacity with IsPowerOfTwo at construction.
type Store struct {
	data    []byte
	id      uint32
	cleanup func() error // non-nil for mapped stores
}

// NewStore creates a heap-backed store of exactly capacity bytes, zeroed.
func NewStore(capacity int64) (*Store, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("mem: store capacity must be positive, got %d", capacity)
	}
	return &Store{
		data: make([]byte, capacity),
		id:   nextArenaID.Add(1),
	}, nil
}

// NewMappedStore creates a store of exactly capacity bytes backed by an
// anonymous memory mapping. The mapping lives outside the Go heap; callers
// must Close the store to release it.
func NewMappedStore(capacity int64) (*Store, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("mem: store capacity must be positive, got %d", capacity)
	}
	if capacity > int64(^uint(0)>>1) {
		return nil, fmt.Errorf("mem: store capacity %d too large to map", capacity)
	}
	data, cleanup, err := mmfile.MapAnon(int(capacity))
	if err != nil {
		return nil, err
	}
	return &Store{
		data:    data,
		id:      nextArenaID.Add(1),
		cleanup: cleanup,
	}, nil
}

// ID returns the store's process-unique arena identifier.
func (s *Store) ID() uint32 {
	return s.id
}

// Capacity returns the fixed byte capacity chosen at construction.
func (s *Store) Capacity() int64 {
	return int64(len(s.data))
}

// Bytes returns the store's entire backing region.
func (s *Store) Bytes() []byte {
	return s.data
}

// Slice returns the n bytes starting at off. An out-of-range request is a
// precondition violation by the owning allocator and panics.
func (s *Store) Slice(off, n int64) []byte {
	b, ok := buf.Slice(s.data, off, n)
	if !ok {
		panic(fmt.Sprintf("mem: slice [%d:%d) out of range for store of %d bytes",
			off, off+n, len(s.data)))
	}
	return b
}

// Zero clears the n bytes starting at off. Panics when out of range.
func (s *Store) Zero(off, n int64) {
	clear(s.Slice(off, n))
}

// View constructs a Handle for the region [off, off+n) stamped with the
// issuing allocator's epoch. Panics when the region does not fit, matching
// the Slice contract.
func (s *Store) View(off, n int64, epoch uint32) Handle {
	if !buf.Has(s.data, off, n) {
		panic(fmt.Sprintf("mem: view [%d:%d) out of range for store of %d bytes",
			off, off+n, len(s.data)))
	}
	return Handle{Arena: s.id, Off: off, Len: n, Epoch: epoch}
}

// Owns reports whether h was issued against this store.
func (s *Store) Owns(h Handle) bool {
	return h.Arena == s.id
}

// Close releases a mapped store's memory. Heap-backed stores have nothing
// to release; Close is always safe to call and is idempotent.
func (s *Store) Close() error {
	if s.cleanup == nil {
		return nil
	}
	err := s.cleanup()
	s.cleanup = nil
	s.data = nil
	return err
}

// IsPowerOfTwo reports whether v is a positive power of two.
func IsPowerOfTwo(v int64) bool {
	return v > 0 && v&(v-1) == 0
}
