package mem

// Handle is the caller-held capability for one allocated region: a view of
// Len bytes at Off inside the store identified by Arena. Epoch records the
// issuing allocator's epoch at allocation time; allocators bump their epoch
// on reset or collection, so a stale handle is rejected instead of aliasing
// whatever lives at that offset now.
//
// Between allocation and free, the caller owns [Off, Off+Len) exclusively.
// Live handles issued by one allocator instance never overlap.
type Handle struct {
	Arena uint32
	Off   int64
	Len   int64
	Epoch uint32
}

// End returns the exclusive end offset of the handle's region.
func (h Handle) End() int64 {
	return h.Off + h.Len
}

// Overlaps reports whether two handles from the same arena share bytes.
// Handles from different arenas never overlap by definition.
func (h Handle) Overlaps(other Handle) bool {
	if h.Arena != other.Arena {
		return false
	}
	return h.Off < other.End() && other.Off < h.End()
}
