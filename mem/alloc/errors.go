package alloc

import "errors"

var (
	// ErrOutOfMemory indicates the request cannot currently be satisfied.
	// The caller may retry after freeing memory.
	ErrOutOfMemory = errors.New("alloc: out of memory")

	// ErrOversized indicates the request exceeds the maximum size this
	// strategy can ever serve. Fatal for the request, not transient.
	ErrOversized = errors.New("alloc: request exceeds maximum serviceable size")

	// ErrBadHandle indicates a handle that is not currently live: a
	// double-free, a handle from another allocator or store, or a handle
	// invalidated by a reset or collection.
	ErrBadHandle = errors.New("alloc: bad handle")

	// ErrStackOrder indicates a Pop with no matching Push.
	ErrStackOrder = errors.New("alloc: pop without matching push")

	// ErrBadSize indicates a non-positive allocation size.
	ErrBadSize = errors.New("alloc: size must be positive")

	// ErrBadConfig indicates invalid construction parameters.
	ErrBadConfig = errors.New("alloc: bad config")
)
