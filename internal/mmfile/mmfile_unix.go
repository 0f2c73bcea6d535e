//go:build unix

// Package mmfile provides anonymous memory mappings for off-heap backing
// stores, with a heap-allocated fallback on platforms without mmap.
package mmfile

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// MapAnon maps size bytes of zeroed anonymous memory and returns the region
// together with a cleanup function that unmaps it. The region lives outside
// the Go heap, so large arenas add no garbage collector pressure.
func MapAnon(size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, fmt.Errorf("mmfile: invalid mapping size %d", size)
	}
	data, err := unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, fmt.Errorf("mmfile: anonymous mmap of %d bytes: %w", size, err)
	}
	cleanup := func() error {
		if data == nil {
			return nil
		}
		err := unix.Munmap(data)
		if errors.Is(err, unix.EINVAL) {
			// Treat double-unmap as no-op for callers.
			return nil
		}
		data = nil
		return err
	}
	return data, cleanup, nil
}
