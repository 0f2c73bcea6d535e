//go:build !unix

package mmfile

import "fmt"

// MapAnon allocates size bytes of zeroed memory. On platforms without an
// mmap implementation the region comes from the Go heap; callers see the
// same contract either way.
func MapAnon(size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, fmt.Errorf("mmfile: invalid mapping size %d", size)
	}
	data := make([]byte, size)
	return data, func() error { return nil }, nil
}
