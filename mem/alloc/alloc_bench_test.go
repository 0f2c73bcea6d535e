package alloc

import (
	"testing"

	"github.com/arenakit/arenakit/mem"
)

func benchStore(b *testing.B, capacity int64) *mem.Store {
	b.Helper()
	s, err := mem.NewStore(capacity)
	if err != nil {
		b.Fatal(err)
	}
	return s
}

// BenchmarkSlab_AllocFree measures steady-state slab throughput: after the
// first round every allocation is a free-list pop.
func BenchmarkSlab_AllocFree(b *testing.B) {
	s, err := NewSlab(benchStore(b, 1<<20), nil)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		size := int64(64 + (i%8)*64) // 64-512 bytes
		h, err := s.Allocate(size)
		if err != nil {
			b.Fatal(err)
		}
		if err := s.Free(h); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkBuddy_AllocFree measures buddy split/merge cost: each iteration
// splits the root block down and merges it back.
func BenchmarkBuddy_AllocFree(b *testing.B) {
	bd, err := NewBuddy(benchStore(b, 1<<20), nil)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		size := int64(64 << (i % 5)) // 64-1024 bytes
		h, err := bd.Allocate(size)
		if err != nil {
			b.Fatal(err)
		}
		if err := bd.Free(h); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkStack_Alloc measures raw bump allocation cost with a periodic
// push/pop to keep the region from filling.
func BenchmarkStack_Alloc(b *testing.B) {
	st := NewStack(benchStore(b, 1<<20))

	b.ResetTimer()
	b.ReportAllocs()

	st.Push()
	for n := 0; n < b.N; n++ {
		if _, err := st.Allocate(128); err != nil {
			if err := st.Pop(); err != nil {
				b.Fatal(err)
			}
			st.Push()
			if _, err := st.Allocate(128); err != nil {
				b.Fatal(err)
			}
		}
	}
}

// BenchmarkLocalPool_AllocFree measures the cached fast path for one owner.
func BenchmarkLocalPool_AllocFree(b *testing.B) {
	p, err := NewLocalPool(benchStore(b, 1<<20), nil)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for n := 0; n < b.N; n++ {
		h, err := p.Allocate(1, 128)
		if err != nil {
			b.Fatal(err)
		}
		if err := p.Free(1, h); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkGenPool_AllocWithCollections measures allocation with the minor
// collections the bump path triggers as young fills.
func BenchmarkGenPool_AllocWithCollections(b *testing.B) {
	g, err := NewGenPool(benchStore(b, 1<<20), nil)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for n := 0; n < b.N; n++ {
		h, err := g.Allocate(256)
		if err != nil {
			b.Fatal(err)
		}
		if err := g.Free(h); err != nil {
			b.Fatal(err)
		}
	}
}
