// Package workload drives allocation strategies with synthetic
// allocate/free traffic and reports what happened. It sits at the boundary
// the benchmarking driver occupies: it only ever talks to an allocator
// through the shared strategy surface.
package workload

import (
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"time"

	"github.com/arenakit/arenakit/internal/buf"
	"github.com/arenakit/arenakit/mem"
	"github.com/arenakit/arenakit/mem/alloc"
)

// Config describes one synthetic run.
type Config struct {
	// Ops is the number of operations to attempt.
	Ops int

	// MinSize and MaxSize bound the uniform request-size distribution.
	MinSize, MaxSize int64

	// FreeRatio is the probability in [0, 1] that an operation frees a
	// previously allocated handle instead of allocating a new one.
	FreeRatio float64

	// Seed fixes the random sequence so runs are reproducible.
	Seed int64

	// Verify stamps each allocation's first bytes with its sequence
	// number and checks the stamp before freeing, catching strategies
	// that hand out overlapping regions. Leave it off for strategies
	// that relocate memory (the generational pool), where an old handle
	// no longer names the allocation's bytes.
	Verify bool

	// Logger receives per-run debug logging; nil discards it.
	Logger *slog.Logger
}

// Result summarizes one run.
type Result struct {
	Allocs      int
	Frees       int
	OutOfMemory int

	// Stale counts frees rejected with ErrBadHandle because the
	// strategy had already invalidated the handle (reset, collection).
	Stale    int
	Failures int

	BytesAllocated int64
	Elapsed        time.Duration
	Final          alloc.Stats
}

// Run executes cfg against a. With Verify set, each allocation's first
// bytes are stamped with its sequence number through the store and checked
// before free, so a strategy that hands out overlapping regions fails the
// run instead of silently corrupting payloads.
func Run(a alloc.Allocator, store *mem.Store, cfg Config) (Result, error) {
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Ops <= 0 {
		return Result{}, errors.New("workload: ops must be positive")
	}
	if cfg.MinSize <= 0 || cfg.MaxSize < cfg.MinSize {
		return Result{}, errors.New("workload: bad size range")
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	var res Result

	type liveAlloc struct {
		h     mem.Handle
		stamp uint64
	}
	var live []liveAlloc
	var seq uint64

	start := time.Now()
	for op := 0; op < cfg.Ops; op++ {
		if len(live) > 0 && rng.Float64() < cfg.FreeRatio {
			i := rng.Intn(len(live))
			la := live[i]

			if cfg.Verify && la.h.Len >= 8 {
				got := buf.U64LE(store.Slice(la.h.Off, 8))
				if got != la.stamp {
					log.Error("stamp mismatch", "off", la.h.Off, "want", la.stamp, "got", got)
					res.Failures++
				}
			}
			switch err := a.Free(la.h); {
			case err == nil:
				res.Frees++
			case errors.Is(err, alloc.ErrBadHandle):
				res.Stale++
				log.Debug("stale handle", "off", la.h.Off)
			default:
				log.Error("free failed", "off", la.h.Off, "err", err)
				res.Failures++
			}
			live[i] = live[len(live)-1]
			live = live[:len(live)-1]
			continue
		}

		size := cfg.MinSize
		if cfg.MaxSize > cfg.MinSize {
			size += rng.Int63n(cfg.MaxSize - cfg.MinSize + 1)
		}
		h, err := a.Allocate(size)
		switch {
		case err == nil:
			seq++
			if cfg.Verify && h.Len >= 8 {
				buf.PutU64LE(store.Slice(h.Off, 8), seq)
			}
			live = append(live, liveAlloc{h: h, stamp: seq})
			res.Allocs++
			res.BytesAllocated += h.Len
		case errors.Is(err, alloc.ErrOutOfMemory):
			res.OutOfMemory++
			log.Debug("out of memory", "op", op, "size", size, "live", len(live))
		default:
			res.Failures++
			log.Error("allocate failed", "op", op, "size", size, "err", err)
		}
	}

	// Drain what's still live so the final stats show a clean heap for
	// strategies with individual free.
	for _, la := range live {
		if err := a.Free(la.h); err == nil {
			res.Frees++
		}
	}

	res.Elapsed = time.Since(start)
	res.Final = a.Stats()
	return res, nil
}
