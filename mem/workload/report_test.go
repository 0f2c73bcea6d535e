package workload

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/arenakit/arenakit/mem/alloc"
)

func TestReport_Formatting(t *testing.T) {
	res := Result{
		Allocs:         1234567,
		Frees:          1234567,
		BytesAllocated: 1 << 30,
		Elapsed:        1500 * time.Millisecond,
		Final:          alloc.Stats{FreeBytes: 4096, FragmentationPct: 100},
	}

	var sb strings.Builder
	res.Report(&sb, "slab")
	out := sb.String()

	assert.Contains(t, out, "slab\n")
	assert.Contains(t, out, "1,234,567", "counts should use locale grouping")
	assert.Contains(t, out, "throughput:")
	assert.NotContains(t, out, "stale handles", "zero counters should be omitted")
	assert.NotContains(t, out, "failures")
}

func TestReport_ShowsProblemCounters(t *testing.T) {
	res := Result{Allocs: 10, Stale: 3, OutOfMemory: 2, Failures: 1, Elapsed: time.Millisecond}

	var sb strings.Builder
	res.Report(&sb, "gen")
	out := sb.String()

	assert.Contains(t, out, "stale handles:   3")
	assert.Contains(t, out, "out of memory:   2")
	assert.Contains(t, out, "failures:        1")
}
