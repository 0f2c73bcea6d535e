package workload

import (
	"io"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Report writes a human-readable summary of the run to w. Counts are
// printed with locale-aware grouping since realistic runs reach into the
// millions of operations.
func (r Result) Report(w io.Writer, name string) {
	p := message.NewPrinter(language.English)

	p.Fprintf(w, "%s\n", name)
	p.Fprintf(w, "  allocs:          %d\n", r.Allocs)
	p.Fprintf(w, "  frees:           %d\n", r.Frees)
	if r.Stale > 0 {
		p.Fprintf(w, "  stale handles:   %d\n", r.Stale)
	}
	if r.OutOfMemory > 0 {
		p.Fprintf(w, "  out of memory:   %d\n", r.OutOfMemory)
	}
	if r.Failures > 0 {
		p.Fprintf(w, "  failures:        %d\n", r.Failures)
	}
	p.Fprintf(w, "  bytes allocated: %d\n", r.BytesAllocated)
	p.Fprintf(w, "  elapsed:         %s\n", r.Elapsed.Round(time.Microsecond))
	if r.Elapsed > 0 && r.Allocs > 0 {
		perSec := float64(r.Allocs) / r.Elapsed.Seconds()
		p.Fprintf(w, "  throughput:      %.0f allocs/s\n", perSec)
	}
	p.Fprintf(w, "  final state:     %d bytes live, %d free, %.1f%% fragmentation\n",
		r.Final.AllocatedBytes, r.Final.FreeBytes, r.Final.FragmentationPct)
}
