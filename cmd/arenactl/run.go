package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arenakit/arenakit/mem"
	"github.com/arenakit/arenakit/mem/alloc"
	"github.com/arenakit/arenakit/mem/workload"
)

var (
	runCapacity  int64
	runOps       int
	runMinSize   int64
	runMaxSize   int64
	runFreeRatio float64
	runSeed      int64
	runMapped    bool
)

func init() {
	cmd := newRunCmd()
	cmd.Flags().Int64Var(&runCapacity, "capacity", 1<<20, "Backing store capacity in bytes")
	cmd.Flags().IntVar(&runOps, "ops", 100000, "Number of operations to attempt")
	cmd.Flags().Int64Var(&runMinSize, "min-size", 16, "Minimum request size in bytes")
	cmd.Flags().Int64Var(&runMaxSize, "max-size", 512, "Maximum request size in bytes")
	cmd.Flags().Float64Var(&runFreeRatio, "free-ratio", 0.5, "Probability an operation frees instead of allocating")
	cmd.Flags().Int64Var(&runSeed, "seed", 1, "Random seed for reproducible runs")
	cmd.Flags().BoolVar(&runMapped, "mapped", false, "Back the store with an anonymous memory mapping")
	rootCmd.AddCommand(cmd)
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <strategy>",
		Short: "Run a synthetic workload against one strategy",
		Long: `The run command executes a random allocate/free workload against the
named strategy and prints a report.

Strategies: slab, buddy, stack, pool, gen, hybrid

Example:
  arenactl run buddy --capacity 1048576 --ops 200000
  arenactl run slab --min-size 32 --max-size 256 --seed 7
  arenactl run gen --free-ratio 0.3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkload(args[0])
		},
	}
}

func runWorkload(strategy string) error {
	store, err := newStore(runCapacity)
	if err != nil {
		return err
	}
	defer store.Close()

	a, verify, extraStore, err := newAllocator(strategy, store)
	if err != nil {
		return err
	}
	if extraStore != nil {
		defer extraStore.Close()
	}

	res, err := workload.Run(a, store, workload.Config{
		Ops:       runOps,
		MinSize:   runMinSize,
		MaxSize:   runMaxSize,
		FreeRatio: runFreeRatio,
		Seed:      runSeed,
		Verify:    verify,
		Logger:    newLogger(),
	})
	if err != nil {
		return err
	}

	res.Report(os.Stdout, strategy)
	if g, ok := a.(*alloc.GenPool); ok {
		gs := g.GenStats()
		fmt.Printf("  young/old util:  %.1f%% / %.1f%% (%d collections, %d promotions)\n",
			gs.YoungUtilizationPct, gs.OldUtilizationPct,
			gs.MinorCollections, gs.Promotions)
	}
	return nil
}

func newStore(capacity int64) (*mem.Store, error) {
	if runMapped {
		return mem.NewMappedStore(capacity)
	}
	return mem.NewStore(capacity)
}

// newAllocator builds the named strategy over store. The second return
// disables payload verification for strategies that relocate memory or
// split allocations across a second store the harness cannot see. Some
// strategies need a second store; it is returned for cleanup.
func newAllocator(strategy string, store *mem.Store) (alloc.Allocator, bool, *mem.Store, error) {
	switch strategy {
	case "slab":
		s, err := alloc.NewSlab(store, nil)
		return s, true, nil, err
	case "buddy":
		b, err := alloc.NewBuddy(store, nil)
		return b, true, nil, err
	case "stack":
		return alloc.NewStack(store), true, nil, nil
	case "pool":
		p, err := alloc.NewLocalPool(store, &alloc.PoolConfig{ObjectSize: runMaxSize})
		if err != nil {
			return nil, false, nil, err
		}
		// A single-owner view is enough to exercise the cache here.
		return p.Owner(1), true, nil, nil
	case "gen":
		g, err := alloc.NewGenPool(store, nil)
		return g, false, nil, err
	case "hybrid":
		buddyStore, err := newStore(runCapacity)
		if err != nil {
			return nil, false, nil, err
		}
		h, err := alloc.NewHybrid(store, buddyStore, nil)
		if err != nil {
			buddyStore.Close()
			return nil, false, nil, err
		}
		return h, false, buddyStore, nil
	default:
		return nil, false, nil, fmt.Errorf("unknown strategy %q (want slab, buddy, stack, pool, gen, or hybrid)", strategy)
	}
}
