package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List available allocation strategies",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(`slab    Fixed size classes with per-class free lists.
        Parameters: capacity, slab unit (default 64).

buddy   Power-of-two block splitting and merging.
        Parameters: capacity (power of two), min block size (default 64).

stack   Bump pointer with LIFO checkpoint/restore. No individual free.
        Parameters: capacity.

pool    Per-owner cache of uniform blocks; no cross-owner sharing.
        Parameters: capacity, object size (default 256), pool capacity (default 32).

gen     Two-generation copying collector with age-based promotion.
        Parameters: young size, old size, promotion threshold (default 3).

hybrid  Slab for small requests, buddy for large ones, over two stores.
        Parameters: cutoff (default 1024) plus both sides' parameters.
`)
	},
}

func init() {
	rootCmd.AddCommand(strategiesCmd)
}
