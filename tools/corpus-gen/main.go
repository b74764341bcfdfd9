// corpus-gen pre-generates an evaluation corpus into SQLite slice files so
// long sweeps can skip generation and multiple machines can share the exact
// same inputs.
//
// The output directory gets one corpus_NN.db per worker slice, in the same
// layout goldenhash-bench builds internally with -corpus_backend=sqlite.
//
// Usage examples:
//
//	corpus-gen -out ./corpus -n 10000000 -workers 8 -seed 42
//	corpus-gen -out ./corpus -n 100000 -workers 1
//
// Prints a one-line summary with duration and approximate item throughput.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"goldenhash/internal/harness/core"
)

func main() {
	var (
		out     = flag.String("out", "corpus", "Output directory for slice databases")
		n       = flag.Int("n", 100000, "Total corpus items to generate")
		workers = flag.Int("workers", 4, "Number of slices; must match the -workers used at evaluation time")
		seed    = flag.Int64("seed", 0x5eed, "Generation seed")
	)
	flag.Parse()

	if *n <= 0 || *workers <= 0 {
		fmt.Fprintln(os.Stderr, "corpus-gen: -n and -workers must be positive")
		os.Exit(2)
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "corpus-gen: create %s: %v\n", *out, err)
		os.Exit(1)
	}

	start := time.Now()
	slices, err := core.GenerateCorpus(*n, *workers, *seed, func(w int) (core.TestData, error) {
		return core.NewSQLiteTestData(filepath.Join(*out, fmt.Sprintf("corpus_%02d.db", w)))
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "corpus-gen: generate: %v\n", err)
		os.Exit(1)
	}
	for _, s := range slices {
		if err := s.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "corpus-gen: close slice: %v\n", err)
			os.Exit(1)
		}
	}

	elapsed := time.Since(start)
	rate := float64(*n) / elapsed.Seconds()
	fmt.Printf("generated %d items in %d slices under %s in %s (%.0f items/s)\n",
		*n, *workers, *out, elapsed.Round(time.Millisecond), rate)
}
