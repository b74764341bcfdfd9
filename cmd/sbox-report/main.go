// Copyright 2025 Josh Morgan. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package main prints the derived constants and substitution-table quality
// report for one or more table sizes. Useful for eyeballing whether a
// particular size landed on good primes and well-mixed tables before
// committing to a long evaluation sweep.
//
//	sbox-report -table_sizes 65536,100000,1048576 -seed 42
package main

import (
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"goldenhash"
)

func main() {
	sizeList := flag.String("table_sizes", "65536", "Comma-separated table sizes to report on")
	seed := flag.Uint64("seed", 0x5eed, "Hash construction seed")
	flag.Parse()

	for _, part := range strings.Split(*sizeList, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		size, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			log.Fatalf("bad table size %q: %v", part, err)
		}
		report(size, *seed)
	}
}

func report(size, seed uint64) {
	h, err := goldenhash.New(size, seed)
	if err != nil {
		log.Fatalf("construct hasher for N=%d: %v", size, err)
	}
	cfg := h.Config()

	sep := strings.Repeat("-", 72)
	fmt.Println(sep)
	fmt.Printf("Table size %d (seed %#x)\n", size, seed)
	fmt.Println(sep)
	fmt.Printf("  %-14s %d\n", "prime_high", cfg.PrimeHigh)
	fmt.Printf("  %-14s %d\n", "prime_low", cfg.PrimeLow)
	fmt.Printf("  %-14s %d\n", "prime_mixed", cfg.PrimeMixed)
	fmt.Printf("  %-14s %d\n", "prime_product", cfg.PrimeProduct)
	fmt.Printf("  %-14s %d\n", "working_mod", cfg.WorkingMod)
	fmt.Printf("  %-14s %#x\n", "initial_hash", cfg.InitialHash)
	fmt.Printf("  %-14s %v\n", "factors", cfg.Factors)
	fmt.Printf("  %-14s %d\n", "sig_bits", cfg.SignificantBits())
	if cfg.Degraded {
		fmt.Println("  WARNING: prime search exhausted its radius; constants are degraded")
	}

	fmt.Printf("\n  %-6s %8s %12s %12s %14s %14s\n",
		"sbox", "unused", "freq_stddev", "adj_aval", "diff_uniform", "affine_dist")
	for _, st := range h.AnalyzeSBoxes() {
		fmt.Printf("  %-6d %8d %12.3f %12.3f %14d %14d\n",
			st.Table, st.UnusedOutputs, st.OutputFreqStdDev, st.AdjacentAvalanche,
			st.DifferentialUniformity, st.AffineDistance)
	}
	fmt.Println()
}
