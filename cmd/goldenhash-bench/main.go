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

// Package main provides the evaluation harness entry point.
//
// goldenhash-bench sweeps one or more hash algorithms across a list of
// table sizes, running the two-phase evaluation (timed throughput pass,
// then a metrics pass feeding the sharded collision counter and the
// statistical accumulators) for each combination. Results stream to stdout
// and optionally to a JSONL file, a SQLite history database, or Redis.
//
// A quick tour:
//
//	goldenhash-bench -table_sizes 65536,1048576 -inputs 1000000
//	goldenhash-bench -algorithms goldenhash,xxhash64,fnv64a -backend memory
//	goldenhash-bench -record_store sqlite -record_db runs.db
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/bits"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"goldenhash/internal/harness/algorithms"
	"goldenhash/internal/harness/core"
	"goldenhash/internal/harness/persistence"
	"goldenhash/internal/harness/telemetry/progress"
	"goldenhash/internal/sinks"
)

func main() {
	// Sweep shape:
	// - algorithms: comma-separated names to evaluate
	// - table_sizes: comma-separated output ranges to sweep
	// - inputs: corpus size per run
	// - workers: evaluation concurrency (also corpus partitioning)
	// - seed: corpus and hash seed, fixed for reproducible sweeps
	algoList := flag.String("algorithms", "goldenhash", "Comma-separated algorithms to evaluate (goldenhash, xxhash64, fnv64a)")
	sizeList := flag.String("table_sizes", "65536", "Comma-separated table sizes to sweep")
	inputs := flag.Int("inputs", 100000, "Corpus items per run")
	workers := flag.Int("workers", 4, "Evaluation concurrency; the corpus is partitioned into this many disjoint slices")
	seed := flag.Uint64("seed", 0x5eed, "Seed for corpus generation and hash construction")
	warmup := flag.Int("warmup", 1000, "Items each worker hashes before the timed pass")

	// Storage knobs:
	// - backend: collision counter storage; auto probes available memory
	// - corpus_backend: where generated inputs live during the run
	backend := flag.String("backend", "auto", "Collision counter backend: auto, memory, sqlite")
	corpusBackend := flag.String("corpus_backend", "memory", "Corpus storage: memory or sqlite")

	// Output and persistence:
	resultPath := flag.String("results", "", "If non-empty, append results as JSON lines to this file")
	recordStore := flag.String("record_store", "", "Record store adapter: none, sqlite, redis")
	recordDB := flag.String("record_db", "goldenhash-records.db", "SQLite path for -record_store sqlite")
	redisAddr := flag.String("redis_addr", "", "Redis address for -record_store redis; empty logs pushes instead")

	// Telemetry flags (opt-in).
	telemetryEnabled := flag.Bool("telemetry", false, "Enable in-process progress telemetry (opt-in)")
	metricsAddr := flag.String("metrics_addr", "", "If non-empty, expose Prometheus /metrics on this address (e.g., :9090)")
	logInterval := flag.Duration("progress_log_interval", 15*time.Second, "If > 0, periodically log sweep progress. 0 disables.")
	flag.Parse()

	// Capture configuration for the final summary.
	core.SetThreshold("algorithms", *algoList)
	core.SetThreshold("table_sizes", *sizeList)
	core.SetThresholdInt64("inputs", int64(*inputs))
	core.SetThresholdInt64("workers", int64(*workers))
	core.SetThresholdUint64("seed", *seed)
	core.SetThreshold("backend", *backend)
	core.SetThreshold("corpus_backend", *corpusBackend)
	core.SetThreshold("record_store", *recordStore)
	core.SetThresholdBool("telemetry", *telemetryEnabled)

	progress.Enable(progress.Config{
		Enabled:     *telemetryEnabled,
		MetricsAddr: *metricsAddr,
		LogInterval: *logInterval,
	})

	counterBackend, err := core.ParseBackend(*backend)
	if err != nil {
		log.Fatalf("bad -backend: %v", err)
	}
	sizes, err := parseSizes(*sizeList)
	if err != nil {
		log.Fatalf("bad -table_sizes: %v", err)
	}
	algos := strings.Split(*algoList, ",")

	store, err := persistence.BuildRecordStore(*recordStore, persistence.Options{
		SQLitePath: *recordDB,
		RedisAddr:  *redisAddr,
	})
	if err != nil {
		log.Fatalf("build record store: %v", err)
	}

	var sink *sinks.ResultFileSink
	if *resultPath != "" {
		sink, err = sinks.NewResultFileSink(*resultPath)
		if err != nil {
			log.Fatalf("open result sink: %v", err)
		}
	}

	// Cancel cleanly on Ctrl+C: the orchestrator checks the context
	// between items, so a signal ends the sweep at the next item boundary
	// and the flush and final summary below still run.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// The corpus does not depend on table size, so one generation serves
	// the whole sweep.
	slices, err := buildCorpus(*corpusBackend, *inputs, *workers, int64(*seed))
	if err != nil {
		log.Fatalf("generate corpus: %v", err)
	}

	exitCode := 0
sweep:
	for _, size := range sizes {
		for _, algo := range algos {
			algo = strings.TrimSpace(algo)
			res, err := runOne(ctx, algo, size, *seed, *workers, *warmup, counterBackend, store, slices)
			if err != nil {
				if ctx.Err() != nil {
					fmt.Println("\nsweep interrupted")
					break sweep
				}
				log.Printf("run %s N=%d failed: %v", algo, size, err)
				exitCode = 1
				continue
			}
			fmt.Println(res.String())
			if sink != nil {
				if err := sink.Write(res); err != nil {
					log.Printf("write result: %v", err)
					exitCode = 1
				}
			}
		}
	}

	for _, s := range slices {
		s.Close()
	}
	if sink != nil {
		if err := sink.Close(); err != nil {
			log.Printf("close result sink: %v", err)
		}
	}
	if err := store.Close(); err != nil {
		log.Printf("close record store: %v", err)
	}
	core.PrintFinalSummary()
	os.Exit(exitCode)
}

// runOne evaluates one algorithm at one table size over an already
// generated corpus.
func runOne(ctx context.Context, algo string, size, seed uint64, workers, warmup int,
	backend core.Backend, store core.RecordStore, slices []core.TestData) (*core.ComparisonResult, error) {

	fn, degraded, err := algorithms.Build(algo, size, seed)
	if err != nil {
		return nil, err
	}
	orch, err := core.NewOrchestrator(core.RunConfig{
		Algorithm:   algo,
		TableSize:   size,
		SigBits:     significantBits(size),
		Workers:     workers,
		WarmupIters: warmup,
		Backend:     backend,
		Store:       store,
		Degraded:    degraded,
		Progress:    progress.ObserveProgress,
	})
	if err != nil {
		return nil, err
	}
	start := time.Now()
	res, err := orch.Run(ctx, fn, slices)
	if err != nil {
		return nil, err
	}
	progress.ObserveHashes(2 * res.Inputs)
	progress.ObserveRun(time.Since(start), res.Duplicates, res.CollisionRatio, res.Avalanche)
	return res, nil
}

// buildCorpus generates a partitioned corpus on the selected storage.
func buildCorpus(backend string, total, workers int, seed int64) ([]core.TestData, error) {
	switch backend {
	case "memory":
		return core.GenerateCorpus(total, workers, seed, func(int) (core.TestData, error) {
			return core.NewMemoryTestData(), nil
		})
	case "sqlite":
		dir, err := os.MkdirTemp("", "goldenhash-corpus-")
		if err != nil {
			return nil, err
		}
		return core.GenerateCorpus(total, workers, seed, func(w int) (core.TestData, error) {
			return core.NewSQLiteTestData(filepath.Join(dir, fmt.Sprintf("corpus_%02d.db", w)))
		})
	default:
		return nil, fmt.Errorf("unknown corpus backend %q (memory or sqlite)", backend)
	}
}

func parseSizes(s string) ([]uint64, error) {
	var out []uint64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("size %q: %w", part, err)
		}
		if v == 0 {
			return nil, fmt.Errorf("size must be positive")
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no table sizes given")
	}
	return out, nil
}

// significantBits is the number of output bits the avalanche probe scores:
// the width of the largest representable index, with a floor of one.
func significantBits(size uint64) int {
	n := bits.Len64(size - 1)
	if n < 1 {
		n = 1
	}
	return n
}
