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

package core

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// HashFunc evaluates one input to a table index. Implementations must be
// safe for concurrent use and deterministic.
type HashFunc func(data []byte) uint64

// avalancheSampleEvery controls how often the metrics pass runs the full
// per-bit flip probe. Flipping every bit of every input would dominate the
// run, so one input in 1024 is sampled.
const avalancheSampleEvery = 1024

// defaultMaxCollisionRecords caps how many collision pairs are resolved to
// their inputs and persisted. Resolution is a backward scan over the
// worker's corpus slice, so an unbounded cap could turn a collision-heavy
// run quadratic.
const defaultMaxCollisionRecords = 100

// RunConfig describes one evaluation run.
type RunConfig struct {
	// Algorithm names the hash under test in results and records.
	Algorithm string
	// TableSize is the output range [0, TableSize) of the hash.
	TableSize uint64
	// SigBits is the number of low output bits scored by the avalanche
	// probe, normally ceil(log2(TableSize)).
	SigBits int
	// Workers is the evaluation concurrency. Must match the number of
	// corpus slices passed to Run.
	Workers int
	// WarmupIters is how many items each worker hashes before the timed
	// pass starts. Keeps cold caches and branch predictors out of the
	// throughput numbers.
	WarmupIters int
	// Backend selects the collision counter storage, resolved through
	// ChooseBackend when set to BackendAuto.
	Backend Backend
	// Store receives collision and run records. Nil disables persistence.
	Store RecordStore
	// MaxCollisionRecords bounds persisted collision pairs; zero means
	// the default cap.
	MaxCollisionRecords int
	// Degraded is carried into the result when the hash constants came
	// from a failed prime search.
	Degraded bool
	// Progress, when non-nil, is called from worker goroutines with the
	// cumulative number of metrics-pass items processed. It must be
	// cheap and concurrency-safe.
	Progress func(done, total uint64)
}

// Orchestrator runs the two evaluation passes over a partitioned corpus:
// a timed throughput pass that touches nothing but the hash, then a
// metrics pass that feeds the collision counter and the statistical
// accumulators.
type Orchestrator struct {
	cfg RunConfig
}

// NewOrchestrator validates cfg and returns a ready orchestrator.
func NewOrchestrator(cfg RunConfig) (*Orchestrator, error) {
	if cfg.TableSize == 0 {
		return nil, fmt.Errorf("orchestrator: table size must be positive")
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.SigBits < 1 {
		cfg.SigBits = 1
	}
	if cfg.MaxCollisionRecords == 0 {
		cfg.MaxCollisionRecords = defaultMaxCollisionRecords
	}
	if cfg.Store == nil {
		cfg.Store = NopRecordStore{}
	}
	return &Orchestrator{cfg: cfg}, nil
}

// Run evaluates fn over the corpus slices and returns the assembled
// result. slices must have exactly cfg.Workers entries with disjoint
// contents; each worker owns one slice for both passes. The context
// cancels between items, never mid-hash.
func (o *Orchestrator) Run(ctx context.Context, fn HashFunc, slices []TestData) (*ComparisonResult, error) {
	if len(slices) != o.cfg.Workers {
		return nil, fmt.Errorf("orchestrator: %d corpus slices for %d workers", len(slices), o.cfg.Workers)
	}
	var total uint64
	for _, s := range slices {
		total += uint64(s.Len())
	}
	if total == 0 {
		return nil, fmt.Errorf("orchestrator: empty corpus")
	}
	startedAt := time.Now()

	nanos, hashes, err := o.perfPass(ctx, fn, slices)
	if err != nil {
		return nil, fmt.Errorf("perf pass: %w", err)
	}

	backend := ChooseBackend(o.cfg.Backend, o.cfg.TableSize)
	counter, err := NewCollisionCounter(backend)
	if err != nil {
		return nil, fmt.Errorf("collision counter: %w", err)
	}
	chi := NewChiSquaredAccumulator(o.cfg.TableSize)
	aval := NewAvalancheAccumulator(o.cfg.SigBits)

	err = o.metricsPass(ctx, fn, slices, counter, chi, aval, total)
	if err != nil {
		counter.Close()
		return nil, fmt.Errorf("metrics pass: %w", err)
	}

	unique := counter.UniqueCount()
	dups := counter.DuplicateCount()
	maxLoad := counter.MaxBucketLoad()
	if err := counter.Close(); err != nil {
		return nil, fmt.Errorf("close collision counter: %w", err)
	}

	result := &ComparisonResult{
		Algorithm:      o.cfg.Algorithm,
		TableSize:      o.cfg.TableSize,
		Inputs:         total,
		Unique:         unique,
		Duplicates:     dups,
		MaxBucketLoad:  maxLoad,
		ChiSquared:     chi.ChiSquared(),
		Uniformity:     chi.Uniformity(),
		Avalanche:      aval.Score(),
		AvalancheBias:  aval.Bias(),
		CollisionRatio: CollisionRatio(dups, total, o.cfg.TableSize),
		Backend:        backend.String(),
		Degraded:       o.cfg.Degraded,
	}
	if hashes > 0 {
		result.NanosPerHash = float64(nanos) / float64(hashes)
		if nanos > 0 {
			result.HashesPerSec = float64(hashes) / (float64(nanos) / 1e9)
		}
	}

	RecordHashed(int64(hashes) + int64(total))
	RecordCollisions(int64(dups))
	RecordRun()

	rec := RunRecord{
		Algorithm:      result.Algorithm,
		TableSize:      result.TableSize,
		Inputs:         result.Inputs,
		Unique:         result.Unique,
		Duplicates:     result.Duplicates,
		MaxBucketLoad:  result.MaxBucketLoad,
		ChiSquared:     result.ChiSquared,
		Uniformity:     result.Uniformity,
		Avalanche:      result.Avalanche,
		AvalancheBias:  result.AvalancheBias,
		CollisionRatio: result.CollisionRatio,
		NanosPerHash:   result.NanosPerHash,
		HashesPerSec:   result.HashesPerSec,
		Backend:        result.Backend,
		Degraded:       result.Degraded,
		StartedAt:      startedAt,
		FinishedAt:     time.Now(),
	}
	if err := o.cfg.Store.SaveRun(rec); err != nil {
		return nil, fmt.Errorf("save run record: %w", err)
	}
	return result, nil
}

// perfPass times the hash alone. Each worker warms up on the head of its
// slice, then hashes every item under a per-worker stopwatch. The sink
// variable keeps the compiler from hoisting the call out.
func (o *Orchestrator) perfPass(ctx context.Context, fn HashFunc, slices []TestData) (nanos, hashes uint64, err error) {
	var totalNanos, totalHashes atomic.Uint64
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < o.cfg.Workers; w++ {
		slice := slices[w]
		g.Go(func() error {
			n := slice.Len()
			warm := o.cfg.WarmupIters
			if warm > n {
				warm = n
			}
			var sink uint64
			for i := 0; i < warm; i++ {
				item, err := slice.Get(i)
				if err != nil {
					return err
				}
				sink ^= fn(item)
			}
			var elapsed time.Duration
			for i := 0; i < n; i++ {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				item, err := slice.Get(i)
				if err != nil {
					return err
				}
				t0 := time.Now()
				sink ^= fn(item)
				elapsed += time.Since(t0)
			}
			_ = sink
			totalNanos.Add(uint64(elapsed.Nanoseconds()))
			totalHashes.Add(uint64(n))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, 0, err
	}
	return totalNanos.Load(), totalHashes.Load(), nil
}

// metricsPass feeds every hash into the collision counter and the
// distribution accumulator, samples inputs for the per-bit avalanche
// probe, and resolves a bounded number of collision pairs to their inputs.
func (o *Orchestrator) metricsPass(ctx context.Context, fn HashFunc, slices []TestData,
	counter *CollisionCounter, chi *ChiSquaredAccumulator, aval *AvalancheAccumulator, total uint64) error {

	var done atomic.Uint64
	var recorded atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < o.cfg.Workers; w++ {
		slice := slices[w]
		g.Go(func() error {
			n := slice.Len()
			for i := 0; i < n; i++ {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				item, err := slice.Get(i)
				if err != nil {
					return err
				}
				h := fn(item)
				chi.Observe(h)
				dup, err := counter.Process(h)
				if err != nil {
					return err
				}
				if dup && recorded.Add(1) <= int64(o.cfg.MaxCollisionRecords) {
					if err := o.recordCollision(slice, fn, i, item, h); err != nil {
						return err
					}
				}
				if i%avalancheSampleEvery == 0 {
					o.probeAvalanche(fn, aval, item, h)
				}
				if d := done.Add(1); o.cfg.Progress != nil {
					o.cfg.Progress(d, total)
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// probeAvalanche flips every bit of item in turn and scores the output
// differences. Empty inputs have no bits to flip and are skipped.
func (o *Orchestrator) probeAvalanche(fn HashFunc, aval *AvalancheAccumulator, item []byte, base uint64) {
	if len(item) == 0 {
		return
	}
	buf := make([]byte, len(item))
	copy(buf, item)
	for byteIdx := range buf {
		for bit := 0; bit < 8; bit++ {
			buf[byteIdx] ^= 1 << bit
			aval.ObservePair(base, fn(buf))
			buf[byteIdx] ^= 1 << bit
		}
	}
}

// recordCollision scans backward through the worker's own slice for the
// partner input that produced the same hash. Cross-slice partners are not
// found; with 64 shards and a bounded cap that trade keeps resolution
// lock-free and the miss is harmless for a diagnostic record.
func (o *Orchestrator) recordCollision(slice TestData, fn HashFunc, i int, item []byte, h uint64) error {
	for j := i - 1; j >= 0; j-- {
		prev, err := slice.Get(j)
		if err != nil {
			return err
		}
		if fn(prev) == h {
			return o.cfg.Store.SaveCollision(CollisionRecord{
				Algorithm: o.cfg.Algorithm,
				TableSize: o.cfg.TableSize,
				Hash:      h,
				InputA:    string(prev),
				InputB:    string(item),
				Timestamp: time.Now(),
			})
		}
	}
	return nil
}
