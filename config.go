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

package goldenhash

import (
	"errors"
	"fmt"
)

// GoldenRatio is φ, the basis for the prime targets N/φ and N/φ².
const GoldenRatio = 1.6180339887498948482

// Mixing constants shared by the table derivation and the finalizer. The
// first is 2^64/φ rounded to odd; the last two are the standard 64-bit
// avalanche finalizer multipliers.
const (
	goldenGamma   = 0x9e3779b97f4a7c15
	avalancheMul1 = 0xff51afd7ed558ccd
	avalancheMul2 = 0xc4ceb9fe1a85ec53
)

// ErrTableTooSmall is returned when a configuration is requested for a table
// with fewer than two buckets.
var ErrTableTooSmall = errors.New("goldenhash: table size must be at least 2")

// TableConfig holds every constant derived from a (table size, seed) pair.
// It is computed once, is immutable afterwards, and is a pure function of its
// two inputs: two processes constructing a TableConfig for the same (N, seed)
// always arrive at identical values.
//
// Degraded is set when a nearest-prime search exhausted its radius and fell
// back to the non-prime target. Hashing still works; distribution quality is
// no longer backed by the golden-ratio argument.
type TableConfig struct {
	TableSize uint64
	Seed      uint64

	PrimeHigh    uint64 // prime nearest N/φ
	PrimeLow     uint64 // prime nearest N/φ²
	PrimeProduct uint64 // PrimeHigh * PrimeLow, wrapping
	WorkingMod   uint64 // N for composite N, N+1 for prime N
	PrimeMixed   uint64 // finalizer prime derived from both golden primes
	InitialHash  uint64 // Seed ^ PrimeProduct
	Factors      []uint64

	Degraded bool
}

// NewTableConfig derives the full constant set for the given table size and
// seed. The only error is a table size below 2; prime-search exhaustion is
// reported through the Degraded flag instead.
func NewTableConfig(tableSize, seed uint64) (*TableConfig, error) {
	if tableSize < 2 {
		return nil, fmt.Errorf("%w (got %d)", ErrTableTooSmall, tableSize)
	}

	cfg := &TableConfig{TableSize: tableSize, Seed: seed}

	targetHigh := uint64(float64(tableSize) / GoldenRatio)
	targetLow := uint64(float64(tableSize) / (GoldenRatio * GoldenRatio))

	var okHigh, okLow bool
	cfg.PrimeHigh, okHigh = NearestPrime(targetHigh, tableSize)
	cfg.PrimeLow, okLow = NearestPrime(targetLow, tableSize)

	cfg.PrimeProduct = cfg.PrimeHigh * cfg.PrimeLow

	// A prime table size would make every multiplicative walk a full cycle
	// and pile collisions onto consecutive buckets, so prime N works modulo
	// N+1 internally.
	if IsPrime(tableSize) {
		cfg.WorkingMod = tableSize + 1
	} else {
		cfg.WorkingMod = tableSize
	}
	cfg.Factors = Factorize(cfg.WorkingMod)

	mixTarget := (cfg.PrimeHigh + cfg.PrimeLow) ^ goldenGamma
	var okMixed bool
	cfg.PrimeMixed, okMixed = NearestPrime(mixTarget, 0)

	cfg.InitialHash = seed ^ cfg.PrimeProduct
	cfg.Degraded = !okHigh || !okLow || !okMixed
	return cfg, nil
}

// SignificantBits returns ceil(log2(TableSize)): the number of output bits
// that actually vary. Quality metrics are computed over these bits only.
func (c *TableConfig) SignificantBits() int {
	bits := 0
	for v := c.TableSize - 1; v > 0; v >>= 1 {
		bits++
	}
	if bits == 0 {
		bits = 1
	}
	return bits
}

// String summarizes the derived constants for logs and reports.
func (c *TableConfig) String() string {
	return fmt.Sprintf("N=%d primeHigh=%d primeLow=%d workingMod=%d primeMixed=%d factors=%v degraded=%t",
		c.TableSize, c.PrimeHigh, c.PrimeLow, c.WorkingMod, c.PrimeMixed, c.Factors, c.Degraded)
}
