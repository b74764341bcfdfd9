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
	"math"
	"math/bits"
)

const (
	// NumSBoxes is the number of substitution tables in a bank. The hash
	// walks through them with a rotating selector so consecutive blocks
	// never reuse a table in the same lane.
	NumSBoxes = 8

	// SBoxSize is the number of entries per table: 12-bit index in,
	// 8-bit value out. The 12→8 compression is what makes the lookup
	// irreversible.
	SBoxSize = 4096

	sboxIndexMask = SBoxSize - 1
)

// SBoxBank is a fixed bank of pseudorandom byte-substitution tables generated
// once from a TableConfig. Banks from different table sizes are never
// interchangeable: every entry depends on the derived primes and the working
// modulus. The bank is immutable after generation and safe to share across
// goroutines without locking.
type SBoxBank struct {
	tables [NumSBoxes][SBoxSize]byte
}

// newSBoxBank fills the bank by an iterated mix: multiply by the prime
// product, fold in the table and entry position, XOR with a modulus-derived
// term. The generator does not need to be cryptographically strong; it needs
// low bias, which SBoxStats grades after the fact.
func newSBoxBank(cfg *TableConfig) *SBoxBank {
	b := &SBoxBank{}
	// The product is forced odd so the multiply stays invertible mod 2^64
	// even when one golden prime is 2 (tiny table sizes).
	mul := cfg.PrimeProduct | 1
	modTerm := cfg.WorkingMod * goldenGamma
	h := cfg.InitialHash ^ bits.RotateLeft64(cfg.WorkingMod, 21)
	for t := 0; t < NumSBoxes; t++ {
		for i := 0; i < SBoxSize; i++ {
			h *= mul
			h += uint64(t)<<12 | uint64(i)
			h ^= modTerm
			h ^= h >> 29
			b.tables[t][i] = byte(h >> 24)
		}
	}
	return b
}

// SBoxStats grades one substitution table. All fields are structural
// properties of the finished table; none are computed on the hash hot path.
type SBoxStats struct {
	Table int

	// UnusedOutputs counts byte values that never appear. With 4096 entries
	// over 256 outputs a uniform table leaves ~0 unused (expected ≈ 2e-5).
	UnusedOutputs int

	// OutputFreqStdDev is the standard deviation of output frequencies.
	// Uniform expectation is 16 per output; stddev near 4 matches a random
	// function.
	OutputFreqStdDev float64

	// AdjacentAvalanche is the mean popcount of table[i]^table[i+1] — how
	// many of the 8 output bits flip between adjacent indices. Ideal is 4.
	AdjacentAvalanche float64

	// DifferentialUniformity is the maximum repeat count of any output
	// difference across the tested input differences. Lower is flatter.
	DifferentialUniformity int

	// AffineDistance is the Hamming distance from the nearest affine
	// function, taken as the minimum nonlinearity across the 8 output bits.
	// 0 means some output bit is exactly affine in the index bits.
	AffineDistance int
}

// diffProbes is the input-difference sample used for differential
// uniformity: every single-bit difference plus a few multi-bit patterns.
var diffProbes = [...]uint16{
	1, 2, 4, 8, 16, 32, 64, 128, 256, 512, 1024, 2048,
	3, 5, 0x11, 0x101, 0x3ff, 0x555, 0xaaa, 0xfff,
}

// AnalyzeSBoxes computes SBoxStats for every table in the bank.
func (b *SBoxBank) AnalyzeSBoxes() []SBoxStats {
	stats := make([]SBoxStats, NumSBoxes)
	for t := 0; t < NumSBoxes; t++ {
		stats[t] = analyzeTable(t, &b.tables[t])
	}
	return stats
}

func analyzeTable(id int, tab *[SBoxSize]byte) SBoxStats {
	s := SBoxStats{Table: id}

	// Output frequency profile.
	var freq [256]int
	for _, v := range tab {
		freq[v]++
	}
	mean := float64(SBoxSize) / 256
	var sumSq float64
	for _, c := range freq {
		if c == 0 {
			s.UnusedOutputs++
		}
		d := float64(c) - mean
		sumSq += d * d
	}
	s.OutputFreqStdDev = math.Sqrt(sumSq / 256)

	// Adjacent-entry avalanche.
	totalBits := 0
	for i := 0; i < SBoxSize-1; i++ {
		totalBits += bits.OnesCount8(tab[i] ^ tab[i+1])
	}
	s.AdjacentAvalanche = float64(totalBits) / float64(SBoxSize-1)

	// Differential uniformity over the probe set.
	for _, dx := range diffProbes {
		var diffCount [256]int
		for x := 0; x < SBoxSize; x++ {
			dy := tab[x] ^ tab[x^int(dx)]
			diffCount[dy]++
		}
		for _, c := range diffCount {
			if c > s.DifferentialUniformity {
				s.DifferentialUniformity = c
			}
		}
	}

	// Nonlinearity per output bit via a fast Walsh–Hadamard transform;
	// the affine distance of the table is the weakest bit's distance.
	s.AffineDistance = SBoxSize
	for bit := 0; bit < 8; bit++ {
		nl := bitNonlinearity(tab, bit)
		if nl < s.AffineDistance {
			s.AffineDistance = nl
		}
	}
	return s
}

// bitNonlinearity returns the Hamming distance between output bit `bit` of
// the table (as a boolean function of the 12 index bits) and the nearest
// affine function: SBoxSize/2 - max|W|/2 over all Walsh coefficients.
func bitNonlinearity(tab *[SBoxSize]byte, bit int) int {
	var w [SBoxSize]int32
	for x := 0; x < SBoxSize; x++ {
		if tab[x]>>uint(bit)&1 == 1 {
			w[x] = -1
		} else {
			w[x] = 1
		}
	}
	for step := 1; step < SBoxSize; step <<= 1 {
		for i := 0; i < SBoxSize; i += step << 1 {
			for j := i; j < i+step; j++ {
				a, b := w[j], w[j+step]
				w[j], w[j+step] = a+b, a-b
			}
		}
	}
	var maxAbs int32
	for _, v := range w {
		if v < 0 {
			v = -v
		}
		if v > maxAbs {
			maxAbs = v
		}
	}
	return (SBoxSize - int(maxAbs)) / 2
}
