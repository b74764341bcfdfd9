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
	"math"
	"math/bits"
	"sync/atomic"
)

// chiBuckets is the number of distribution buckets used by the chi-squared
// and entropy statistics. Hash outputs are folded into buckets by modulo so
// the statistic is meaningful even for very large output ranges.
const chiBuckets = 1024

// ChiSquaredAccumulator collects a bucketed histogram of hash outputs from
// concurrent workers. All methods are safe for concurrent use; the summary
// accessors snapshot whatever has been observed so far.
type ChiSquaredAccumulator struct {
	buckets  [chiBuckets]atomic.Uint64
	observed atomic.Uint64
	space    uint64
}

// NewChiSquaredAccumulator returns an accumulator for a hash with outputs
// in [0, space).
func NewChiSquaredAccumulator(space uint64) *ChiSquaredAccumulator {
	if space == 0 {
		space = 1
	}
	return &ChiSquaredAccumulator{space: space}
}

// Observe records one hash output.
func (c *ChiSquaredAccumulator) Observe(hash uint64) {
	c.buckets[hash%chiBuckets].Add(1)
	c.observed.Add(1)
}

// effectiveBuckets is min(chiBuckets, space): a 100-slot table folded into
// 1024 buckets only ever populates 100 of them.
func (c *ChiSquaredAccumulator) effectiveBuckets() uint64 {
	if c.space < chiBuckets {
		return c.space
	}
	return chiBuckets
}

// bucketWidth is how many source values fold into bucket i. When the
// output space is not a multiple of the bucket count, the low buckets
// cover one extra value; the statistics scale their expectations by
// width so that imbalance is not misread as hash bias.
func (c *ChiSquaredAccumulator) bucketWidth(i uint64) uint64 {
	w := c.space / chiBuckets
	if i < c.space%chiBuckets {
		w++
	}
	return w
}

// ChiSquared returns the chi-squared statistic normalized by degrees of
// freedom, so 1.0 is the expectation for a uniform source. Per-bucket
// expectations are weighted by bucket width, so the statistic stays
// centered for table sizes that are not a multiple of the bucket count.
// Returns 0 when nothing has been observed.
func (c *ChiSquaredAccumulator) ChiSquared() float64 {
	n := c.observed.Load()
	k := c.effectiveBuckets()
	if n == 0 || k < 2 {
		return 0
	}
	var chi float64
	for i := uint64(0); i < k; i++ {
		expected := float64(n) * float64(c.bucketWidth(i)) / float64(c.space)
		d := float64(c.buckets[i].Load()) - expected
		chi += d * d / expected
	}
	return chi / float64(k-1)
}

// Uniformity returns the normalized Shannon entropy of the bucket
// distribution in [0, 1], where 1 means perfectly even. The reference
// entropy weights each bucket by its width, matching ChiSquared.
func (c *ChiSquaredAccumulator) Uniformity() float64 {
	n := c.observed.Load()
	k := c.effectiveBuckets()
	if n == 0 || k < 2 {
		return 0
	}
	var entropy, ideal float64
	for i := uint64(0); i < k; i++ {
		q := float64(c.bucketWidth(i)) / float64(c.space)
		ideal -= q * math.Log2(q)
		v := c.buckets[i].Load()
		if v == 0 {
			continue
		}
		p := float64(v) / float64(n)
		entropy -= p * math.Log2(p)
	}
	return entropy / ideal
}

// Observed returns the number of hashes recorded so far.
func (c *ChiSquaredAccumulator) Observed() uint64 {
	return c.observed.Load()
}

// BucketRange returns the smallest and largest bucket counts, a quick
// spread check alongside the normalized statistic.
func (c *ChiSquaredAccumulator) BucketRange() (min, max uint64) {
	k := c.effectiveBuckets()
	min = ^uint64(0)
	for i := uint64(0); i < k; i++ {
		v := c.buckets[i].Load()
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if min == ^uint64(0) {
		min = 0
	}
	return min, max
}

// AvalancheAccumulator measures single-bit input sensitivity: for a sampled
// input, every bit of the input is flipped in turn and the flipped output
// bits are counted over the significant bits of the output range only.
// High bits that the modulo reduction can never set would otherwise drag
// the score toward zero.
type AvalancheAccumulator struct {
	flipped  atomic.Uint64
	trials   atomic.Uint64
	bitFlips [64]atomic.Uint64
	sigBits  uint
	mask     uint64
}

// NewAvalancheAccumulator returns an accumulator scoring over sigBits
// low-order output bits.
func NewAvalancheAccumulator(sigBits int) *AvalancheAccumulator {
	if sigBits < 1 {
		sigBits = 1
	}
	if sigBits > 64 {
		sigBits = 64
	}
	a := &AvalancheAccumulator{sigBits: uint(sigBits)}
	if sigBits == 64 {
		a.mask = ^uint64(0)
	} else {
		a.mask = 1<<uint(sigBits) - 1
	}
	return a
}

// ObservePair records one (original, perturbed) output pair for an input
// differing by exactly one bit.
func (a *AvalancheAccumulator) ObservePair(base, flipped uint64) {
	diff := (base ^ flipped) & a.mask
	a.flipped.Add(uint64(bits.OnesCount64(diff)))
	for diff != 0 {
		b := bits.TrailingZeros64(diff)
		a.bitFlips[b].Add(1)
		diff &= diff - 1
	}
	a.trials.Add(1)
}

// Score returns the mean fraction of significant output bits flipped per
// single-bit input change. The ideal is 0.5.
func (a *AvalancheAccumulator) Score() float64 {
	t := a.trials.Load()
	if t == 0 {
		return 0
	}
	return float64(a.flipped.Load()) / float64(t) / float64(a.sigBits)
}

// Trials returns the number of pairs observed.
func (a *AvalancheAccumulator) Trials() uint64 {
	return a.trials.Load()
}

// BitProbabilities returns the per-bit flip probability for each
// significant output bit.
func (a *AvalancheAccumulator) BitProbabilities() []float64 {
	t := a.trials.Load()
	out := make([]float64, a.sigBits)
	if t == 0 {
		return out
	}
	for i := range out {
		out[i] = float64(a.bitFlips[i].Load()) / float64(t)
	}
	return out
}

// Bias returns the root-mean-square deviation of per-bit flip
// probabilities from the ideal 0.5. Zero means every significant bit
// behaves like a fair coin; a single stuck bit shows up here even when
// the mean score looks healthy.
func (a *AvalancheAccumulator) Bias() float64 {
	probs := a.BitProbabilities()
	if a.trials.Load() == 0 {
		return 0
	}
	var sumSq float64
	for _, p := range probs {
		d := p - 0.5
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(probs)))
}

// ExpectedCollisions returns the birthday-problem baseline for n distinct
// inputs hashed into a space of m values. For small n the closed form
// n - m*(1 - (1-1/m)^n) is used; past a thousand inputs the n^2/2m
// approximation is indistinguishable and far cheaper.
func ExpectedCollisions(n, m uint64) float64 {
	if m == 0 || n < 2 {
		return 0
	}
	if n < 1000 {
		fm := float64(m)
		return float64(n) - fm*(1-math.Pow(1-1/fm, float64(n)))
	}
	return float64(n) * float64(n) / (2 * float64(m))
}

// CollisionRatio returns observed duplicate count over the birthday
// baseline. 1.0 means the hash collides exactly as often as an ideal
// uniform random function; returns 0 when the baseline rounds to zero.
func CollisionRatio(duplicates, n, m uint64) float64 {
	expected := ExpectedCollisions(n, m)
	if expected < 1e-9 {
		return 0
	}
	return float64(duplicates) / expected
}
