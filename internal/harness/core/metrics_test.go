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
	"math/rand"
	"sync"
	"testing"
)

func TestChiSquared_PerfectlyEvenDistribution(t *testing.T) {
	c := NewChiSquaredAccumulator(1 << 20)
	for round := 0; round < 16; round++ {
		for i := uint64(0); i < chiBuckets; i++ {
			c.Observe(i)
		}
	}
	if got := c.ChiSquared(); got != 0 {
		t.Fatalf("chi-squared of even distribution = %g, want 0", got)
	}
	if got := c.Uniformity(); math.Abs(got-1) > 1e-12 {
		t.Fatalf("uniformity of even distribution = %g, want 1", got)
	}
}

func TestChiSquared_DegenerateDistribution(t *testing.T) {
	c := NewChiSquaredAccumulator(1 << 20)
	for i := 0; i < 10000; i++ {
		c.Observe(5)
	}
	// Everything in one bucket: the statistic equals the observation
	// count after normalization, and entropy collapses to zero.
	if got := c.ChiSquared(); got < 100 {
		t.Fatalf("chi-squared of degenerate distribution = %g, want large", got)
	}
	if got := c.Uniformity(); got != 0 {
		t.Fatalf("uniformity of degenerate distribution = %g, want 0", got)
	}
}

func TestChiSquared_UniformRandomNearOne(t *testing.T) {
	c := NewChiSquaredAccumulator(1 << 30)
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 1_000_000; i++ {
		c.Observe(rng.Uint64())
	}
	// For a uniform source the normalized statistic concentrates near 1.
	got := c.ChiSquared()
	if got < 0.7 || got > 1.3 {
		t.Fatalf("chi-squared of uniform random = %g, want ~1", got)
	}
	if u := c.Uniformity(); u < 0.999 {
		t.Fatalf("uniformity of uniform random = %g, want ~1", u)
	}
}

func TestChiSquared_SmallSpaceUsesEffectiveBuckets(t *testing.T) {
	// A 100-slot table folds into 100 buckets, not 1024; an even spread
	// over those 100 must score as even.
	c := NewChiSquaredAccumulator(100)
	for round := 0; round < 50; round++ {
		for i := uint64(0); i < 100; i++ {
			c.Observe(i)
		}
	}
	if got := c.ChiSquared(); got != 0 {
		t.Fatalf("chi-squared = %g, want 0", got)
	}
}

func TestChiSquared_NonMultipleSpaceStaysCentered(t *testing.T) {
	// 1536 source values fold into 1024 buckets, so the low 512 buckets
	// each cover two values and the rest one. A perfectly uniform source
	// over that space must not be charged for the fold imbalance.
	const space = 1536
	c := NewChiSquaredAccumulator(space)
	for round := 0; round < 100; round++ {
		for i := uint64(0); i < space; i++ {
			c.Observe(i)
		}
	}
	if got := c.ChiSquared(); got != 0 {
		t.Fatalf("chi-squared of uniform source over %d values = %g, want 0", space, got)
	}
	if u := c.Uniformity(); math.Abs(u-1) > 1e-12 {
		t.Fatalf("uniformity of uniform source over %d values = %g, want 1", space, u)
	}
}

func TestChiSquared_ConcurrentObserve(t *testing.T) {
	c := NewChiSquaredAccumulator(1 << 16)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < 10000; i++ {
				c.Observe(rng.Uint64())
			}
		}(int64(g))
	}
	wg.Wait()
	if got := c.Observed(); got != 80000 {
		t.Fatalf("Observed = %d, want 80000", got)
	}
}

func TestAvalanche_ScoreCountsOnlySignificantBits(t *testing.T) {
	a := NewAvalancheAccumulator(10)
	// Differences above bit 9 must not count.
	a.ObservePair(0, 0xFFFFFFFFFFFFFC00)
	if got := a.Score(); got != 0 {
		t.Fatalf("Score = %g, want 0 for high-bit-only difference", got)
	}
	// All ten significant bits flipped in one trial: trial mean is 1.0,
	// running mean over the two trials is 0.5.
	a.ObservePair(0, 0x3FF)
	if got := a.Score(); math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("Score = %g, want 0.5", got)
	}
}

func TestAvalanche_ClampsBitWidth(t *testing.T) {
	a := NewAvalancheAccumulator(200)
	a.ObservePair(0, ^uint64(0))
	if got := a.Score(); math.Abs(got-1) > 1e-12 {
		t.Fatalf("Score with clamped 64-bit mask = %g, want 1", got)
	}
	if NewAvalancheAccumulator(0).Score() != 0 {
		t.Fatal("empty accumulator must score 0")
	}
}

func TestAvalanche_BiasDetectsStuckBit(t *testing.T) {
	// Half the mask flips every trial and bit 0 never does: the mean
	// score looks plausible while the per-bit bias exposes both defects.
	a := NewAvalancheAccumulator(8)
	for i := 0; i < 100; i++ {
		a.ObservePair(0, 0xF0)
	}
	probs := a.BitProbabilities()
	if probs[0] != 0 {
		t.Fatalf("bit 0 probability = %g, want 0", probs[0])
	}
	if probs[7] != 1 {
		t.Fatalf("bit 7 probability = %g, want 1", probs[7])
	}
	// Every bit deviates by exactly 0.5, so the RMS is 0.5.
	if got := a.Bias(); math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("Bias = %g, want 0.5", got)
	}
}

func TestAvalanche_FairBitsHaveZeroBias(t *testing.T) {
	a := NewAvalancheAccumulator(4)
	// Alternate complementary patterns so every bit flips in exactly half
	// the trials.
	for i := 0; i < 100; i++ {
		a.ObservePair(0, 0x5)
		a.ObservePair(0, 0xA)
	}
	if got := a.Bias(); got != 0 {
		t.Fatalf("Bias = %g, want 0", got)
	}
	if got := a.Score(); math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("Score = %g, want 0.5", got)
	}
}

func TestChiSquared_BucketRange(t *testing.T) {
	c := NewChiSquaredAccumulator(100)
	for i := uint64(0); i < 100; i++ {
		c.Observe(i)
	}
	c.Observe(5)
	c.Observe(5)
	min, max := c.BucketRange()
	if min != 1 || max != 3 {
		t.Fatalf("BucketRange = (%d, %d), want (1, 3)", min, max)
	}
}

func TestExpectedCollisions_SmallNClosedForm(t *testing.T) {
	// 23 people, 365 days: probability ~0.507 of any collision, expected
	// count ~0.69.
	got := ExpectedCollisions(23, 365)
	if got < 0.6 || got > 0.8 {
		t.Fatalf("ExpectedCollisions(23, 365) = %g, want ~0.69", got)
	}
	if ExpectedCollisions(1, 365) != 0 {
		t.Fatal("single input cannot collide")
	}
	if ExpectedCollisions(100, 0) != 0 {
		t.Fatal("empty space must return 0")
	}
}

func TestExpectedCollisions_LargeNApproximation(t *testing.T) {
	// n^2 / 2m for n >= 1000.
	got := ExpectedCollisions(100000, 1<<20)
	want := float64(100000) * float64(100000) / (2 * float64(1<<20))
	if math.Abs(got-want) > 1e-6 {
		t.Fatalf("ExpectedCollisions = %g, want %g", got, want)
	}
}

func TestCollisionRatio_IdealHashNearOne(t *testing.T) {
	// Feed the baseline itself back in: the ratio must be exactly 1.
	n, m := uint64(100000), uint64(1<<20)
	expected := uint64(ExpectedCollisions(n, m))
	got := CollisionRatio(expected, n, m)
	if got < 0.99 || got > 1.01 {
		t.Fatalf("CollisionRatio = %g, want ~1", got)
	}
	if CollisionRatio(5, 1, m) != 0 {
		t.Fatal("ratio with zero baseline must be 0")
	}
}
