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

// Package goldenhash implements a family of non-cryptographic hash functions
// parameterized by an arbitrary table size N. The mixing constants are primes
// found near N/φ and N/φ², and diffusion comes from a bank of irreversible
// byte-substitution tables derived from those primes. This file contains the
// deterministic prime machinery the construction is built on.
package goldenhash

import "math/bits"

// trialDivisionLimit is the point above which primality testing switches from
// 6k±1 trial division to Miller–Rabin. Trial division up to sqrt(n) is fine
// below 2^32 but becomes the dominant construction cost past it.
const trialDivisionLimit = 1 << 32

// searchRadius bounds the outward nearest-prime search. By Bertrand's
// postulate this is never reached for targets above a few hundred; the bound
// exists so a pathological caller cannot spin the constructor forever.
const searchRadius = 100000

// mrWitnesses is the fixed Miller–Rabin witness set. The first twelve primes
// are a proven deterministic test for every 64-bit integer, so repeated calls
// with the same target always agree — a requirement for reproducible table
// configurations. Twelve rounds also satisfies the minimum witness count for
// the 128-bit-capable configurations.
var mrWitnesses = [...]uint64{2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37}

// IsPrime reports whether n is prime. Deterministic for all uint64 values.
func IsPrime(n uint64) bool {
	if n < trialDivisionLimit {
		return isPrimeTrial(n)
	}
	return isPrimeMillerRabin(n)
}

// isPrimeTrial is the classic 6k±1 skip over odd candidates up to sqrt(n).
func isPrimeTrial(n uint64) bool {
	if n < 2 {
		return false
	}
	if n == 2 || n == 3 {
		return true
	}
	if n%2 == 0 || n%3 == 0 {
		return false
	}
	for i := uint64(5); i*i <= n; i += 6 {
		if n%i == 0 || n%(i+2) == 0 {
			return false
		}
	}
	return true
}

// isPrimeMillerRabin runs the deterministic witness set against n.
func isPrimeMillerRabin(n uint64) bool {
	if n < 2 {
		return false
	}
	if n%2 == 0 {
		return n == 2
	}
	// Write n-1 as d * 2^r.
	d := n - 1
	r := 0
	for d%2 == 0 {
		d >>= 1
		r++
	}
	for _, a := range mrWitnesses {
		if a%n == 0 {
			continue
		}
		x := modPow(a, d, n)
		if x == 1 || x == n-1 {
			continue
		}
		composite := true
		for j := 0; j < r-1; j++ {
			x = mulMod(x, x, n)
			if x == n-1 {
				composite = false
				break
			}
		}
		if composite {
			return false
		}
	}
	return true
}

// mulMod computes (a*b) mod m without overflow using the full 128-bit product.
func mulMod(a, b, m uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	_, rem := bits.Div64(hi%m, lo, m)
	return rem
}

// modPow computes (base^exp) mod m by square-and-multiply.
func modPow(base, exp, m uint64) uint64 {
	result := uint64(1)
	base %= m
	for exp > 0 {
		if exp&1 == 1 {
			result = mulMod(result, base, m)
		}
		base = mulMod(base, base, m)
		exp >>= 1
	}
	return result
}

// NearestPrime finds the prime closest to target, probing target first and
// then alternating outward (target±1, target±2, ...). upperBound, when
// non-zero, caps how high the search may go; there is no lower cap besides 2.
//
// The second return value reports success. When the search radius is
// exhausted — which requires a deliberately hostile target — the function
// returns target unchanged and false so the caller can flag degraded quality
// instead of failing the run.
func NearestPrime(target, upperBound uint64) (uint64, bool) {
	if upperBound != 0 && target > upperBound {
		target = upperBound
	}
	if IsPrime(target) {
		return target, true
	}
	for delta := uint64(1); delta <= searchRadius; delta++ {
		if target > delta && IsPrime(target-delta) {
			return target - delta, true
		}
		up := target + delta
		if (upperBound == 0 || up <= upperBound) && up > target && IsPrime(up) {
			return up, true
		}
	}
	return target, false
}

// Factorize returns the prime factorization of n in ascending order, with
// multiplicity. Factorize(0) and Factorize(1) return nil.
func Factorize(n uint64) []uint64 {
	if n < 2 {
		return nil
	}
	var factors []uint64
	for i := uint64(2); i*i <= n; i++ {
		for n%i == 0 {
			factors = append(factors, i)
			n /= i
		}
	}
	if n > 1 {
		factors = append(factors, n)
	}
	return factors
}
