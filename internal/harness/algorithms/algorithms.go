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

// Package algorithms names the hash functions the harness can evaluate.
// The table-driven hash under test sits next to general-purpose baselines
// reduced into the same output range, so runs are directly comparable.
package algorithms

import (
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"

	"goldenhash"
	"goldenhash/internal/harness/core"
)

const (
	fnvOffset64 = 14695981039346656037
	fnvPrime64  = 1099511628211
)

// fnv64a is inlined rather than going through hash/fnv so the baseline
// measures the algorithm, not stdlib interface allocations.
func fnv64a(data []byte) uint64 {
	h := uint64(fnvOffset64)
	for _, b := range data {
		h ^= uint64(b)
		h *= fnvPrime64
	}
	return h
}

// Build returns the named hash closed over a table size, plus the degraded
// flag for algorithms whose setup can fall back to weaker constants.
// Supported names: "goldenhash", "xxhash64", "fnv64a".
func Build(name string, tableSize, seed uint64) (core.HashFunc, bool, error) {
	switch name {
	case "goldenhash":
		h, err := goldenhash.New(tableSize, seed)
		if err != nil {
			return nil, false, fmt.Errorf("build goldenhash: %w", err)
		}
		return h.Sum64, h.Config().Degraded, nil
	case "xxhash64":
		return func(data []byte) uint64 {
			return xxhash.Sum64(data) % tableSize
		}, false, nil
	case "fnv64a":
		return func(data []byte) uint64 {
			return fnv64a(data) % tableSize
		}, false, nil
	default:
		return nil, false, fmt.Errorf("unknown algorithm %q (have %v)", name, Names())
	}
}

// Names lists the supported algorithm names in stable order.
func Names() []string {
	names := []string{"goldenhash", "xxhash64", "fnv64a"}
	sort.Strings(names)
	return names
}
