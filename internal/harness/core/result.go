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

import "fmt"

// ComparisonResult is the full outcome of evaluating one hash function at
// one table size: throughput from the timed pass, distribution and
// sensitivity statistics from the metrics pass, and exact collision
// accounting from the sharded counter.
type ComparisonResult struct {
	Algorithm     string `json:"algorithm"`
	TableSize     uint64 `json:"table_size"`
	Inputs        uint64 `json:"inputs"`
	Unique        uint64 `json:"unique"`
	Duplicates    uint64 `json:"duplicates"`
	MaxBucketLoad uint64 `json:"max_bucket_load"`

	ChiSquared     float64 `json:"chi_squared"`
	Uniformity     float64 `json:"uniformity"`
	Avalanche      float64 `json:"avalanche"`
	AvalancheBias  float64 `json:"avalanche_bias"`
	CollisionRatio float64 `json:"collision_ratio"`

	NanosPerHash float64 `json:"nanos_per_hash"`
	HashesPerSec float64 `json:"hashes_per_sec"`

	Backend  string `json:"backend"`
	Degraded bool   `json:"degraded"`
}

// String renders a compact one-line summary for logs.
func (r *ComparisonResult) String() string {
	return fmt.Sprintf(
		"%s N=%d inputs=%d unique=%d dups=%d maxload=%d chi2=%.4f unif=%.4f aval=%.4f bias=%.4f cr=%.4f ns/hash=%.1f backend=%s",
		r.Algorithm, r.TableSize, r.Inputs, r.Unique, r.Duplicates, r.MaxBucketLoad,
		r.ChiSquared, r.Uniformity, r.Avalanche, r.AvalancheBias, r.CollisionRatio, r.NanosPerHash, r.Backend,
	)
}
