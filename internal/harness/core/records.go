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

import "time"

// CollisionRecord captures one pair of distinct inputs that hashed to the
// same value, for post-run inspection. Inputs are stored as strings since
// the corpus generator emits mostly printable data; binary inputs survive
// the round trip unchanged.
type CollisionRecord struct {
	Algorithm string    `json:"algorithm"`
	TableSize uint64    `json:"table_size"`
	Hash      uint64    `json:"hash"`
	InputA    string    `json:"input_a"`
	InputB    string    `json:"input_b"`
	Timestamp time.Time `json:"timestamp"`
}

// RunRecord is the persisted summary of one evaluation run at one table
// size, mirroring ComparisonResult with identifying context attached.
type RunRecord struct {
	Algorithm      string    `json:"algorithm"`
	TableSize      uint64    `json:"table_size"`
	Inputs         uint64    `json:"inputs"`
	Unique         uint64    `json:"unique"`
	Duplicates     uint64    `json:"duplicates"`
	MaxBucketLoad  uint64    `json:"max_bucket_load"`
	ChiSquared     float64   `json:"chi_squared"`
	Uniformity     float64   `json:"uniformity"`
	Avalanche      float64   `json:"avalanche"`
	AvalancheBias  float64   `json:"avalanche_bias"`
	CollisionRatio float64   `json:"collision_ratio"`
	NanosPerHash   float64   `json:"nanos_per_hash"`
	HashesPerSec   float64   `json:"hashes_per_sec"`
	Backend        string    `json:"backend"`
	Degraded       bool      `json:"degraded"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}

// RecordStore receives collision and run records from the orchestrator.
// Implementations decide durability; the orchestrator never blocks a hot
// loop on a store call, only the post-pass reporting path.
type RecordStore interface {
	SaveCollision(rec CollisionRecord) error
	SaveRun(rec RunRecord) error
	Close() error
}

// NopRecordStore discards everything. Used when persistence is disabled.
type NopRecordStore struct{}

func (NopRecordStore) SaveCollision(CollisionRecord) error { return nil }
func (NopRecordStore) SaveRun(RunRecord) error             { return nil }
func (NopRecordStore) Close() error                        { return nil }
