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
	"fmt"
	"os"
	"path/filepath"
)

// NumShards is the fixed fan-out of the collision counter. 64 shards bound
// lock contention at any realistic worker count while keeping the routing a
// single AND; the accounting invariants assume exactly this many.
const NumShards = 64

// Backend selects the shard storage implementation.
type Backend int

const (
	// BackendAuto picks memory or SQLite by comparing the estimated
	// footprint against available system memory at construction time.
	BackendAuto Backend = iota
	BackendMemory
	BackendSQLite
)

func (b Backend) String() string {
	switch b {
	case BackendMemory:
		return "memory"
	case BackendSQLite:
		return "sqlite"
	default:
		return "auto"
	}
}

// ParseBackend maps the CLI selector strings onto a Backend.
func ParseBackend(s string) (Backend, error) {
	switch s {
	case "", "auto":
		return BackendAuto, nil
	case "memory":
		return BackendMemory, nil
	case "sqlite", "disk":
		return BackendSQLite, nil
	default:
		return BackendAuto, fmt.Errorf("unknown counter backend: %q", s)
	}
}

// bytesPerEntry is the rough in-memory cost of one map entry (key, value,
// bucket overhead) used for the footprint estimate.
const bytesPerEntry = 48

// ChooseBackend resolves BackendAuto against the machine. The estimate is
// table size times per-entry overhead — the counter can never hold more
// distinct hashes than buckets exist. If the memory probe fails we take the
// conservative road and go to disk rather than risk an OOM kill mid-run.
func ChooseBackend(requested Backend, tableSize uint64) Backend {
	if requested != BackendAuto {
		return requested
	}
	avail, err := AvailableMemory()
	if err != nil {
		return BackendSQLite
	}
	estimate := tableSize * bytesPerEntry
	if estimate/bytesPerEntry != tableSize || estimate > avail/2 {
		return BackendSQLite
	}
	return BackendMemory
}

// CollisionCounter partitions occurrence counting across 64 independently
// locked shards, routed by the low six hash bits. Callers see one uniform
// surface regardless of the backend behind it.
//
// Invariant: the sum of per-shard unique counts equals the number of
// distinct hashes observed, and UniqueCount()+DuplicateCount() equals the
// number of Process calls.
type CollisionCounter struct {
	shards  [NumShards]Shard
	backend Backend
	dir     string // scratch dir for sqlite shard files, removed on Close
}

// NewCollisionCounter builds a counter on the given backend. BackendAuto
// must be resolved with ChooseBackend first; passing it here is an error so
// the decision is always explicit in run records.
func NewCollisionCounter(backend Backend) (*CollisionCounter, error) {
	c := &CollisionCounter{backend: backend}
	switch backend {
	case BackendMemory:
		for i := range c.shards {
			c.shards[i] = NewMemoryShard()
		}
	case BackendSQLite:
		dir, err := os.MkdirTemp("", "goldenhash-shards-")
		if err != nil {
			return nil, fmt.Errorf("create shard scratch dir: %w", err)
		}
		c.dir = dir
		for i := range c.shards {
			s, err := NewSQLiteShard(filepath.Join(dir, fmt.Sprintf("shard_%02d.db", i)))
			if err != nil {
				c.Close()
				return nil, err
			}
			c.shards[i] = s
		}
	default:
		return nil, fmt.Errorf("core: backend %v must be resolved before construction", backend)
	}
	return c, nil
}

// Backend reports which storage implementation is active.
func (c *CollisionCounter) Backend() Backend { return c.backend }

// Process records one occurrence and reports whether it was a duplicate.
// Safe for concurrent use; only callers landing on the same shard contend.
func (c *CollisionCounter) Process(hash uint64) (bool, error) {
	return c.shards[hash&(NumShards-1)].Process(hash)
}

// UniqueCount returns a point-in-time sum of distinct hashes across shards.
func (c *CollisionCounter) UniqueCount() uint64 {
	var total uint64
	for _, s := range c.shards {
		if s != nil {
			total += s.Unique()
		}
	}
	return total
}

// DuplicateCount returns a point-in-time sum of duplicate observations.
func (c *CollisionCounter) DuplicateCount() uint64 {
	var total uint64
	for _, s := range c.shards {
		if s != nil {
			total += s.Duplicates()
		}
	}
	return total
}

// MaxBucketLoad returns the highest occurrence count seen for any hash.
func (c *CollisionCounter) MaxBucketLoad() uint64 {
	var max uint64
	for _, s := range c.shards {
		if s == nil {
			continue
		}
		if l := s.MaxLoad(); l > max {
			max = l
		}
	}
	return max
}

// Close releases every shard and deletes any scratch files. The first error
// wins; remaining shards are still closed.
func (c *CollisionCounter) Close() error {
	var first error
	for i, s := range c.shards {
		if s == nil {
			continue
		}
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
		c.shards[i] = nil
	}
	if c.dir != "" {
		if err := os.RemoveAll(c.dir); err != nil && first == nil {
			first = err
		}
		c.dir = ""
	}
	return first
}
