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

// Package core provides the concurrent evaluation harness: sharded collision
// counting, corpus storage, quality-metric accumulators and the two-phase
// test orchestrator. This file holds the shard backends.
package core

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// Shard tracks occurrence counts for the subset of hash values routed to it.
// Implementations serialize their own mutations; distinct shards never block
// each other. Snapshot accessors are safe to call while other goroutines are
// processing.
type Shard interface {
	// Process records one occurrence of hash and reports whether it was a
	// duplicate. A storage error is fatal for the run: swallowing it would
	// corrupt the collision counts.
	Process(hash uint64) (dup bool, err error)
	Unique() uint64
	Duplicates() uint64
	MaxLoad() uint64
	Close() error
}

// MemoryShard is the in-memory backend: a plain count map behind a mutex.
// The critical section is one map access, so contention stays cheap even at
// 64 threads.
type MemoryShard struct {
	mu     sync.Mutex
	counts map[uint64]uint32

	unique  uint64
	dups    uint64
	maxLoad uint64
}

// NewMemoryShard returns an empty in-memory shard.
func NewMemoryShard() *MemoryShard {
	return &MemoryShard{counts: make(map[uint64]uint32, 1024)}
}

func (s *MemoryShard) Process(hash uint64) (bool, error) {
	s.mu.Lock()
	c := s.counts[hash] + 1
	s.counts[hash] = c
	dup := c > 1
	if dup {
		s.dups++
	} else {
		s.unique++
	}
	if uint64(c) > s.maxLoad {
		s.maxLoad = uint64(c)
	}
	s.mu.Unlock()
	return dup, nil
}

func (s *MemoryShard) Unique() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unique
}

func (s *MemoryShard) Duplicates() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dups
}

func (s *MemoryShard) MaxLoad() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxLoad
}

func (s *MemoryShard) Close() error {
	s.mu.Lock()
	s.counts = nil
	s.mu.Unlock()
	return nil
}

// sqliteFlushEvery is how many Process calls a SQLite shard batches into one
// transaction. Per-record commits would be orders of magnitude slower; the
// cost is a bounded window of un-flushed rows, which is fine because the
// exact counters live in memory and the same connection reads its own
// pending writes.
const sqliteFlushEvery = 4096

// SQLiteShard is the out-of-core backend. The per-hash count table lives in
// SQLite (the memory-heavy part); the unique/duplicate/max-load counters are
// kept in memory and stay exact.
//
// The database handle is pinned to a single connection so the explicit
// BEGIN/COMMIT batching below is well-defined and uncommitted rows are
// visible to this shard's own reads.
type SQLiteShard struct {
	mu  sync.Mutex
	db  *sql.DB
	sel *sql.Stmt
	ins *sql.Stmt
	upd *sql.Stmt

	ops     uint64
	unique  uint64
	dups    uint64
	maxLoad uint64
}

// NewSQLiteShard opens (or creates) the shard database at path. Any failure
// here aborts the run: a half-open shard cannot produce trustworthy counts.
func NewSQLiteShard(path string) (*SQLiteShard, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite shard %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA synchronous = OFF",
		"PRAGMA journal_mode = MEMORY",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite shard %s: %s: %w", path, pragma, err)
		}
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS hash_counts (hash INTEGER PRIMARY KEY, count INTEGER NOT NULL)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create shard table %s: %w", path, err)
	}

	s := &SQLiteShard{db: db}
	if s.sel, err = db.Prepare(`SELECT count FROM hash_counts WHERE hash = ?`); err == nil {
		if s.ins, err = db.Prepare(`INSERT INTO hash_counts (hash, count) VALUES (?, 1)`); err == nil {
			s.upd, err = db.Prepare(`UPDATE hash_counts SET count = count + 1 WHERE hash = ?`)
		}
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare shard statements %s: %w", path, err)
	}
	if _, err := db.Exec("BEGIN"); err != nil {
		db.Close()
		return nil, fmt.Errorf("begin shard transaction %s: %w", path, err)
	}
	return s, nil
}

func (s *SQLiteShard) Process(hash uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// uint64 keys are stored as their int64 bit pattern; SQLite INTEGER is
	// 64-bit signed and the mapping is bijective.
	key := int64(hash)

	var count uint64
	err := s.sel.QueryRow(key).Scan(&count)
	switch {
	case err == sql.ErrNoRows:
		if _, err := s.ins.Exec(key); err != nil {
			return false, fmt.Errorf("shard insert: %w", err)
		}
		s.unique++
		count = 1
	case err != nil:
		return false, fmt.Errorf("shard select: %w", err)
	default:
		if _, err := s.upd.Exec(key); err != nil {
			return false, fmt.Errorf("shard update: %w", err)
		}
		s.dups++
		count++
	}
	if count > s.maxLoad {
		s.maxLoad = count
	}

	s.ops++
	if s.ops%sqliteFlushEvery == 0 {
		if _, err := s.db.Exec("COMMIT"); err != nil {
			return false, fmt.Errorf("shard commit: %w", err)
		}
		if _, err := s.db.Exec("BEGIN"); err != nil {
			return false, fmt.Errorf("shard begin: %w", err)
		}
	}
	return count > 1, nil
}

func (s *SQLiteShard) Unique() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unique
}

func (s *SQLiteShard) Duplicates() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dups
}

func (s *SQLiteShard) MaxLoad() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxLoad
}

// Close commits the tail batch and releases the database.
func (s *SQLiteShard) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	_, commitErr := s.db.Exec("COMMIT")
	s.sel.Close()
	s.ins.Close()
	s.upd.Close()
	closeErr := s.db.Close()
	s.db = nil
	if commitErr != nil {
		return fmt.Errorf("shard final commit: %w", commitErr)
	}
	return closeErr
}
