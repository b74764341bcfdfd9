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
	"path/filepath"
	"sync"
	"testing"
)

// shardFixtures builds one shard of each backend for behavioral parity
// tests. The sqlite shard lives under the test temp dir.
func shardFixtures(t *testing.T) map[string]Shard {
	t.Helper()
	sq, err := NewSQLiteShard(filepath.Join(t.TempDir(), "shard.db"))
	if err != nil {
		t.Fatalf("NewSQLiteShard: %v", err)
	}
	return map[string]Shard{
		"memory": NewMemoryShard(),
		"sqlite": sq,
	}
}

func TestShard_FirstOccurrenceIsNotDuplicate(t *testing.T) {
	for name, s := range shardFixtures(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()
			dup, err := s.Process(42)
			if err != nil {
				t.Fatalf("Process: %v", err)
			}
			if dup {
				t.Fatal("first occurrence reported as duplicate")
			}
			if got := s.Unique(); got != 1 {
				t.Fatalf("Unique = %d, want 1", got)
			}
			if got := s.Duplicates(); got != 0 {
				t.Fatalf("Duplicates = %d, want 0", got)
			}
		})
	}
}

func TestShard_RepeatsCountAsDuplicates(t *testing.T) {
	for name, s := range shardFixtures(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()
			for i := 0; i < 5; i++ {
				dup, err := s.Process(7)
				if err != nil {
					t.Fatalf("Process %d: %v", i, err)
				}
				if (i == 0) == dup {
					t.Fatalf("iteration %d: dup = %v", i, dup)
				}
			}
			if got := s.Unique(); got != 1 {
				t.Fatalf("Unique = %d, want 1", got)
			}
			if got := s.Duplicates(); got != 4 {
				t.Fatalf("Duplicates = %d, want 4", got)
			}
			if got := s.MaxLoad(); got != 5 {
				t.Fatalf("MaxLoad = %d, want 5", got)
			}
		})
	}
}

// The sqlite shard batches writes into explicit transactions; a read
// arriving before the batch commits must still see its own pending rows.
func TestSQLiteShard_ReadsOwnPendingWrites(t *testing.T) {
	s, err := NewSQLiteShard(filepath.Join(t.TempDir(), "pending.db"))
	if err != nil {
		t.Fatalf("NewSQLiteShard: %v", err)
	}
	defer s.Close()

	// Well below the flush threshold, so nothing has committed yet.
	for i := uint64(0); i < 100; i++ {
		if _, err := s.Process(i); err != nil {
			t.Fatalf("Process(%d): %v", i, err)
		}
	}
	dup, err := s.Process(50)
	if err != nil {
		t.Fatalf("Process(50) again: %v", err)
	}
	if !dup {
		t.Fatal("repeat of uncommitted hash not seen as duplicate")
	}
}

func TestSQLiteShard_SurvivesFlushBoundary(t *testing.T) {
	s, err := NewSQLiteShard(filepath.Join(t.TempDir(), "flush.db"))
	if err != nil {
		t.Fatalf("NewSQLiteShard: %v", err)
	}
	defer s.Close()

	n := uint64(sqliteFlushEvery + 100)
	for i := uint64(0); i < n; i++ {
		if _, err := s.Process(i); err != nil {
			t.Fatalf("Process(%d): %v", i, err)
		}
	}
	if got := s.Unique(); got != n {
		t.Fatalf("Unique = %d, want %d", got, n)
	}
	// Re-process an early hash that is now on disk.
	dup, err := s.Process(3)
	if err != nil {
		t.Fatalf("Process(3): %v", err)
	}
	if !dup {
		t.Fatal("committed hash not seen as duplicate")
	}
}

func TestMemoryShard_ConcurrentExactCounts(t *testing.T) {
	s := NewMemoryShard()
	defer s.Close()

	const goroutines = 8
	const perG = 1000
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Every goroutine processes the same 1000 hashes.
			for i := uint64(0); i < perG; i++ {
				if _, err := s.Process(i); err != nil {
					t.Errorf("Process: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if got := s.Unique(); got != perG {
		t.Fatalf("Unique = %d, want %d", got, perG)
	}
	if got := s.Duplicates(); got != perG*(goroutines-1) {
		t.Fatalf("Duplicates = %d, want %d", got, perG*(goroutines-1))
	}
	if got := s.MaxLoad(); got != goroutines {
		t.Fatalf("MaxLoad = %d, want %d", got, goroutines)
	}
}
