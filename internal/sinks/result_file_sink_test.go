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

package sinks

import (
	"path/filepath"
	"sync"
	"testing"

	"goldenhash/internal/harness/core"
)

func TestResultFileSink_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.jsonl")
	s, err := NewResultFileSink(path)
	if err != nil {
		t.Fatalf("NewResultFileSink: %v", err)
	}

	want := []core.ComparisonResult{
		{Algorithm: "goldenhash", TableSize: 65536, Inputs: 1000, Unique: 995, Duplicates: 5,
			ChiSquared: 1.01, Uniformity: 0.99, Avalanche: 0.5, CollisionRatio: 0.98,
			NanosPerHash: 40, HashesPerSec: 2.5e7, Backend: "memory"},
		{Algorithm: "xxhash64", TableSize: 65536, Inputs: 1000, Unique: 993, Duplicates: 7,
			Backend: "sqlite", Degraded: true},
	}
	for i := range want {
		if err := s.Write(&want[i]); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got, err := ReadAllResults(path)
	if err != nil {
		t.Fatalf("ReadAllResults: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("read %d results, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("result %d: %+v != %+v", i, got[i], want[i])
		}
	}
}

func TestResultFileSink_AppendsAcrossReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sweep.jsonl")
	for i := 0; i < 3; i++ {
		s, err := NewResultFileSink(path)
		if err != nil {
			t.Fatalf("NewResultFileSink: %v", err)
		}
		res := core.ComparisonResult{Algorithm: "goldenhash", TableSize: uint64(1000 + i)}
		if err := s.Write(&res); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
	got, err := ReadAllResults(path)
	if err != nil {
		t.Fatalf("ReadAllResults: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("read %d results, want 3", len(got))
	}
	for i, res := range got {
		if res.TableSize != uint64(1000+i) {
			t.Errorf("result %d table size = %d, want %d", i, res.TableSize, 1000+i)
		}
	}
}

func TestResultFileSink_ConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "concurrent.jsonl")
	s, err := NewResultFileSink(path)
	if err != nil {
		t.Fatalf("NewResultFileSink: %v", err)
	}
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				res := core.ComparisonResult{Algorithm: "goldenhash", TableSize: uint64(g*1000 + i)}
				if err := s.Write(&res); err != nil {
					t.Errorf("Write: %v", err)
					return
				}
			}
		}(g)
	}
	wg.Wait()
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	got, err := ReadAllResults(path)
	if err != nil {
		t.Fatalf("ReadAllResults: %v", err)
	}
	if len(got) != 400 {
		t.Fatalf("read %d results, want 400", len(got))
	}
}
