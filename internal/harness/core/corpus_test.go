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
	"bytes"
	"errors"
	"path/filepath"
	"testing"
)

func testDataFixtures(t *testing.T) map[string]TestData {
	t.Helper()
	sq, err := NewSQLiteTestData(filepath.Join(t.TempDir(), "corpus.db"))
	if err != nil {
		t.Fatalf("NewSQLiteTestData: %v", err)
	}
	return map[string]TestData{
		"memory": NewMemoryTestData(),
		"sqlite": sq,
	}
}

func TestTestData_AddGetRoundTrip(t *testing.T) {
	items := [][]byte{
		[]byte(""),
		[]byte("hello"),
		{0x00, 0xFF, 0x80, 0x01},
		bytes.Repeat([]byte("x"), 10000),
	}
	for name, d := range testDataFixtures(t) {
		t.Run(name, func(t *testing.T) {
			defer d.Close()
			for _, it := range items {
				if err := d.Add(it); err != nil {
					t.Fatalf("Add: %v", err)
				}
			}
			if got := d.Len(); got != len(items) {
				t.Fatalf("Len = %d, want %d", got, len(items))
			}
			for i, want := range items {
				got, err := d.Get(i)
				if err != nil {
					t.Fatalf("Get(%d): %v", i, err)
				}
				if !bytes.Equal(got, want) {
					t.Fatalf("Get(%d) = %q, want %q", i, got, want)
				}
			}
		})
	}
}

func TestTestData_GetOutOfRange(t *testing.T) {
	for name, d := range testDataFixtures(t) {
		t.Run(name, func(t *testing.T) {
			defer d.Close()
			if err := d.Add([]byte("only")); err != nil {
				t.Fatalf("Add: %v", err)
			}
			for _, idx := range []int{-1, 1, 100} {
				if _, err := d.Get(idx); !errors.Is(err, ErrOutOfRange) {
					t.Errorf("Get(%d): err = %v, want ErrOutOfRange", idx, err)
				}
			}
		})
	}
}

func TestTestData_Clear(t *testing.T) {
	for name, d := range testDataFixtures(t) {
		t.Run(name, func(t *testing.T) {
			defer d.Close()
			for i := 0; i < 10; i++ {
				if err := d.Add([]byte{byte(i)}); err != nil {
					t.Fatalf("Add: %v", err)
				}
			}
			if err := d.Clear(); err != nil {
				t.Fatalf("Clear: %v", err)
			}
			if got := d.Len(); got != 0 {
				t.Fatalf("Len after Clear = %d, want 0", got)
			}
			if err := d.Add([]byte("again")); err != nil {
				t.Fatalf("Add after Clear: %v", err)
			}
			if got := d.Len(); got != 1 {
				t.Fatalf("Len = %d, want 1", got)
			}
		})
	}
}

func TestMemoryTestData_AddCopiesInput(t *testing.T) {
	d := NewMemoryTestData()
	buf := []byte("mutable")
	if err := d.Add(buf); err != nil {
		t.Fatalf("Add: %v", err)
	}
	buf[0] = 'X'
	got, err := d.Get(0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "mutable" {
		t.Fatalf("stored item aliased caller buffer: %q", got)
	}
}

func TestFillCorpus_Deterministic(t *testing.T) {
	a := NewMemoryTestData()
	b := NewMemoryTestData()
	if err := FillCorpus(a, 42, 0, 500); err != nil {
		t.Fatalf("FillCorpus a: %v", err)
	}
	if err := FillCorpus(b, 42, 0, 500); err != nil {
		t.Fatalf("FillCorpus b: %v", err)
	}
	for i := 0; i < 500; i++ {
		x, _ := a.Get(i)
		y, _ := b.Get(i)
		if !bytes.Equal(x, y) {
			t.Fatalf("item %d differs across identical seeds: %q vs %q", i, x, y)
		}
	}
}

func TestFillCorpus_DistinctItems(t *testing.T) {
	d := NewMemoryTestData()
	if err := FillCorpus(d, 9, 0, 2000); err != nil {
		t.Fatalf("FillCorpus: %v", err)
	}
	seen := make(map[string]int, 2000)
	for i := 0; i < d.Len(); i++ {
		item, _ := d.Get(i)
		if prev, ok := seen[string(item)]; ok {
			t.Fatalf("items %d and %d identical: %q", prev, i, item)
		}
		seen[string(item)] = i
	}
}

func TestGenerateCorpus_PartitionsEvenly(t *testing.T) {
	resetEventTotals()
	slices, err := GenerateCorpus(1003, 4, 11, func(int) (TestData, error) {
		return NewMemoryTestData(), nil
	})
	if err != nil {
		t.Fatalf("GenerateCorpus: %v", err)
	}
	defer func() {
		for _, s := range slices {
			s.Close()
		}
	}()
	if len(slices) != 4 {
		t.Fatalf("got %d slices, want 4", len(slices))
	}
	total := 0
	for w, s := range slices {
		n := s.Len()
		if n != 250 && n != 251 {
			t.Fatalf("slice %d has %d items, want 250 or 251", w, n)
		}
		total += n
	}
	if total != 1003 {
		t.Fatalf("total items = %d, want 1003", total)
	}
}

func TestGenerateCorpus_SlicesAreDisjoint(t *testing.T) {
	resetEventTotals()
	const total = 2000
	slices, err := GenerateCorpus(total, 4, 11, func(int) (TestData, error) {
		return NewMemoryTestData(), nil
	})
	if err != nil {
		t.Fatalf("GenerateCorpus: %v", err)
	}
	defer func() {
		for _, s := range slices {
			s.Close()
		}
	}()
	// Every generated item embeds its global index, so a repeated item
	// means two workers were handed overlapping index ranges.
	seen := make(map[string]int, total)
	for w, s := range slices {
		for i := 0; i < s.Len(); i++ {
			item, err := s.Get(i)
			if err != nil {
				t.Fatalf("slice %d Get(%d): %v", w, i, err)
			}
			if prev, ok := seen[string(item)]; ok {
				t.Fatalf("item %q in slice %d already produced by slice %d", item, w, prev)
			}
			seen[string(item)] = w
		}
	}
	if len(seen) != total {
		t.Fatalf("corpus has %d distinct items, want %d", len(seen), total)
	}
}
