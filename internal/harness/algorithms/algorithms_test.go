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

package algorithms

import (
	"fmt"
	"testing"
)

func TestBuild_AllNamesStayInRange(t *testing.T) {
	const tableSize = 1009 // prime, so modulo bias is visible if range leaks
	inputs := [][]byte{
		nil,
		[]byte(""),
		[]byte("a"),
		[]byte("hello world"),
		[]byte("The quick brown fox jumps over the lazy dog"),
	}
	for _, name := range Names() {
		fn, _, err := Build(name, tableSize, 42)
		if err != nil {
			t.Fatalf("Build(%q): %v", name, err)
		}
		for _, in := range inputs {
			if h := fn(in); h >= tableSize {
				t.Errorf("%s(%q) = %d, out of range [0, %d)", name, in, h, tableSize)
			}
		}
	}
}

func TestBuild_Deterministic(t *testing.T) {
	for _, name := range Names() {
		a, _, err := Build(name, 65536, 7)
		if err != nil {
			t.Fatalf("Build(%q): %v", name, err)
		}
		b, _, err := Build(name, 65536, 7)
		if err != nil {
			t.Fatalf("Build(%q): %v", name, err)
		}
		for i := 0; i < 100; i++ {
			in := []byte(fmt.Sprintf("input-%d", i))
			if a(in) != b(in) {
				t.Fatalf("%s not deterministic across instances for %q", name, in)
			}
		}
	}
}

func TestBuild_UnknownName(t *testing.T) {
	if _, _, err := Build("md5", 100, 0); err == nil {
		t.Fatal("expected error for unknown algorithm")
	}
}

func TestFNV64a_KnownVectors(t *testing.T) {
	// Reference values from the FNV-1a specification.
	cases := map[string]uint64{
		"":    0xcbf29ce484222325,
		"a":   0xaf63dc4c8601ec8c,
		"foo": 0xdcb27518fed9d577,
	}
	for in, want := range cases {
		if got := fnv64a([]byte(in)); got != want {
			t.Errorf("fnv64a(%q) = %#x, want %#x", in, got, want)
		}
	}
}
