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

package goldenhash

import "testing"

func TestSBoxBank_DeterministicPerConfig(t *testing.T) {
	cfg, err := NewTableConfig(1<<20, 0)
	if err != nil {
		t.Fatal(err)
	}
	a := newSBoxBank(cfg)
	b := newSBoxBank(cfg)
	if a.tables != b.tables {
		t.Fatal("same config produced different S-box banks")
	}

	cfg2, err := NewTableConfig(1<<20+2, 0)
	if err != nil {
		t.Fatal(err)
	}
	c := newSBoxBank(cfg2)
	if a.tables == c.tables {
		t.Fatal("different table sizes produced identical S-box banks")
	}
}

// The generator only has to be low-bias; these bounds are the structural
// grades we expect from a random-ish 12→8 table, with generous slack.
func TestSBoxBank_StructuralQuality(t *testing.T) {
	sizes := []uint64{1 << 16, 1 << 20, 1<<20 + 7, 1<<32 + 10}
	for _, n := range sizes {
		cfg, err := NewTableConfig(n, 0)
		if err != nil {
			t.Fatal(err)
		}
		bank := newSBoxBank(cfg)
		for _, s := range bank.AnalyzeSBoxes() {
			// A uniform table leaves essentially no output unused; allow a
			// handful before calling the generator biased.
			if s.UnusedOutputs > 8 {
				t.Errorf("N=%d table %d: %d unused outputs", n, s.Table, s.UnusedOutputs)
			}
			// Random-function expectation is sqrt(16)=4; flag gross skew.
			if s.OutputFreqStdDev > 12 {
				t.Errorf("N=%d table %d: output frequency stddev %.2f", n, s.Table, s.OutputFreqStdDev)
			}
			// Ideal adjacent avalanche is 4 of 8 bits.
			if s.AdjacentAvalanche < 2.5 || s.AdjacentAvalanche > 5.5 {
				t.Errorf("N=%d table %d: adjacent avalanche %.2f", n, s.Table, s.AdjacentAvalanche)
			}
			// 4096 samples over 256 differences average 16 per bucket; a
			// flat-ish table stays well under 4x that.
			if s.DifferentialUniformity > 64 {
				t.Errorf("N=%d table %d: differential uniformity %d", n, s.Table, s.DifferentialUniformity)
			}
			// No output bit may be an affine function of the index bits.
			if s.AffineDistance == 0 {
				t.Errorf("N=%d table %d: an output bit is affine", n, s.Table)
			}
		}
	}
}

func TestSBoxStats_CountsEveryTable(t *testing.T) {
	h, err := New(1<<16, 0)
	if err != nil {
		t.Fatal(err)
	}
	stats := h.AnalyzeSBoxes()
	if len(stats) != NumSBoxes {
		t.Fatalf("got %d stats, want %d", len(stats), NumSBoxes)
	}
	for i, s := range stats {
		if s.Table != i {
			t.Fatalf("stats[%d].Table = %d", i, s.Table)
		}
	}
}
