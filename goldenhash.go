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

import "encoding/binary"

// Hasher hashes byte slices into [0, N) for a fixed table size N and seed.
//
// A Hasher owns its TableConfig and S-box bank exclusively; both are
// immutable after New returns, so a single Hasher may be shared read-only by
// any number of goroutines. Sum64 keeps all transient state in locals — two
// 64-bit accumulators and a rotating table selector — and never allocates.
//
// The construction is explicitly non-cryptographic: it is built for bucket
// distribution quality, not for resistance against an adversary who knows
// the table constants.
type Hasher struct {
	cfg *TableConfig
	box *SBoxBank
}

// New derives the table configuration and generates the S-box bank for the
// given table size and seed. It fails only for tableSize < 2.
func New(tableSize, seed uint64) (*Hasher, error) {
	cfg, err := NewTableConfig(tableSize, seed)
	if err != nil {
		return nil, err
	}
	return &Hasher{cfg: cfg, box: newSBoxBank(cfg)}, nil
}

// Config returns the derived constants for this instance.
func (h *Hasher) Config() *TableConfig { return h.cfg }

// AnalyzeSBoxes grades the instance's substitution tables. Offline use only.
func (h *Hasher) AnalyzeSBoxes() []SBoxStats { return h.box.AnalyzeSBoxes() }

// Sum64 hashes data into [0, TableSize). It is a pure function of the input
// bytes for a fixed (table size, seed): no state survives between calls. It
// accepts any input length, including zero, and never allocates.
func (h *Hasher) Sum64(data []byte) uint64 {
	cfg := h.cfg

	// state mixes raw input blocks; dig is the rolling digest the S-box
	// output is folded into. dig absorbs the table size up front, the same
	// way the chaos factor did in earlier iterations of the construction.
	state := cfg.InitialHash
	dig := cfg.InitialHash ^ cfg.TableSize*goldenGamma
	rot := uint(0)

	p := data
	for len(p) >= 8 {
		state ^= binary.LittleEndian.Uint64(p)
		state *= cfg.PrimeLow
		state ^= state >> 29

		// Eight 12-bit indices drawn from both accumulators; the shifts
		// are coprime so the windows slide at different rates.
		var lookup uint64
		for j := uint(0); j < 8; j++ {
			idx := (state>>(j*7) ^ dig>>(j*5)) & sboxIndexMask
			lookup |= uint64(h.box.tables[(j+rot)&7][idx]) << (j * 8)
		}
		dig ^= lookup
		dig *= cfg.PrimeHigh
		dig ^= dig >> 31

		rot++
		p = p[8:]
	}

	// Trailing bytes go through three chained lookups each.
	for i, b := range p {
		x := uint64(b) | uint64(i)<<8
		v1 := h.box.tables[rot&7][(dig^x)&sboxIndexMask]
		v2 := h.box.tables[(rot+1)&7][(dig>>12^x<<4^uint64(v1))&sboxIndexMask]
		v3 := h.box.tables[(rot+2)&7][(dig>>24^uint64(v2)<<4)&sboxIndexMask]
		dig ^= uint64(v1) | uint64(v2)<<8 | uint64(v3)<<16
		dig *= cfg.PrimeLow
		dig ^= dig >> 33
		rot++
	}

	// Finalize: fold the block accumulator, the length and the mixed prime,
	// then the standard two-constant avalanche.
	dig ^= state
	dig ^= uint64(len(data)) * cfg.PrimeMixed
	dig ^= dig >> 33
	dig *= avalancheMul1
	dig ^= dig >> 33
	dig *= avalancheMul2
	dig ^= dig >> 33

	return dig % cfg.TableSize
}
