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
	"database/sql"
	"fmt"
	"math/rand"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrOutOfRange is returned by TestData.Get for an index past the end.
// Under the orchestrator's disjoint partitioning it is unreachable and
// treated as a fatal assertion by callers.
var ErrOutOfRange = fmt.Errorf("core: test data index out of range")

// TestData is an append-only, thread-safe sequence of byte-string inputs.
// The in-memory and disk-backed implementations are behaviorally identical;
// callers must not be able to tell them apart except by speed.
type TestData interface {
	Add(item []byte) error
	Get(index int) ([]byte, error)
	Len() int
	Clear() error
	Close() error
}

// MemoryTestData keeps the corpus in a slice behind a mutex.
type MemoryTestData struct {
	mu    sync.Mutex
	items [][]byte
}

// NewMemoryTestData returns an empty in-memory corpus.
func NewMemoryTestData() *MemoryTestData {
	return &MemoryTestData{items: make([][]byte, 0, 1024)}
}

func (d *MemoryTestData) Add(item []byte) error {
	cp := make([]byte, len(item))
	copy(cp, item)
	d.mu.Lock()
	d.items = append(d.items, cp)
	d.mu.Unlock()
	return nil
}

func (d *MemoryTestData) Get(index int) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if index < 0 || index >= len(d.items) {
		return nil, fmt.Errorf("%w: %d of %d", ErrOutOfRange, index, len(d.items))
	}
	return d.items[index], nil
}

func (d *MemoryTestData) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.items)
}

func (d *MemoryTestData) Clear() error {
	d.mu.Lock()
	d.items = d.items[:0]
	d.mu.Unlock()
	return nil
}

func (d *MemoryTestData) Close() error { return d.Clear() }

// corpusFlushEvery bounds how many Add calls a SQLite corpus batches into
// one transaction.
const corpusFlushEvery = 1024

// SQLiteTestData stores the corpus in a SQLite file, for corpora too large
// for memory or for reuse across runs. Like SQLiteShard it pins a single
// connection so batched transactions read their own pending writes.
type SQLiteTestData struct {
	mu   sync.Mutex
	db   *sql.DB
	ins  *sql.Stmt
	sel  *sql.Stmt
	n    int
	ops  uint64
	path string
}

// NewSQLiteTestData opens (or creates) a corpus database at path. Pass
// ":memory:" for an anonymous scratch corpus.
func NewSQLiteTestData(path string) (*SQLiteTestData, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open corpus %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA synchronous = OFF",
		"PRAGMA journal_mode = MEMORY",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("corpus %s: %s: %w", path, pragma, err)
		}
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS items (idx INTEGER PRIMARY KEY, data BLOB NOT NULL)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create corpus table %s: %w", path, err)
	}

	d := &SQLiteTestData{db: db, path: path}
	if err := db.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&d.n); err != nil {
		db.Close()
		return nil, fmt.Errorf("count corpus %s: %w", path, err)
	}
	if d.ins, err = db.Prepare(`INSERT INTO items (idx, data) VALUES (?, ?)`); err == nil {
		d.sel, err = db.Prepare(`SELECT data FROM items WHERE idx = ?`)
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare corpus statements %s: %w", path, err)
	}
	if _, err := db.Exec("BEGIN"); err != nil {
		db.Close()
		return nil, fmt.Errorf("begin corpus transaction %s: %w", path, err)
	}
	return d, nil
}

func (d *SQLiteTestData) Add(item []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.ins.Exec(d.n, item); err != nil {
		return fmt.Errorf("corpus insert: %w", err)
	}
	d.n++
	d.ops++
	if d.ops%corpusFlushEvery == 0 {
		if _, err := d.db.Exec("COMMIT"); err != nil {
			return fmt.Errorf("corpus commit: %w", err)
		}
		if _, err := d.db.Exec("BEGIN"); err != nil {
			return fmt.Errorf("corpus begin: %w", err)
		}
	}
	return nil
}

func (d *SQLiteTestData) Get(index int) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if index < 0 || index >= d.n {
		return nil, fmt.Errorf("%w: %d of %d", ErrOutOfRange, index, d.n)
	}
	var data []byte
	if err := d.sel.QueryRow(index).Scan(&data); err != nil {
		return nil, fmt.Errorf("corpus select %d: %w", index, err)
	}
	return data, nil
}

func (d *SQLiteTestData) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.n
}

func (d *SQLiteTestData) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.db.Exec(`DELETE FROM items`); err != nil {
		return fmt.Errorf("corpus clear: %w", err)
	}
	d.n = 0
	return nil
}

func (d *SQLiteTestData) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.db == nil {
		return nil
	}
	_, commitErr := d.db.Exec("COMMIT")
	d.ins.Close()
	d.sel.Close()
	err := d.db.Close()
	d.db = nil
	if commitErr != nil {
		return fmt.Errorf("corpus final commit: %w", commitErr)
	}
	return err
}

// fixedCorpusStrings are the deterministic anchors mixed into every
// generated corpus: edge-case lengths and the usual pangram suspects.
var fixedCorpusStrings = []string{
	"",
	"Hello, World!",
	"1234567890",
	"a",
	"abc",
	"abcdefghijklmnopqrstuvwxyz",
	"ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789",
	"The quick brown fox jumps over the lazy dog",
}

// FillCorpus appends count items to data: a rotation of the fixed strings
// suffixed with their global index (so items stay distinct), plus seeded
// random alphanumeric strings and raw random bytes. Deterministic for a
// given (seed, startIndex, count).
func FillCorpus(data TestData, seed int64, startIndex, count int) error {
	rng := rand.New(rand.NewSource(seed))
	for i := 0; i < count; i++ {
		global := startIndex + i
		var item []byte
		switch global % 20 {
		case 0, 1, 2, 3, 4, 5, 6, 7:
			s := fixedCorpusStrings[global%20]
			if global > 0 {
				item = []byte(fmt.Sprintf("%s %d", s, global))
			} else {
				item = []byte(s)
			}
		case 8, 9, 10, 11, 12, 13, 14, 15:
			n := 8 + rng.Intn(24)
			buf := make([]byte, n)
			for j := range buf {
				buf[j] = 'a' + byte(rng.Intn(26))
			}
			item = []byte(fmt.Sprintf("%s %d", buf, global))
		default:
			buf := make([]byte, 8+rng.Intn(16))
			rng.Read(buf)
			item = append(buf, []byte(fmt.Sprintf(" %d", global))...)
		}
		if err := data.Add(item); err != nil {
			return err
		}
	}
	return nil
}

// GenerateCorpus builds one disjoint TestData slice per worker, filled in
// parallel. makeData constructs the backing store for each slice (memory or
// SQLite); slices are sized as evenly as the remainder allows.
func GenerateCorpus(total, workers int, seed int64, makeData func(worker int) (TestData, error)) ([]TestData, error) {
	if workers < 1 {
		workers = 1
	}
	slices := make([]TestData, workers)
	for w := range slices {
		d, err := makeData(w)
		if err != nil {
			return nil, fmt.Errorf("corpus slice %d: %w", w, err)
		}
		slices[w] = d
	}

	per := total / workers
	rem := total % workers
	var g errgroup.Group
	start := 0
	for w := 0; w < workers; w++ {
		count := per
		if w < rem {
			count++
		}
		w := w
		ws := start
		g.Go(func() error {
			return FillCorpus(slices[w], seed+int64(w), ws, count)
		})
		start += count
	}
	if err := g.Wait(); err != nil {
		for _, d := range slices {
			d.Close()
		}
		return nil, err
	}
	RecordItems(int64(total))
	return slices, nil
}
