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

// Package persistence provides record stores for collision pairs and run
// summaries. Adapters share the core.RecordStore surface so the harness can
// swap them with a flag: SQLite for durable local history, Redis for
// shipping results to a shared instance, or nothing at all.
package persistence

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"goldenhash/internal/harness/core"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS collisions (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	algorithm  TEXT    NOT NULL,
	table_size INTEGER NOT NULL,
	hash       INTEGER NOT NULL,
	input_a    TEXT    NOT NULL,
	input_b    TEXT    NOT NULL,
	created_at TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_collisions_algo ON collisions (algorithm, table_size);

CREATE TABLE IF NOT EXISTS runs (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	algorithm       TEXT    NOT NULL,
	table_size      INTEGER NOT NULL,
	inputs          INTEGER NOT NULL,
	unique_hashes   INTEGER NOT NULL,
	duplicates      INTEGER NOT NULL,
	max_bucket_load INTEGER NOT NULL,
	chi_squared     REAL    NOT NULL,
	uniformity      REAL    NOT NULL,
	avalanche       REAL    NOT NULL,
	avalanche_bias  REAL    NOT NULL,
	collision_ratio REAL    NOT NULL,
	nanos_per_hash  REAL    NOT NULL,
	hashes_per_sec  REAL    NOT NULL,
	backend         TEXT    NOT NULL,
	degraded        INTEGER NOT NULL,
	started_at      TEXT    NOT NULL,
	finished_at     TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_algo ON runs (algorithm, table_size);
`

// SQLiteRecordStore persists records to a local SQLite database. Stores are
// written on the reporting path, not the hash hot path, so writes go
// straight through without batching.
type SQLiteRecordStore struct {
	mu  sync.Mutex
	db  *sql.DB
	ins *sql.Stmt
	run *sql.Stmt
}

// NewSQLiteRecordStore opens (or creates) the record database at path.
func NewSQLiteRecordStore(path string) (*SQLiteRecordStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open record db %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create record schema %s: %w", path, err)
	}
	s := &SQLiteRecordStore{db: db}
	if s.ins, err = db.Prepare(`INSERT INTO collisions (algorithm, table_size, hash, input_a, input_b, created_at) VALUES (?, ?, ?, ?, ?, ?)`); err == nil {
		s.run, err = db.Prepare(`INSERT INTO runs (algorithm, table_size, inputs, unique_hashes, duplicates, max_bucket_load,
			chi_squared, uniformity, avalanche, avalanche_bias, collision_ratio, nanos_per_hash, hashes_per_sec,
			backend, degraded, started_at, finished_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare record statements %s: %w", path, err)
	}
	return s, nil
}

// SaveCollision writes one collision pair.
func (s *SQLiteRecordStore) SaveCollision(rec core.CollisionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.ins.Exec(rec.Algorithm, int64(rec.TableSize), int64(rec.Hash),
		rec.InputA, rec.InputB, rec.Timestamp.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert collision: %w", err)
	}
	return nil
}

// SaveRun writes one run summary.
func (s *SQLiteRecordStore) SaveRun(rec core.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	degraded := 0
	if rec.Degraded {
		degraded = 1
	}
	_, err := s.run.Exec(rec.Algorithm, int64(rec.TableSize), int64(rec.Inputs),
		int64(rec.Unique), int64(rec.Duplicates), int64(rec.MaxBucketLoad),
		rec.ChiSquared, rec.Uniformity, rec.Avalanche, rec.AvalancheBias, rec.CollisionRatio,
		rec.NanosPerHash, rec.HashesPerSec, rec.Backend, degraded,
		rec.StartedAt.UTC().Format(time.RFC3339Nano), rec.FinishedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// CollisionsByHash returns the stored pairs for one algorithm and table
// size that share the given hash, oldest first.
func (s *SQLiteRecordStore) CollisionsByHash(algorithm string, tableSize, hash uint64) ([]core.CollisionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(
		`SELECT algorithm, table_size, hash, input_a, input_b, created_at
		 FROM collisions WHERE algorithm = ? AND table_size = ? AND hash = ? ORDER BY id`,
		algorithm, int64(tableSize), int64(hash))
	if err != nil {
		return nil, fmt.Errorf("query collisions: %w", err)
	}
	defer rows.Close()

	var out []core.CollisionRecord
	for rows.Next() {
		var rec core.CollisionRecord
		var tsize, h int64
		var created string
		if err := rows.Scan(&rec.Algorithm, &tsize, &h, &rec.InputA, &rec.InputB, &created); err != nil {
			return nil, fmt.Errorf("scan collision: %w", err)
		}
		rec.TableSize = uint64(tsize)
		rec.Hash = uint64(h)
		rec.Timestamp, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// RunsByAlgorithm returns all stored run summaries for one algorithm,
// newest first.
func (s *SQLiteRecordStore) RunsByAlgorithm(algorithm string) ([]core.RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(
		`SELECT algorithm, table_size, inputs, unique_hashes, duplicates, max_bucket_load,
		        chi_squared, uniformity, avalanche, avalanche_bias, collision_ratio, nanos_per_hash, hashes_per_sec,
		        backend, degraded, started_at, finished_at
		 FROM runs WHERE algorithm = ? ORDER BY id DESC`, algorithm)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []core.RunRecord
	for rows.Next() {
		var rec core.RunRecord
		var tsize, inputs, unique, dups, maxLoad, degraded int64
		var started, finished string
		if err := rows.Scan(&rec.Algorithm, &tsize, &inputs, &unique, &dups, &maxLoad,
			&rec.ChiSquared, &rec.Uniformity, &rec.Avalanche, &rec.AvalancheBias, &rec.CollisionRatio,
			&rec.NanosPerHash, &rec.HashesPerSec, &rec.Backend, &degraded, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rec.TableSize = uint64(tsize)
		rec.Inputs = uint64(inputs)
		rec.Unique = uint64(unique)
		rec.Duplicates = uint64(dups)
		rec.MaxBucketLoad = uint64(maxLoad)
		rec.Degraded = degraded != 0
		rec.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		rec.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close releases the prepared statements and the database handle.
func (s *SQLiteRecordStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	s.ins.Close()
	s.run.Close()
	err := s.db.Close()
	s.db = nil
	return err
}
