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

// Package sinks contains append-only file sinks for evaluation output.
package sinks

import (
	"bufio"
	"os"
	"sync"
	"time"

	"github.com/sugawarayuuta/sonnet"

	"goldenhash/internal/harness/core"
)

// ResultFileSink is a buffered JSONL sink for comparison results. It is
// safe for concurrent use and optimized for append-only sweep output.
type ResultFileSink struct {
	mu   sync.Mutex
	f    *os.File
	w    *bufio.Writer
	path string

	lastFlush time.Time
}

// NewResultFileSink opens (or creates) the file at path in append mode with
// a buffered writer. Call Close() when done.
func NewResultFileSink(path string) (*ResultFileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &ResultFileSink{f: f, w: bufio.NewWriterSize(f, 1<<20 /*1MiB*/), path: path, lastFlush: time.Now()}, nil
}

// Write appends one result as a JSON line.
func (s *ResultFileSink) Write(res *core.ComparisonResult) error {
	payload, err := sonnet.Marshal(res)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(payload); err != nil {
		return err
	}
	if err := s.w.WriteByte('\n'); err != nil {
		return err
	}
	// Flush periodically to bound data loss if a long sweep dies mid-run.
	if time.Since(s.lastFlush) > 100*time.Millisecond {
		if err := s.w.Flush(); err != nil {
			return err
		}
		s.lastFlush = time.Now()
	}
	return nil
}

// Flush forces buffered data to be written to disk.
func (s *ResultFileSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFlush = time.Now()
	return s.w.Flush()
}

// Close flushes and closes the underlying file.
func (s *ResultFileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.w.Flush()
	return s.f.Close()
}

// ReadAllResults reads an entire result log back as a slice. Intended for
// comparing sweeps after the fact.
func ReadAllResults(path string) ([]core.ComparisonResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []core.ComparisonResult
	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 1<<20)
	scanner.Buffer(buf, 1<<26)
	for scanner.Scan() {
		var res core.ComparisonResult
		if err := sonnet.Unmarshal(scanner.Bytes(), &res); err == nil {
			out = append(out, res)
		}
	}
	return out, scanner.Err()
}
