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

// Process-level event counters used for the end-of-process summary. Kept
// as atomics so the hash hot path never takes a lock to record progress.

package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var (
	hashed     atomic.Int64
	collisions atomic.Int64
	items      atomic.Int64
	runs       atomic.Int64

	// thresholds holds human-readable configuration knobs captured at runtime.
	thresholdsMu sync.RWMutex
	thresholds   = make(map[string]string)
)

// RecordHashed increments the number of hash invocations across all passes.
func RecordHashed(n int64) {
	if n > 0 {
		hashed.Add(n)
	}
}

// RecordCollisions increments the number of duplicate hashes observed.
func RecordCollisions(n int64) {
	if n > 0 {
		collisions.Add(n)
	}
}

// RecordItems increments the number of corpus items generated.
func RecordItems(n int64) {
	if n > 0 {
		items.Add(n)
	}
}

// RecordRun increments the number of completed evaluation runs.
func RecordRun() {
	runs.Add(1)
}

// Threshold setters capture important runtime knobs for final printing.
func SetThreshold(name string, value string) {
	thresholdsMu.Lock()
	thresholds[name] = value
	thresholdsMu.Unlock()
}

func SetThresholdInt64(name string, v int64) { SetThreshold(name, fmt.Sprintf("%d", v)) }
func SetThresholdUint64(name string, v uint64) { SetThreshold(name, fmt.Sprintf("%d", v)) }
func SetThresholdDuration(name string, d time.Duration) { SetThreshold(name, d.String()) }
func SetThresholdBool(name string, b bool) { SetThreshold(name, fmt.Sprintf("%t", b)) }

// getEventTotals provides a snapshot of the current counters.
func getEventTotals() (hashedN, collisionsN, itemsN, runsN int64) {
	return hashed.Load(), collisions.Load(), items.Load(), runs.Load()
}

// getThresholdSnapshot returns a copy of thresholds for stable iteration.
func getThresholdSnapshot() map[string]string {
	thresholdsMu.RLock()
	defer thresholdsMu.RUnlock()
	out := make(map[string]string, len(thresholds))
	for k, v := range thresholds {
		out[k] = v
	}
	return out
}

// PrintFinalSummary prints a single columnar end-of-process summary of
// everything the harness did, plus the configuration knobs it ran with.
func PrintFinalSummary() {
	hashedN, collisionsN, itemsN, runsN := getEventTotals()

	th := getThresholdSnapshot()
	keys := make([]string, 0, len(th))
	for k := range th {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sep := strings.Repeat("-", 60)
	fmt.Printf("[%s] Final harness summary\n", time.Now().Format(time.RFC3339))
	fmt.Println(sep)
	fmt.Printf("%-18s %12s\n", "Metric", "Value")
	fmt.Println(sep)
	fmt.Printf("%-18s %12d\n", "Runs", runsN)
	fmt.Printf("%-18s %12d\n", "Corpus items", itemsN)
	fmt.Printf("%-18s %12d\n", "Hashes", hashedN)
	fmt.Printf("%-18s %12d\n", "Collisions", collisionsN)
	fmt.Println(sep)

	if len(keys) > 0 {
		fmt.Printf("Configured thresholds\n")
		fmt.Println(sep)
		fmt.Printf("%-30s %24s\n", "Name", "Value")
		fmt.Println(sep)
		for _, k := range keys {
			fmt.Printf("%-30s %24s\n", k, th[k])
		}
		fmt.Println(sep)
	}
}

// resetEventTotals resets counters to zero. Intended for tests only.
func resetEventTotals() {
	hashed.Store(0)
	collisions.Store(0)
	items.Store(0)
	runs.Store(0)
}

// resetThresholdsForTests clears the thresholds registry. Intended for tests only.
func resetThresholdsForTests() {
	thresholdsMu.Lock()
	defer thresholdsMu.Unlock()
	for k := range thresholds {
		delete(thresholds, k)
	}
}
