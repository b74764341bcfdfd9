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

// Package progress provides opt-in, low-overhead telemetry for long
// evaluation sweeps. It is safe to call from hot paths: when disabled, all
// public functions are no-ops.
package progress

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config controls the progress module.
//
// Notes:
//   - MetricsAddr, when non-empty, starts a dedicated HTTP server that
//     serves /metrics. If you already expose Prometheus elsewhere, leave
//     it empty and register promhttp yourself.
//   - LogInterval controls the periodic progress log line; 0 disables it.
type Config struct {
	Enabled     bool
	MetricsAddr string        // e.g., ":9090". Empty to disable standalone metrics endpoint
	LogInterval time.Duration // e.g., 10*time.Second; 0 disables periodic logging
}

var (
	modEnabled atomic.Bool

	itemsDone  atomic.Uint64
	itemsTotal atomic.Uint64

	// Prometheus metrics, global only so label cardinality stays bounded.
	hashesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "goldenhash_hashes_total",
		Help: "Total hash evaluations across all passes and runs",
	})
	collisionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "goldenhash_collisions_total",
		Help: "Total duplicate hashes observed across all runs",
	})
	runsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "goldenhash_runs_total",
		Help: "Total completed evaluation runs",
	})
	runSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "goldenhash_run_seconds",
		Help:    "Distribution of wall-clock seconds per evaluation run",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600},
	})
	progressFraction = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "goldenhash_run_progress",
		Help: "Fraction of the current metrics pass completed, 0..1",
	})
	collisionRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "goldenhash_collision_ratio",
		Help: "Observed over expected collisions for the most recent run",
	})
	avalancheScore = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "goldenhash_avalanche_score",
		Help: "Mean significant-bit avalanche for the most recent run, ideal 0.5",
	})
)

func init() {
	// Eager registration is harmless when no endpoint is exposed.
	prometheus.MustRegister(hashesTotal, collisionsTotal, runsTotal, runSeconds,
		progressFraction, collisionRatio, avalancheScore)
}

// Enable configures the module. Safe to call multiple times; subsequent
// calls replace the config.
func Enable(cfg Config) {
	modEnabled.Store(cfg.Enabled)
	startOrUpdateLogger(cfg)
	if cfg.Enabled && cfg.MetricsAddr != "" {
		startMetricsEndpoint(cfg.MetricsAddr)
	}
}

// Enabled reports whether the progress module is active.
func Enabled() bool { return modEnabled.Load() }

// ObserveProgress records metrics-pass position. Called from worker
// goroutines, so it does nothing but two atomic stores and a gauge update.
func ObserveProgress(done, total uint64) {
	if !modEnabled.Load() {
		return
	}
	itemsDone.Store(done)
	itemsTotal.Store(total)
	if total > 0 {
		progressFraction.Set(float64(done) / float64(total))
	}
}

// ObserveHashes adds to the cumulative hash counter.
func ObserveHashes(n uint64) {
	if !modEnabled.Load() || n == 0 {
		return
	}
	hashesTotal.Add(float64(n))
}

// ObserveRun records a completed run: its duration and headline scores.
func ObserveRun(elapsed time.Duration, duplicates uint64, ratio, avalanche float64) {
	if !modEnabled.Load() {
		return
	}
	runsTotal.Inc()
	runSeconds.Observe(elapsed.Seconds())
	collisionsTotal.Add(float64(duplicates))
	collisionRatio.Set(ratio)
	avalancheScore.Set(avalanche)
	progressFraction.Set(0)
	itemsDone.Store(0)
	itemsTotal.Store(0)
}

// loggerState guards the single periodic logging goroutine across repeated
// Enable calls.
var loggerState struct {
	mu      sync.Mutex
	stop    chan struct{}
	running bool
}

// startOrUpdateLogger restarts the periodic logger for the new config.
func startOrUpdateLogger(cfg Config) {
	loggerState.mu.Lock()
	defer loggerState.mu.Unlock()
	if loggerState.running {
		close(loggerState.stop)
		loggerState.running = false
	}
	if !cfg.Enabled || cfg.LogInterval <= 0 {
		return
	}
	stop := make(chan struct{})
	loggerState.stop = stop
	loggerState.running = true
	go func() {
		ticker := time.NewTicker(cfg.LogInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				done, total := itemsDone.Load(), itemsTotal.Load()
				if total == 0 {
					continue
				}
				fmt.Printf("[%s] progress: %d/%d items (%.1f%%)\n",
					time.Now().Format(time.RFC3339), done, total,
					100*float64(done)/float64(total))
			}
		}
	}()
}

// startMetricsEndpoint exposes /metrics on addr in a background goroutine.
// Best-effort: repeated calls with the same addr leak a failed listener,
// which is acceptable for a process-lifetime diagnostic endpoint.
func startMetricsEndpoint(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		_ = server.ListenAndServe()
	}()
}
