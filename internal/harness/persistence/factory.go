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

package persistence

import (
	"fmt"
	"time"

	"goldenhash/internal/harness/core"
)

// Options holds the knobs for building a record store.
type Options struct {
	// SQLitePath is the database file for the sqlite adapter.
	SQLitePath string
	// RedisAddr selects a real Redis client for the redis adapter; empty
	// falls back to the logging client so the adapter can be exercised
	// without infrastructure.
	RedisAddr string
	// RedisTimeout bounds each save operation.
	RedisTimeout time.Duration
}

// BuildRecordStore constructs a core.RecordStore from a string selector:
//   - "" or "none": discard everything
//   - "sqlite": durable local history at Options.SQLitePath
//   - "redis": ship records to Options.RedisAddr, or log them when no
//     address is configured
func BuildRecordStore(adapter string, opts Options) (core.RecordStore, error) {
	switch adapter {
	case "", "none":
		return core.NopRecordStore{}, nil
	case "sqlite":
		path := opts.SQLitePath
		if path == "" {
			path = "goldenhash-records.db"
		}
		return NewSQLiteRecordStore(path)
	case "redis":
		var pusher RedisPusher
		if opts.RedisAddr != "" {
			pusher = NewGoRedisPusher(opts.RedisAddr)
		} else {
			pusher = LoggingPusher{}
		}
		return NewRedisRecordStore(pusher, opts.RedisTimeout), nil
	default:
		return nil, fmt.Errorf("unknown record store adapter: %s", adapter)
	}
}
