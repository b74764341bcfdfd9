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
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/sugawarayuuta/sonnet"

	"goldenhash/internal/harness/core"
)

// RedisPusher abstracts the minimal surface needed from a Redis client:
// appending a serialized record to a list. Implementations may wrap
// github.com/redis/go-redis/v9 or any equivalent.
type RedisPusher interface {
	RPush(ctx context.Context, key string, value []byte) error
}

// Key layout helpers, public for interoperability with readers of the
// shared instance.
func RedisCollisionKey(algorithm string, tableSize uint64) string {
	return fmt.Sprintf("goldenhash:collisions:%s:%d", algorithm, tableSize)
}

func RedisRunKey(algorithm string) string {
	return fmt.Sprintf("goldenhash:runs:%s", algorithm)
}

// RedisRecordStore ships records to a Redis instance as JSON list entries,
// so multiple hosts sweeping different table sizes can aggregate into one
// place. Each save is bounded by opTimeout; a slow or dead Redis fails the
// run rather than silently dropping records.
type RedisRecordStore struct {
	client    RedisPusher
	opTimeout time.Duration
}

// NewRedisRecordStore returns a store over the given client.
func NewRedisRecordStore(client RedisPusher, opTimeout time.Duration) *RedisRecordStore {
	if opTimeout <= 0 {
		opTimeout = 5 * time.Second
	}
	return &RedisRecordStore{client: client, opTimeout: opTimeout}
}

func (r *RedisRecordStore) push(key string, rec interface{}) error {
	payload, err := sonnet.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.opTimeout)
	defer cancel()
	if err := r.client.RPush(ctx, key, payload); err != nil {
		return fmt.Errorf("redis rpush %s: %w", key, err)
	}
	return nil
}

func (r *RedisRecordStore) SaveCollision(rec core.CollisionRecord) error {
	return r.push(RedisCollisionKey(rec.Algorithm, rec.TableSize), rec)
}

func (r *RedisRecordStore) SaveRun(rec core.RunRecord) error {
	return r.push(RedisRunKey(rec.Algorithm), rec)
}

func (r *RedisRecordStore) Close() error { return nil }

// GoRedisPusher wraps github.com/redis/go-redis/v9 as a RedisPusher.
// Use NewGoRedisPusher with an address like "127.0.0.1:6379".
type GoRedisPusher struct{ c *redis.Client }

func NewGoRedisPusher(addr string) *GoRedisPusher {
	return &GoRedisPusher{c: redis.NewClient(&redis.Options{Addr: addr})}
}

func (g *GoRedisPusher) RPush(ctx context.Context, key string, value []byte) error {
	return g.c.RPush(ctx, key, value).Err()
}

// LoggingPusher logs pushes to stdout instead of talking to a server. It
// lets the redis adapter be selected without a running instance, for dry
// runs and tests. Not for production use.
type LoggingPusher struct{}

func (LoggingPusher) RPush(ctx context.Context, key string, value []byte) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	fmt.Printf("[redis-dry] RPUSH %s (%d bytes)\n", key, len(value))
	return nil
}
