// Copyright 2021-2022
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package common

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

var (
	ErrCacheMiss = errors.New("key not in cache")
)

const purgeScanCount = 500

var rdb *redis.Client
var cache *lru.Cache

var (
	setupOnce sync.Once
	setupErr  error
)

func init() {
	viper.SetDefault("cache.local_size", 1024)
	viper.SetDefault("cache.ttl", 3600)
}

// SetupCache creates the local LRU and, when enabled, the shared redis client
func SetupCache() error {
	var err error
	if viper.GetBool("cache.redis") {
		opt, err := redis.ParseURL(viper.GetString("cache.redis_url"))
		if err != nil {
			log.Error().Err(err).Msg("could not parse redis URL")
			return err
		}

		rdb = redis.NewClient(opt)
	}

	cache, err = lru.New(viper.GetInt("cache.local_size"))
	if err != nil {
		log.Error().Err(err).Msg("could not create LRU cache")
		return err
	}

	return nil
}

// SetRedisClient replaces the shared redis client; nil disables the shared cache
func SetRedisClient(client *redis.Client) {
	rdb = client
}

func ensureCache() error {
	setupOnce.Do(func() {
		if cache == nil {
			setupErr = SetupCache()
		}
	})
	return setupErr
}

func CacheSet(ctx context.Context, key string, bytes []byte) error {
	if err := ensureCache(); err != nil {
		return err
	}

	b2, err := Compress(bytes)
	if err != nil {
		return err
	}
	cache.Add(key, b2)

	if rdb != nil {
		expires := time.Duration(viper.GetInt("cache.ttl")) * time.Second
		return rdb.Set(ctx, key, b2, expires).Err()
	}
	return nil
}

func CacheGet(ctx context.Context, key string) ([]byte, error) {
	if cache == nil {
		return nil, ErrCacheMiss
	}

	if v2, ok := cache.Get(key); ok {
		return Decompress(v2.([]byte))
	}

	if rdb != nil {
		val, err := rdb.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		if err != nil {
			return nil, err
		}
		cache.Add(key, val)
		return Decompress(val)
	}

	return nil, ErrCacheMiss
}

// CachePurge removes every key starting with prefix from the local cache and from redis
func CachePurge(ctx context.Context, prefix string) error {
	if cache != nil {
		for _, k := range cache.Keys() {
			if key, ok := k.(string); ok && strings.HasPrefix(key, prefix) {
				cache.Remove(key)
			}
		}
	}

	if rdb == nil {
		return nil
	}

	var cursor uint64
	deleted := 0
	for {
		keys, next, err := rdb.Scan(ctx, cursor, prefix+"*", purgeScanCount).Result()
		if err != nil {
			log.Error().Err(err).Str("Prefix", prefix).Msg("could not scan redis keys")
			return err
		}
		if len(keys) > 0 {
			if err := rdb.Del(ctx, keys...).Err(); err != nil {
				log.Error().Err(err).Str("Prefix", prefix).Msg("could not delete redis keys")
				return err
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	log.Debug().Str("Prefix", prefix).Int("NumDeleted", deleted).Msg("purged redis cache")
	return nil
}
