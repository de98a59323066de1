package redis

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// KVStore is a Redis-backed implementation of state.KV. Values are stored as
// JSON strings with an optional TTL so abandoned profiles age out. Failures
// are logged and reported through the boolean contract rather than raised;
// a flaky Redis degrades the app to defaults instead of crashing sessions.
type KVStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewKVStore wraps a Redis client. A zero ttl means keys never expire.
func NewKVStore(client *redis.Client, ttl time.Duration) *KVStore {
	return &KVStore{client: client, ttl: ttl}
}

func (s *KVStore) Put(ctx context.Context, key string, value any) bool {
	encoded, err := json.Marshal(value)
	if err != nil {
		log.Printf("kv put %s: %v", key, err)
		return false
	}
	if err := s.client.Set(ctx, key, encoded, s.ttl).Err(); err != nil {
		log.Printf("kv put %s: %v", key, err)
		return false
	}
	return true
}

func (s *KVStore) Get(ctx context.Context, key string, out any) bool {
	encoded, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		log.Printf("kv get %s: %v", key, err)
		return false
	}
	if err := json.Unmarshal(encoded, out); err != nil {
		// Corrupt payloads read as absent; callers fall back to defaults.
		log.Printf("kv get %s: %v", key, err)
		return false
	}
	return true
}

func (s *KVStore) Delete(ctx context.Context, key string) {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		log.Printf("kv delete %s: %v", key, err)
	}
}

func (s *KVStore) Keys(ctx context.Context, prefix string) []string {
	var keys []string
	iter := s.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.Printf("kv scan %s: %v", prefix, err)
	}
	return keys
}
