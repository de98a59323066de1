package memory

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
)

// KVStore is an in-memory implementation of state.KV. It keeps encoded JSON
// rather than live values so get/put round-trips behave exactly like a
// durable backend would.
type KVStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewKVStore() *KVStore {
	return &KVStore{
		data: make(map[string][]byte),
	}
}

func (s *KVStore) Put(_ context.Context, key string, value any) bool {
	encoded, err := json.Marshal(value)
	if err != nil {
		log.Printf("kv put %s: %v", key, err)
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = encoded
	return true
}

func (s *KVStore) Get(_ context.Context, key string, out any) bool {
	s.mu.RLock()
	encoded, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	if err := json.Unmarshal(encoded, out); err != nil {
		// Corrupt payloads read as absent; callers fall back to defaults.
		log.Printf("kv get %s: %v", key, err)
		return false
	}
	return true
}

func (s *KVStore) Delete(_ context.Context, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

func (s *KVStore) Keys(_ context.Context, prefix string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys
}

// Corrupt overwrites a key with undecodable bytes. Test hook for exercising
// the corrupt-payload path.
func (s *KVStore) Corrupt(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = []byte("{not json")
}
