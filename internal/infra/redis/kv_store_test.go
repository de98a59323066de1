package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestKV(t *testing.T) (*KVStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewKVStore(client, time.Minute), mr
}

func TestPutGetDelete(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestKV(t)

	if !store.Put(ctx, "mocktest:p1:name", "Asha") {
		t.Fatalf("put failed")
	}
	if !mr.Exists("mocktest:p1:name") {
		t.Fatalf("expected redis key to be set")
	}

	var name string
	if !store.Get(ctx, "mocktest:p1:name", &name) || name != "Asha" {
		t.Fatalf("expected Asha, got %q", name)
	}

	store.Delete(ctx, "mocktest:p1:name")
	if mr.Exists("mocktest:p1:name") {
		t.Fatalf("expected redis key removed")
	}
	if store.Get(ctx, "mocktest:p1:name", &name) {
		t.Fatalf("expected absent after delete")
	}
}

func TestZeroValueRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestKV(t)

	if !store.Put(ctx, "k", 0) {
		t.Fatalf("put failed")
	}
	got := -1
	if !store.Get(ctx, "k", &got) {
		t.Fatalf("expected stored zero to be present")
	}
	if got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestCorruptPayloadReadsAsAbsent(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestKV(t)

	mr.Set("k", "{broken")
	var out map[string]int
	if store.Get(ctx, "k", &out) {
		t.Fatalf("expected corrupt payload to read as absent")
	}
}

func TestKeysScansPrefix(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestKV(t)

	store.Put(ctx, "mocktest:p1:sess:a", 1)
	store.Put(ctx, "mocktest:p1:sess:b", 2)
	store.Put(ctx, "mocktest:p2:sess:a", 3)

	keys := store.Keys(ctx, "mocktest:p1:")
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %v", keys)
	}
}
