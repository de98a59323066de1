package state

import "context"

// KV abstracts durable key/value storage with JSON serialization (in-memory,
// Redis, etc). The contract is deliberately forgiving: Put reports success
// instead of returning an error so callers can warn and keep going, and Get
// treats corrupt payloads the same as absent keys.
type KV interface {
	// Put serializes value to JSON and stores it under key. Returns false on
	// serialization or storage failure.
	Put(ctx context.Context, key string, value any) bool
	// Get decodes the stored value into out and reports whether a usable
	// value was present. Absent or undecodable payloads return false and
	// leave out untouched.
	Get(ctx context.Context, key string, out any) bool
	// Delete removes key. Deleting an absent key is a no-op.
	Delete(ctx context.Context, key string)
	// Keys lists stored keys with the given prefix, in no particular order.
	Keys(ctx context.Context, prefix string) []string
}
