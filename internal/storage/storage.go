// Package storage defines the key-value backing store the engine persists
// to, plus its bundled adapters.
//
// The contract is deliberately small: batched get, batched set, batched
// remove over opaque string keys. Durability is assumed once Set returns;
// there is no multi-key transaction guarantee, and callers must not rely
// on one.
package storage

import "context"

// Backend is the durable key-value store boundary.
type Backend interface {
	// Get fetches the given keys in one batch. Absent keys are simply
	// missing from the result map, not an error.
	Get(ctx context.Context, keys []string) (map[string][]byte, error)

	// Set durably writes every entry of items.
	Set(ctx context.Context, items map[string][]byte) error

	// Remove deletes the given keys. Removing an absent key is not an error.
	Remove(ctx context.Context, keys []string) error
}

// GetOne is a convenience for single-key reads; ok is false when absent.
func GetOne(ctx context.Context, b Backend, key string) (value []byte, ok bool, err error) {
	m, err := b.Get(ctx, []string{key})
	if err != nil {
		return nil, false, err
	}
	value, ok = m[key]
	return value, ok, nil
}
