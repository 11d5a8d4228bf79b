package storage

import (
	"context"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

// boltBucket is the single bucket all keys live in.
var boltBucket = []byte("kv")

// Bolt is a bbolt-backed Backend. Batched Set and Remove calls each run
// in one write transaction, which is as close to multi-key atomicity as
// the storage contract promises (callers still must not assume it).
type Bolt struct {
	db *bolt.DB
}

// OpenBolt opens (creating if needed) a bbolt database at path.
func OpenBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open bolt store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return &Bolt{db: db}, nil
}

// Get implements Backend.
func (b *Bolt) Get(ctx context.Context, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	err := b.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(boltBucket)
		for _, k := range keys {
			if v := bkt.Get([]byte(k)); v != nil {
				cp := make([]byte, len(v))
				copy(cp, v)
				out[k] = cp
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Set implements Backend.
func (b *Bolt) Set(ctx context.Context, items map[string][]byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(boltBucket)
		for k, v := range items {
			if err := bkt.Put([]byte(k), v); err != nil {
				return err
			}
		}
		return nil
	})
}

// Remove implements Backend.
func (b *Bolt) Remove(ctx context.Context, keys []string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(boltBucket)
		for _, k := range keys {
			if err := bkt.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close closes the underlying database.
func (b *Bolt) Close() error {
	return b.db.Close()
}
