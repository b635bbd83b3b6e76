package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketEntries = []byte("entries")

// BoltStore is a durable on-device Store backed by a single bbolt file.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) the store file at path.
func NewBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEntries)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	found := false

	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketEntries).Get([]byte(key)); v != nil {
			value = string(v)
			found = true
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("bolt get: %w", err)
	}
	if !found {
		return "", ErrNotFound
	}
	return value, nil
}

func (s *BoltStore) Set(ctx context.Context, key, value string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEntries).Put([]byte(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("bolt set: %w", err)
	}
	return nil
}

func (s *BoltStore) Remove(ctx context.Context, key string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEntries).Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("bolt remove: %w", err)
	}
	return nil
}

func (s *BoltStore) GetAllKeys(ctx context.Context) ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEntries).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("bolt list keys: %w", err)
	}
	return keys, nil
}

func (s *BoltStore) MultiGet(ctx context.Context, keys []string) ([]Value, error) {
	values := make([]Value, len(keys))
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		for i, key := range keys {
			if v := b.Get([]byte(key)); v != nil {
				values[i] = Value{Value: string(v), OK: true}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("bolt multi get: %w", err)
	}
	return values, nil
}

func (s *BoltStore) MultiSet(ctx context.Context, pairs []Pair) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		for _, p := range pairs {
			if err := b.Put([]byte(p.Key), []byte(p.Value)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("bolt multi set: %w", err)
	}
	return nil
}

func (s *BoltStore) MultiRemove(ctx context.Context, keys []string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		for _, key := range keys {
			if err := b.Delete([]byte(key)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("bolt multi remove: %w", err)
	}
	return nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
