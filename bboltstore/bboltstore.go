// Package bboltstore provides the default persistent KeyValue medium,
// backed by a single-file bbolt database shared by every context on the
// device.
package bboltstore

import (
	"fmt"
	"path/filepath"

	"go.etcd.io/bbolt"

	"github.com/unifeed/unifeed"
)

const (
	dbFile      = "unifeed.db"
	bucketState = "state"
)

type Store struct {
	db *bbolt.DB
}

// Open opens (or creates) the board database under dataDir.
func Open(dataDir string) (*Store, error) {
	path := filepath.Join(dataDir, dbFile)
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketState))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create state bucket: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Get(key string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketState))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}

		stored := b.Get([]byte(key))
		if stored == nil {
			return unifeed.ErrKeyNotFound
		}

		value = make([]byte, len(stored))
		copy(value, stored)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *Store) Put(key string, value []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketState))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		return b.Put([]byte(key), value)
	})
}

func (s *Store) Delete(key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketState))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		return b.Delete([]byte(key))
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}
