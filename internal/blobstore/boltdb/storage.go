package boltdb

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/vovakirdan/wireboard-server/internal/blobstore"
)

var bucketBlobs = []byte("blobs")

// Storage is a BoltDB-backed blobstore.Store.
type Storage struct {
	db *bbolt.DB
}

var _ blobstore.Store = (*Storage)(nil)

// New opens (or creates) the BoltDB file at dbPath.
func New(ctx context.Context, dbPath string) (*Storage, error) {
	db, err := bbolt.Open(dbPath, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	storage := &Storage{db: db}
	if err := storage.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return storage, nil
}

// Close closes the database.
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketBlobs); err != nil {
			return fmt.Errorf("failed to create blobs bucket: %w", err)
		}
		return nil
	})
}

// Save stores data under key.
func (s *Storage) Save(ctx context.Context, key string, data []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketBlobs)
		if bucket == nil {
			return fmt.Errorf("blobs bucket not found")
		}
		if err := bucket.Put([]byte(key), data); err != nil {
			return fmt.Errorf("failed to save blob: %w", err)
		}
		return nil
	})
}

// Load returns the blob under key or blobstore.ErrNotFound.
func (s *Storage) Load(ctx context.Context, key string) ([]byte, error) {
	var data []byte

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketBlobs)
		if bucket == nil {
			return fmt.Errorf("blobs bucket not found")
		}

		value := bucket.Get([]byte(key))
		if value == nil {
			return blobstore.ErrNotFound
		}
		// bbolt values are only valid inside the transaction
		data = append([]byte(nil), value...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return data, nil
}

// Clear deletes key.
func (s *Storage) Clear(ctx context.Context, key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketBlobs)
		if bucket == nil {
			return fmt.Errorf("blobs bucket not found")
		}
		if err := bucket.Delete([]byte(key)); err != nil {
			return fmt.Errorf("failed to clear blob: %w", err)
		}
		return nil
	})
}
