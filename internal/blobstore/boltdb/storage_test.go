package boltdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/vovakirdan/wireboard-server/internal/blobstore"
	"github.com/vovakirdan/wireboard-server/internal/blobstore/storetest"
)

func createTestStorage(t *testing.T) *Storage {
	t.Helper()

	store, err := New(context.Background(), filepath.Join(t.TempDir(), "blobs_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store
}

func TestStorageContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) blobstore.Store {
		return createTestStorage(t)
	})
}

func TestStoragePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "reopen.db")

	store, err := New(ctx, path)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, "asset:1", []byte("png bytes")))
	require.NoError(t, store.Close())

	store, err = New(ctx, path)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.Load(ctx, "asset:1")
	require.NoError(t, err)
	assert.Equal(t, []byte("png bytes"), got)
}

func TestStorageBucketMissing(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	err := store.db.Update(func(tx *bbolt.Tx) error {
		return tx.DeleteBucket(bucketBlobs)
	})
	require.NoError(t, err)

	_, err = store.Load(ctx, "k")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "blobs bucket not found")

	err = store.Save(ctx, "k", []byte("v"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "blobs bucket not found")
}
