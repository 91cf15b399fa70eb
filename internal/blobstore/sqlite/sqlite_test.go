package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wireboard-server/internal/blobstore"
	"github.com/vovakirdan/wireboard-server/internal/blobstore/storetest"
)

func TestSQLiteStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) blobstore.Store {
		s, err := New(":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestSQLiteStoreFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "blobs.sqlite3")

	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "asset:x", []byte("data")))
	require.NoError(t, s.Close())

	s, err = New(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Load(ctx, "asset:x")
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), got)
}
