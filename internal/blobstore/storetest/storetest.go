// Package storetest holds the behaviour every blobstore.Store must satisfy.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wireboard-server/internal/blobstore"
)

// Run exercises save/load/clear against a fresh store from newStore.
func Run(t *testing.T, newStore func(t *testing.T) blobstore.Store) {
	t.Run("load missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Load(context.Background(), "missing")
		assert.ErrorIs(t, err, blobstore.ErrNotFound)
	})

	t.Run("save load overwrite", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		require.NoError(t, s.Save(ctx, "k", []byte{0x00, 0x01, 0xff}))
		got, err := s.Load(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte{0x00, 0x01, 0xff}, got)

		require.NoError(t, s.Save(ctx, "k", []byte("second")))
		got, err = s.Load(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("second"), got)
	})

	t.Run("clear", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		require.NoError(t, s.Save(ctx, blobstore.AssetKey("a"), []byte("blob")))
		require.NoError(t, s.Clear(ctx, blobstore.AssetKey("a")))
		_, err := s.Load(ctx, blobstore.AssetKey("a"))
		assert.ErrorIs(t, err, blobstore.ErrNotFound)

		assert.NoError(t, s.Clear(ctx, "never-saved"))
	})
}
