package blobstore

import (
	"context"
	"errors"
)

// ErrNotFound indicates that no blob is stored under the key.
var ErrNotFound = errors.New("blob not found")

// Store is the local key-value blob cache used by clients to keep assets
// across sessions.
type Store interface {
	// Save stores data under key, overwriting any previous value.
	Save(ctx context.Context, key string, data []byte) error

	// Load returns the blob stored under key.
	// Returns ErrNotFound if nothing is stored.
	Load(ctx context.Context, key string) ([]byte, error)

	// Clear removes key. Clearing a missing key is not an error.
	Clear(ctx context.Context, key string) error

	// Close releases the underlying resources.
	Close() error
}

// AssetKey is the key assets are cached under.
func AssetKey(assetID string) string {
	return "asset:" + assetID
}
