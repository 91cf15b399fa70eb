package utils

import "github.com/google/uuid"

// NewID returns a random identifier for connections, objects and assets.
func NewID() string {
	return uuid.NewString()
}
