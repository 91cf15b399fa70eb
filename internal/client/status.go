package client

import "errors"

// Status is the connection indicator shown to the user.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusRejected     Status = "rejected"
)

var (
	// ErrNotConnected is returned when sending while no relay connection is up.
	ErrNotConnected = errors.New("not connected")
	// ErrNoCanvas is returned for canvas operations before Join.
	ErrNoCanvas = errors.New("no canvas joined")
)
