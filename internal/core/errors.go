package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeRoomFull       = "room_full"
	ErrCodeBadRequest     = "bad_request"
	ErrCodeInvalidPayload = "invalid_payload"
	ErrCodeNotInRoom      = "not_in_room"
	ErrCodeAssetNotFound  = "asset_not_found"
	ErrCodeRoomNotFound   = "room_not_found"

	// Raised by the transport before a command reaches the hub.
	ErrCodeInvalidMessage     = "invalid_message"
	ErrCodeUnsupportedVersion = "unsupported_version"
	ErrCodeRateLimited        = "rate_limited"
)

var (
	ErrHubStopped   = errors.New("hub stopped")
	ErrRoomNotFound = errors.New("room not found")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
