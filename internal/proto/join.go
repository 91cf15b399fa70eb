package proto

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedJoin is returned when a join payload is neither a canvas id string
// nor a join object.
var ErrMalformedJoin = errors.New("malformed join payload")

// ParseJoin normalizes the join payload. Older clients send the bare canvas id
// as a JSON string; newer ones send JoinData.
func ParseJoin(raw json.RawMessage) (JoinData, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return JoinData{}, nil
	}

	var join JoinData
	switch raw[0] {
	case '"':
		if err := json.Unmarshal(raw, &join.CanvasID); err != nil {
			return JoinData{}, fmt.Errorf("%w: %w", ErrMalformedJoin, err)
		}
	case '{':
		if err := json.Unmarshal(raw, &join); err != nil {
			return JoinData{}, fmt.Errorf("%w: %w", ErrMalformedJoin, err)
		}
	default:
		return JoinData{}, ErrMalformedJoin
	}

	join.CanvasID = strings.TrimSpace(join.CanvasID)
	join.DisplayName = strings.TrimSpace(join.DisplayName)
	return join, nil
}
