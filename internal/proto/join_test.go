package proto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJoin(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    JoinData
		wantErr bool
	}{
		{name: "bare string", raw: `"room1"`, want: JoinData{CanvasID: "room1"}},
		{name: "object", raw: `{"canvas_id":"room1","display_name":" Ada "}`, want: JoinData{CanvasID: "room1", DisplayName: "Ada"}},
		{name: "empty", raw: ``, want: JoinData{}},
		{name: "null", raw: `null`, want: JoinData{}},
		{name: "number", raw: `42`, wantErr: true},
		{name: "broken object", raw: `{"canvas_id":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseJoin(json.RawMessage(tt.raw))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedJoin)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
