package http

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vovakirdan/wireboard-server/internal/core"
	"github.com/vovakirdan/wireboard-server/internal/proto"
)

func TestProtocolVersionMismatch(t *testing.T) {
	ts := startTestServer(t, nil)
	ctx := testContext(t)

	conn := dial(ctx, t, ts)
	send(ctx, t, conn, proto.InboundTypeHello, proto.HelloData{User: "alice", Protocol: proto.ProtocolVersion + 1})

	f := readFrame(ctx, t, conn)
	assert.Equal(t, proto.OutboundTypeError, f.Type)
	if assert.NotNil(t, f.Error) {
		assert.Equal(t, core.ErrCodeUnsupportedVersion, f.Error.Code)
	}
}

func TestProtocolVersionAccepted(t *testing.T) {
	ts := startTestServer(t, nil)
	ctx := testContext(t)

	conn := dial(ctx, t, ts)
	send(ctx, t, conn, proto.InboundTypeHello, proto.HelloData{User: "alice", Protocol: proto.ProtocolVersion})

	snap := join(ctx, t, conn, "room1", "")
	assert.Equal(t, "room1", snap.CanvasID)
	if assert.Len(t, snap.Members, 1) {
		assert.Equal(t, "alice", snap.Members[0].DisplayName)
	}
}
