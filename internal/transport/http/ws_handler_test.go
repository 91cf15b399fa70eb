package http

import (
	"fmt"
	"io"
	stdhttp "net/http"
	"testing"

	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wireboard-server/internal/canvas"
	"github.com/vovakirdan/wireboard-server/internal/config"
	"github.com/vovakirdan/wireboard-server/internal/core"
	"github.com/vovakirdan/wireboard-server/internal/proto"
)

func TestHealthEndpoint(t *testing.T) {
	ts := startTestServer(t, nil)

	resp, err := ts.Client().Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, stdhttp.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}

func TestWebSocketRoomRelay(t *testing.T) {
	ts := startTestServer(t, nil)
	ctx := testContext(t)

	alice := dial(ctx, t, ts)
	bob := dial(ctx, t, ts)

	aliceSnap := join(ctx, t, alice, "room1", "alice")
	assert.Equal(t, "room1", aliceSnap.CanvasID)
	assert.NotEmpty(t, aliceSnap.ConnectionID)
	assert.Empty(t, aliceSnap.Objects)

	bobSnap := join(ctx, t, bob, "room1", "bob")
	require.Len(t, bobSnap.Members, 2)

	joined := decode[proto.EventMemberData](t, readEvent(ctx, t, alice, proto.EventUserJoined))
	assert.Equal(t, bobSnap.ConnectionID, joined.ConnectionID)
	assert.Equal(t, "bob", joined.DisplayName)

	send(ctx, t, alice, proto.InboundTypeMutation, proto.MutationData{
		CanvasID: "room1",
		Op:       canvas.OpAdd,
		Objects:  []canvas.Object{stroke("s1")},
	})
	got := decode[proto.MutationData](t, readEvent(ctx, t, bob, proto.EventMutation))
	assert.Equal(t, aliceSnap.ConnectionID, got.ConnectionID)
	assert.Equal(t, canvas.OpAdd, got.Op)
	require.Len(t, got.Objects, 1)
	assert.Equal(t, "s1", got.Objects[0].ID)
	assert.NotZero(t, got.Timestamp)

	// the first mutation alice sees is bob's; her own add is not echoed
	send(ctx, t, bob, proto.InboundTypeMutation, proto.MutationData{
		CanvasID: "room1",
		Op:       canvas.OpRemove,
		IDs:      []string{"s1"},
	})
	got = decode[proto.MutationData](t, readEvent(ctx, t, alice, proto.EventMutation))
	assert.Equal(t, bobSnap.ConnectionID, got.ConnectionID)
	assert.Equal(t, canvas.OpRemove, got.Op)
	assert.Equal(t, []string{"s1"}, got.IDs)

	send(ctx, t, bob, proto.InboundTypeLeave, proto.LeaveData{CanvasID: "room1"})
	left := decode[proto.EventMemberData](t, readEvent(ctx, t, alice, proto.EventUserLeft))
	assert.Equal(t, bobSnap.ConnectionID, left.ConnectionID)
}

func TestWebSocketPresenceCarriesConnectionID(t *testing.T) {
	ts := startTestServer(t, nil)
	ctx := testContext(t)

	alice := dial(ctx, t, ts)
	bob := dial(ctx, t, ts)
	aliceSnap := join(ctx, t, alice, "room1", "alice")
	join(ctx, t, bob, "room1", "bob")

	send(ctx, t, alice, proto.InboundTypeCursor, proto.CursorData{
		CanvasID: "room1",
		Position: canvas.Point{X: 10, Y: 20},
		Drawing:  true,
		Tool:     "pen",
	})
	cursor := decode[proto.CursorData](t, readEvent(ctx, t, bob, proto.InboundTypeCursor))
	assert.Equal(t, aliceSnap.ConnectionID, cursor.ConnectionID)
	assert.Equal(t, canvas.Point{X: 10, Y: 20}, cursor.Position)
	assert.True(t, cursor.Drawing)

	s := stroke("tmp-1").Stroke
	send(ctx, t, alice, proto.InboundTypeStrokeProgress, proto.StrokeProgressData{
		CanvasID:     "room1",
		TempStrokeID: "tmp-1",
		Stroke:       s,
	})
	progress := decode[proto.StrokeProgressData](t, readEvent(ctx, t, bob, proto.InboundTypeStrokeProgress))
	assert.Equal(t, "tmp-1", progress.TempStrokeID)
	require.NotNil(t, progress.Stroke)
	assert.Len(t, progress.Stroke.Points, 2)
}

func TestWebSocketCapacity(t *testing.T) {
	ts := startTestServer(t, func(cfg *config.Config) { cfg.RoomCapacity = 2 })
	ctx := testContext(t)

	for i := 0; i < 2; i++ {
		conn := dial(ctx, t, ts)
		join(ctx, t, conn, "room2", fmt.Sprintf("user-%d", i))
	}

	extra := dial(ctx, t, ts)
	send(ctx, t, extra, proto.InboundTypeJoin, proto.JoinData{CanvasID: "room2"})
	perr := readError(ctx, t, extra)
	assert.Equal(t, core.ErrCodeRoomFull, perr.Code)

	// the rejected connection stays usable for another canvas
	snap := join(ctx, t, extra, "room3", "late")
	assert.Equal(t, "room3", snap.CanvasID)
}

func TestWebSocketBareStringJoin(t *testing.T) {
	ts := startTestServer(t, nil)
	ctx := testContext(t)

	conn := dial(ctx, t, ts)
	require.NoError(t, wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeJoin, Data: []byte(`"room9"`)}))

	snap := decode[proto.EventSnapshotData](t, readEvent(ctx, t, conn, proto.EventSnapshot))
	assert.Equal(t, "room9", snap.CanvasID)

	require.NoError(t, wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeJoin, Data: []byte(`""`)}))
	perr := readError(ctx, t, conn)
	assert.Equal(t, core.ErrCodeBadRequest, perr.Code)
}

func TestWebSocketMalformedInboundKeepsConnection(t *testing.T) {
	ts := startTestServer(t, nil)
	ctx := testContext(t)

	conn := dial(ctx, t, ts)

	require.NoError(t, wsjson.Write(ctx, conn, proto.Inbound{Type: "scribble", Data: []byte(`{}`)}))
	assert.Equal(t, core.ErrCodeInvalidMessage, readError(ctx, t, conn).Code)

	require.NoError(t, wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeMutation, Data: []byte(`{"op":5}`)}))
	assert.Equal(t, core.ErrCodeInvalidPayload, readError(ctx, t, conn).Code)

	require.NoError(t, wsjson.Write(ctx, conn, "not an envelope"))
	assert.Equal(t, core.ErrCodeInvalidMessage, readError(ctx, t, conn).Code)

	send(ctx, t, conn, proto.InboundTypeMutation, proto.MutationData{CanvasID: "room1", Op: canvas.OpClear})
	assert.Equal(t, core.ErrCodeNotInRoom, readError(ctx, t, conn).Code)

	snap := join(ctx, t, conn, "room1", "alice")
	assert.Equal(t, "room1", snap.CanvasID)
}

func TestWebSocketHelloNameUsedForJoin(t *testing.T) {
	ts := startTestServer(t, nil)
	ctx := testContext(t)

	alice := dial(ctx, t, ts)
	bob := dial(ctx, t, ts)
	join(ctx, t, alice, "room1", "alice")

	send(ctx, t, bob, proto.InboundTypeHello, proto.HelloData{User: "bobby", Protocol: proto.ProtocolVersion})
	send(ctx, t, bob, proto.InboundTypeJoin, proto.JoinData{CanvasID: "room1"})

	joined := decode[proto.EventMemberData](t, readEvent(ctx, t, alice, proto.EventUserJoined))
	assert.Equal(t, "bobby", joined.DisplayName)
}

func TestWebSocketRateLimit(t *testing.T) {
	ts := startTestServer(t, func(cfg *config.Config) { cfg.MaxMessagesPerMinute = 2 })
	ctx := testContext(t)

	conn := dial(ctx, t, ts)
	join(ctx, t, conn, "room1", "alice")
	join(ctx, t, conn, "room1", "alice")

	send(ctx, t, conn, proto.InboundTypeJoin, proto.JoinData{CanvasID: "room1"})
	assert.Equal(t, core.ErrCodeRateLimited, readError(ctx, t, conn).Code)
}
