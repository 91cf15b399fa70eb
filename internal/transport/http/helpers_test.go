package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wireboard-server/internal/canvas"
	"github.com/vovakirdan/wireboard-server/internal/config"
	"github.com/vovakirdan/wireboard-server/internal/core"
	"github.com/vovakirdan/wireboard-server/internal/proto"
)

type testServer struct {
	*httptest.Server
	wsURL string
}

func startTestServer(t *testing.T, tweak func(*config.Config)) *testServer {
	t.Helper()

	cfg := config.Default()
	cfg.Addr = ":0"
	if tweak != nil {
		tweak(&cfg)
	}

	logger := zerolog.Nop()
	hub := core.NewHub(core.Options{RoomCapacity: cfg.RoomCapacity}, &logger)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	server := NewServer(hub, &cfg, &logger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(func() {
		cancel()
		ts.Close()
	})

	return &testServer{
		Server: ts,
		wsURL:  strings.Replace(ts.URL, "http", "ws", 1) + "/ws",
	}
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func dial(ctx context.Context, t *testing.T, ts *testServer) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, ts.wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func send(ctx context.Context, t *testing.T, conn *websocket.Conn, typ string, data any) {
	t.Helper()
	msg, err := proto.NewInbound(typ, data)
	require.NoError(t, err)
	require.NoError(t, wsjson.Write(ctx, conn, msg))
}

func readFrame(ctx context.Context, t *testing.T, conn *websocket.Conn) proto.Frame {
	t.Helper()
	var f proto.Frame
	require.NoError(t, wsjson.Read(ctx, conn, &f))
	return f
}

// readEvent skips frames until an event with the given name arrives.
func readEvent(ctx context.Context, t *testing.T, conn *websocket.Conn, name string) proto.Frame {
	t.Helper()
	for {
		f := readFrame(ctx, t, conn)
		if f.Type == proto.OutboundTypeEvent && f.Event == name {
			return f
		}
	}
}

// readError skips events until an error frame arrives.
func readError(ctx context.Context, t *testing.T, conn *websocket.Conn) *proto.Error {
	t.Helper()
	for {
		f := readFrame(ctx, t, conn)
		if f.Type == proto.OutboundTypeError {
			require.NotNil(t, f.Error)
			return f.Error
		}
	}
}

func decode[T any](t *testing.T, f proto.Frame) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(f.Data, &v))
	return v
}

// join sends a join and waits for the snapshot.
func join(ctx context.Context, t *testing.T, conn *websocket.Conn, canvasID, name string) proto.EventSnapshotData {
	t.Helper()
	send(ctx, t, conn, proto.InboundTypeJoin, proto.JoinData{CanvasID: canvasID, DisplayName: name})
	return decode[proto.EventSnapshotData](t, readEvent(ctx, t, conn, proto.EventSnapshot))
}

func stroke(id string) canvas.Object {
	return canvas.NewStroke(id, canvas.Stroke{
		Tool:   "pen",
		Color:  "#000000",
		Size:   2,
		Points: []canvas.Point{{X: 1, Y: 1}, {X: 4, Y: 5}},
	})
}
