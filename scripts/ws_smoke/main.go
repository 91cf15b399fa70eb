package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/wireboard-server/internal/canvas"
	"github.com/vovakirdan/wireboard-server/internal/proto"
	"github.com/vovakirdan/wireboard-server/internal/utils"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "tester", "display name to announce with hello")
	canvasID := flag.String("canvas", "room1", "canvas id")
	watch := flag.Duration("watch", 0, "keep printing events for this long after the stroke is sent")
	timeout := flag.Duration("timeout", 5*time.Second, "timeout for the handshake")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout+*watch)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	mustSend := func(typ string, data any) error {
		msg, err := proto.NewInbound(typ, data)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", typ, err)
		}
		if err := wsjson.Write(ctx, conn, msg); err != nil {
			return fmt.Errorf("send %s: %w", typ, err)
		}
		return nil
	}

	if err := mustSend(proto.InboundTypeHello, proto.HelloData{User: *user, Protocol: proto.ProtocolVersion}); err != nil {
		return err
	}
	if err := mustSend(proto.InboundTypeJoin, proto.JoinData{CanvasID: *canvasID, DisplayName: *user}); err != nil {
		return err
	}

	for {
		f, err := readFrame(ctx, conn)
		if err != nil {
			return err
		}
		if f.Event == proto.EventSnapshot {
			break
		}
	}

	obj := canvas.NewStroke(utils.NewID(), canvas.Stroke{
		Tool:   "pen",
		Color:  "#1e88e5",
		Size:   3,
		Points: []canvas.Point{{X: 10, Y: 10}, {X: 60, Y: 40}, {X: 120, Y: 20}},
	})
	if err := mustSend(proto.InboundTypeMutation, proto.MutationData{
		CanvasID:  *canvasID,
		Op:        canvas.OpAdd,
		Objects:   []canvas.Object{obj},
		Timestamp: time.Now().UnixMilli(),
	}); err != nil {
		return err
	}
	fmt.Printf("sent stroke %s\n", obj.ID)

	if *watch <= 0 {
		return nil
	}
	watchCtx, stop := context.WithTimeout(ctx, *watch)
	defer stop()
	for {
		if _, err := readFrame(watchCtx, conn); err != nil {
			if watchCtx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func readFrame(ctx context.Context, conn *websocket.Conn) (proto.Frame, error) {
	var f proto.Frame
	if err := wsjson.Read(ctx, conn, &f); err != nil {
		return f, fmt.Errorf("read: %w", err)
	}
	if f.Type == proto.OutboundTypeError && f.Error != nil {
		return f, fmt.Errorf("relay error: %w", f.Error)
	}
	fmt.Printf("event=%s data=%s\n", f.Event, string(f.Data))
	return f, nil
}
