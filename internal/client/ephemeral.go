package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vovakirdan/wireboard-server/internal/canvas"
	"github.com/vovakirdan/wireboard-server/internal/proto"
)

// SendCursor streams the local pointer. Calls inside the throttle interval are
// dropped; the result reports whether the update went out.
func (e *Engine) SendCursor(ctx context.Context, pos canvas.Point, drawing bool, tool string) (bool, error) {
	return e.sendThrottled(ctx, proto.InboundTypeCursor, func(canvasID string) any {
		return proto.CursorData{CanvasID: canvasID, Position: pos, Drawing: drawing, Tool: tool}
	})
}

// SendCursorStop tells peers the pointer left the canvas.
func (e *Engine) SendCursorStop(ctx context.Context) error {
	return e.sendPresenceEnd(ctx, proto.InboundTypeCursor, proto.InboundTypeCursorStop, func(canvasID string) any {
		return proto.CursorData{CanvasID: canvasID}
	})
}

// SendStrokeProgress streams the partial stroke that will be committed as tempID.
func (e *Engine) SendStrokeProgress(ctx context.Context, tempID string, partial canvas.Stroke) (bool, error) {
	return e.sendThrottled(ctx, proto.InboundTypeStrokeProgress, func(canvasID string) any {
		return proto.StrokeProgressData{CanvasID: canvasID, TempStrokeID: tempID, Stroke: &partial}
	})
}

// SendStrokeProgressEnd ends the stream for tempID.
func (e *Engine) SendStrokeProgressEnd(ctx context.Context, tempID string) error {
	return e.sendPresenceEnd(ctx, proto.InboundTypeStrokeProgress, proto.InboundTypeStrokeProgressEnd, func(canvasID string) any {
		return proto.StrokeProgressData{CanvasID: canvasID, TempStrokeID: tempID}
	})
}

// SendMovePreview streams objects in their dragged positions.
func (e *Engine) SendMovePreview(ctx context.Context, objs []canvas.Object) (bool, error) {
	return e.sendThrottled(ctx, proto.InboundTypeMovePreview, func(canvasID string) any {
		return proto.MovePreviewData{CanvasID: canvasID, Objects: objs}
	})
}

// SendMovePreviewEnd ends a drag preview.
func (e *Engine) SendMovePreviewEnd(ctx context.Context) error {
	return e.sendPresenceEnd(ctx, proto.InboundTypeMovePreview, proto.InboundTypeMovePreviewEnd, func(canvasID string) any {
		return proto.MovePreviewData{CanvasID: canvasID}
	})
}

// SendEraserPreview streams the ids under the eraser.
func (e *Engine) SendEraserPreview(ctx context.Context, ids []string) (bool, error) {
	return e.sendThrottled(ctx, proto.InboundTypeEraserPreview, func(canvasID string) any {
		return proto.EraserPreviewData{CanvasID: canvasID, CandidateIDs: ids}
	})
}

// SendEraserPreviewEnd ends an eraser preview.
func (e *Engine) SendEraserPreviewEnd(ctx context.Context) error {
	return e.sendPresenceEnd(ctx, proto.InboundTypeEraserPreview, proto.InboundTypeEraserPreviewEnd, func(canvasID string) any {
		return proto.EraserPreviewData{CanvasID: canvasID}
	})
}

func (e *Engine) sendThrottled(ctx context.Context, typ string, build func(canvasID string) any) (bool, error) {
	canvasID := e.CanvasID()
	if canvasID == "" {
		return false, ErrNoCanvas
	}
	if !e.throttle.Allow(typ) {
		return false, nil
	}
	if err := e.send(ctx, typ, build(canvasID)); err != nil {
		return false, err
	}
	return true, nil
}

// sendPresenceEnd is never throttled. It resets the stream's throttle so the
// next gesture starts immediately.
func (e *Engine) sendPresenceEnd(ctx context.Context, stream, typ string, build func(canvasID string) any) error {
	canvasID := e.CanvasID()
	if canvasID == "" {
		return ErrNoCanvas
	}
	e.throttle.Reset(stream)
	return e.send(ctx, typ, build(canvasID))
}

func (e *Engine) handlePresence(f proto.Frame) error {
	now := e.clock.Now()

	switch f.Event {
	case proto.InboundTypeCursor, proto.InboundTypeCursorStop:
		var data proto.CursorData
		if err := json.Unmarshal(f.Data, &data); err != nil {
			return fmt.Errorf("decode %s: %w", f.Event, err)
		}
		e.mu.Lock()
		if f.Event == proto.InboundTypeCursor {
			e.presence.Cursor(data.ConnectionID, data.Position, data.Drawing, data.Tool, now)
		} else {
			e.presence.CursorStop(data.ConnectionID)
		}
		e.mu.Unlock()
	case proto.InboundTypeStrokeProgress, proto.InboundTypeStrokeProgressEnd:
		var data proto.StrokeProgressData
		if err := json.Unmarshal(f.Data, &data); err != nil {
			return fmt.Errorf("decode %s: %w", f.Event, err)
		}
		e.mu.Lock()
		if f.Event == proto.InboundTypeStrokeProgress && data.Stroke != nil {
			e.presence.Stroke(data.ConnectionID, data.TempStrokeID, *data.Stroke, now)
		} else {
			e.presence.StrokeEnd(data.TempStrokeID)
		}
		e.mu.Unlock()
	case proto.InboundTypeEraserPreview, proto.InboundTypeEraserPreviewEnd:
		var data proto.EraserPreviewData
		if err := json.Unmarshal(f.Data, &data); err != nil {
			return fmt.Errorf("decode %s: %w", f.Event, err)
		}
		e.mu.Lock()
		if f.Event == proto.InboundTypeEraserPreview {
			e.presence.Eraser(data.ConnectionID, data.CandidateIDs, now)
		} else {
			e.presence.EraserEnd(data.ConnectionID)
		}
		e.mu.Unlock()
	case proto.InboundTypeMovePreview, proto.InboundTypeMovePreviewEnd:
		var data proto.MovePreviewData
		if err := json.Unmarshal(f.Data, &data); err != nil {
			return fmt.Errorf("decode %s: %w", f.Event, err)
		}
		e.mu.Lock()
		if f.Event == proto.InboundTypeMovePreview {
			e.presence.Move(data.ConnectionID, data.Objects, now)
		} else {
			e.presence.MoveEnd(data.ConnectionID)
		}
		e.mu.Unlock()
	}
	return nil
}

// ExpirePresence drops peer state older than the stale interval.
func (e *Engine) ExpirePresence() []string {
	now := e.clock.Now()

	e.mu.Lock()
	defer e.mu.Unlock()

	expired := e.presence.Expire(now)
	if len(expired) > 0 {
		e.log.Debug().Strs("client_ids", expired).Msg("expired stale presence")
	}
	return expired
}

// Run expires stale presence once a second until ctx ends.
func (e *Engine) Run(ctx context.Context) {
	ticker := e.clock.Ticker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.ExpirePresence()
		case <-ctx.Done():
			return
		}
	}
}
