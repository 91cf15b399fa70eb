package proto

import (
	"encoding/json"

	"github.com/vovakirdan/wireboard-server/internal/canvas"
)

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeHello    = "hello"
	InboundTypeJoin     = "join"
	InboundTypeLeave    = "leave"
	InboundTypeMutation = "mutation"

	InboundTypeCursor            = "cursor"
	InboundTypeCursorStop        = "cursor_stop"
	InboundTypeStrokeProgress    = "stroke_progress"
	InboundTypeStrokeProgressEnd = "stroke_progress_end"
	InboundTypeEraserPreview     = "eraser_preview"
	InboundTypeEraserPreviewEnd  = "eraser_preview_end"
	InboundTypeMovePreview       = "move_preview"
	InboundTypeMovePreviewEnd    = "move_preview_end"

	InboundTypeAssetUploadStart    = "asset_upload_start"
	InboundTypeAssetUploadChunk    = "asset_upload_chunk"
	InboundTypeAssetUploadComplete = "asset_upload_complete"
	InboundTypeAssetRequest        = "asset_request"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"
)

// Outbound event names. Presence and asset upload events reuse the inbound type names.
const (
	EventSnapshot       = "snapshot"
	EventUserJoined     = "user_joined"
	EventUserLeft       = "user_left"
	EventMutation       = "mutation"
	EventAssetAvailable = "asset_available"
	EventAssetChunk     = "asset_chunk"
	EventAssetComplete  = "asset_complete"
	EventAssetRequest   = "asset_request"
)

// HelloData is sent by the client to introduce itself.
type HelloData struct {
	User     string `json:"user"`
	Protocol int    `json:"protocol,omitempty"`
}

// JoinData requests admission to a canvas.
type JoinData struct {
	CanvasID    string `json:"canvas_id"`
	DisplayName string `json:"display_name,omitempty"`
}

// LeaveData leaves a canvas.
type LeaveData struct {
	CanvasID string `json:"canvas_id"`
}

// MutationData is a committed-state edit, inbound and rebroadcast.
type MutationData struct {
	CanvasID     string          `json:"canvas_id"`
	ConnectionID string          `json:"connection_id,omitempty"`
	Op           canvas.Op       `json:"op"`
	Objects      []canvas.Object `json:"objects,omitempty"`
	IDs          []string        `json:"ids,omitempty"`
	Timestamp    int64           `json:"timestamp,omitempty"`
}

// Mutation converts the payload into the domain value.
func (m MutationData) Mutation() canvas.Mutation {
	return canvas.Mutation{Op: m.Op, Objects: m.Objects, IDs: m.IDs, Timestamp: m.Timestamp}
}

// CursorData carries a pointer position.
type CursorData struct {
	CanvasID     string       `json:"canvas_id"`
	ConnectionID string       `json:"connection_id,omitempty"`
	Position     canvas.Point `json:"position"`
	Drawing      bool         `json:"drawing"`
	Tool         string       `json:"tool,omitempty"`
}

// StrokeProgressData streams a stroke that is still being drawn. TempStrokeID is
// the id the committed stroke will carry.
type StrokeProgressData struct {
	CanvasID     string         `json:"canvas_id"`
	ConnectionID string         `json:"connection_id,omitempty"`
	TempStrokeID string         `json:"temp_stroke_id"`
	Stroke       *canvas.Stroke `json:"stroke,omitempty"`
}

// EraserPreviewData lists objects an eraser gesture is about to remove.
type EraserPreviewData struct {
	CanvasID     string   `json:"canvas_id"`
	ConnectionID string   `json:"connection_id,omitempty"`
	CandidateIDs []string `json:"candidate_ids,omitempty"`
}

// MovePreviewData carries objects in their dragged, uncommitted positions.
type MovePreviewData struct {
	CanvasID     string          `json:"canvas_id"`
	ConnectionID string          `json:"connection_id,omitempty"`
	Objects      []canvas.Object `json:"objects,omitempty"`
}

// AssetData is shared by every asset transfer frame; which fields are set depends
// on the frame. To addresses a single connection when answering a forwarded request.
type AssetData struct {
	CanvasID     string `json:"canvas_id"`
	ConnectionID string `json:"connection_id,omitempty"`
	AssetID      string `json:"asset_id"`
	Mime         string `json:"mime,omitempty"`
	TotalBytes   int64  `json:"total_bytes,omitempty"`
	ChunkSize    int    `json:"chunk_size,omitempty"`
	Seq          int    `json:"seq,omitempty"`
	Bytes        []byte `json:"bytes,omitempty"`
	To           string `json:"to,omitempty"`
}

// Member describes a room member.
type Member struct {
	ConnectionID string `json:"connection_id"`
	DisplayName  string `json:"display_name"`
}

// EventSnapshotData is sent point-to-point to a newly admitted connection.
type EventSnapshotData struct {
	CanvasID     string          `json:"canvas_id"`
	ConnectionID string          `json:"connection_id"`
	Objects      []canvas.Object `json:"objects"`
	Members      []Member        `json:"members"`
}

// EventMemberData notifies that a member joined or left.
type EventMemberData struct {
	CanvasID     string `json:"canvas_id"`
	ConnectionID string `json:"connection_id"`
	DisplayName  string `json:"display_name"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Frame is an outbound message as decoded by a client, with the payload left raw.
type Frame struct {
	Type  string          `json:"type"`
	Event string          `json:"event,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *Error          `json:"error,omitempty"`
}

// ErrCodeRoomFull rejects a join to a canvas at capacity.
const ErrCodeRoomFull = "room_full"

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Msg
}

// NewInbound marshals data into an envelope of the given type.
func NewInbound(typ string, data any) (Inbound, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Inbound{}, err
	}
	return Inbound{Type: typ, Data: raw}, nil
}
