package core

import (
	"github.com/vovakirdan/wireboard-server/internal/asset"
	"github.com/vovakirdan/wireboard-server/internal/canvas"
)

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoinRoom asks for admission to a canvas.
	CommandJoinRoom CommandKind = iota
	// CommandLeaveRoom leaves the current canvas.
	CommandLeaveRoom
	// CommandMutate applies a committed edit and rebroadcasts it.
	CommandMutate
	// CommandPresence forwards ephemeral state to the other members.
	CommandPresence
	// CommandAssetStart announces an asset upload.
	CommandAssetStart
	// CommandAssetChunk carries one asset chunk.
	CommandAssetChunk
	// CommandAssetComplete terminates an asset upload.
	CommandAssetComplete
	// CommandAssetRequest asks for an asset the client doesn't have.
	CommandAssetRequest
)

// Command represents an action requested by a client.
type Command struct {
	Kind     CommandKind
	Room     string
	Name     string // display name, join only
	Mutation canvas.Mutation
	Presence *Presence
	Asset    *AssetFrame
}

// PresenceKind names an ephemeral stream.
type PresenceKind int

const (
	PresenceCursor PresenceKind = iota
	PresenceCursorStop
	PresenceStrokeProgress
	PresenceStrokeProgressEnd
	PresenceEraserPreview
	PresenceEraserPreviewEnd
	PresenceMovePreview
	PresenceMovePreviewEnd
)

// Presence is ephemeral state the relay forwards but never stores.
type Presence struct {
	Kind         PresenceKind
	Position     canvas.Point
	Drawing      bool
	Tool         string
	TempStrokeID string
	Stroke       *canvas.Stroke
	CandidateIDs []string
	Objects      []canvas.Object
}

// AssetFrame is one message of the asset transfer protocol.
type AssetFrame struct {
	Header asset.Header
	Chunk  asset.Chunk
	// To addresses a single connection; empty means the whole room.
	To string
}
