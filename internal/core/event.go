package core

import "github.com/vovakirdan/wireboard-server/internal/canvas"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventSnapshot delivers the full object list to a newly admitted client.
	EventSnapshot EventKind = iota
	// EventUserJoined notifies members about a new member.
	EventUserJoined
	// EventUserLeft notifies members that someone left or disconnected.
	EventUserLeft
	// EventMutation rebroadcasts a committed edit.
	EventMutation
	// EventPresence forwards ephemeral cursor and preview state.
	EventPresence
	// EventError notifies a client about a domain error.
	EventError

	// Asset upload frames relayed from the uploader.
	EventAssetUploadStart
	EventAssetUploadChunk
	EventAssetUploadComplete

	// Asset frames served by the relay to a single requester.
	EventAssetAvailable
	EventAssetChunk
	EventAssetComplete

	// EventAssetRequest forwards a request the relay can't serve itself.
	EventAssetRequest
)

// Member is a room member as exposed to clients.
type Member struct {
	ID   string
	Name string
}

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind EventKind
	Room string
	// From is the originating connection; for EventSnapshot it's the receiver's own id.
	From     string
	User     string
	Objects  []canvas.Object // EventSnapshot
	Members  []Member        // EventSnapshot
	Mutation canvas.Mutation
	Presence *Presence
	Asset    *AssetFrame
	Error    *CoreError
}
