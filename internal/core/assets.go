package core

import (
	"context"
	"errors"

	"github.com/vovakirdan/wireboard-server/internal/asset"
)

var uploadEventKinds = map[CommandKind]EventKind{
	CommandAssetStart:    EventAssetUploadStart,
	CommandAssetChunk:    EventAssetUploadChunk,
	CommandAssetComplete: EventAssetUploadComplete,
}

// assetUpload relays an upload frame and keeps a copy so the relay can serve the
// asset to later requesters itself.
func (h *Hub) assetUpload(c *Client, cmd *Command) {
	room := h.memberRoom(c, cmd.Room)
	if room == nil {
		return
	}
	frame := cmd.Asset
	if frame == nil || frame.Header.AssetID == "" {
		h.sendError(c, coreError(ErrCodeInvalidPayload, "asset_id is required"))
		return
	}
	switch cmd.Kind {
	case CommandAssetStart:
		if err := frame.Header.Validate(); err != nil {
			h.sendError(c, coreError(ErrCodeInvalidPayload, err.Error()))
			return
		}
	case CommandAssetChunk:
		if err := uploadHeader(room, frame).CheckChunk(frame.Chunk); err != nil {
			h.log.Debug().Err(err).Str("client_id", c.ID).Str("asset_id", frame.Header.AssetID).Msg("invalid asset chunk")
			h.sendError(c, coreError(ErrCodeInvalidPayload, err.Error()))
			return
		}
	}

	h.cacheUpload(room, cmd.Kind, frame)

	ev := &Event{Kind: uploadEventKinds[cmd.Kind], Room: room.Name, From: c.ID, User: c.Name, Asset: frame}
	if frame.To == "" {
		h.broadcast(room, ev, c)
		return
	}

	target := room.Client(frame.To)
	if target == nil {
		h.log.Debug().Str("asset_id", frame.Header.AssetID).Str("to", frame.To).Msg("asset target left the canvas")
		return
	}
	if !target.deliver(ev) {
		h.log.Warn().Str("asset_id", frame.Header.AssetID).Str("client_id", target.ID).Msg("dropped asset frame for slow consumer")
	}
}

// uploadHeader returns the best known header for the frame's asset: the pending
// upload, the stored asset, or the frame's own header.
func uploadHeader(room *Room, frame *AssetFrame) asset.Header {
	id := frame.Header.AssetID
	if header, ok := room.uploads.Header(id); ok {
		return header
	}
	if stored, ok := room.assets[id]; ok {
		return stored.header
	}
	return frame.Header
}

func (h *Hub) cacheUpload(room *Room, kind CommandKind, frame *AssetFrame) {
	id := frame.Header.AssetID
	if _, ok := room.assets[id]; ok {
		return
	}

	switch kind {
	case CommandAssetStart:
		if err := room.uploads.Start(frame.Header); err != nil {
			h.log.Debug().Err(err).Str("asset_id", id).Msg("asset start not cached")
		}
	case CommandAssetChunk:
		header, blob, done, err := room.uploads.Chunk(id, frame.Chunk)
		if err != nil {
			h.log.Debug().Err(err).Str("asset_id", id).Msg("asset chunk not cached")
			return
		}
		if done {
			h.storeAsset(room, header, blob)
		}
	case CommandAssetComplete:
		header, blob, err := room.uploads.Complete(id)
		if err != nil {
			if errors.Is(err, asset.ErrIncomplete) {
				h.log.Warn().Err(err).Str("asset_id", id).Msg("asset completed with chunks missing")
			}
			return
		}
		h.storeAsset(room, header, blob)
	}
}

func (h *Hub) storeAsset(room *Room, header asset.Header, blob []byte) {
	room.assets[header.AssetID] = storedAsset{header: header, blob: blob}
	h.log.Info().Str("canvas_id", room.Name).Str("asset_id", header.AssetID).Int("bytes", len(blob)).Msg("asset stored")
}

// assetRequest serves an asset point-to-point, or asks the other members for it
// when the relay never received it.
func (h *Hub) assetRequest(c *Client, cmd *Command) {
	room := h.memberRoom(c, cmd.Room)
	if room == nil {
		return
	}
	if cmd.Asset == nil || cmd.Asset.Header.AssetID == "" {
		h.sendError(c, coreError(ErrCodeInvalidPayload, "asset_id is required"))
		return
	}
	id := cmd.Asset.Header.AssetID

	if stored, ok := room.assets[id]; ok {
		go h.serveAsset(h.ctx, c, room.Name, stored)
		return
	}

	if room.Len() <= 1 {
		h.sendError(c, coreError(ErrCodeAssetNotFound, "asset not found"))
		return
	}
	h.broadcast(room, &Event{Kind: EventAssetRequest, Room: room.Name, From: c.ID, User: c.Name, Asset: &AssetFrame{Header: asset.Header{AssetID: id}}}, c)
}

// serveAsset streams a stored asset to one client outside the hub loop. The blob
// is never mutated after storing, so reading it here is safe.
func (h *Hub) serveAsset(ctx context.Context, c *Client, canvasID string, stored storedAsset) {
	header := stored.header
	if header.ChunkSize <= 0 {
		header.ChunkSize = asset.DefaultChunkSize
	}

	if !c.deliverWait(ctx, &Event{Kind: EventAssetAvailable, Room: canvasID, Asset: &AssetFrame{Header: header}}) {
		return
	}

	chunks := asset.Split(stored.blob, header.ChunkSize)
	err := h.opts.AssetPacer.Send(ctx, chunks, func(chunk asset.Chunk) error {
		if !c.deliverWait(ctx, &Event{Kind: EventAssetChunk, Room: canvasID, Asset: &AssetFrame{Header: header, Chunk: chunk}}) {
			return context.Canceled
		}
		return nil
	})
	if err != nil {
		h.log.Debug().Err(err).Str("client_id", c.ID).Str("asset_id", header.AssetID).Msg("asset serving stopped")
		return
	}

	c.deliverWait(ctx, &Event{Kind: EventAssetComplete, Room: canvasID, Asset: &AssetFrame{Header: header}})
	h.log.Debug().Str("client_id", c.ID).Str("asset_id", header.AssetID).Int("chunks", len(chunks)).Msg("asset served")
}
