package client

import (
	"context"
	"errors"

	"github.com/vovakirdan/wireboard-server/internal/asset"
	"github.com/vovakirdan/wireboard-server/internal/blobstore"
	"github.com/vovakirdan/wireboard-server/internal/canvas"
	"github.com/vovakirdan/wireboard-server/internal/proto"
)

// AssetState is the receiver-side lifecycle of an asset.
type AssetState string

const (
	AssetUnknown    AssetState = "unknown"
	AssetAwaiting   AssetState = "awaiting"
	AssetAssembling AssetState = "assembling"
	AssetComplete   AssetState = "complete"
	AssetDecoded    AssetState = "decoded"
	AssetCached     AssetState = "cached"
)

// UploadState is the sender-side lifecycle of an asset.
type UploadState string

const (
	UploadIdle      UploadState = "idle"
	UploadUploading UploadState = "uploading"
	UploadChunking  UploadState = "chunking"
	UploadCompleted UploadState = "completed"
)

type assetState struct {
	inbox   *asset.Inbox
	decoded map[string]*asset.Decoded
	states  map[string]AssetState
	uploads map[string]UploadState
}

func newAssetState() *assetState {
	return &assetState{
		inbox:   asset.NewInbox(),
		decoded: make(map[string]*asset.Decoded),
		states:  make(map[string]AssetState),
		uploads: make(map[string]UploadState),
	}
}

// invalidate forgets decoded assets after a clear and returns the ids whose
// stored copies must go too.
func (a *assetState) invalidate(removed []canvas.Object) []string {
	seen := make(map[string]struct{})
	var ids []string
	mark := func(id string) {
		if _, ok := seen[id]; ok || id == "" {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for id := range a.decoded {
		mark(id)
	}
	for _, obj := range removed {
		if obj.Kind == canvas.KindImage && obj.Image != nil {
			mark(obj.Image.AssetID)
		}
	}
	for _, id := range ids {
		delete(a.decoded, id)
		delete(a.states, id)
		a.inbox.Drop(id)
	}
	return ids
}

// Asset returns a decoded asset if it is held locally.
func (e *Engine) Asset(assetID string) (*asset.Decoded, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	d, ok := e.assets.decoded[assetID]
	return d, ok
}

// AssetState reports where an inbound asset is in its lifecycle.
func (e *Engine) AssetState(assetID string) AssetState {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.assets.states[assetID]; ok {
		return st
	}
	return AssetUnknown
}

// UploadState reports where a local upload is in its lifecycle.
func (e *Engine) UploadState(assetID string) UploadState {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.assets.uploads[assetID]; ok {
		return st
	}
	return UploadIdle
}

// UploadAsset caches data locally and streams it to the canvas in paced chunks.
// An empty mime is sniffed from the content.
func (e *Engine) UploadAsset(ctx context.Context, assetID, mime string, data []byte) (*asset.Decoded, error) {
	canvasID := e.CanvasID()
	if canvasID == "" {
		return nil, ErrNoCanvas
	}
	d, err := asset.Decode(assetID, mime, data)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.assets.decoded[assetID] = d
	e.assets.states[assetID] = AssetDecoded
	e.mu.Unlock()
	e.cacheBlob(ctx, assetID, data)

	h := asset.Header{AssetID: assetID, Mime: d.Mime, TotalBytes: int64(len(data)), ChunkSize: e.opts.ChunkSize}
	if err := e.streamAsset(ctx, canvasID, h, data, ""); err != nil {
		return d, err
	}
	return d, nil
}

// RequestAsset makes an asset available locally. It reports true when the asset
// was already held or could be restored from the store; otherwise the relay is
// asked for it and the asset arrives later.
func (e *Engine) RequestAsset(ctx context.Context, assetID string) (bool, error) {
	if _, ok := e.Asset(assetID); ok {
		return true, nil
	}

	blob, err := e.store.Load(ctx, blobstore.AssetKey(assetID))
	switch {
	case err == nil:
		d, decodeErr := asset.Decode(assetID, "", blob)
		if decodeErr == nil {
			e.mu.Lock()
			e.assets.decoded[assetID] = d
			e.assets.states[assetID] = AssetCached
			e.mu.Unlock()
			return true, nil
		}
		e.log.Warn().Err(decodeErr).Str("asset_id", assetID).Msg("cached asset unreadable")
	case !errors.Is(err, blobstore.ErrNotFound):
		e.log.Warn().Err(err).Str("asset_id", assetID).Msg("failed to load cached asset")
	}

	canvasID := e.CanvasID()
	if canvasID == "" {
		return false, ErrNoCanvas
	}
	return false, e.send(ctx, proto.InboundTypeAssetRequest, proto.AssetData{CanvasID: canvasID, AssetID: assetID})
}

func (e *Engine) streamAsset(ctx context.Context, canvasID string, h asset.Header, blob []byte, to string) error {
	own := to == ""
	setUpload := func(st UploadState) {
		if !own {
			return
		}
		e.mu.Lock()
		e.assets.uploads[h.AssetID] = st
		e.mu.Unlock()
	}

	setUpload(UploadUploading)
	base := proto.AssetData{CanvasID: canvasID, AssetID: h.AssetID, To: to}

	start := base
	start.Mime = h.Mime
	start.TotalBytes = h.TotalBytes
	start.ChunkSize = h.ChunkSize
	if err := e.send(ctx, proto.InboundTypeAssetUploadStart, start); err != nil {
		return err
	}

	setUpload(UploadChunking)
	err := e.opts.Pacer.Send(ctx, asset.Split(blob, h.ChunkSize), func(c asset.Chunk) error {
		chunk := base
		chunk.Seq = c.Seq
		chunk.Bytes = c.Bytes
		return e.send(ctx, proto.InboundTypeAssetUploadChunk, chunk)
	})
	if err != nil {
		return err
	}

	if err := e.send(ctx, proto.InboundTypeAssetUploadComplete, base); err != nil {
		return err
	}
	setUpload(UploadCompleted)
	e.log.Debug().Str("asset_id", h.AssetID).Str("to", to).Int64("bytes", h.TotalBytes).Msg("asset sent")
	return nil
}

func (e *Engine) receiveAsset(ctx context.Context, event string, data proto.AssetData) {
	id := data.AssetID
	if id == "" {
		return
	}

	e.mu.Lock()
	if _, ok := e.assets.decoded[id]; ok {
		e.mu.Unlock()
		return
	}

	var (
		header asset.Header
		blob   []byte
	)
	switch event {
	case proto.InboundTypeAssetUploadStart, proto.EventAssetAvailable:
		h := asset.Header{AssetID: id, Mime: data.Mime, TotalBytes: data.TotalBytes, ChunkSize: data.ChunkSize}
		if err := e.assets.inbox.Start(h); err != nil {
			e.mu.Unlock()
			e.log.Warn().Err(err).Str("asset_id", id).Msg("invalid asset header")
			return
		}
		e.assets.states[id] = AssetAwaiting
		e.mu.Unlock()
		return
	case proto.InboundTypeAssetUploadChunk, proto.EventAssetChunk:
		h, b, done, err := e.assets.inbox.Chunk(id, asset.Chunk{Seq: data.Seq, Bytes: data.Bytes})
		if err != nil {
			e.mu.Unlock()
			e.log.Debug().Err(err).Str("asset_id", id).Msg("dropping asset chunk")
			return
		}
		if !done {
			e.assets.states[id] = AssetAssembling
			e.mu.Unlock()
			return
		}
		header, blob = h, b
	default:
		h, b, err := e.assets.inbox.Complete(id)
		if err != nil {
			if errors.Is(err, asset.ErrIncomplete) {
				e.assets.states[id] = AssetAssembling
			}
			e.mu.Unlock()
			e.log.Warn().Err(err).Str("asset_id", id).Msg("asset not complete")
			return
		}
		header, blob = h, b
	}

	e.assets.states[id] = AssetComplete
	d, err := asset.Decode(id, header.Mime, blob)
	if err != nil {
		e.mu.Unlock()
		e.log.Warn().Err(err).Str("asset_id", id).Msg("failed to decode asset")
		return
	}
	e.assets.decoded[id] = d
	e.assets.states[id] = AssetDecoded
	e.mu.Unlock()

	e.cacheBlob(ctx, id, blob)
	e.log.Debug().Str("asset_id", id).Int("bytes", len(blob)).Msg("asset received")
}

func (e *Engine) cacheBlob(ctx context.Context, assetID string, blob []byte) {
	if err := e.store.Save(ctx, blobstore.AssetKey(assetID), blob); err != nil {
		e.log.Warn().Err(err).Str("asset_id", assetID).Msg("failed to cache asset")
		return
	}
	e.mu.Lock()
	if _, ok := e.assets.decoded[assetID]; ok {
		e.assets.states[assetID] = AssetCached
	}
	e.mu.Unlock()
}

// answerAssetRequest serves a forwarded request from the local cache, addressed
// to the requester only. Members without the asset stay silent.
func (e *Engine) answerAssetRequest(ctx context.Context, data proto.AssetData) {
	if data.AssetID == "" || data.ConnectionID == "" {
		return
	}

	var blob []byte
	mime := ""
	if d, ok := e.Asset(data.AssetID); ok {
		blob, mime = d.Data, d.Mime
	} else {
		stored, err := e.store.Load(ctx, blobstore.AssetKey(data.AssetID))
		if err != nil {
			if !errors.Is(err, blobstore.ErrNotFound) {
				e.log.Warn().Err(err).Str("asset_id", data.AssetID).Msg("failed to load asset for request")
			}
			return
		}
		blob, mime = stored, asset.Detect(stored)
	}

	canvasID := e.CanvasID()
	if canvasID == "" {
		return
	}
	h := asset.Header{AssetID: data.AssetID, Mime: mime, TotalBytes: int64(len(blob)), ChunkSize: e.opts.ChunkSize}
	go func() {
		if err := e.streamAsset(ctx, canvasID, h, blob, data.ConnectionID); err != nil {
			e.log.Debug().Err(err).Str("asset_id", h.AssetID).Str("to", data.ConnectionID).Msg("asset answer stopped")
		}
	}()
}
