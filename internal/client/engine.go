package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wireboard-server/internal/asset"
	"github.com/vovakirdan/wireboard-server/internal/blobstore"
	"github.com/vovakirdan/wireboard-server/internal/canvas"
	"github.com/vovakirdan/wireboard-server/internal/proto"
)

// DefaultSuppressWindow is how long inbound mutations are treated as echoes
// after a local edit.
const DefaultSuppressWindow = 100 * time.Millisecond

// Outbox delivers frames to the relay.
type Outbox interface {
	Send(ctx context.Context, msg proto.Inbound) error
}

// Options configures an Engine. Zero values use the defaults.
type Options struct {
	DisplayName      string
	Clock            clock.Clock
	SuppressWindow   time.Duration
	ThrottleInterval time.Duration
	StaleAfter       time.Duration

	// Store caches received and uploaded assets. Nil uses an in-memory store.
	Store     blobstore.Store
	ChunkSize int
	Pacer     asset.Pacer

	Logger *zerolog.Logger
}

// Engine is the client side of a canvas: it applies local edits optimistically,
// folds remote mutations in, keeps the undo history and tracks peer presence.
type Engine struct {
	out   Outbox
	opts  Options
	clock clock.Clock
	log   *zerolog.Logger

	throttle *Throttle
	store    blobstore.Store

	mu           sync.Mutex
	canvasID     string
	connectionID string
	status       Status
	lastErr      error
	objects      *canvas.List
	history      History
	suppressTill time.Time
	presence     *PresenceTracker
	assets       *assetState
}

// NewEngine creates an engine that sends through out.
func NewEngine(out Outbox, opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.SuppressWindow == 0 {
		opts.SuppressWindow = DefaultSuppressWindow
	}
	if opts.ThrottleInterval == 0 {
		opts.ThrottleInterval = DefaultThrottleInterval
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = asset.DefaultChunkSize
	}
	if opts.Store == nil {
		opts.Store = blobstore.NewMemory()
	}
	if opts.Logger == nil {
		nop := zerolog.Nop()
		opts.Logger = &nop
	}

	return &Engine{
		out:      out,
		opts:     opts,
		clock:    opts.Clock,
		log:      opts.Logger,
		throttle: NewThrottle(opts.Clock, opts.ThrottleInterval),
		store:    opts.Store,
		status:   StatusDisconnected,
		objects:  canvas.NewList(nil),
		presence: NewPresenceTracker(opts.StaleAfter),
		assets:   newAssetState(),
	}
}

// Status returns the connection indicator.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// LastError returns the most recent relay or connection error.
func (e *Engine) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// CanvasID returns the canvas the engine joined.
func (e *Engine) CanvasID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.canvasID
}

// ConnectionID returns the id the relay assigned in the last snapshot.
func (e *Engine) ConnectionID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.connectionID
}

// Objects returns the current object list for rendering.
func (e *Engine) Objects() []canvas.Object {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.objects.Objects()
}

// HistoryLen returns the number of undoable actions.
func (e *Engine) HistoryLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.Len()
}

// Presence returns live peer presence for rendering.
func (e *Engine) Presence() []PeerPresence {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.presence.Peers()
}

// InProgressStrokes returns strokes peers are still drawing.
func (e *Engine) InProgressStrokes() []InProgressStroke {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.presence.Strokes()
}

// Members returns member display names by connection id.
func (e *Engine) Members() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.presence.Members()
}

// Join asks the relay for admission to canvasID. Switching canvases drops the
// local list, presence and history. While offline the join is deferred to the
// next connection.
func (e *Engine) Join(ctx context.Context, canvasID string) error {
	if canvasID == "" {
		return ErrNoCanvas
	}

	e.mu.Lock()
	if canvasID != e.canvasID {
		e.history.Reset()
		e.objects = canvas.NewList(nil)
		e.presence.Reset()
		e.connectionID = ""
	}
	e.canvasID = canvasID
	e.status = StatusConnecting
	e.mu.Unlock()

	e.log.Info().Str("canvas_id", canvasID).Msg("joining canvas")
	err := e.send(ctx, proto.InboundTypeJoin, proto.JoinData{CanvasID: canvasID, DisplayName: e.opts.DisplayName})
	if errors.Is(err, ErrNotConnected) {
		// sent by OnConnected once the session is up
		return nil
	}
	return err
}

// Leave leaves the current canvas and drops everything known about it.
func (e *Engine) Leave(ctx context.Context) error {
	e.mu.Lock()
	canvasID := e.canvasID
	e.canvasID = ""
	e.connectionID = ""
	e.status = StatusDisconnected
	e.objects = canvas.NewList(nil)
	e.suppressTill = time.Time{}
	e.history.Reset()
	e.presence.Reset()
	e.mu.Unlock()

	if canvasID == "" {
		return ErrNoCanvas
	}
	return e.send(ctx, proto.InboundTypeLeave, proto.LeaveData{CanvasID: canvasID})
}

// OnConnected is called after every (re)connection and re-sends the join.
func (e *Engine) OnConnected(ctx context.Context) error {
	e.mu.Lock()
	canvasID := e.canvasID
	e.status = StatusConnecting
	e.mu.Unlock()

	if err := e.send(ctx, proto.InboundTypeHello, proto.HelloData{User: e.opts.DisplayName, Protocol: proto.ProtocolVersion}); err != nil {
		return err
	}
	if canvasID == "" {
		return nil
	}
	return e.send(ctx, proto.InboundTypeJoin, proto.JoinData{CanvasID: canvasID, DisplayName: e.opts.DisplayName})
}

// OnDisconnected records a lost connection.
func (e *Engine) OnDisconnected(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status = StatusDisconnected
	if err != nil {
		e.lastErr = err
	}
}

// Handle processes one frame received from the relay.
func (e *Engine) Handle(ctx context.Context, f proto.Frame) error {
	switch f.Type {
	case proto.OutboundTypeError:
		e.handleError(f.Error)
		return nil
	case proto.OutboundTypeEvent:
	default:
		return fmt.Errorf("unknown frame type %q", f.Type)
	}

	switch f.Event {
	case proto.EventSnapshot:
		var data proto.EventSnapshotData
		if err := json.Unmarshal(f.Data, &data); err != nil {
			return fmt.Errorf("decode snapshot: %w", err)
		}
		e.ApplySnapshot(data)
	case proto.EventUserJoined, proto.EventUserLeft:
		var data proto.EventMemberData
		if err := json.Unmarshal(f.Data, &data); err != nil {
			return fmt.Errorf("decode %s: %w", f.Event, err)
		}
		e.mu.Lock()
		if f.Event == proto.EventUserJoined {
			e.presence.Join(data.ConnectionID, data.DisplayName)
		} else {
			e.presence.Leave(data.ConnectionID)
		}
		e.mu.Unlock()
	case proto.EventMutation:
		var data proto.MutationData
		if err := json.Unmarshal(f.Data, &data); err != nil {
			return fmt.Errorf("decode mutation: %w", err)
		}
		e.ApplyRemote(ctx, data.Mutation())
	case proto.InboundTypeCursor, proto.InboundTypeCursorStop,
		proto.InboundTypeStrokeProgress, proto.InboundTypeStrokeProgressEnd,
		proto.InboundTypeEraserPreview, proto.InboundTypeEraserPreviewEnd,
		proto.InboundTypeMovePreview, proto.InboundTypeMovePreviewEnd:
		return e.handlePresence(f)
	case proto.InboundTypeAssetUploadStart, proto.InboundTypeAssetUploadChunk, proto.InboundTypeAssetUploadComplete,
		proto.EventAssetAvailable, proto.EventAssetChunk, proto.EventAssetComplete:
		var data proto.AssetData
		if err := json.Unmarshal(f.Data, &data); err != nil {
			return fmt.Errorf("decode %s: %w", f.Event, err)
		}
		e.receiveAsset(ctx, f.Event, data)
	case proto.EventAssetRequest:
		var data proto.AssetData
		if err := json.Unmarshal(f.Data, &data); err != nil {
			return fmt.Errorf("decode asset request: %w", err)
		}
		e.answerAssetRequest(ctx, data)
	default:
		e.log.Debug().Str("event", f.Event).Msg("ignoring unknown event")
	}
	return nil
}

func (e *Engine) handleError(perr *proto.Error) {
	if perr == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.lastErr = perr
	if perr.Code == proto.ErrCodeRoomFull {
		e.status = StatusRejected
		e.log.Warn().Str("canvas_id", e.canvasID).Str("reason", perr.Msg).Msg("join rejected")
		return
	}
	e.log.Warn().Str("code", perr.Code).Str("msg", perr.Msg).Msg("relay error")
}

// ApplySnapshot replaces the local list with the relay's. The snapshot is a
// baseline, so history is kept.
func (e *Engine) ApplySnapshot(data proto.EventSnapshotData) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if data.CanvasID != e.canvasID {
		e.log.Debug().Str("canvas_id", data.CanvasID).Msg("ignoring snapshot for another canvas")
		return
	}
	e.objects.Replace(data.Objects)
	e.connectionID = data.ConnectionID
	e.status = StatusConnected

	members := make(map[string]string, len(data.Members))
	for _, m := range data.Members {
		if m.ConnectionID != data.ConnectionID {
			members[m.ConnectionID] = m.DisplayName
		}
	}
	e.presence.SetMembers(members)
	e.log.Info().Str("canvas_id", data.CanvasID).Int("objects", e.objects.Len()).Int("members", len(data.Members)).Msg("snapshot applied")
}

// ApplyRemote folds a mutation from another member into the local list. While
// the echo window is open every inbound mutation is dropped. Reports whether
// the mutation was applied.
func (e *Engine) ApplyRemote(ctx context.Context, m canvas.Mutation) bool {
	if err := m.Validate(); err != nil {
		e.log.Debug().Err(err).Msg("dropping invalid remote mutation")
		return false
	}

	e.mu.Lock()
	if e.clock.Now().Before(e.suppressTill) {
		e.mu.Unlock()
		e.log.Debug().Str("op", string(m.Op)).Msg("dropping mutation inside echo window")
		return false
	}

	res := e.objects.Apply(m)
	if m.Op == canvas.OpAdd || m.Op == canvas.OpUpdate {
		for _, obj := range m.Objects {
			e.presence.RetireStroke(obj.ID)
		}
	}
	var stale []string
	if m.Op == canvas.OpClear {
		stale = e.assets.invalidate(res.Removed)
	}
	e.mu.Unlock()

	for _, id := range stale {
		if err := e.store.Clear(ctx, blobstore.AssetKey(id)); err != nil {
			e.log.Warn().Err(err).Str("asset_id", id).Msg("failed to clear cached asset")
		}
	}
	return true
}

// AddLocal adds objects, records them for undo and pushes the mutation.
func (e *Engine) AddLocal(ctx context.Context, objs ...canvas.Object) error {
	m := canvas.Mutation{Op: canvas.OpAdd, Objects: objs}
	if err := m.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	if e.canvasID == "" {
		e.mu.Unlock()
		return ErrNoCanvas
	}
	res := e.objects.Apply(m)
	e.history.Push(Action{Type: ActionAdd, Objects: res.Added})
	e.openWindow()
	canvasID := e.canvasID
	e.mu.Unlock()

	return e.sendMutation(ctx, canvasID, m)
}

// UpdateLocal replaces objects in place. Updates are not undoable.
func (e *Engine) UpdateLocal(ctx context.Context, objs ...canvas.Object) error {
	m := canvas.Mutation{Op: canvas.OpUpdate, Objects: objs}
	if err := m.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	if e.canvasID == "" {
		e.mu.Unlock()
		return ErrNoCanvas
	}
	e.objects.Apply(m)
	e.openWindow()
	canvasID := e.canvasID
	e.mu.Unlock()

	return e.sendMutation(ctx, canvasID, m)
}

// RemoveLocal erases objects by id. Ids that are not present are ignored; if
// none is present nothing is sent. Reports whether anything was removed.
func (e *Engine) RemoveLocal(ctx context.Context, ids ...string) (bool, error) {
	m := canvas.Mutation{Op: canvas.OpRemove, IDs: ids}
	if err := m.Validate(); err != nil {
		return false, err
	}

	e.mu.Lock()
	if e.canvasID == "" {
		e.mu.Unlock()
		return false, ErrNoCanvas
	}
	removed := e.objects.Remove(ids...)
	if len(removed) == 0 {
		e.mu.Unlock()
		return false, nil
	}
	e.history.Push(Action{Type: ActionRemove, Objects: removed})
	e.openWindow()
	canvasID := e.canvasID
	e.mu.Unlock()

	m.IDs = objectIDs(removed)
	return true, e.sendMutation(ctx, canvasID, m)
}

// ClearLocal empties the canvas. The cleared objects can be restored by undo.
func (e *Engine) ClearLocal(ctx context.Context) error {
	e.mu.Lock()
	if e.canvasID == "" {
		e.mu.Unlock()
		return ErrNoCanvas
	}
	removed := e.objects.Clear()
	e.history.Push(Action{Type: ActionRemove, Objects: removed})
	canvasID := e.canvasID
	e.mu.Unlock()

	return e.sendMutation(ctx, canvasID, canvas.Mutation{Op: canvas.OpClear})
}

// Undo inverts the newest local action against the current list. Objects that
// were removed by someone else in the meantime are skipped. Reports whether
// anything changed.
func (e *Engine) Undo(ctx context.Context) (bool, error) {
	e.mu.Lock()
	act, ok := e.history.Pop()
	if !ok || e.canvasID == "" {
		e.mu.Unlock()
		return false, nil
	}

	var m canvas.Mutation
	switch act.Type {
	case ActionAdd:
		var ids []string
		for _, obj := range act.Objects {
			if e.objects.Has(obj.ID) {
				ids = append(ids, obj.ID)
			}
		}
		if len(ids) > 0 {
			e.objects.Remove(ids...)
			m = canvas.Mutation{Op: canvas.OpRemove, IDs: ids}
		}
	case ActionRemove:
		var objs []canvas.Object
		for _, obj := range act.Objects {
			if e.objects.Add(obj) {
				objs = append(objs, obj)
			}
		}
		if len(objs) > 0 {
			m = canvas.Mutation{Op: canvas.OpAdd, Objects: objs}
		}
	}
	if m.Op == "" {
		e.mu.Unlock()
		return false, nil
	}
	e.openWindow()
	canvasID := e.canvasID
	e.mu.Unlock()

	return true, e.sendMutation(ctx, canvasID, m)
}

// openWindow must be called with mu held.
func (e *Engine) openWindow() {
	if e.opts.SuppressWindow <= 0 {
		return
	}
	e.suppressTill = e.clock.Now().Add(e.opts.SuppressWindow)
}

func (e *Engine) sendMutation(ctx context.Context, canvasID string, m canvas.Mutation) error {
	return e.send(ctx, proto.InboundTypeMutation, proto.MutationData{
		CanvasID:  canvasID,
		Op:        m.Op,
		Objects:   m.Objects,
		IDs:       m.IDs,
		Timestamp: e.clock.Now().UnixMilli(),
	})
}

func (e *Engine) send(ctx context.Context, typ string, data any) error {
	msg, err := proto.NewInbound(typ, data)
	if err != nil {
		return fmt.Errorf("encode %s: %w", typ, err)
	}
	if err := e.out.Send(ctx, msg); err != nil {
		e.mu.Lock()
		e.lastErr = err
		e.mu.Unlock()
		return fmt.Errorf("send %s: %w", typ, err)
	}
	return nil
}

func objectIDs(objs []canvas.Object) []string {
	ids := make([]string, len(objs))
	for i := range objs {
		ids[i] = objs[i].ID
	}
	return ids
}
