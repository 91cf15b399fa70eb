package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wireboard-server/internal/asset"
	"github.com/vovakirdan/wireboard-server/internal/canvas"
)

// DefaultRoomCapacity is the member limit per canvas.
const DefaultRoomCapacity = 10

// Options tunes the hub.
type Options struct {
	// RoomCapacity is the maximum number of members per canvas.
	RoomCapacity int
	// AssetPacer paces assets served to requesters.
	AssetPacer asset.Pacer
}

type envelope struct {
	client *Client
	cmd    *Command
}

// Hub owns every room. All room state is touched only by the goroutine running
// Run, so each apply-then-broadcast step is atomic with respect to other commands.
type Hub struct {
	opts Options
	log  *zerolog.Logger

	rooms   map[string]*Room
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	inbox      chan envelope
	queries    chan func()
	stopped    chan struct{}

	// ctx of Run, used by asset serving tasks.
	ctx context.Context
}

// NewHub creates a hub. A nil logger disables logging.
func NewHub(opts Options, logger *zerolog.Logger) *Hub {
	if opts.RoomCapacity <= 0 {
		opts.RoomCapacity = DefaultRoomCapacity
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		opts:       opts,
		log:        logger,
		rooms:      make(map[string]*Room),
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbox:      make(chan envelope, 64),
		queries:    make(chan func()),
		stopped:    make(chan struct{}),
	}
}

// Run processes registrations and commands until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	h.ctx = ctx
	defer close(h.stopped)

	for {
		select {
		case c := <-h.register:
			h.clients[c] = struct{}{}
			go h.pump(ctx, c)
			h.log.Debug().Str("client_id", c.ID).Msg("client registered")
		case c := <-h.unregister:
			h.dropClient(c)
		case env := <-h.inbox:
			if _, ok := h.clients[env.client]; !ok {
				continue
			}
			h.handle(env.client, env.cmd)
		case fn := <-h.queries:
			fn()
		case <-ctx.Done():
			for c := range h.clients {
				c.close()
			}
			return
		}
	}
}

// RegisterClient attaches a client to the hub. Its Commands channel is consumed
// in order until the client is unregistered.
func (h *Hub) RegisterClient(c *Client) {
	select {
	case h.register <- c:
	case <-h.stopped:
	}
}

// UnregisterClient removes the client from its room and stops consuming its commands.
func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.stopped:
	}
}

func (h *Hub) pump(ctx context.Context, c *Client) {
	for {
		select {
		case cmd := <-c.Commands:
			if cmd == nil {
				continue
			}
			select {
			case h.inbox <- envelope{client: c, cmd: cmd}:
			case <-c.done:
				return
			case <-ctx.Done():
				return
			}
		case <-c.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) dropClient(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	h.leaveRoom(c)
	delete(h.clients, c)
	c.close()
	h.log.Debug().Str("client_id", c.ID).Msg("client unregistered")
}

func (h *Hub) handle(c *Client, cmd *Command) {
	switch cmd.Kind {
	case CommandJoinRoom:
		h.join(c, cmd)
	case CommandLeaveRoom:
		h.leave(c, cmd)
	case CommandMutate:
		h.mutate(c, cmd)
	case CommandPresence:
		h.presence(c, cmd)
	case CommandAssetStart, CommandAssetChunk, CommandAssetComplete:
		h.assetUpload(c, cmd)
	case CommandAssetRequest:
		h.assetRequest(c, cmd)
	default:
		h.sendError(c, coreError(ErrCodeBadRequest, "unknown command"))
	}
}

func (h *Hub) sendError(c *Client, err *CoreError) {
	c.deliver(&Event{Kind: EventError, Room: c.canvas, Error: err})
}

func (h *Hub) broadcast(room *Room, ev *Event, except *Client) {
	if dropped := room.Broadcast(ev, except); len(dropped) > 0 {
		h.log.Warn().
			Str("canvas_id", room.Name).
			Strs("client_ids", dropped).
			Int("event_kind", int(ev.Kind)).
			Msg("dropped event for slow consumers")
	}
}

func (h *Hub) join(c *Client, cmd *Command) {
	if cmd.Room == "" {
		h.sendError(c, coreError(ErrCodeBadRequest, "canvas_id is required"))
		return
	}

	room, ok := h.rooms[cmd.Room]
	if ok && room.Has(c) {
		// rejoin of the same canvas: resend the snapshot only
		c.deliver(h.snapshot(c, room))
		return
	}
	if ok && room.Len() >= h.opts.RoomCapacity {
		h.log.Info().Str("client_id", c.ID).Str("canvas_id", cmd.Room).Int("members", room.Len()).Msg("join rejected: room full")
		h.sendError(c, coreError(ErrCodeRoomFull, "session full"))
		return
	}
	if !ok {
		room = NewRoom(cmd.Room)
		h.rooms[cmd.Room] = room
	}

	h.leaveRoom(c)
	if cmd.Name != "" {
		c.Name = cmd.Name
	}
	room.AddClient(c)
	c.canvas = room.Name

	c.deliver(h.snapshot(c, room))
	h.broadcast(room, &Event{Kind: EventUserJoined, Room: room.Name, From: c.ID, User: c.Name}, c)
	h.log.Info().Str("client_id", c.ID).Str("canvas_id", room.Name).Int("members", room.Len()).Msg("client joined")
}

func (h *Hub) snapshot(c *Client, room *Room) *Event {
	return &Event{
		Kind:    EventSnapshot,
		Room:    room.Name,
		From:    c.ID,
		User:    c.Name,
		Objects: room.objects.Objects(),
		Members: room.Members(),
	}
}

func (h *Hub) leave(c *Client, cmd *Command) {
	if c.canvas == "" || (cmd.Room != "" && cmd.Room != c.canvas) {
		h.sendError(c, coreError(ErrCodeNotInRoom, "not in canvas"))
		return
	}
	h.leaveRoom(c)
}

// leaveRoom removes c from its room and tells the others. Objects are untouched.
func (h *Hub) leaveRoom(c *Client) {
	if c.canvas == "" {
		return
	}
	room, ok := h.rooms[c.canvas]
	c.canvas = ""
	if !ok || !room.RemoveClient(c) {
		return
	}

	h.broadcast(room, &Event{Kind: EventPresence, Room: room.Name, From: c.ID, User: c.Name, Presence: &Presence{Kind: PresenceCursorStop}}, nil)
	h.broadcast(room, &Event{Kind: EventUserLeft, Room: room.Name, From: c.ID, User: c.Name}, nil)
	h.log.Info().Str("client_id", c.ID).Str("canvas_id", room.Name).Int("members", room.Len()).Msg("client left")
	if room.Empty() {
		// objects and assets stay for the next joiner
		h.log.Debug().Str("canvas_id", room.Name).Int("objects", room.objects.Len()).Int("assets", len(room.assets)).Msg("canvas empty")
	}
}

// memberRoom returns the room c is admitted to if it matches canvasID.
func (h *Hub) memberRoom(c *Client, canvasID string) *Room {
	if canvasID == "" || canvasID != c.canvas {
		h.sendError(c, coreError(ErrCodeNotInRoom, "not in canvas"))
		return nil
	}
	room, ok := h.rooms[canvasID]
	if !ok || !room.Has(c) {
		h.sendError(c, coreError(ErrCodeNotInRoom, "not in canvas"))
		return nil
	}
	return room
}

func (h *Hub) mutate(c *Client, cmd *Command) {
	room := h.memberRoom(c, cmd.Room)
	if room == nil {
		return
	}

	m := cmd.Mutation
	if err := m.Validate(); err != nil {
		h.log.Debug().Err(err).Str("client_id", c.ID).Str("op", string(m.Op)).Msg("invalid mutation")
		h.sendError(c, coreError(ErrCodeInvalidPayload, err.Error()))
		return
	}
	if m.Timestamp == 0 {
		m.Timestamp = time.Now().UnixMilli()
	}

	res := room.objects.Apply(m)
	switch {
	case m.Op == canvas.OpRemove && len(res.Removed) == 0:
		return
	case m.Op == canvas.OpAdd && len(res.Added) == 0:
		return
	}

	h.broadcast(room, &Event{Kind: EventMutation, Room: room.Name, From: c.ID, User: c.Name, Mutation: m}, c)
	h.log.Debug().Str("client_id", c.ID).Str("canvas_id", room.Name).Str("op", string(m.Op)).Int("objects", room.objects.Len()).Msg("mutation applied")
}

func (h *Hub) presence(c *Client, cmd *Command) {
	room := h.memberRoom(c, cmd.Room)
	if room == nil {
		return
	}
	p := cmd.Presence
	if p == nil {
		h.sendError(c, coreError(ErrCodeInvalidPayload, "presence payload is required"))
		return
	}
	if (p.Kind == PresenceStrokeProgress || p.Kind == PresenceStrokeProgressEnd) && p.TempStrokeID == "" {
		h.sendError(c, coreError(ErrCodeInvalidPayload, "temp_stroke_id is required"))
		return
	}
	h.broadcast(room, &Event{Kind: EventPresence, Room: room.Name, From: c.ID, User: c.Name, Presence: p}, c)
}

// Rooms lists every room.
func (h *Hub) Rooms(ctx context.Context) ([]RoomInfo, error) {
	var out []RoomInfo
	err := h.query(ctx, func() {
		out = make([]RoomInfo, 0, len(h.rooms))
		for _, room := range h.rooms {
			out = append(out, roomInfo(room, false))
		}
	})
	return out, err
}

// Room returns one room including its objects, or ErrRoomNotFound.
func (h *Hub) Room(ctx context.Context, canvasID string) (RoomInfo, error) {
	var (
		out   RoomInfo
		found bool
	)
	err := h.query(ctx, func() {
		room, ok := h.rooms[canvasID]
		if !ok {
			return
		}
		found = true
		out = roomInfo(room, true)
	})
	if err != nil {
		return RoomInfo{}, err
	}
	if !found {
		return RoomInfo{}, ErrRoomNotFound
	}
	return out, nil
}

// query runs fn on the hub goroutine and waits for it.
func (h *Hub) query(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case h.queries <- func() { fn(); close(done) }:
	case <-h.stopped:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RoomInfo is a read-only view of a room.
type RoomInfo struct {
	CanvasID    string
	Members     []Member
	ObjectCount int
	AssetCount  int
	Objects     []canvas.Object
}

func roomInfo(room *Room, withObjects bool) RoomInfo {
	info := RoomInfo{
		CanvasID:    room.Name,
		Members:     room.Members(),
		ObjectCount: room.objects.Len(),
		AssetCount:  len(room.assets),
	}
	if withObjects {
		info.Objects = room.objects.Objects()
	}
	return info
}
