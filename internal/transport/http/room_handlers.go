package http

import (
	"errors"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wireboard-server/internal/canvas"
	"github.com/vovakirdan/wireboard-server/internal/core"
)

// RoomHandlers serves the read-only room inspection endpoints.
type RoomHandlers struct {
	hub *core.Hub
	log *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(hub *core.Hub, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		hub: hub,
		log: logger,
	}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MemberResponse is a room member in API responses.
type MemberResponse struct {
	ConnectionID string `json:"connection_id"`
	DisplayName  string `json:"display_name"`
}

// RoomResponse represents a room in API responses.
type RoomResponse struct {
	CanvasID    string           `json:"canvas_id"`
	MemberCount int              `json:"member_count"`
	ObjectCount int              `json:"object_count"`
	AssetCount  int              `json:"asset_count"`
	Members     []MemberResponse `json:"members,omitempty"`
	Objects     []canvas.Object  `json:"objects,omitempty"`
}

// ListRoomsResponse represents the list rooms response.
type ListRoomsResponse struct {
	Rooms []RoomResponse `json:"rooms"`
}

// ListRooms lists every canvas held by the relay.
// GET /api/rooms
func (h *RoomHandlers) ListRooms(c *gin.Context) {
	rooms, err := h.hub.Rooms(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list rooms")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	resp := ListRoomsResponse{Rooms: make([]RoomResponse, 0, len(rooms))}
	for _, room := range rooms {
		resp.Rooms = append(resp.Rooms, roomResponse(room, false))
	}
	sort.Slice(resp.Rooms, func(i, j int) bool { return resp.Rooms[i].CanvasID < resp.Rooms[j].CanvasID })

	c.JSON(http.StatusOK, resp)
}

// GetRoom returns members and the object snapshot of one canvas.
// GET /api/rooms/:id
func (h *RoomHandlers) GetRoom(c *gin.Context) {
	id := c.Param("id")

	room, err := h.hub.Room(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, core.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
			return
		}
		h.log.Error().Err(err).Str("canvas_id", id).Msg("failed to get room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, roomResponse(room, true))
}

func roomResponse(room core.RoomInfo, detailed bool) RoomResponse {
	resp := RoomResponse{
		CanvasID:    room.CanvasID,
		MemberCount: len(room.Members),
		ObjectCount: room.ObjectCount,
		AssetCount:  room.AssetCount,
	}
	if !detailed {
		return resp
	}

	resp.Members = make([]MemberResponse, 0, len(room.Members))
	for _, m := range room.Members {
		resp.Members = append(resp.Members, MemberResponse{ConnectionID: m.ID, DisplayName: m.Name})
	}
	resp.Objects = room.Objects
	if resp.Objects == nil {
		resp.Objects = []canvas.Object{}
	}
	return resp
}
