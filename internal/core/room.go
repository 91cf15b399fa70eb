package core

import (
	"sort"

	"github.com/vovakirdan/wireboard-server/internal/asset"
	"github.com/vovakirdan/wireboard-server/internal/canvas"
)

// storedAsset is a fully received asset the relay can serve to late requesters.
type storedAsset struct {
	header asset.Header
	blob   []byte
}

// Room is the membership set, object list and asset cache of one canvas.
// All access happens on the hub goroutine.
type Room struct {
	Name    string
	clients map[*Client]struct{}
	objects *canvas.List
	assets  map[string]storedAsset
	uploads *asset.Inbox
}

// NewRoom constructs a room with no clients and no objects.
func NewRoom(name string) *Room {
	return &Room{
		Name:    name,
		clients: make(map[*Client]struct{}),
		objects: canvas.NewList(nil),
		assets:  make(map[string]storedAsset),
		uploads: asset.NewInbox(),
	}
}

// AddClient inserts a client into the room. Returns true if newly added.
func (r *Room) AddClient(c *Client) bool {
	if _, exists := r.clients[c]; exists {
		return false
	}
	r.clients[c] = struct{}{}
	return true
}

// RemoveClient deletes a client from the room. Returns true if removed.
func (r *Room) RemoveClient(c *Client) bool {
	if _, exists := r.clients[c]; !exists {
		return false
	}
	delete(r.clients, c)
	return true
}

// Has reports membership.
func (r *Room) Has(c *Client) bool {
	_, ok := r.clients[c]
	return ok
}

// Len returns the member count.
func (r *Room) Len() int {
	return len(r.clients)
}

// Empty returns true if no clients are in the room.
func (r *Room) Empty() bool {
	return len(r.clients) == 0
}

// Client finds a member by connection id.
func (r *Room) Client(id string) *Client {
	for c := range r.clients {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Members lists members ordered by connection id.
func (r *Room) Members() []Member {
	members := make([]Member, 0, len(r.clients))
	for c := range r.clients {
		members = append(members, Member{ID: c.ID, Name: c.Name})
	}
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
	return members
}

// Broadcast sends an event to all clients in the room except the sender and
// returns the ids of members whose buffers were full.
func (r *Room) Broadcast(event *Event, except *Client) (dropped []string) {
	for client := range r.clients {
		if client == except {
			continue
		}
		if !client.deliver(event) {
			// Drop if slow consumer.
			dropped = append(dropped, client.ID)
		}
	}
	return dropped
}
