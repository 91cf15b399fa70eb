package client

import (
	"sort"
	"time"

	"github.com/vovakirdan/wireboard-server/internal/canvas"
)

// DefaultStaleAfter is how long peer presence survives without updates.
const DefaultStaleAfter = 3 * time.Second

// PeerPresence is the ephemeral state of one remote member.
type PeerPresence struct {
	ConnectionID string
	DisplayName  string

	HasCursor bool
	Cursor    canvas.Point
	Drawing   bool
	Tool      string

	EraserCandidates []string
	MovePreview      []canvas.Object

	UpdatedAt time.Time
}

// InProgressStroke is a stroke a peer is still drawing.
type InProgressStroke struct {
	ConnectionID string
	TempID       string
	Stroke       canvas.Stroke
	UpdatedAt    time.Time
}

// PresenceTracker keeps remote presence apart from committed objects.
// Not safe for concurrent use; the engine guards it.
type PresenceTracker struct {
	staleAfter time.Duration

	members map[string]string
	peers   map[string]*PeerPresence
	strokes map[string]*InProgressStroke
}

// NewPresenceTracker creates an empty tracker.
func NewPresenceTracker(staleAfter time.Duration) *PresenceTracker {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &PresenceTracker{
		staleAfter: staleAfter,
		members:    make(map[string]string),
		peers:      make(map[string]*PeerPresence),
		strokes:    make(map[string]*InProgressStroke),
	}
}

// SetMembers replaces the known member names.
func (p *PresenceTracker) SetMembers(members map[string]string) {
	p.members = make(map[string]string, len(members))
	for id, name := range members {
		p.members[id] = name
	}
}

// Join records a member name.
func (p *PresenceTracker) Join(id, name string) {
	p.members[id] = name
}

// Leave forgets everything about a member.
func (p *PresenceTracker) Leave(id string) {
	delete(p.members, id)
	delete(p.peers, id)
	for key, s := range p.strokes {
		if s.ConnectionID == id {
			delete(p.strokes, key)
		}
	}
}

// Members returns member names by connection id.
func (p *PresenceTracker) Members() map[string]string {
	out := make(map[string]string, len(p.members))
	for id, name := range p.members {
		out[id] = name
	}
	return out
}

func (p *PresenceTracker) peer(id string, now time.Time) *PeerPresence {
	entry, ok := p.peers[id]
	if !ok {
		entry = &PeerPresence{ConnectionID: id}
		p.peers[id] = entry
	}
	entry.DisplayName = p.members[id]
	entry.UpdatedAt = now
	return entry
}

// Cursor records a pointer position.
func (p *PresenceTracker) Cursor(id string, pos canvas.Point, drawing bool, tool string, now time.Time) {
	entry := p.peer(id, now)
	entry.HasCursor = true
	entry.Cursor = pos
	entry.Drawing = drawing
	entry.Tool = tool
}

// CursorStop drops the peer's presence entry.
func (p *PresenceTracker) CursorStop(id string) {
	delete(p.peers, id)
}

// Eraser records the objects a peer's eraser is over.
func (p *PresenceTracker) Eraser(id string, candidates []string, now time.Time) {
	p.peer(id, now).EraserCandidates = append([]string(nil), candidates...)
}

// EraserEnd clears the eraser preview.
func (p *PresenceTracker) EraserEnd(id string) {
	if entry, ok := p.peers[id]; ok {
		entry.EraserCandidates = nil
	}
}

// Move records objects being dragged by a peer.
func (p *PresenceTracker) Move(id string, objs []canvas.Object, now time.Time) {
	preview := make([]canvas.Object, len(objs))
	for i := range objs {
		preview[i] = objs[i].Clone()
	}
	p.peer(id, now).MovePreview = preview
}

// MoveEnd clears the move preview.
func (p *PresenceTracker) MoveEnd(id string) {
	if entry, ok := p.peers[id]; ok {
		entry.MovePreview = nil
	}
}

// Stroke records the partial stroke tempID of peer id.
func (p *PresenceTracker) Stroke(id, tempID string, s canvas.Stroke, now time.Time) {
	s.Points = append([]canvas.Point(nil), s.Points...)
	p.strokes[tempID] = &InProgressStroke{ConnectionID: id, TempID: tempID, Stroke: s, UpdatedAt: now}
}

// StrokeEnd retires a stroke on its end message.
func (p *PresenceTracker) StrokeEnd(tempID string) {
	delete(p.strokes, tempID)
}

// RetireStroke drops the in-progress stroke whose temp id became a committed
// object id. Reports whether one was tracked.
func (p *PresenceTracker) RetireStroke(objectID string) bool {
	if _, ok := p.strokes[objectID]; !ok {
		return false
	}
	delete(p.strokes, objectID)
	return true
}

// Expire removes entries not updated within the stale interval and returns the
// affected connection ids.
func (p *PresenceTracker) Expire(now time.Time) []string {
	var expired []string
	for id, entry := range p.peers {
		if now.Sub(entry.UpdatedAt) > p.staleAfter {
			delete(p.peers, id)
			expired = append(expired, id)
		}
	}
	for tempID, s := range p.strokes {
		if now.Sub(s.UpdatedAt) > p.staleAfter {
			delete(p.strokes, tempID)
			expired = append(expired, s.ConnectionID)
		}
	}
	return expired
}

// Peers returns a copy of every live entry ordered by connection id.
func (p *PresenceTracker) Peers() []PeerPresence {
	out := make([]PeerPresence, 0, len(p.peers))
	for _, entry := range p.peers {
		cp := *entry
		cp.EraserCandidates = append([]string(nil), entry.EraserCandidates...)
		cp.MovePreview = append([]canvas.Object(nil), entry.MovePreview...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConnectionID < out[j].ConnectionID })
	return out
}

// Strokes returns every in-progress stroke ordered by temp id.
func (p *PresenceTracker) Strokes() []InProgressStroke {
	out := make([]InProgressStroke, 0, len(p.strokes))
	for _, s := range p.strokes {
		cp := *s
		cp.Stroke.Points = append([]canvas.Point(nil), s.Stroke.Points...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TempID < out[j].TempID })
	return out
}

// Reset forgets all presence and members.
func (p *PresenceTracker) Reset() {
	p.members = make(map[string]string)
	p.peers = make(map[string]*PeerPresence)
	p.strokes = make(map[string]*InProgressStroke)
}
