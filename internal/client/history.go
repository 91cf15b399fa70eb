package client

import "github.com/vovakirdan/wireboard-server/internal/canvas"

// ActionType is the kind of a local undoable action.
type ActionType string

const (
	ActionAdd    ActionType = "add"
	ActionRemove ActionType = "remove"
)

// Action is one entry of the local history. Objects are the full objects that
// were added or removed so the action can be inverted later.
type Action struct {
	Type    ActionType
	Objects []canvas.Object
}

// History is the per-user undo stack. Only local user actions are pushed.
type History struct {
	actions []Action
}

// Push records an action. Actions without objects are ignored.
func (h *History) Push(a Action) {
	if len(a.Objects) == 0 {
		return
	}
	objs := make([]canvas.Object, len(a.Objects))
	for i := range a.Objects {
		objs[i] = a.Objects[i].Clone()
	}
	h.actions = append(h.actions, Action{Type: a.Type, Objects: objs})
}

// Pop removes and returns the newest action.
func (h *History) Pop() (Action, bool) {
	if len(h.actions) == 0 {
		return Action{}, false
	}
	last := h.actions[len(h.actions)-1]
	h.actions[len(h.actions)-1] = Action{}
	h.actions = h.actions[:len(h.actions)-1]
	return last, true
}

// Len returns the number of recorded actions.
func (h *History) Len() int {
	return len(h.actions)
}

// Reset forgets every action.
func (h *History) Reset() {
	h.actions = nil
}
