package canvas

// List is an ordered object list with unique ids. It is not safe for concurrent use;
// the relay confines it to the hub goroutine and the client guards it with a mutex.
type List struct {
	items []Object
}

// NewList builds a list from objects, dropping later duplicates of an id.
func NewList(objs []Object) *List {
	l := &List{}
	l.Replace(objs)
	return l
}

func (l *List) indexOf(id string) int {
	for i := range l.items {
		if l.items[i].ID == id {
			return i
		}
	}
	return -1
}

// Has reports whether an object with id exists.
func (l *List) Has(id string) bool {
	return l.indexOf(id) >= 0
}

// Get returns a copy of the object with id.
func (l *List) Get(id string) (Object, bool) {
	i := l.indexOf(id)
	if i < 0 {
		return Object{}, false
	}
	return l.items[i].Clone(), true
}

// Len returns the number of objects.
func (l *List) Len() int {
	return len(l.items)
}

// Add appends obj unless its id is already present. Returns true if appended.
func (l *List) Add(obj Object) bool {
	if l.Has(obj.ID) {
		return false
	}
	l.items = append(l.items, obj.Clone())
	return true
}

// Update replaces the object with the same id in place, or appends it when missing.
// Returns true if an existing object was replaced.
func (l *List) Update(obj Object) bool {
	if i := l.indexOf(obj.ID); i >= 0 {
		l.items[i] = obj.Clone()
		return true
	}
	l.items = append(l.items, obj.Clone())
	return false
}

// Remove deletes every object whose id is in ids and returns the removed objects.
func (l *List) Remove(ids ...string) []Object {
	if len(ids) == 0 || len(l.items) == 0 {
		return nil
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	var removed []Object
	kept := l.items[:0]
	for _, obj := range l.items {
		if _, ok := drop[obj.ID]; ok {
			removed = append(removed, obj)
			continue
		}
		kept = append(kept, obj)
	}
	// zero the tail so removed objects aren't retained by the backing array
	for i := len(kept); i < len(l.items); i++ {
		l.items[i] = Object{}
	}
	l.items = kept
	return removed
}

// Clear empties the list and returns what was there.
func (l *List) Clear() []Object {
	removed := l.items
	l.items = nil
	return removed
}

// Replace swaps the full contents, keeping the first occurrence of each id.
func (l *List) Replace(objs []Object) {
	l.items = make([]Object, 0, len(objs))
	for _, obj := range objs {
		l.Add(obj)
	}
}

// Objects returns a deep copy of the list in order.
func (l *List) Objects() []Object {
	out := make([]Object, len(l.items))
	for i := range l.items {
		out[i] = l.items[i].Clone()
	}
	return out
}

// IDs returns ids in list order.
func (l *List) IDs() []string {
	out := make([]string, len(l.items))
	for i := range l.items {
		out[i] = l.items[i].ID
	}
	return out
}
