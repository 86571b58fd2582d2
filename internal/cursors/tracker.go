package cursors

import "sync"

// Entry is the last-known cursor of one connection.
type Entry struct {
	Position    any
	DisplayName string
	Color       string
	FileID      string
}

// Tracker keeps last-known cursors keyed by connection id. Entries are
// overwritten on every cursor-change and dropped on disconnect; room scoping
// happens at broadcast time, not here.
type Tracker struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewTracker() *Tracker {
	return &Tracker{entries: make(map[string]Entry)}
}

func (t *Tracker) Set(connID string, e Entry) {
	t.mu.Lock()
	t.entries[connID] = e
	t.mu.Unlock()
}

func (t *Tracker) Get(connID string) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[connID]
	return e, ok
}

func (t *Tracker) Remove(connID string) {
	t.mu.Lock()
	delete(t.entries, connID)
	t.mu.Unlock()
}
