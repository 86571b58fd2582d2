package presence

import (
	"sync"

	"github.com/arnab9957/CodeFuse/internal/models"
)

var palette = []string{
	"#F87171",
	"#FBBF24",
	"#34D399",
	"#60A5FA",
	"#A78BFA",
	"#F472B6",
	"#22D3EE",
	"#F97316",
}

// PickColor maps a connection id onto the palette with a polynomial rolling
// hash. Stable for a given id; collisions across ids are fine.
func PickColor(connID string) string {
	var hash int32
	for _, ch := range connID {
		hash = (hash << 5) - hash + int32(ch)
	}
	idx := int(hash)
	if idx < 0 {
		idx = -idx
	}
	return palette[idx%len(palette)]
}

// Registry maps live connection ids to their display data.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]models.Participant
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]models.Participant)}
}

// Join records the connection's display name and assigns its color.
// Re-joining with a new name overwrites the entry; the color stays the same
// because it is derived from the connection id.
func (r *Registry) Join(connID, displayName string) models.Participant {
	p := models.Participant{
		ConnectionID: connID,
		DisplayName:  displayName,
		Color:        PickColor(connID),
	}
	r.mu.Lock()
	r.entries[connID] = p
	r.mu.Unlock()
	return p
}

func (r *Registry) Get(connID string) (models.Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.entries[connID]
	return p, ok
}

func (r *Registry) Remove(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, connID)
}
