package session

import (
	"sort"
	"sync"

	"github.com/arnab9957/CodeFuse/internal/models"
)

// Hub owns every live client and the per-room broadcast groups. Group
// membership mirrors admission: a client is added on approval and removed on
// kick, leave or disconnect.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[string]map[string]*Client
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
}

// Unregister drops the client and its membership in every broadcast group.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, connID)
	for roomID, members := range h.rooms {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// JoinRoom adds the connection to the room's broadcast group. Unknown
// connection ids are ignored: the target may have disconnected mid-flight.
func (h *Hub) JoinRoom(roomID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[connID]
	if !ok {
		return
	}
	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[string]*Client)
		h.rooms[roomID] = members
	}
	members[connID] = c
}

func (h *Hub) LeaveRoom(roomID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[roomID]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(h.rooms, roomID)
	}
}

// DropRoom removes the whole broadcast group, e.g. when the admin departs.
func (h *Hub) DropRoom(roomID string) {
	h.mu.Lock()
	delete(h.rooms, roomID)
	h.mu.Unlock()
}

// RoomMemberIDs returns the group's connection ids in stable order.
func (h *Hub) RoomMemberIDs(roomID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	members := h.rooms[roomID]
	out := make([]string, 0, len(members))
	for id := range members {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ToRoom sends the event to every group member except `except` (pass "" to
// include everyone).
func (h *Hub) ToRoom(roomID, except string, evt models.Event) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[roomID]))
	for id, c := range h.rooms[roomID] {
		if id == except {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.Send(evt)
	}
}

// To sends the event to a single connection; a no-op when the target is
// already gone.
func (h *Hub) To(connID string, evt models.Event) {
	h.mu.RLock()
	c, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	c.Send(evt)
}
