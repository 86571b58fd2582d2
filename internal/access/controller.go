package access

import "sync"

// Outcome tags the result of a mutating operation so callers can distinguish
// a rejected action from an applied one instead of inferring it from missing
// side effects.
type Outcome int

const (
	Applied Outcome = iota
	Unauthorized
	NotFound
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Unauthorized:
		return "unauthorized"
	default:
		return "not_found"
	}
}

// JoinDecision is the result of a request-join.
type JoinDecision int

const (
	// JoinedAsAdmin: the room did not exist; the requester created it and
	// was admitted immediately.
	JoinedAsAdmin JoinDecision = iota
	// AlreadyJoined: the requester is already an admitted participant; the
	// grant is repeated without touching the pending queue.
	AlreadyJoined
	// Pending: the room exists; the requester was queued for admin approval.
	Pending
)

type room struct {
	adminID      string
	participants map[string]struct{}
	pending      map[string]string // connID -> display name
}

// Controller is the per-room admission state machine. One connection id is
// never simultaneously a participant and a pending entrant of the same room.
type Controller struct {
	mu    sync.RWMutex
	rooms map[string]*room
}

func NewController() *Controller {
	return &Controller{rooms: make(map[string]*room)}
}

// RequestJoin starts the admission flow. The first requester for a room id
// becomes its admin and is admitted immediately; everyone after that is
// queued until the admin decides. adminID is the connection to notify when
// the decision is Pending.
func (c *Controller) RequestJoin(roomID, connID, displayName string) (decision JoinDecision, adminID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.rooms[roomID]
	if !ok {
		r = &room{
			adminID:      connID,
			participants: map[string]struct{}{connID: {}},
			pending:      make(map[string]string),
		}
		c.rooms[roomID] = r
		return JoinedAsAdmin, connID
	}

	// A participant re-requesting the room it already belongs to must not
	// land in the pending queue as well.
	if _, in := r.participants[connID]; in {
		return AlreadyJoined, r.adminID
	}

	// Connection ids are freshly generated per transport session, so any
	// other request-join for an existing room is a new entrant.
	r.pending[connID] = displayName
	return Pending, r.adminID
}

// Approve moves target from pending to participants. Admin only.
func (c *Controller) Approve(roomID, issuerID, targetID string) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.rooms[roomID]
	if !ok {
		return NotFound
	}
	if issuerID != r.adminID {
		return Unauthorized
	}
	delete(r.pending, targetID)
	r.participants[targetID] = struct{}{}
	return Applied
}

// Deny drops target from pending. Admin only.
func (c *Controller) Deny(roomID, issuerID, targetID string) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.rooms[roomID]
	if !ok {
		return NotFound
	}
	if issuerID != r.adminID {
		return Unauthorized
	}
	delete(r.pending, targetID)
	return Applied
}

// Remove kicks target out of the participant set. Admin only.
func (c *Controller) Remove(roomID, issuerID, targetID string) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.rooms[roomID]
	if !ok {
		return NotFound
	}
	if issuerID != r.adminID {
		return Unauthorized
	}
	delete(r.participants, targetID)
	return Applied
}

// DisconnectReport lists the cleanup a departed connection triggered.
type DisconnectReport struct {
	// ClosedRooms were administered by the connection and no longer exist.
	ClosedRooms []string
	// LeftRooms still exist; the connection was removed from their
	// participant set or pending queue.
	LeftRooms []string
}

// Disconnect removes the connection from every room. Rooms it administered
// are deleted outright; the caller is responsible for notifying their
// members and tearing down broadcast groups.
func (c *Controller) Disconnect(connID string) DisconnectReport {
	c.mu.Lock()
	defer c.mu.Unlock()

	var report DisconnectReport
	for roomID, r := range c.rooms {
		if r.adminID == connID {
			delete(c.rooms, roomID)
			report.ClosedRooms = append(report.ClosedRooms, roomID)
			continue
		}
		_, wasParticipant := r.participants[connID]
		_, wasPending := r.pending[connID]
		if wasParticipant || wasPending {
			delete(r.participants, connID)
			delete(r.pending, connID)
			report.LeftRooms = append(report.LeftRooms, roomID)
		}
	}
	return report
}

// AdminOf reports the room's admin connection id.
func (c *Controller) AdminOf(roomID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.rooms[roomID]
	if !ok {
		return "", false
	}
	return r.adminID, true
}

// IsParticipant reports whether connID has been admitted to the room.
func (c *Controller) IsParticipant(roomID, connID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.rooms[roomID]
	if !ok {
		return false
	}
	_, in := r.participants[connID]
	return in
}

// IsPending reports whether connID is awaiting approval for the room.
func (c *Controller) IsPending(roomID, connID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.rooms[roomID]
	if !ok {
		return false
	}
	_, in := r.pending[connID]
	return in
}

// Participants returns the admitted connection ids of the room.
func (c *Controller) Participants(roomID string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.rooms[roomID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(r.participants))
	for id := range r.participants {
		out = append(out, id)
	}
	return out
}

// PendingName returns the display name a pending entrant asked to join with.
func (c *Controller) PendingName(roomID, connID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.rooms[roomID]
	if !ok {
		return "", false
	}
	name, in := r.pending[connID]
	return name, in
}

// RoomCount reports the number of live rooms, for metrics.
func (c *Controller) RoomCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rooms)
}

// RoomExists reports whether the room is live.
func (c *Controller) RoomExists(roomID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.rooms[roomID]
	return ok
}
