package coordinator

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/arnab9957/CodeFuse/internal/access"
	"github.com/arnab9957/CodeFuse/internal/cursors"
	"github.com/arnab9957/CodeFuse/internal/metrics"
	"github.com/arnab9957/CodeFuse/internal/models"
	"github.com/arnab9957/CodeFuse/internal/presence"
	"github.com/arnab9957/CodeFuse/internal/sessions"
)

// Emitter is the fan-out surface the coordinator drives. *session.Hub is the
// production implementation; tests substitute a capture.
type Emitter interface {
	ToRoom(roomID, except string, evt models.Event)
	To(connID string, evt models.Event)
	JoinRoom(roomID, connID string)
	LeaveRoom(roomID, connID string)
	DropRoom(roomID string)
	RoomMemberIDs(roomID string) []string
}

// SessionStore is the write-through side of the persistence bridge. Every
// method returns sessions.ErrNotFound when the room has no snapshot.
type SessionStore interface {
	ApplyChange(ctx context.Context, roomID, fileID, content string) error
	ApplyCreate(ctx context.Context, roomID string, file models.File) error
	ApplyDelete(ctx context.Context, roomID, fileID string) error
	ApplyRename(ctx context.Context, roomID, fileID, newName string) error
}

// Coordinator routes every inbound connection event to the admission,
// presence, cursor and document subsystems and computes the fan-out
// audience. Handlers run one at a time: all in-memory state is mutated under
// a single mutex, so no event ever observes a half-applied update.
type Coordinator struct {
	mu       sync.Mutex
	log      *zap.Logger
	emitter  Emitter
	store    SessionStore
	presence *presence.Registry
	access   *access.Controller
	cursors  *cursors.Tracker
}

func New(log *zap.Logger, emitter Emitter, store SessionStore) *Coordinator {
	return &Coordinator{
		log:      log,
		emitter:  emitter,
		store:    store,
		presence: presence.NewRegistry(),
		access:   access.NewController(),
		cursors:  cursors.NewTracker(),
	}
}

// Access exposes the admission state machine for read-only inspection.
func (c *Coordinator) Access() *access.Controller { return c.access }

/*** Admission ***/

// HandleRequestJoin starts the admission flow. The first requester for a
// room becomes its admin and is admitted immediately; later requesters wait
// for the admin's decision.
func (c *Coordinator) HandleRequestJoin(connID string, p models.RequestJoin) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.presence.Join(connID, p.DisplayName)

	decision, adminID := c.access.RequestJoin(p.RoomID, connID, p.DisplayName)
	switch decision {
	case access.JoinedAsAdmin:
		c.emitter.JoinRoom(p.RoomID, connID)
		c.emitter.To(connID, models.Event{Type: models.EvJoinApproved, Data: models.JoinApproved{IsAdmin: true}})
		c.log.Info("room created",
			zap.String("room", p.RoomID),
			zap.String("admin", connID),
			zap.String("displayName", p.DisplayName))
	case access.AlreadyJoined:
		c.emitter.JoinRoom(p.RoomID, connID)
		c.emitter.To(connID, models.Event{Type: models.EvJoinApproved, Data: models.JoinApproved{IsAdmin: adminID == connID}})
	case access.Pending:
		c.emitter.To(adminID, models.Event{Type: models.EvJoinRequest, Data: models.JoinRequest{
			DisplayName:  p.DisplayName,
			ConnectionID: connID,
		}})
		c.emitter.To(connID, models.Event{Type: models.EvWaitingApproval})
	}
	metrics.SetActiveRooms(c.access.RoomCount())
}

// HandleApprove admits a pending entrant. Issued by anyone but the admin it
// is dropped without a reply.
func (c *Coordinator) HandleApprove(issuerID string, p models.AdminAction) {
	c.mu.Lock()
	defer c.mu.Unlock()

	name, _ := c.access.PendingName(p.RoomID, p.ConnectionID)
	if outcome := c.access.Approve(p.RoomID, issuerID, p.ConnectionID); outcome != access.Applied {
		c.log.Debug("approve-user dropped",
			zap.String("room", p.RoomID),
			zap.String("issuer", issuerID),
			zap.String("outcome", outcome.String()))
		return
	}

	c.emitter.JoinRoom(p.RoomID, p.ConnectionID)
	c.emitter.To(p.ConnectionID, models.Event{Type: models.EvJoinApproved, Data: models.JoinApproved{IsAdmin: false}})
	c.emitter.ToRoom(p.RoomID, "", models.Event{Type: models.EvJoined, Data: models.Roster{
		Participants: c.rosterOf(p.RoomID),
		DisplayName:  name,
		ConnectionID: p.ConnectionID,
	}})
}

// HandleDeny rejects a pending entrant. Admin only.
func (c *Coordinator) HandleDeny(issuerID string, p models.AdminAction) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if outcome := c.access.Deny(p.RoomID, issuerID, p.ConnectionID); outcome != access.Applied {
		c.log.Debug("deny-user dropped",
			zap.String("room", p.RoomID),
			zap.String("issuer", issuerID),
			zap.String("outcome", outcome.String()))
		return
	}
	c.emitter.To(p.ConnectionID, models.Event{Type: models.EvJoinDenied})
}

// HandleRemove kicks a participant. Admin only.
func (c *Coordinator) HandleRemove(issuerID string, p models.AdminAction) {
	c.mu.Lock()
	defer c.mu.Unlock()

	target, _ := c.presence.Get(p.ConnectionID)
	if outcome := c.access.Remove(p.RoomID, issuerID, p.ConnectionID); outcome != access.Applied {
		c.log.Debug("remove-user dropped",
			zap.String("room", p.RoomID),
			zap.String("issuer", issuerID),
			zap.String("outcome", outcome.String()))
		return
	}

	c.emitter.LeaveRoom(p.RoomID, p.ConnectionID)
	c.emitter.To(p.ConnectionID, models.Event{Type: models.EvRemovedByAdmin})
	c.emitter.ToRoom(p.RoomID, "", models.Event{Type: models.EvDisconnected, Data: models.Roster{
		Participants: c.rosterOf(p.RoomID),
		DisplayName:  target.DisplayName,
		ConnectionID: p.ConnectionID,
		Color:        target.Color,
	}})
	c.log.Info("participant removed",
		zap.String("room", p.RoomID),
		zap.String("target", p.ConnectionID))
}

// HandleDisconnect cleans up everything the departed connection touched.
// Rooms it administered are closed and deleted; rooms it merely belonged to
// get a roster update and a cursor-removed.
func (c *Coordinator) HandleDisconnect(connID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	who, _ := c.presence.Get(connID)
	report := c.access.Disconnect(connID)

	for _, roomID := range report.ClosedRooms {
		c.emitter.ToRoom(roomID, connID, models.Event{Type: models.EvRoomClosed, Data: models.RoomClosed{
			Message: "Admin left. Room closed.",
		}})
		c.emitter.DropRoom(roomID)
		c.log.Info("room closed", zap.String("room", roomID), zap.String("admin", connID))
	}

	for _, roomID := range report.LeftRooms {
		c.emitter.LeaveRoom(roomID, connID)
		c.emitter.ToRoom(roomID, "", models.Event{Type: models.EvDisconnected, Data: models.Roster{
			Participants: c.rosterOf(roomID),
			DisplayName:  who.DisplayName,
			ConnectionID: connID,
			Color:        who.Color,
		}})
		c.emitter.ToRoom(roomID, "", models.Event{Type: models.EvCursorRemoved, Data: models.CursorRemoved{
			ConnectionID: connID,
		}})
	}

	c.presence.Remove(connID)
	c.cursors.Remove(connID)
	metrics.SetActiveRooms(c.access.RoomCount())
}

/*** Documents ***/

// HandleFileChange broadcasts the new content to the sender's peers, then
// writes through to the snapshot if one exists. Broadcast is never blocked
// by persistence absence or failure.
func (c *Coordinator) HandleFileChange(ctx context.Context, senderID string, p models.FileChange) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.access.IsParticipant(p.RoomID, senderID) {
		return
	}
	c.emitter.ToRoom(p.RoomID, senderID, models.Event{Type: models.EvFileChanged, Data: models.FileChange{
		FileID:  p.FileID,
		Content: p.Content,
	}})
	c.persist(c.store.ApplyChange(ctx, p.RoomID, p.FileID, p.Content), "file-change", p.RoomID)
}

func (c *Coordinator) HandleFileCreate(ctx context.Context, senderID string, p models.FileCreate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.access.IsParticipant(p.RoomID, senderID) {
		return
	}
	c.emitter.ToRoom(p.RoomID, senderID, models.Event{Type: models.EvFileCreated, Data: models.FileCreate{
		File: p.File,
	}})
	c.persist(c.store.ApplyCreate(ctx, p.RoomID, p.File), "file-create", p.RoomID)
}

func (c *Coordinator) HandleFileDelete(ctx context.Context, senderID string, p models.FileDelete) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.access.IsParticipant(p.RoomID, senderID) {
		return
	}
	c.emitter.ToRoom(p.RoomID, senderID, models.Event{Type: models.EvFileDeleted, Data: models.FileDelete{
		FileID: p.FileID,
	}})
	c.persist(c.store.ApplyDelete(ctx, p.RoomID, p.FileID), "file-delete", p.RoomID)
}

func (c *Coordinator) HandleFileRename(ctx context.Context, senderID string, p models.FileRename) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.access.IsParticipant(p.RoomID, senderID) {
		return
	}
	c.emitter.ToRoom(p.RoomID, senderID, models.Event{Type: models.EvFileRenamed, Data: models.FileRename{
		FileID:  p.FileID,
		NewName: p.NewName,
	}})
	c.persist(c.store.ApplyRename(ctx, p.RoomID, p.FileID, p.NewName), "file-rename", p.RoomID)
}

// HandleSyncState relays an existing member's full workspace down to a
// newcomer's connection id. The server never owns editor state that is not
// snapshotted; peers are the freshest source after a join.
func (c *Coordinator) HandleSyncState(senderID string, p models.SyncState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.emitter.To(p.ConnectionID, models.Event{Type: models.EvFilesSynced, Data: models.FilesSynced{
		Files:      p.Files,
		ActiveFile: p.ActiveFile,
	}})
}

/*** Chat, cursors, voice ***/

func (c *Coordinator) HandleChat(senderID string, p models.ChatMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.access.IsParticipant(p.RoomID, senderID) {
		return
	}
	c.emitter.ToRoom(p.RoomID, senderID, models.Event{Type: models.EvChatMessage, Data: models.ChatMessage{
		Message:     p.Message,
		DisplayName: p.DisplayName,
		Timestamp:   p.Timestamp,
		Color:       p.Color,
	}})
}

func (c *Coordinator) HandleCursor(senderID string, p models.CursorChange) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.access.IsParticipant(p.RoomID, senderID) {
		return
	}
	c.cursors.Set(senderID, cursors.Entry{
		Position:    p.Position,
		DisplayName: p.DisplayName,
		Color:       p.Color,
		FileID:      p.FileID,
	})
	c.emitter.ToRoom(p.RoomID, senderID, models.Event{Type: models.EvCursorChange, Data: models.CursorChange{
		ConnectionID: senderID,
		Position:     p.Position,
		DisplayName:  p.DisplayName,
		Color:        p.Color,
		FileID:       p.FileID,
	}})
}

func (c *Coordinator) HandleVoiceJoin(senderID string, p models.VoiceJoin) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.access.IsParticipant(p.RoomID, senderID) {
		return
	}
	c.emitter.ToRoom(p.RoomID, senderID, models.Event{Type: models.EvVoiceUserJoined, Data: models.VoiceUserJoined{
		ConnectionID: senderID,
		DisplayName:  p.DisplayName,
	}})
}

func (c *Coordinator) HandleVoiceLeave(senderID string, p models.VoiceLeave) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.access.IsParticipant(p.RoomID, senderID) {
		return
	}
	c.emitter.ToRoom(p.RoomID, senderID, models.Event{Type: models.EvVoiceUserLeft, Data: models.VoiceUserLeft{
		ConnectionID: senderID,
	}})
}

// HandleVoiceSignal relays an opaque signaling payload 1:1. The payload is
// never inspected.
func (c *Coordinator) HandleVoiceSignal(senderID string, p models.VoiceSignal) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.emitter.To(p.TargetID, models.Event{Type: models.EvVoiceSignal, Data: models.VoiceSignal{
		SenderID: senderID,
		Signal:   p.Signal,
	}})
}

func (c *Coordinator) HandleVoiceSpeaking(senderID string, p models.VoiceSpeaking) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.access.IsParticipant(p.RoomID, senderID) {
		return
	}
	c.emitter.ToRoom(p.RoomID, senderID, models.Event{Type: models.EvVoiceSpeaking, Data: models.VoiceSpeaking{
		ConnectionID: senderID,
		IsSpeaking:   p.IsSpeaking,
	}})
}

func (c *Coordinator) rosterOf(roomID string) []models.Participant {
	ids := c.emitter.RoomMemberIDs(roomID)
	out := make([]models.Participant, 0, len(ids))
	for _, id := range ids {
		if p, ok := c.presence.Get(id); ok {
			out = append(out, p)
			continue
		}
		out = append(out, models.Participant{ConnectionID: id})
	}
	return out
}

// persist logs unexpected bridge failures. A missing snapshot is the normal
// ephemeral-room case and stays quiet.
func (c *Coordinator) persist(err error, op, roomID string) {
	if err == nil || errors.Is(err, sessions.ErrNotFound) {
		return
	}
	c.log.Warn("session write-through failed",
		zap.String("op", op),
		zap.String("room", roomID),
		zap.Error(err))
}
