package models

import "time"

// Inbound event types (client -> server).
const (
	EvRequestJoin   = "request-join"
	EvApproveUser   = "approve-user"
	EvDenyUser      = "deny-user"
	EvRemoveUser    = "remove-user"
	EvFileChange    = "file-change"
	EvFileCreate    = "file-create"
	EvFileDelete    = "file-delete"
	EvFileRename    = "file-rename"
	EvSyncState     = "sync-state"
	EvChatMessage   = "chat-message"
	EvCursorChange  = "cursor-change"
	EvVoiceJoin     = "voice-join"
	EvVoiceLeave    = "voice-leave"
	EvVoiceSignal   = "voice-signal"
	EvVoiceSpeaking = "voice-speaking-status"
)

// Outbound event types (server -> client).
const (
	EvJoinApproved    = "join-approved"
	EvWaitingApproval = "waiting-for-approval"
	EvJoinRequest     = "join-request"
	EvJoinDenied      = "join-denied"
	EvJoined          = "joined"
	EvDisconnected    = "disconnected"
	EvRoomClosed      = "room-closed"
	EvRemovedByAdmin  = "removed-by-admin"
	EvCursorRemoved   = "cursor-removed"
	EvFileChanged     = "file-changed"
	EvFileCreated     = "file-created"
	EvFileDeleted     = "file-deleted"
	EvFileRenamed     = "file-renamed"
	EvFilesSynced     = "files-synced"
	EvVoiceUserJoined = "voice-user-joined"
	EvVoiceUserLeft   = "voice-user-left"
)

// Event is the wire envelope for every websocket frame, in both directions.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Participant is one roster entry as rendered to clients.
type Participant struct {
	ConnectionID string `json:"connectionId"`
	DisplayName  string `json:"displayName"`
	Color        string `json:"color"`
}

// File is a single shared file in a room's workspace.
type File struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Language string `json:"language"`
	Content  string `json:"content"`
}

// Session is the durable snapshot of a room's files.
type Session struct {
	RoomID      string    `json:"roomId"`
	SessionName string    `json:"sessionName"`
	Files       []File    `json:"files"`
	CreatedAt   time.Time `json:"createdAt"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// SessionSummary is the listing view of a session, without file contents.
type SessionSummary struct {
	RoomID      string    `json:"roomId"`
	SessionName string    `json:"sessionName"`
	CreatedAt   time.Time `json:"createdAt"`
	LastUpdated time.Time `json:"lastUpdated"`
}

/*** Admission flow payloads ***/

type RequestJoin struct {
	RoomID      string `json:"roomId"`
	DisplayName string `json:"displayName"`
}

// AdminAction covers approve-user, deny-user and remove-user, which all
// carry the room and the target connection.
type AdminAction struct {
	RoomID       string `json:"roomId"`
	ConnectionID string `json:"connectionId"`
}

type JoinApproved struct {
	IsAdmin bool `json:"isAdmin"`
}

type JoinRequest struct {
	DisplayName  string `json:"displayName"`
	ConnectionID string `json:"connectionId"`
}

type RoomClosed struct {
	Message string `json:"message"`
}

// Roster announces membership changes; Participants is the full post-change
// roster of the room.
type Roster struct {
	Participants []Participant `json:"participants"`
	DisplayName  string        `json:"displayName"`
	ConnectionID string        `json:"connectionId"`
	Color        string        `json:"color,omitempty"`
}

/*** Document payloads ***/

type FileChange struct {
	RoomID  string `json:"roomId,omitempty"`
	FileID  string `json:"fileId"`
	Content string `json:"content"`
}

type FileCreate struct {
	RoomID string `json:"roomId,omitempty"`
	File   File   `json:"file"`
}

type FileDelete struct {
	RoomID string `json:"roomId,omitempty"`
	FileID string `json:"fileId"`
}

type FileRename struct {
	RoomID  string `json:"roomId,omitempty"`
	FileID  string `json:"fileId"`
	NewName string `json:"newName"`
}

// SyncState is sent by an existing member towards a newcomer; the server
// relays it to ConnectionID as files-synced.
type SyncState struct {
	Files        []File `json:"files"`
	ActiveFile   string `json:"activeFile"`
	ConnectionID string `json:"connectionId"`
}

type FilesSynced struct {
	Files      []File `json:"files"`
	ActiveFile string `json:"activeFile"`
}

/*** Chat and cursor payloads ***/

type ChatMessage struct {
	RoomID      string `json:"roomId,omitempty"`
	Message     string `json:"message"`
	DisplayName string `json:"displayName"`
	Timestamp   string `json:"timestamp"`
	Color       string `json:"color"`
}

// CursorChange carries an opaque editor position; the server never
// interprets it.
type CursorChange struct {
	RoomID       string `json:"roomId,omitempty"`
	ConnectionID string `json:"connectionId,omitempty"`
	Position     any    `json:"position"`
	DisplayName  string `json:"displayName"`
	Color        string `json:"color"`
	FileID       string `json:"fileId"`
}

type CursorRemoved struct {
	ConnectionID string `json:"connectionId"`
}

/*** Voice payloads ***/

type VoiceJoin struct {
	RoomID      string `json:"roomId,omitempty"`
	DisplayName string `json:"displayName"`
}

type VoiceUserJoined struct {
	ConnectionID string `json:"connectionId"`
	DisplayName  string `json:"displayName"`
}

type VoiceLeave struct {
	RoomID string `json:"roomId,omitempty"`
}

type VoiceUserLeft struct {
	ConnectionID string `json:"connectionId"`
}

// VoiceSignal relays opaque WebRTC signaling blobs 1:1; Signal is never
// parsed server-side.
type VoiceSignal struct {
	RoomID   string `json:"roomId,omitempty"`
	TargetID string `json:"targetId,omitempty"`
	SenderID string `json:"senderId,omitempty"`
	Signal   any    `json:"signal"`
}

type VoiceSpeaking struct {
	RoomID       string `json:"roomId,omitempty"`
	ConnectionID string `json:"connectionId,omitempty"`
	IsSpeaking   bool   `json:"isSpeaking"`
}
