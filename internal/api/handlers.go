package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"

	"github.com/arnab9957/CodeFuse/internal/config"
	"github.com/arnab9957/CodeFuse/internal/coordinator"
	"github.com/arnab9957/CodeFuse/internal/metrics"
	"github.com/arnab9957/CodeFuse/internal/models"
	"github.com/arnab9957/CodeFuse/internal/session"
	"github.com/arnab9957/CodeFuse/internal/sessions"
)

type Handlers struct {
	log      *zap.Logger
	hub      *session.Hub
	coord    *coordinator.Coordinator
	sessions *sessions.Store
	voiceCfg webrtc.Configuration
}

func NewHandlers(log *zap.Logger, cfg *config.Config, hub *session.Hub, coord *coordinator.Coordinator, store *sessions.Store) *Handlers {
	return &Handlers{
		log:      log,
		hub:      hub,
		coord:    coord,
		sessions: store,
		voiceCfg: WebRTCConfig(cfg),
	}
}

func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("ok"))
}

/*** Session REST ***/

type createSessionRequest struct {
	RoomID      string `json:"roomId"`
	SessionName string `json:"sessionName"`
}

type sessionResponse struct {
	Success bool            `json:"success"`
	Session *models.Session `json:"session,omitempty"`
	Message string          `json:"message,omitempty"`
}

func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RoomID == "" || req.SessionName == "" {
		http.Error(w, "roomId and sessionName required", http.StatusBadRequest)
		return
	}
	sess, err := h.sessions.Create(r.Context(), req.RoomID, req.SessionName)
	if err != nil {
		h.log.Error("create session failed", zap.String("room", req.RoomID), zap.Error(err))
		http.Error(w, "failed to create session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Success: true, Session: sess})
}

func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	sess, err := h.sessions.Get(r.Context(), roomID)
	if errors.Is(err, sessions.ErrNotFound) {
		writeJSON(w, http.StatusOK, sessionResponse{Success: false, Message: "Session not found"})
		return
	}
	if err != nil {
		h.log.Error("get session failed", zap.String("room", roomID), zap.Error(err))
		http.Error(w, "failed to get session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handlers) ListSessions(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.sessions.List(r.Context())
	if err != nil {
		h.log.Error("list sessions failed", zap.Error(err))
		http.Error(w, "failed to list sessions", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

type updateSessionRequest struct {
	Files []models.File `json:"files"`
}

func (h *Handlers) UpdateSession(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	var req updateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if req.Files == nil {
		// Nothing to change; mirror the stored state back.
		sess, err := h.sessions.Get(r.Context(), roomID)
		if errors.Is(err, sessions.ErrNotFound) {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "failed to get session", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, sessionResponse{Success: true, Session: sess})
		return
	}
	sess, err := h.sessions.UpdateFiles(r.Context(), roomID, req.Files)
	if errors.Is(err, sessions.ErrNotFound) {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error("update session failed", zap.String("room", roomID), zap.Error(err))
		http.Error(w, "failed to update session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Success: true, Session: sess})
}

/*** Voice config ***/

type webRTCConfigResponse struct {
	ICEServers []webrtc.ICEServer `json:"iceServers"`
}

func (h *Handlers) GetWebRTCConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, webRTCConfigResponse{ICEServers: h.voiceCfg.ICEServers})
}

/*** Collaboration WebSocket ***/

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// CollabWS upgrades the connection, assigns it a fresh connection id and
// pumps inbound events into the coordinator until the peer goes away.
// Cleanup on exit mirrors a socket disconnect: admission, presence and
// cursor state for this connection are torn down.
func (h *Handlers) CollabWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	connID := uuid.NewString()
	client := session.NewClient(connID, conn)
	h.hub.Register(client)
	metrics.SetConnectedClients(h.hub.ClientCount())
	h.log.Info("client connected", zap.String("conn", connID))

	defer func() {
		h.coord.HandleDisconnect(connID)
		h.hub.Unregister(connID)
		metrics.SetConnectedClients(h.hub.ClientCount())
		h.log.Info("client disconnected", zap.String("conn", connID))
	}()

	for {
		var evt models.Event
		if err := conn.ReadJSON(&evt); err != nil {
			return
		}
		h.dispatch(r, connID, evt)
	}
}

func (h *Handlers) dispatch(r *http.Request, connID string, evt models.Event) {
	metrics.CountEvent(evt.Type)
	ctx := r.Context()

	switch evt.Type {
	case models.EvRequestJoin:
		var p models.RequestJoin
		decode(evt.Data, &p)
		h.coord.HandleRequestJoin(connID, p)

	case models.EvApproveUser:
		var p models.AdminAction
		decode(evt.Data, &p)
		h.coord.HandleApprove(connID, p)

	case models.EvDenyUser:
		var p models.AdminAction
		decode(evt.Data, &p)
		h.coord.HandleDeny(connID, p)

	case models.EvRemoveUser:
		var p models.AdminAction
		decode(evt.Data, &p)
		h.coord.HandleRemove(connID, p)

	case models.EvFileChange:
		var p models.FileChange
		decode(evt.Data, &p)
		h.coord.HandleFileChange(ctx, connID, p)

	case models.EvFileCreate:
		var p models.FileCreate
		decode(evt.Data, &p)
		h.coord.HandleFileCreate(ctx, connID, p)

	case models.EvFileDelete:
		var p models.FileDelete
		decode(evt.Data, &p)
		h.coord.HandleFileDelete(ctx, connID, p)

	case models.EvFileRename:
		var p models.FileRename
		decode(evt.Data, &p)
		h.coord.HandleFileRename(ctx, connID, p)

	case models.EvSyncState:
		var p models.SyncState
		decode(evt.Data, &p)
		h.coord.HandleSyncState(connID, p)

	case models.EvChatMessage:
		var p models.ChatMessage
		decode(evt.Data, &p)
		h.coord.HandleChat(connID, p)

	case models.EvCursorChange:
		var p models.CursorChange
		decode(evt.Data, &p)
		h.coord.HandleCursor(connID, p)

	case models.EvVoiceJoin:
		var p models.VoiceJoin
		decode(evt.Data, &p)
		h.coord.HandleVoiceJoin(connID, p)

	case models.EvVoiceLeave:
		var p models.VoiceLeave
		decode(evt.Data, &p)
		h.coord.HandleVoiceLeave(connID, p)

	case models.EvVoiceSignal:
		var p models.VoiceSignal
		decode(evt.Data, &p)
		h.coord.HandleVoiceSignal(connID, p)

	case models.EvVoiceSpeaking:
		var p models.VoiceSpeaking
		decode(evt.Data, &p)
		h.coord.HandleVoiceSpeaking(connID, p)

	default:
		h.log.Debug("unknown event type", zap.String("type", evt.Type))
	}
}

// decode re-marshals the envelope's loosely typed Data into a payload
// struct. Malformed payloads decode to zero values; handlers treat those as
// stale references and no-op.
func decode(in any, out any) {
	b, _ := json.Marshal(in)
	_ = json.Unmarshal(b, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
