package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arnab9957/CodeFuse/internal/config"
	"github.com/arnab9957/CodeFuse/internal/coordinator"
	"github.com/arnab9957/CodeFuse/internal/models"
	"github.com/arnab9957/CodeFuse/internal/session"
	"github.com/arnab9957/CodeFuse/internal/sessions"
)

func setupServer(t *testing.T) (*httptest.Server, *sessions.Store) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	store := sessions.NewStore(mr.Addr())
	hub := session.NewHub()
	log := zap.NewNop()
	coord := coordinator.New(log, hub, store)
	h := NewHandlers(log, &config.Config{}, hub, coord, store)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.CollabWS)
	mux.HandleFunc("/voice/config", h.GetWebRTCConfig)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, store
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, eventType string, data any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(models.Event{Type: eventType, Data: data}))
}

// waitFor reads frames until one of the wanted type arrives; Data comes back
// as the decoded JSON map.
func waitFor(t *testing.T, conn *websocket.Conn, eventType string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	require.NoError(t, conn.SetReadDeadline(deadline))
	for {
		var evt models.Event
		require.NoError(t, conn.ReadJSON(&evt), "waiting for %s", eventType)
		if evt.Type != eventType {
			continue
		}
		if evt.Data == nil {
			return nil
		}
		data, ok := evt.Data.(map[string]any)
		require.True(t, ok, "unexpected data shape for %s: %#v", eventType, evt.Data)
		return data
	}
}

func TestJoinApproveEditDisconnectFlow(t *testing.T) {
	srv, store := setupServer(t)

	admin := dialWS(t, srv)
	send(t, admin, models.EvRequestJoin, models.RequestJoin{RoomID: "r1", DisplayName: "alice"})
	approved := waitFor(t, admin, models.EvJoinApproved)
	assert.Equal(t, true, approved["isAdmin"])

	guest := dialWS(t, srv)
	send(t, guest, models.EvRequestJoin, models.RequestJoin{RoomID: "r1", DisplayName: "bob"})
	waitFor(t, guest, models.EvWaitingApproval)

	request := waitFor(t, admin, models.EvJoinRequest)
	assert.Equal(t, "bob", request["displayName"])
	guestID, _ := request["connectionId"].(string)
	require.NotEmpty(t, guestID)

	send(t, admin, models.EvApproveUser, models.AdminAction{RoomID: "r1", ConnectionID: guestID})
	guestApproved := waitFor(t, guest, models.EvJoinApproved)
	assert.Equal(t, false, guestApproved["isAdmin"])

	joined := waitFor(t, guest, models.EvJoined)
	participants, ok := joined["participants"].([]any)
	require.True(t, ok)
	assert.Len(t, participants, 2)
	waitFor(t, admin, models.EvJoined)

	// Saved session: the edit must be broadcast and written through.
	_, err := store.Create(context.Background(), "r1", "saved")
	require.NoError(t, err)

	send(t, admin, models.EvFileChange, models.FileChange{RoomID: "r1", FileID: "default", Content: "B"})
	changed := waitFor(t, guest, models.EvFileChanged)
	assert.Equal(t, "B", changed["content"])

	sess, err := store.Get(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "B", sess.Files[0].Content)

	// Admin departure closes the room.
	require.NoError(t, admin.Close())
	closed := waitFor(t, guest, models.EvRoomClosed)
	assert.Equal(t, "Admin left. Room closed.", closed["message"])
}

func TestChatAndCursorOverWire(t *testing.T) {
	srv, _ := setupServer(t)

	admin := dialWS(t, srv)
	send(t, admin, models.EvRequestJoin, models.RequestJoin{RoomID: "r2", DisplayName: "alice"})
	waitFor(t, admin, models.EvJoinApproved)

	guest := dialWS(t, srv)
	send(t, guest, models.EvRequestJoin, models.RequestJoin{RoomID: "r2", DisplayName: "bob"})
	request := waitFor(t, admin, models.EvJoinRequest)
	guestID, _ := request["connectionId"].(string)

	send(t, admin, models.EvApproveUser, models.AdminAction{RoomID: "r2", ConnectionID: guestID})
	waitFor(t, guest, models.EvJoined)

	send(t, guest, models.EvChatMessage, models.ChatMessage{
		RoomID: "r2", Message: "hi", DisplayName: "bob", Timestamp: "12:00", Color: "#60A5FA",
	})
	chat := waitFor(t, admin, models.EvChatMessage)
	assert.Equal(t, "hi", chat["message"])
	assert.Equal(t, "bob", chat["displayName"])

	send(t, guest, models.EvCursorChange, models.CursorChange{
		RoomID: "r2", Position: map[string]any{"line": 4}, DisplayName: "bob", Color: "#60A5FA", FileID: "default",
	})
	cursor := waitFor(t, admin, models.EvCursorChange)
	assert.Equal(t, guestID, cursor["connectionId"])
	assert.Equal(t, "default", cursor["fileId"])
}

func TestSessionREST(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	store := sessions.NewStore(mr.Addr())
	hub := session.NewHub()
	log := zap.NewNop()
	h := NewHandlers(log, &config.Config{}, hub, coordinator.New(log, hub, store), store)

	rec := httptest.NewRecorder()
	body := bytes.NewBufferString(`{"roomId":"r1","sessionName":"demo"}`)
	h.CreateSession(rec, httptest.NewRequest(http.MethodPost, "/api/sessions", body))
	require.Equal(t, http.StatusOK, rec.Code)
	var created sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.True(t, created.Success)
	require.NotNil(t, created.Session)
	assert.Equal(t, "demo", created.Session.SessionName)

	rec = httptest.NewRecorder()
	h.ListSessions(rec, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var summaries []models.SessionSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summaries))
	assert.Len(t, summaries, 1)

	rec = httptest.NewRecorder()
	h.CreateSession(rec, httptest.NewRequest(http.MethodPost, "/api/sessions", bytes.NewBufferString(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetWebRTCConfigHasSTUNDefaults(t *testing.T) {
	srv, _ := setupServer(t)

	resp, err := http.Get(srv.URL + "/voice/config")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cfg struct {
		ICEServers []struct {
			URLs []string `json:"urls"`
		} `json:"iceServers"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cfg))
	require.NotEmpty(t, cfg.ICEServers)
	assert.Contains(t, cfg.ICEServers[0].URLs[0], "stun:")
}
