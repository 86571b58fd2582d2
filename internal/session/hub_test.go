package session

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/arnab9957/CodeFuse/internal/models"
)

type eventCapture struct {
	events []models.Event
}

func newEventCapture() *eventCapture { return &eventCapture{} }

func (c *eventCapture) hook(evt models.Event) { c.events = append(c.events, evt) }

func (c *eventCapture) list() []models.Event {
	out := make([]models.Event, len(c.events))
	copy(out, c.events)
	return out
}

func TestClientSendWithHook(t *testing.T) {
	client := NewClient("c1", nil)
	capture := newEventCapture()
	client.SetSendHook(capture.hook)

	client.Send(models.Event{Type: "ping"})

	got := capture.list()
	if len(got) != 1 || got[0].Type != "ping" {
		t.Fatalf("expected event captured, got %#v", got)
	}
}

func TestClientSendWithoutConnDoesNotPanic(t *testing.T) {
	client := NewClient("c1", nil)
	client.Send(models.Event{Type: "noop"})
}

func TestClientSendWritesToConn(t *testing.T) {
	upgrader := websocket.Upgrader{}
	received := make(chan models.Event, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var evt models.Event
		if err := conn.ReadJSON(&evt); err == nil {
			received <- evt
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	defer conn.Close()

	client := NewClient("c1", conn)
	client.Send(models.Event{Type: "ping"})

	select {
	case evt := <-received:
		if evt.Type != "ping" {
			t.Fatalf("unexpected event: %#v", evt)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected event to be received")
	}
}

func hookedClient(id string) (*Client, *eventCapture) {
	c := NewClient(id, nil)
	capture := newEventCapture()
	c.SetSendHook(capture.hook)
	return c, capture
}

func TestToRoomExcludesSender(t *testing.T) {
	hub := NewHub()
	c1, cap1 := hookedClient("c1")
	c2, cap2 := hookedClient("c2")
	sender, _ := hookedClient("s")
	sender.SetSendHook(func(models.Event) { t.Fatal("sender should not receive broadcast") })

	hub.Register(c1)
	hub.Register(c2)
	hub.Register(sender)
	hub.JoinRoom("r1", "c1")
	hub.JoinRoom("r1", "c2")
	hub.JoinRoom("r1", "s")

	hub.ToRoom("r1", "s", models.Event{Type: "chat-message"})

	if got := cap1.list(); len(got) != 1 || got[0].Type != "chat-message" {
		t.Fatalf("c1 missing event: %#v", got)
	}
	if got := cap2.list(); len(got) != 1 {
		t.Fatalf("c2 missing event: %#v", got)
	}
}

func TestToRoomIncludesEveryoneWithEmptyExcept(t *testing.T) {
	hub := NewHub()
	c1, cap1 := hookedClient("c1")
	c2, cap2 := hookedClient("c2")
	hub.Register(c1)
	hub.Register(c2)
	hub.JoinRoom("r1", "c1")
	hub.JoinRoom("r1", "c2")

	hub.ToRoom("r1", "", models.Event{Type: "joined"})

	if len(cap1.list()) != 1 || len(cap2.list()) != 1 {
		t.Fatal("expected broadcast to all members")
	}
}

func TestToMissingTargetIsNoop(t *testing.T) {
	hub := NewHub()
	hub.To("ghost", models.Event{Type: "join-approved"})
}

func TestRoomMembershipLifecycle(t *testing.T) {
	hub := NewHub()
	c1, _ := hookedClient("c1")
	c2, _ := hookedClient("c2")
	hub.Register(c1)
	hub.Register(c2)

	hub.JoinRoom("r1", "c1")
	hub.JoinRoom("r1", "c2")
	if got := hub.RoomMemberIDs("r1"); len(got) != 2 || got[0] != "c1" || got[1] != "c2" {
		t.Fatalf("unexpected members: %v", got)
	}

	hub.LeaveRoom("r1", "c1")
	if got := hub.RoomMemberIDs("r1"); len(got) != 1 || got[0] != "c2" {
		t.Fatalf("unexpected members after leave: %v", got)
	}

	hub.DropRoom("r1")
	if got := hub.RoomMemberIDs("r1"); len(got) != 0 {
		t.Fatalf("expected empty room after drop: %v", got)
	}

	// Joining an unregistered connection is ignored.
	hub.JoinRoom("r2", "ghost")
	if got := hub.RoomMemberIDs("r2"); len(got) != 0 {
		t.Fatalf("ghost joined: %v", got)
	}
}

func TestUnregisterRemovesFromRooms(t *testing.T) {
	hub := NewHub()
	c1, _ := hookedClient("c1")
	hub.Register(c1)
	hub.JoinRoom("r1", "c1")

	hub.Unregister("c1")
	if hub.ClientCount() != 0 {
		t.Fatal("expected no clients")
	}
	if got := hub.RoomMemberIDs("r1"); len(got) != 0 {
		t.Fatalf("expected membership cleaned: %v", got)
	}
}
