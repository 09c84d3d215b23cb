package live

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alertx/alertx/internal/domain"
)

// wsServer upgrades incoming connections and registers them with the hub.
func wsServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		hub.Register(ws)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	return ev
}

func TestHubBroadcastsToAllClients(t *testing.T) {
	hub := NewHub(nil)
	srv := wsServer(t, hub)

	c1 := dial(t, srv)
	c2 := dial(t, srv)

	waitForClients(t, hub, 2)

	report := &domain.Report{ID: "r-1", Type: "pothole", Status: domain.StatusPending}
	hub.ReportCreated(report)

	for _, conn := range []*websocket.Conn{c1, c2} {
		ev := readEvent(t, conn)
		if ev.Event != EventReportCreated {
			t.Fatalf("expected %s, got %s", EventReportCreated, ev.Event)
		}
		if ev.Report == nil || ev.Report.ID != "r-1" {
			t.Fatalf("unexpected report payload: %+v", ev.Report)
		}
	}
}

func TestHubDeleteEventCarriesID(t *testing.T) {
	hub := NewHub(nil)
	srv := wsServer(t, hub)
	conn := dial(t, srv)
	waitForClients(t, hub, 1)

	hub.ReportDeleted("r-9")

	ev := readEvent(t, conn)
	if ev.Event != EventReportDeleted || ev.ReportID != "r-9" {
		t.Fatalf("unexpected delete event: %+v", ev)
	}
	if ev.Report != nil {
		t.Fatalf("delete event should not carry a report body")
	}
}

func TestHubDropsDisconnectedClients(t *testing.T) {
	hub := NewHub(nil)
	srv := wsServer(t, hub)
	conn := dial(t, srv)
	waitForClients(t, hub, 1)

	conn.Close()
	// A write to the closed connection evicts it from the set
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() > 0 && time.Now().Before(deadline) {
		hub.ReportUpdated(&domain.Report{ID: "r-1"})
		time.Sleep(20 * time.Millisecond)
	}
	if n := hub.ClientCount(); n != 0 {
		t.Fatalf("expected 0 clients after disconnect, got %d", n)
	}
}

func TestHubFallsBackWhenPublisherFails(t *testing.T) {
	hub := NewHub(nil)
	srv := wsServer(t, hub)
	conn := dial(t, srv)
	waitForClients(t, hub, 1)

	published := 0
	hub.SetPublisher(func(Event) error {
		published++
		return errors.New("relay down")
	})

	hub.ReportCreated(&domain.Report{ID: "r-1"})

	if published != 1 {
		t.Fatalf("expected one publish attempt, got %d", published)
	}
	// Local delivery still happened
	ev := readEvent(t, conn)
	if ev.Event != EventReportCreated {
		t.Fatalf("expected local fallback delivery, got %+v", ev)
	}
}

func TestHubPublisherSuppressesLocalDelivery(t *testing.T) {
	hub := NewHub(nil)
	srv := wsServer(t, hub)
	conn := dial(t, srv)
	waitForClients(t, hub, 1)

	var relayed []Event
	hub.SetPublisher(func(ev Event) error {
		relayed = append(relayed, ev)
		return nil
	})

	hub.ReportCreated(&domain.Report{ID: "r-1"})

	if len(relayed) != 1 {
		t.Fatalf("expected one relayed event, got %d", len(relayed))
	}
	// Delivery is deferred to the relay; nothing arrives directly
	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected no direct delivery when relay accepts the event")
	}
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, got %d", want, hub.ClientCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}
