package live

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alertx/alertx/internal/domain"
	"github.com/alertx/alertx/internal/observability/metrics"
)

// Event names pushed over the live channel.
const (
	EventReportCreated = "report.created"
	EventReportUpdated = "report.updated"
	EventReportDeleted = "report.deleted"
)

// Event is the message pushed to connected dashboards
type Event struct {
	Event    string         `json:"event"`
	Report   *domain.Report `json:"report,omitempty"`
	ReportID string         `json:"reportId,omitempty"`
}

// Hub owns the set of open dashboard connections. Connections are added on
// upgrade and removed on write failure or disconnect; delivery is
// best-effort with no replay for late joiners.
type Hub struct {
	mu      sync.Mutex
	conns   map[*websocket.Conn]struct{}
	publish func(Event) error
	logger  *slog.Logger
}

// NewHub creates an empty hub
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}

	return &Hub{
		conns:  make(map[*websocket.Conn]struct{}),
		logger: logger,
	}
}

// SetPublisher routes events through an external relay (the Redis bridge)
// instead of delivering directly. The relay is expected to call Deliver on
// every replica, this one included.
func (h *Hub) SetPublisher(fn func(Event) error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.publish = fn
}

// Register adds a connection to the broadcast set
func (h *Hub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	h.conns[conn] = struct{}{}
	n := len(h.conns)
	h.mu.Unlock()

	metrics.IncrementClients()
	h.logger.Debug("live client connected", slog.Int("clients", n))
}

// Unregister removes a connection from the broadcast set
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.conns[conn]
	delete(h.conns, conn)
	n := len(h.conns)
	h.mu.Unlock()

	if ok {
		metrics.DecrementClients()
		h.logger.Debug("live client disconnected", slog.Int("clients", n))
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// ReportCreated implements domain.ReportEvents
func (h *Hub) ReportCreated(report *domain.Report) {
	h.dispatch(Event{Event: EventReportCreated, Report: report})
}

// ReportUpdated implements domain.ReportEvents
func (h *Hub) ReportUpdated(report *domain.Report) {
	h.dispatch(Event{Event: EventReportUpdated, Report: report})
}

// ReportDeleted implements domain.ReportEvents
func (h *Hub) ReportDeleted(id string) {
	h.dispatch(Event{Event: EventReportDeleted, ReportID: id})
}

func (h *Hub) dispatch(ev Event) {
	h.mu.Lock()
	publish := h.publish
	h.mu.Unlock()

	if publish != nil {
		if err := publish(ev); err == nil {
			return
		}
		// Relay down: fall back to local delivery so this replica's
		// dashboards still see the event.
		h.logger.Warn("event relay failed, delivering locally", slog.String("event", ev.Event))
	}
	h.Deliver(ev)
}

// Deliver writes the event to every connected client. A failed write drops
// that connection from the set.
func (h *Hub) Deliver(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("failed to encode live event", slog.String("error", err.Error()))
		return
	}

	metrics.ObserveBroadcast(ev.Event)

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.conns {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("live client write failed", slog.String("error", err.Error()))
			}
			conn.Close()
			delete(h.conns, conn)
			metrics.DecrementClients()
		}
	}
}

// Close tears down every open connection
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.conns {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		conn.Close()
		delete(h.conns, conn)
		metrics.DecrementClients()
	}
}
