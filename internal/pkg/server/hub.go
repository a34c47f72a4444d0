package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/fredbi/flightviz/internal/pkg/dashboard"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(*http.Request) bool {
		return true // the dashboard is served to any origin
	},
}

// Message is pushed to websocket subscribers.
type Message struct {
	Type string          `json:"type"` // "view"
	View *dashboard.View `json:"view,omitempty"`
}

// hub pushes every redraw of the dashboard to the websocket subscribers.
//
// It is a [dashboard.Sink]: Redraw never blocks, a subscriber too slow to keep up misses redraws.
type hub struct {
	l          *slog.Logger
	sendBuffer int

	mx          sync.Mutex
	last        []byte
	subscribers map[string]*subscriber
}

type subscriber struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

func newHub(sendBuffer int, l *slog.Logger) *hub {
	return &hub{
		l:           l,
		sendBuffer:  sendBuffer,
		subscribers: make(map[string]*subscriber),
	}
}

// Redraw broadcasts a view to all subscribers.
func (h *hub) Redraw(v dashboard.View) {
	payload, err := json.Marshal(Message{Type: "view", View: &v})
	if err != nil {
		h.l.Error("encoding view", slog.String("error", err.Error()))

		return
	}

	h.mx.Lock()
	defer h.mx.Unlock()

	h.last = payload
	for _, s := range h.subscribers {
		select {
		case s.send <- payload:
		default:
			h.l.Warn("slow subscriber missed a redraw", slog.String("subscriber", s.id))
		}
	}
}

// subscribe registers a connection, queuing the latest view for it.
func (h *hub) subscribe(conn *websocket.Conn) *subscriber {
	s := &subscriber{
		id:   uuid.New().String()[:8],
		conn: conn,
		send: make(chan []byte, h.sendBuffer),
		done: make(chan struct{}),
	}

	h.mx.Lock()
	defer h.mx.Unlock()

	if h.last != nil {
		s.send <- h.last
	}
	h.subscribers[s.id] = s

	h.l.Info("subscriber connected", slog.String("subscriber", s.id), slog.Int("subscribers", len(h.subscribers)))

	return s
}

func (h *hub) unsubscribe(s *subscriber) {
	h.mx.Lock()
	defer h.mx.Unlock()

	if _, ok := h.subscribers[s.id]; !ok {
		return
	}

	delete(h.subscribers, s.id)
	_ = s.conn.Close()

	h.l.Info("subscriber disconnected", slog.String("subscriber", s.id), slog.Int("subscribers", len(h.subscribers)))
}

// len reports the number of subscribers.
func (h *hub) len() int {
	h.mx.Lock()
	defer h.mx.Unlock()

	return len(h.subscribers)
}

// closeAll disconnects all subscribers.
func (h *hub) closeAll() {
	h.mx.Lock()
	defer h.mx.Unlock()

	for id, s := range h.subscribers {
		_ = s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait),
		)
		_ = s.conn.Close()
		delete(h.subscribers, id)
	}
}

// serve pushes views to a subscriber until the connection is closed.
func (h *hub) serve(conn *websocket.Conn) {
	s := h.subscribe(conn)
	defer h.unsubscribe(s)

	go s.handleIncoming()

	for {
		select {
		case <-s.done:
			return
		case payload := <-s.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.l.Warn("pushing view", slog.String("subscriber", s.id), slog.String("error", err.Error()))

				return
			}
		}
	}
}

// handleIncoming drains incoming messages (pings, close frames, etc.) until the connection is closed.
func (s *subscriber) handleIncoming() {
	defer close(s.done)

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
		// Ignore incoming messages: the dashboard is driven by the API
	}
}
