package feed

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/leonardotrapani/hyprinterview/internal/pipeline"
)

const (
	EventTranscript = "transcript"
	EventStatus     = "status"
	EventWarning    = "warning"

	clientBuffer = 32
	writeWait    = 5 * time.Second
)

// Event is one JSON message on the live feed.
type Event struct {
	Type        string    `json:"type"`
	Time        time.Time `json:"time"`
	QuestionID  string    `json:"questionId,omitempty"`
	Question    string    `json:"question,omitempty"`
	Transcript  string    `json:"transcript,omitempty"`
	Status      string    `json:"status,omitempty"`
	Drain       string    `json:"drain,omitempty"`
	QueuedBytes int       `json:"queuedBytes,omitempty"`
	Kind        string    `json:"kind,omitempty"`
	Message     string    `json:"message,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans session updates out to every connected websocket client. Clients that
// cannot keep up are disconnected rather than slowing the publisher down.
type Hub struct {
	upgrader websocket.Upgrader

	mu         sync.Mutex
	clients    map[*client]struct{}
	lastStatus *Event
	lastText   *Event
	closed     bool
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades the request and replays the latest status and transcript.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Feed: upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	for _, ev := range []*Event{h.lastStatus, h.lastText} {
		if ev == nil {
			continue
		}
		if data, err := json.Marshal(ev); err == nil {
			c.send <- data
		}
	}
	count := len(h.clients)
	h.mu.Unlock()

	log.Printf("Feed: client connected from %s (%d total)", r.RemoteAddr, count)

	go h.writePump(c)
	go h.readPump(c)
}

// PublishSnapshot emits a status event when the session state changed and a transcript
// event when the text changed.
func (h *Hub) PublishSnapshot(s pipeline.Snapshot) {
	status := Event{
		Type:        EventStatus,
		Time:        time.Now(),
		QuestionID:  string(s.QuestionID),
		Question:    s.Question,
		Status:      string(s.Status),
		Drain:       string(s.Drain),
		QueuedBytes: s.QueuedBytes,
	}
	text := Event{
		Type:       EventTranscript,
		Time:       status.Time,
		QuestionID: string(s.QuestionID),
		Transcript: s.Transcript,
	}

	h.mu.Lock()
	var out []Event
	if h.lastStatus == nil || !sameStatus(*h.lastStatus, status) {
		h.lastStatus = &status
		out = append(out, status)
	}
	if h.lastText == nil || h.lastText.QuestionID != text.QuestionID || h.lastText.Transcript != text.Transcript {
		h.lastText = &text
		out = append(out, text)
	}
	h.mu.Unlock()

	for _, ev := range out {
		h.broadcast(ev)
	}
}

// PublishWarning forwards a pipeline warning to every client.
func (h *Hub) PublishWarning(w pipeline.Warning) {
	h.broadcast(Event{
		Type:    EventWarning,
		Time:    time.Now(),
		Kind:    string(w.Kind),
		Message: w.Error(),
	})
}

func (h *Hub) broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("Feed: failed to encode %s event: %v", ev.Type, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			log.Printf("Feed: dropping slow client %s", c.conn.RemoteAddr())
			h.removeLocked(c)
		}
	}
}

// Clients reports the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.remove(c)
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// readPump discards client messages and notices disconnects.
func (h *Hub) readPump(c *client) {
	defer h.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func sameStatus(a, b Event) bool {
	return a.QuestionID == b.QuestionID && a.Question == b.Question && a.Status == b.Status &&
		a.Drain == b.Drain && a.QueuedBytes == b.QueuedBytes
}
