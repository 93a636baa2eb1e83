package session

import (
	"encoding/json"
	"hash/fnv"
	"net/http"
	"quiz_engine_backend/pkg/logger"
	"quiz_engine_backend/pkg/monitoring"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	shardCount     = 16
	sendBuffer     = 16
)

const (
	EventAuthoring = "AUTHORING"
	EventTaking    = "TAKING"
	EventClosed    = "CLOSED"
)

// Event is one message pushed to the watchers of a session.
type Event struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId"`
	Data      interface{} `json:"data,omitempty"`
}

type watcher struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
	userID    string
}

type hubShard struct {
	mu       sync.RWMutex
	watchers map[string]map[*watcher]struct{}
}

// Hub fans session changes out to websocket watchers. Only the session
// owner may watch, so a session usually has one or two tabs attached.
type Hub struct {
	shards   [shardCount]*hubShard
	upgrader websocket.Upgrader
}

func NewHub(checkOrigin func(r *http.Request) bool) *Hub {
	h := &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
	for i := range h.shards {
		h.shards[i] = &hubShard{watchers: make(map[string]map[*watcher]struct{})}
	}
	return h
}

func (h *Hub) shard(sessionID string) *hubShard {
	f := fnv.New32a()
	_, _ = f.Write([]byte(sessionID))
	return h.shards[f.Sum32()%shardCount]
}

// Watch upgrades the request and streams events for sessionID until the
// peer disconnects or the session closes. initial is sent first.
func (h *Hub) Watch(w http.ResponseWriter, r *http.Request, userID string, initial Event) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Warn("WebSocket upgrade failed", zap.String("sessionID", initial.SessionID), zap.Error(err))
		return
	}
	c := &watcher{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		sessionID: initial.SessionID,
		userID:    userID,
	}
	if payload, err := json.Marshal(initial); err == nil {
		c.send <- payload
	}
	h.register(c)

	go c.writePump()
	go c.readPump()
}

func (h *Hub) register(c *watcher) {
	s := h.shard(c.sessionID)
	s.mu.Lock()
	set, ok := s.watchers[c.sessionID]
	if !ok {
		set = make(map[*watcher]struct{})
		s.watchers[c.sessionID] = set
	}
	set[c] = struct{}{}
	s.mu.Unlock()
	monitoring.SessionWatchers.Inc()
}

// unregister closes c's send channel exactly once.
func (h *Hub) unregister(c *watcher) {
	s := h.shard(c.sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.watchers[c.sessionID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(s.watchers, c.sessionID)
	}
	close(c.send)
	monitoring.SessionWatchers.Dec()
}

// Publish queues ev for every watcher of its session. A watcher whose
// buffer is full misses the event; the next one carries the full view.
func (h *Hub) Publish(ev Event) {
	s := h.shard(ev.SessionID)
	s.mu.RLock()
	set := s.watchers[ev.SessionID]
	if len(set) == 0 {
		s.mu.RUnlock()
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		s.mu.RUnlock()
		logger.Log.Error("Failed to encode session event", zap.String("sessionID", ev.SessionID), zap.Error(err))
		return
	}
	for c := range set {
		select {
		case c.send <- payload:
			monitoring.WatchEvents.WithLabelValues(ev.Type, "sent").Inc()
		default:
			monitoring.WatchEvents.WithLabelValues(ev.Type, "dropped").Inc()
		}
	}
	s.mu.RUnlock()
}

// CloseSession sends a final CLOSED event and disconnects all watchers.
func (h *Hub) CloseSession(sessionID string) {
	h.Publish(Event{Type: EventClosed, SessionID: sessionID})

	s := h.shard(sessionID)
	s.mu.RLock()
	var watchers []*watcher
	for c := range s.watchers[sessionID] {
		watchers = append(watchers, c)
	}
	s.mu.RUnlock()
	for _, c := range watchers {
		h.unregister(c)
	}
}

// Watchers is the number of connections attached to sessionID.
func (h *Hub) Watchers(sessionID string) int {
	s := h.shard(sessionID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.watchers[sessionID])
}

// readPump only services control frames; watchers never send commands.
func (c *watcher) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Log.Debug("Session watcher closed unexpectedly",
					zap.String("sessionID", c.sessionID),
					zap.String("userID", c.userID),
					zap.Error(err),
				)
			}
			return
		}
	}
}

func (c *watcher) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
