// Package pushhub broadcasts closed candles and freshly scored signals to
// WebSocket clients subscribed on /ws/stream, supplementing the pull-only
// /score and /snapshot endpoints with a push feed.
package pushhub

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"momentum-engine/internal/domain"
	"momentum-engine/pkg/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Event is one message pushed to subscribers.
type Event struct {
	Type      string             `json:"type"` // "candle" | "score"
	Candle    *domain.Candle     `json:"candle,omitempty"`
	Score     *domain.ScoreResult `json:"score,omitempty"`
	Timestamp int64              `json:"timestamp"`
}

type subscriber struct {
	conn *websocket.Conn
	send chan Event
}

// Hub fans out Events to every connected subscriber. Publish never
// blocks on a slow client; a subscriber whose buffer fills is dropped.
type Hub struct {
	mu   sync.RWMutex
	subs map[*subscriber]struct{}
}

// New constructs an empty Hub.
func New() *Hub {
	return &Hub{subs: make(map[*subscriber]struct{})}
}

// PublishCandle broadcasts a closed candle to every subscriber.
func (h *Hub) PublishCandle(c domain.Candle) {
	h.publish(Event{Type: "candle", Candle: &c, Timestamp: time.Now().UnixMilli()})
}

// PublishScore broadcasts a rescored result to every subscriber.
func (h *Hub) PublishScore(s domain.ScoreResult) {
	h.publish(Event{Type: "score", Score: &s, Timestamp: time.Now().UnixMilli()})
}

func (h *Hub) publish(ev Event) {
	var slow []*subscriber
	h.mu.RLock()
	for sub := range h.subs {
		select {
		case sub.send <- ev:
		default:
			slow = append(slow, sub)
		}
	}
	h.mu.RUnlock()
	for _, sub := range slow {
		log.Debug("pushhub: dropping slow subscriber")
		h.remove(sub)
	}
}

// ServeWS upgrades the request to a WebSocket and registers the
// connection as a subscriber until it disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("pushhub: upgrade failed: %v", err)
		return
	}

	sub := &subscriber{conn: conn, send: make(chan Event, 32)}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(sub)
	h.readLoop(sub)
}

func (h *Hub) readLoop(sub *subscriber) {
	defer h.remove(sub)
	sub.conn.SetReadLimit(512)
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(sub *subscriber) {
	for ev := range sub.send {
		payload, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		if err := sub.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.remove(sub)
			return
		}
	}
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.send)
		sub.conn.Close()
	}
}
