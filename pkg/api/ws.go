package api

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// WSMessage is the envelope pushed to event subscribers.
type WSMessage struct {
	Type    string      `json:"type"` // run | mutation
	Payload interface{} `json:"payload,omitempty"`
}

// WSHub fans out pass and mutation events to connected subscribers.
type WSHub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	subs     map[*websocket.Conn]struct{}
}

func NewWSHub() *WSHub {
	return &WSHub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		subs: map[*websocket.Conn]struct{}{},
	}
}

// HandleSubscriber upgrades the connection and keeps it until the client
// goes away. Subscribers are read-drained only to detect close.
func (h *WSHub) HandleSubscriber(w http.ResponseWriter, r *http.Request) {
	c, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed from %s: %v", r.RemoteAddr, err)
		return
	}
	h.mu.Lock()
	h.subs[c] = struct{}{}
	h.mu.Unlock()
	go func() {
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				h.mu.Lock()
				delete(h.subs, c)
				h.mu.Unlock()
				_ = c.Close()
				return
			}
		}
	}()
}

// Broadcast sends msg to every subscriber; failed connections are dropped
// on their own read loop.
func (h *WSHub) Broadcast(msg WSMessage) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.subs))
	for c := range h.subs {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	for _, c := range conns {
		if err := c.WriteJSON(msg); err != nil {
			log.Printf("ws send failed: %v", err)
		}
	}
}
