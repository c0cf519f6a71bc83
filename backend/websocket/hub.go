// Package websocket streams accepted bug reports to connected dashboards.
package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/apex/log"

	"bugspot/backend/db"
)

// Message is the envelope pushed to dashboard clients.
type Message struct {
	Type      string        `json:"type"`
	Data      *db.BugReport `json:"data"`
	Timestamp time.Time     `json:"timestamp"`
}

// Hub manages WebSocket connections and broadcasting. Connections are
// token-authenticated before they reach the hub; every connected dashboard
// receives every accepted report.
type Hub struct {
	clients map[*Client]bool

	broadcast chan []byte

	Register   chan *Client
	Unregister chan *Client

	mutex sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// Run starts the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			log.Infof("WebSocket client connected. Total clients: %d", total)

		case client := <-h.Unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mutex.Unlock()
			log.Infof("WebSocket client disconnected. Total clients: %d", total)

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// BroadcastReport pushes one accepted report to every connected client.
func (h *Hub) BroadcastReport(report *db.BugReport) {
	message := Message{
		Type:      "report",
		Data:      report,
		Timestamp: time.Now().UTC(),
	}

	data, err := json.Marshal(message)
	if err != nil {
		log.Errorf("Failed to marshal broadcast message: %v", err)
		return
	}

	h.broadcast <- data
}

// ConnectedClients returns the current connection count.
func (h *Hub) ConnectedClients() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
