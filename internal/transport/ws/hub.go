package ws

import (
	"encoding/json"
	"sync"

	"waveband/internal/logging"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	MsgGuessSubmitted MessageType = "guess_submitted"
	MsgPhaseChanged   MessageType = "phase_changed"
	MsgError          MessageType = "error"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub manages the watcher connections of each game
type Hub struct {
	// gameID -> connections
	watchers map[string]map[*Connection]bool

	mu sync.RWMutex

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *BroadcastMessage
}

// Connection represents one WebSocket watcher
type Connection struct {
	GameID string
	UserID string
	Send   chan []byte
	Hub    *Hub
}

// BroadcastMessage is a message to broadcast to a game's watchers
type BroadcastMessage struct {
	GameID  string
	Message *Message
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	h := &Hub{
		watchers:   make(map[string]map[*Connection]bool),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *BroadcastMessage, 256),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if h.watchers[conn.GameID] == nil {
				h.watchers[conn.GameID] = make(map[*Connection]bool)
			}
			h.watchers[conn.GameID][conn] = true
			h.mu.Unlock()
			logging.Log.Debugf("WS: watcher %s connected to game %s", conn.UserID, conn.GameID)

		case conn := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.watchers[conn.GameID]; ok {
				if conns[conn] {
					delete(conns, conn)
					close(conn.Send)
					if len(conns) == 0 {
						delete(h.watchers, conn.GameID)
					}
				}
			}
			h.mu.Unlock()
			logging.Log.Debugf("WS: watcher %s disconnected from game %s", conn.UserID, conn.GameID)

		case msg := <-h.broadcast:
			h.mu.RLock()
			data, _ := json.Marshal(msg.Message)
			for conn := range h.watchers[msg.GameID] {
				select {
				case conn.Send <- data:
				default:
					// Drop message if buffer full
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// BroadcastToGame sends a message to every watcher of a game
// (implements service.Broadcaster)
func (h *Hub) BroadcastToGame(gameID string, msgType string, payload interface{}) {
	data, _ := json.Marshal(payload)
	h.broadcast <- &BroadcastMessage{
		GameID: gameID,
		Message: &Message{
			Type:    MessageType(msgType),
			Payload: data,
		},
	}
}
