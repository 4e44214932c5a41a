package service

// Broadcaster pushes live game events to connected watchers. The ws hub
// implements it; services hold it optionally so tests can omit it.
type Broadcaster interface {
	BroadcastToGame(gameID string, msgType string, payload interface{})
}
