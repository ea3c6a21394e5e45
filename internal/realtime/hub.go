package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// Audience distinguishes the general viewer audience from the admin control panel.
type Audience string

const (
	AudienceViewers Audience = "viewers"
	AudienceAdmins  Audience = "admins"
)

// Scope identifies one broadcast audience of one session.
type Scope struct {
	SessionID uuid.UUID
	Audience  Audience
}

// ViewerScope returns the viewer audience of a session.
func ViewerScope(sessionID uuid.UUID) Scope {
	return Scope{SessionID: sessionID, Audience: AudienceViewers}
}

// AdminScope returns the admin audience of a session.
func AdminScope(sessionID uuid.UUID) Scope {
	return Scope{SessionID: sessionID, Audience: AudienceAdmins}
}

// Peer is a connection that can receive encoded messages.
type Peer interface {
	ID() string
	// Deliver queues msg without blocking. It reports false when the message was dropped.
	Deliver(msg WSMessage) bool
}

// Encode builds the websocket envelope for an outbound event.
func Encode(event string, payload interface{}) (WSMessage, error) {
	var data []byte
	switch v := payload.(type) {
	case nil:
		data = []byte("null")
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			return WSMessage{}, err
		}
	}
	return WSMessage{Event: event, Data: data}, nil
}

// Send encodes and delivers a single event to one peer.
func Send(p Peer, event string, payload interface{}) bool {
	msg, err := Encode(event, payload)
	if err != nil {
		return false
	}
	return p.Deliver(msg)
}

// Hub maintains scope -> set of peers and fans messages out to them.
type Hub struct {
	peers  map[string]Peer
	scopes map[Scope]map[string]Peer
	mu     sync.RWMutex
	logger *zap.Logger
}

// NewHub creates a new broadcast hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		peers:  make(map[string]Peer),
		scopes: make(map[Scope]map[string]Peer),
		logger: logger,
	}
}

// Register tracks a connected peer so it receives process-wide events.
func (h *Hub) Register(p Peer) {
	h.mu.Lock()
	h.peers[p.ID()] = p
	h.mu.Unlock()
}

// Unregister forgets a peer and removes it from every scope.
func (h *Hub) Unregister(p Peer) {
	h.mu.Lock()
	delete(h.peers, p.ID())
	for scope, members := range h.scopes {
		delete(members, p.ID())
		if len(members) == 0 {
			delete(h.scopes, scope)
		}
	}
	h.mu.Unlock()
}

// Subscribe adds a peer to a scope.
func (h *Hub) Subscribe(scope Scope, p Peer) {
	h.mu.Lock()
	members := h.scopes[scope]
	if members == nil {
		members = make(map[string]Peer)
		h.scopes[scope] = members
	}
	members[p.ID()] = p
	h.mu.Unlock()
	h.logger.Debug("peer subscribed",
		zap.String("client_id", p.ID()),
		zap.String("session_id", scope.SessionID.String()),
		zap.String("audience", string(scope.Audience)))
}

// Unsubscribe removes a peer from a scope. Unknown peers are ignored.
func (h *Hub) Unsubscribe(scope Scope, p Peer) {
	h.mu.Lock()
	if members, ok := h.scopes[scope]; ok {
		delete(members, p.ID())
		if len(members) == 0 {
			delete(h.scopes, scope)
		}
	}
	h.mu.Unlock()
}

// Broadcast sends an event to every peer in scope.
func (h *Hub) Broadcast(scope Scope, event string, payload interface{}) {
	msg, err := Encode(event, payload)
	if err != nil {
		h.logger.Error("encode broadcast", zap.String("event", event), zap.Error(err))
		return
	}

	h.mu.RLock()
	targets := make([]Peer, 0, len(h.scopes[scope]))
	for _, p := range h.scopes[scope] {
		targets = append(targets, p)
	}
	h.mu.RUnlock()

	h.deliver(targets, msg)
}

// BroadcastAll sends an event to every connected peer regardless of scope.
func (h *Hub) BroadcastAll(event string, payload interface{}) {
	msg, err := Encode(event, payload)
	if err != nil {
		h.logger.Error("encode broadcast", zap.String("event", event), zap.Error(err))
		return
	}

	h.mu.RLock()
	targets := make([]Peer, 0, len(h.peers))
	for _, p := range h.peers {
		targets = append(targets, p)
	}
	h.mu.RUnlock()

	h.deliver(targets, msg)
}

func (h *Hub) deliver(targets []Peer, msg WSMessage) {
	for _, p := range targets {
		if !p.Deliver(msg) {
			// buffer full, skip
			h.logger.Warn("dropped message for slow client", zap.String("client_id", p.ID()), zap.String("event", msg.Event))
		}
	}
}

// ScopeSize returns the number of peers subscribed to scope.
func (h *Hub) ScopeSize(scope Scope) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.scopes[scope])
}

// ConnectedCount returns the number of registered peers.
func (h *Hub) ConnectedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}
