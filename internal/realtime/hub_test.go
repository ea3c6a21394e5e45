package realtime

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

type recordingPeer struct {
	id    string
	full  bool
	mu    sync.Mutex
	inbox []WSMessage
}

func (p *recordingPeer) ID() string { return p.id }

func (p *recordingPeer) Deliver(msg WSMessage) bool {
	if p.full {
		return false
	}
	p.mu.Lock()
	p.inbox = append(p.inbox, msg)
	p.mu.Unlock()
	return true
}

func (p *recordingPeer) received() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.inbox))
	for i, m := range p.inbox {
		out[i] = m.Event
	}
	return out
}

func TestHub_ScopesAreIsolated(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t))
	a, b := uuid.New(), uuid.New()
	viewerA := &recordingPeer{id: "va"}
	adminA := &recordingPeer{id: "aa"}
	viewerB := &recordingPeer{id: "vb"}
	for _, p := range []*recordingPeer{viewerA, adminA, viewerB} {
		hub.Register(p)
	}
	hub.Subscribe(ViewerScope(a), viewerA)
	hub.Subscribe(AdminScope(a), adminA)
	hub.Subscribe(ViewerScope(b), viewerB)

	hub.Broadcast(ViewerScope(a), EventReactionNew, map[string]string{"type": "fire"})
	hub.Broadcast(AdminScope(a), EventQuestionNew, nil)

	assert.Equal(t, []string{EventReactionNew}, viewerA.received())
	assert.Equal(t, []string{EventQuestionNew}, adminA.received())
	assert.Empty(t, viewerB.received())

	hub.BroadcastAll(EventSessionStarted, nil)
	assert.Len(t, viewerB.received(), 1)
	assert.Equal(t, 3, hub.ConnectedCount())
}

func TestHub_SlowPeerDoesNotBlockOthers(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t))
	s := uuid.New()
	slow := &recordingPeer{id: "slow", full: true}
	fast := &recordingPeer{id: "fast"}
	hub.Subscribe(ViewerScope(s), slow)
	hub.Subscribe(ViewerScope(s), fast)

	hub.Broadcast(ViewerScope(s), EventViewersUpdate, ViewersUpdatePayload{Count: 2, PeakViewers: 2})

	assert.Equal(t, []string{EventViewersUpdate}, fast.received())
	assert.Empty(t, slow.received())
}

func TestHub_UnregisterRemovesFromAllScopes(t *testing.T) {
	hub := NewHub(nil)
	s := uuid.New()
	p := &recordingPeer{id: "p"}
	hub.Register(p)
	hub.Subscribe(ViewerScope(s), p)
	hub.Subscribe(AdminScope(s), p)

	hub.Unregister(p)

	assert.Equal(t, 0, hub.ScopeSize(ViewerScope(s)))
	assert.Equal(t, 0, hub.ScopeSize(AdminScope(s)))
	assert.Equal(t, 0, hub.ConnectedCount())

	hub.Unsubscribe(ViewerScope(s), p)
}

func TestEncode(t *testing.T) {
	msg, err := Encode(EventError, ErrorPayload{Message: "session not found", Code: "SessionNotFound"})
	assert.NoError(t, err)
	assert.Equal(t, EventError, msg.Event)
	assert.JSONEq(t, `{"message":"session not found","code":"SessionNotFound"}`, string(msg.Data))

	msg, err = Encode(EventSessionStarted, nil)
	assert.NoError(t, err)
	assert.Equal(t, "null", string(msg.Data))

	_, err = Encode(EventError, make(chan int))
	assert.Error(t, err)
}
