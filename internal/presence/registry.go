// Package presence tracks which connections are currently viewing which session.
package presence

import (
	"hash/fnv"
	"sort"
	"sync"

	"github.com/google/uuid"
)

const shardCount = 32

type shard struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]map[string]struct{}
}

// Registry maps session id -> set of connection ids. Sessions are spread over
// independently locked shards so unrelated sessions never contend on one lock.
// An empty set is removed inside the shard's critical section, so a concurrent
// Join always either sees the old set or creates a fresh one.
type Registry struct {
	shards [shardCount]*shard
}

// NewRegistry creates an empty presence registry.
func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i] = &shard{sessions: make(map[uuid.UUID]map[string]struct{})}
	}
	return r
}

func (r *Registry) shardFor(sessionID uuid.UUID) *shard {
	h := fnv.New32a()
	_, _ = h.Write(sessionID[:])
	return r.shards[h.Sum32()%shardCount]
}

// Join adds connID to the session and returns the new viewer count.
// Joining twice with the same connection is counted once.
func (r *Registry) Join(sessionID uuid.UUID, connID string) int {
	s := r.shardFor(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sessions[sessionID]
	if !ok {
		set = make(map[string]struct{})
		s.sessions[sessionID] = set
	}
	set[connID] = struct{}{}
	return len(set)
}

// Leave removes connID from the session and returns the remaining viewer count.
// Removing an absent connection is a no-op.
func (r *Registry) Leave(sessionID uuid.UUID, connID string) int {
	s := r.shardFor(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sessions[sessionID]
	if !ok {
		return 0
	}
	delete(set, connID)
	n := len(set)
	if n == 0 {
		delete(s.sessions, sessionID)
	}
	return n
}

// Count returns the number of connections viewing the session.
func (r *Registry) Count(sessionID uuid.UUID) int {
	s := r.shardFor(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions[sessionID])
}

// Sessions lists sessions that currently have at least one viewer.
func (r *Registry) Sessions() []uuid.UUID {
	var out []uuid.UUID
	for _, s := range r.shards {
		s.mu.Lock()
		for id := range s.sessions {
			out = append(out, id)
		}
		s.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
