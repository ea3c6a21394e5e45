package coordinator

import (
	"sync"

	"github.com/google/uuid"
)

// sessionLocks hands out one mutex per session id. Entries are refcounted and
// dropped when the last holder releases.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[uuid.UUID]*sessionLock)}
}

// Lock blocks until the session's mutex is held and returns its release func.
func (l *sessionLocks) Lock(sessionID uuid.UUID) func() {
	l.mu.Lock()
	sl := l.locks[sessionID]
	if sl == nil {
		sl = &sessionLock{}
		l.locks[sessionID] = sl
	}
	sl.refs++
	l.mu.Unlock()

	sl.mu.Lock()
	return func() {
		sl.mu.Unlock()
		l.mu.Lock()
		sl.refs--
		if sl.refs == 0 {
			delete(l.locks, sessionID)
		}
		l.mu.Unlock()
	}
}

func (l *sessionLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
