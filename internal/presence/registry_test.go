package presence

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_JoinLeaveCount(t *testing.T) {
	r := NewRegistry()
	session := uuid.New()

	assert.Equal(t, 0, r.Count(session))
	assert.Equal(t, 1, r.Join(session, "a"))
	assert.Equal(t, 2, r.Join(session, "b"))
	assert.Equal(t, 2, r.Join(session, "b"), "duplicate join is counted once")

	assert.Equal(t, 1, r.Leave(session, "a"))
	assert.Equal(t, 1, r.Leave(session, "a"), "leave of absent connection is a no-op")
	assert.Equal(t, 0, r.Leave(session, "b"))
	assert.Empty(t, r.Sessions(), "empty set is garbage collected")

	assert.Equal(t, 1, r.Join(session, "c"), "join after empty recreates the set")
	assert.Equal(t, []uuid.UUID{session}, r.Sessions())
}

func TestRegistry_LeaveUnknownSession(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, 0, r.Leave(uuid.New(), "nobody"))
}

func TestRegistry_SessionsAreIndependent(t *testing.T) {
	r := NewRegistry()
	s1, s2 := uuid.New(), uuid.New()
	r.Join(s1, "a")
	r.Join(s2, "a")
	r.Join(s2, "b")

	assert.Equal(t, 1, r.Count(s1))
	assert.Equal(t, 2, r.Count(s2))
	r.Leave(s2, "a")
	assert.Equal(t, 1, r.Count(s1))
	assert.Equal(t, 1, r.Count(s2))
}

func TestRegistry_ConcurrentJoinLeave(t *testing.T) {
	r := NewRegistry()
	sessions := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	const perSession = 200

	var wg sync.WaitGroup
	for _, s := range sessions {
		for i := 0; i < perSession; i++ {
			wg.Add(1)
			go func(s uuid.UUID, i int) {
				defer wg.Done()
				conn := fmt.Sprintf("conn-%d", i)
				r.Join(s, conn)
				if i%2 == 0 {
					r.Leave(s, conn)
				}
			}(s, i)
		}
	}
	wg.Wait()

	for _, s := range sessions {
		require.Equal(t, perSession/2, r.Count(s))
	}
}

func TestRegistry_ChurnToEmptyDoesNotLoseJoins(t *testing.T) {
	r := NewRegistry()
	session := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 500; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			conn := fmt.Sprintf("churn-%d", i)
			r.Join(session, conn)
			r.Leave(session, conn)
		}(i)
		go func(i int) {
			defer wg.Done()
			r.Join(session, fmt.Sprintf("stay-%d", i))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 500, r.Count(session))
}
