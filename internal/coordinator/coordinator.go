// Package coordinator tracks live session attendance and routes audience events
// between connections, persistence and the broadcast hub.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-live/showcase/internal/models"
	"github.com/aura-live/showcase/internal/presence"
	"github.com/aura-live/showcase/internal/realtime"
)

// Store is the durable record the coordinator reads and writes.
//
// CreateReaction and CreateQuestion insert the row and bump the owning
// session's total in one atomic step. SaveSession writes the coordinator-owned
// fields only (viewer count, peak viewers, highlighted product) and never lowers
// peak viewers; status transitions belong to the control plane.
type Store interface {
	FindSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	SaveSession(ctx context.Context, s *models.Session) error
	CreateReaction(ctx context.Context, r *models.Reaction) error
	CreateQuestion(ctx context.Context, q *models.Question) error
	FindQuestion(ctx context.Context, id uuid.UUID) (*models.Question, error)
	SaveQuestion(ctx context.Context, q *models.Question) error
}

// Broadcaster delivers outbound events to session audiences.
type Broadcaster interface {
	Subscribe(scope realtime.Scope, p realtime.Peer)
	Unsubscribe(scope realtime.Scope, p realtime.Peer)
	Broadcast(scope realtime.Scope, event string, payload interface{})
	BroadcastAll(event string, payload interface{})
}

// Options tunes the coordinator.
type Options struct {
	// PersistTimeout bounds every persistence call made while handling one event.
	PersistTimeout time.Duration
}

// Coordinator is the realtime session coordinator.
type Coordinator struct {
	store    Store
	hub      Broadcaster
	presence *presence.Registry
	locks    *sessionLocks
	logger   *zap.Logger
	opts     Options
	now      func() time.Time

	mu    sync.Mutex
	conns map[string]*connection
}

// New creates a coordinator with explicit collaborators.
func New(store Store, hub Broadcaster, registry *presence.Registry, opts Options, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if registry == nil {
		registry = presence.NewRegistry()
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = 5 * time.Second
	}
	return &Coordinator{
		store:    store,
		hub:      hub,
		presence: registry,
		locks:    newSessionLocks(),
		logger:   logger,
		opts:     opts,
		now:      time.Now,
		conns:    make(map[string]*connection),
	}
}

// Connect registers a new connection in the Unjoined state.
func (c *Coordinator) Connect(p realtime.Peer, role models.Role) {
	c.mu.Lock()
	c.conns[p.ID()] = &connection{peer: p, role: role}
	c.mu.Unlock()
}

// Dispatch routes one inbound event from a connection. The returned error is
// meant for the originating connection only.
func (c *Coordinator) Dispatch(ctx context.Context, p realtime.Peer, ev realtime.InboundEvent) error {
	conn := c.connection(p)
	if ev.AdminOnly() && conn.role != models.RoleAdmin {
		return fmt.Errorf("%w: %s requires the admin role", models.ErrForbidden, ev.EventName())
	}
	switch e := ev.(type) {
	case realtime.JoinSession:
		return c.join(ctx, conn, e.SessionID, e.UserName)
	case realtime.LeaveSession:
		return c.leave(ctx, conn, e.SessionID)
	case realtime.AdminJoin:
		return c.adminJoin(ctx, conn, e.SessionID)
	case realtime.AdminLeave:
		return c.adminLeave(conn, e.SessionID)
	case realtime.SendReaction:
		return c.SendReaction(ctx, e.SessionID, e.Type, e.UserName, conn.ID())
	case realtime.SendQuestion:
		return c.sendQuestion(ctx, conn, e.SessionID, e.Text, e.UserName)
	case realtime.LikeQuestion:
		return c.LikeQuestion(ctx, e.QuestionID)
	case realtime.AnswerQuestion:
		return c.AnswerQuestion(ctx, e.QuestionID, e.Answer)
	case realtime.HighlightProduct:
		return c.HighlightProduct(ctx, e.SessionID, e.ProductID)
	default:
		return fmt.Errorf("%w: %s", models.ErrUnknownEvent, ev.EventName())
	}
}

// Disconnect releases whatever the connection was bound to, exactly once.
// Presence is released even if persistence is unavailable.
func (c *Coordinator) Disconnect(p realtime.Peer) {
	c.mu.Lock()
	conn, ok := c.conns[p.ID()]
	delete(c.conns, p.ID())
	c.mu.Unlock()
	if !ok {
		return
	}

	state, sessionID := conn.unbind()
	switch state {
	case stateViewer:
		c.hub.Unsubscribe(realtime.ViewerScope(sessionID), conn.peer)
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.PersistTimeout)
		defer cancel()
		if err := c.releaseViewer(ctx, sessionID, conn.ID()); err != nil {
			c.logger.Warn("sync after disconnect failed", zap.String("session_id", sessionID.String()), zap.Error(err))
		}
	case stateAdmin:
		c.hub.Unsubscribe(realtime.AdminScope(sessionID), conn.peer)
	}
}

// ViewerCount returns the live presence count of a session.
func (c *Coordinator) ViewerCount(sessionID uuid.UUID) int {
	return c.presence.Count(sessionID)
}

// ActiveSessions lists sessions that currently have at least one viewer.
func (c *Coordinator) ActiveSessions() []uuid.UUID {
	return c.presence.Sessions()
}

// connection returns the registered state for p, registering it on first use.
func (c *Coordinator) connection(p realtime.Peer) *connection {
	c.mu.Lock()
	defer c.mu.Unlock()
	conn, ok := c.conns[p.ID()]
	if !ok {
		conn = &connection{peer: p, role: models.RoleViewer}
		c.conns[p.ID()] = conn
	}
	return conn
}

func (c *Coordinator) persistCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.opts.PersistTimeout)
}

// findSession maps store errors onto the coordinator's error kinds.
func (c *Coordinator) findSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	s, err := c.store.FindSession(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			return nil, models.ErrSessionNotFound
		}
		return nil, persistErr("find session", err)
	}
	return s, nil
}

func (c *Coordinator) findQuestion(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	q, err := c.store.FindQuestion(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrQuestionNotFound) {
			return nil, models.ErrQuestionNotFound
		}
		return nil, persistErr("find question", err)
	}
	return q, nil
}

func persistErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, models.ErrPersistence, err)
}
