package coordinator

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-live/showcase/internal/models"
	"github.com/aura-live/showcase/internal/realtime"
)

type connState int

const (
	stateUnjoined connState = iota
	stateViewer
	stateAdmin
)

// connection is the gateway's view of one transport connection.
type connection struct {
	peer realtime.Peer
	role models.Role

	mu        sync.Mutex
	state     connState
	sessionID uuid.UUID
	userName  string
}

func (c *connection) ID() string { return c.peer.ID() }

func (c *connection) bind(state connState, sessionID uuid.UUID, userName string) {
	c.mu.Lock()
	c.state, c.sessionID, c.userName = state, sessionID, userName
	c.mu.Unlock()
}

func (c *connection) unbind() (connState, uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, sessionID := c.state, c.sessionID
	c.state, c.sessionID, c.userName = stateUnjoined, uuid.Nil, ""
	return state, sessionID
}

func (c *connection) binding() (connState, uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.sessionID
}

// join counts the connection as a viewer of a live session, confirms to the
// caller with a snapshot and broadcasts the new count to the viewer scope.
func (c *Coordinator) join(ctx context.Context, conn *connection, sessionID uuid.UUID, userName string) error {
	if state, bound := conn.binding(); state != stateUnjoined {
		if state == stateViewer && bound == sessionID {
			return c.resendJoined(ctx, conn, sessionID)
		}
		// The previous binding survives a rejected switch.
		if err := c.checkJoinable(ctx, sessionID); err != nil {
			return err
		}
		if err := c.release(ctx, conn); err != nil {
			c.logger.Warn("release previous binding", zap.String("client_id", conn.ID()), zap.Error(err))
		}
	}

	unlock := c.locks.Lock(sessionID)
	defer unlock()

	pctx, cancel := c.persistCtx(ctx)
	defer cancel()

	s, err := c.findSession(pctx, sessionID)
	if err != nil {
		return err
	}
	if !s.IsLive() {
		return models.ErrSessionNotLive
	}

	count := c.presence.Join(sessionID, conn.ID())
	if err := c.syncViewerCount(pctx, s); err != nil {
		c.presence.Leave(sessionID, conn.ID())
		return err
	}
	conn.bind(stateViewer, sessionID, userName)
	c.hub.Subscribe(realtime.ViewerScope(sessionID), conn.peer)

	realtime.Send(conn.peer, realtime.EventSessionJoined, realtime.SessionJoinedPayload{
		SessionID:   sessionID,
		Session:     s,
		ViewerCount: count,
	})
	c.hub.Broadcast(realtime.ViewerScope(sessionID), realtime.EventViewersUpdate, realtime.ViewersUpdatePayload{
		Count:       s.ViewerCount,
		PeakViewers: s.PeakViewers,
	})
	c.logger.Info("viewer joined",
		zap.String("session_id", sessionID.String()),
		zap.String("client_id", conn.ID()),
		zap.String("user_name", userName),
		zap.Int("viewers", s.ViewerCount))
	return nil
}

// checkJoinable reports whether sessionID exists and is live without taking
// its lock. join re-checks under the lock.
func (c *Coordinator) checkJoinable(ctx context.Context, sessionID uuid.UUID) error {
	pctx, cancel := c.persistCtx(ctx)
	defer cancel()
	s, err := c.findSession(pctx, sessionID)
	if err != nil {
		return err
	}
	if !s.IsLive() {
		return models.ErrSessionNotLive
	}
	return nil
}

// resendJoined answers a repeated join without touching presence.
func (c *Coordinator) resendJoined(ctx context.Context, conn *connection, sessionID uuid.UUID) error {
	pctx, cancel := c.persistCtx(ctx)
	defer cancel()
	s, err := c.findSession(pctx, sessionID)
	if err != nil {
		return err
	}
	realtime.Send(conn.peer, realtime.EventSessionJoined, realtime.SessionJoinedPayload{
		SessionID:   sessionID,
		Session:     s,
		ViewerCount: c.presence.Count(sessionID),
	})
	return nil
}

// leave stops counting the connection for the session. Leaving a session the
// connection is not viewing is a no-op.
func (c *Coordinator) leave(ctx context.Context, conn *connection, sessionID uuid.UUID) error {
	if state, bound := conn.binding(); state != stateViewer || bound != sessionID {
		return nil
	}
	return c.release(ctx, conn)
}

// adminJoin subscribes the connection to the session's admin scope. Viewer
// counts are not affected.
func (c *Coordinator) adminJoin(ctx context.Context, conn *connection, sessionID uuid.UUID) error {
	pctx, cancel := c.persistCtx(ctx)
	defer cancel()
	if _, err := c.findSession(pctx, sessionID); err != nil {
		return err
	}

	if state, bound := conn.binding(); state != stateUnjoined && !(state == stateAdmin && bound == sessionID) {
		if err := c.release(ctx, conn); err != nil {
			c.logger.Warn("release previous binding", zap.String("client_id", conn.ID()), zap.Error(err))
		}
	}
	conn.bind(stateAdmin, sessionID, "")
	c.hub.Subscribe(realtime.AdminScope(sessionID), conn.peer)
	c.logger.Info("admin joined control panel", zap.String("session_id", sessionID.String()), zap.String("client_id", conn.ID()))
	return nil
}

// adminLeave unsubscribes the connection from the session's admin scope.
func (c *Coordinator) adminLeave(conn *connection, sessionID uuid.UUID) error {
	if state, bound := conn.binding(); state != stateAdmin || bound != sessionID {
		return nil
	}
	conn.unbind()
	c.hub.Unsubscribe(realtime.AdminScope(sessionID), conn.peer)
	return nil
}

// release returns the connection to Unjoined, releasing presence when it was a viewer.
func (c *Coordinator) release(ctx context.Context, conn *connection) error {
	state, sessionID := conn.unbind()
	switch state {
	case stateViewer:
		c.hub.Unsubscribe(realtime.ViewerScope(sessionID), conn.peer)
		return c.releaseViewer(ctx, sessionID, conn.ID())
	case stateAdmin:
		c.hub.Unsubscribe(realtime.AdminScope(sessionID), conn.peer)
	}
	return nil
}

// releaseViewer removes presence unconditionally, then resynchronizes the
// durable count and tells the remaining viewers.
func (c *Coordinator) releaseViewer(ctx context.Context, sessionID uuid.UUID, connID string) error {
	unlock := c.locks.Lock(sessionID)
	defer unlock()

	count := c.presence.Leave(sessionID, connID)

	pctx, cancel := c.persistCtx(ctx)
	defer cancel()
	s, err := c.findSession(pctx, sessionID)
	if err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			return nil
		}
		return err
	}
	if err := c.syncViewerCount(pctx, s); err != nil {
		return err
	}
	c.logger.Info("viewer left", zap.String("session_id", sessionID.String()), zap.String("client_id", connID), zap.Int("viewers", count))
	if count == 0 {
		return nil
	}
	c.hub.Broadcast(realtime.ViewerScope(sessionID), realtime.EventViewersUpdate, realtime.ViewersUpdatePayload{
		Count:       s.ViewerCount,
		PeakViewers: s.PeakViewers,
	})
	return nil
}
