package coordinator

import (
	"context"

	"go.uber.org/zap"

	"github.com/aura-live/showcase/internal/models"
	"github.com/aura-live/showcase/internal/realtime"
)

// HandleStatusChange relays a control-plane status change to connections.
// A started session is announced to every connection; an ended session to its
// viewers and admin panels. Presence is left as is: viewers leave or disconnect on their own
// and later audience events are rejected as not live.
func (c *Coordinator) HandleStatusChange(change models.SessionStatusChange) {
	switch change.Status {
	case models.SessionLive:
		c.hub.BroadcastAll(realtime.EventSessionStarted, change)
	case models.SessionEnded:
		c.hub.Broadcast(realtime.ViewerScope(change.SessionID), realtime.EventSessionEnded, change)
		c.hub.Broadcast(realtime.AdminScope(change.SessionID), realtime.EventSessionEnded, change)
	default:
		c.logger.Debug("ignoring status change", zap.String("session_id", change.SessionID.String()), zap.String("status", string(change.Status)))
		return
	}
	c.logger.Info("session status changed",
		zap.String("session_id", change.SessionID.String()),
		zap.String("status", string(change.Status)),
		zap.Int("viewers", c.presence.Count(change.SessionID)))
}

// NotifyStatusChange lets the coordinator stand in for the Redis lifecycle bus
// when the process runs without Redis.
func (c *Coordinator) NotifyStatusChange(_ context.Context, change models.SessionStatusChange) error {
	c.HandleStatusChange(change)
	return nil
}
