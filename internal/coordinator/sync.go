package coordinator

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/aura-live/showcase/internal/models"
)

// syncViewerCount writes the presence count of s to the durable record and
// raises its peak. Callers hold the session lock, so the values broadcast
// afterwards are the values just persisted.
func (c *Coordinator) syncViewerCount(ctx context.Context, s *models.Session) error {
	prevCount, prevPeak := s.ViewerCount, s.PeakViewers
	s.ObserveViewers(c.presence.Count(s.ID))
	if err := c.store.SaveSession(ctx, s); err != nil {
		s.ViewerCount, s.PeakViewers = prevCount, prevPeak
		return persistErr("save session", err)
	}
	return nil
}

// TotalsStore exposes persisted row counts and a way to write corrected totals.
type TotalsStore interface {
	FindSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	CountReactions(ctx context.Context, sessionID uuid.UUID) (int, error)
	CountQuestions(ctx context.Context, sessionID uuid.UUID) (int, error)
	SetTotals(ctx context.Context, sessionID uuid.UUID, reactions, questions int) error
}

// ReconcileTotals recomputes a session's reaction and question totals from the
// persisted rows. It reports whether the stored totals had drifted.
func ReconcileTotals(ctx context.Context, st TotalsStore, sessionID uuid.UUID) (*models.Session, bool, error) {
	s, err := st.FindSession(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}
	reactions, err := st.CountReactions(ctx, sessionID)
	if err != nil {
		return nil, false, fmt.Errorf("count reactions: %w", err)
	}
	questions, err := st.CountQuestions(ctx, sessionID)
	if err != nil {
		return nil, false, fmt.Errorf("count questions: %w", err)
	}
	if s.TotalReactions == reactions && s.TotalQuestions == questions {
		return s, false, nil
	}
	if err := st.SetTotals(ctx, sessionID, reactions, questions); err != nil {
		return nil, false, fmt.Errorf("set totals: %w", err)
	}
	s.TotalReactions, s.TotalQuestions = reactions, questions
	return s, true, nil
}
