package coordinator

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-live/showcase/internal/models"
	"github.com/aura-live/showcase/internal/realtime"
)

// Every action below validates, persists, then broadcasts. A failed write
// returns before anything is sent.

// SendReaction records a reaction on a live session and broadcasts it to viewers.
func (c *Coordinator) SendReaction(ctx context.Context, sessionID uuid.UUID, kind models.ReactionType, userName, userID string) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: unknown reaction type %q", models.ErrValidation, kind)
	}

	unlock := c.locks.Lock(sessionID)
	defer unlock()

	pctx, cancel := c.persistCtx(ctx)
	defer cancel()
	if err := c.requireLive(pctx, sessionID); err != nil {
		return err
	}

	r := &models.Reaction{
		ID:        uuid.New(),
		SessionID: sessionID,
		Type:      kind,
		UserID:    userID,
		UserName:  userName,
		CreatedAt: c.now(),
	}
	if err := c.store.CreateReaction(pctx, r); err != nil {
		return persistErr("create reaction", err)
	}

	c.hub.Broadcast(realtime.ViewerScope(sessionID), realtime.EventReactionNew, realtime.ReactionPayload{
		ID:        r.ID,
		Type:      r.Type,
		UserName:  r.UserName,
		Timestamp: r.CreatedAt,
	})
	c.logger.Debug("reaction", zap.String("session_id", sessionID.String()), zap.String("type", string(kind)))
	return nil
}

// sendQuestion records a question, acknowledges it to the author and
// broadcasts it to both the viewer and the admin scope.
func (c *Coordinator) sendQuestion(ctx context.Context, conn *connection, sessionID uuid.UUID, text, userName string) error {
	q, err := c.SendQuestion(ctx, sessionID, text, userName, conn.ID())
	if err != nil {
		return err
	}
	realtime.Send(conn.peer, realtime.EventQuestionSent, realtime.QuestionSentPayload{Success: true, ID: q.ID})
	return nil
}

// SendQuestion persists a new question on a live session and broadcasts it.
func (c *Coordinator) SendQuestion(ctx context.Context, sessionID uuid.UUID, text, userName, userID string) (*models.Question, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: question is required", models.ErrValidation)
	}
	if len([]rune(text)) > models.MaxQuestionLength {
		return nil, fmt.Errorf("%w: question exceeds %d characters", models.ErrValidation, models.MaxQuestionLength)
	}

	unlock := c.locks.Lock(sessionID)
	defer unlock()

	pctx, cancel := c.persistCtx(ctx)
	defer cancel()
	if err := c.requireLive(pctx, sessionID); err != nil {
		return nil, err
	}

	now := c.now()
	q := &models.Question{
		ID:        uuid.New(),
		SessionID: sessionID,
		Text:      text,
		UserID:    userID,
		UserName:  userName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.store.CreateQuestion(pctx, q); err != nil {
		return nil, persistErr("create question", err)
	}

	c.hub.Broadcast(realtime.ViewerScope(sessionID), realtime.EventQuestionNew, q)
	c.hub.Broadcast(realtime.AdminScope(sessionID), realtime.EventQuestionNew, q)
	c.logger.Info("question asked", zap.String("session_id", sessionID.String()), zap.String("question_id", q.ID.String()))
	return q, nil
}

// LikeQuestion adds one like. The same author may like a question repeatedly;
// every call increments the count.
func (c *Coordinator) LikeQuestion(ctx context.Context, questionID uuid.UUID) error {
	return c.updateQuestion(ctx, questionID, func(q *models.Question) {
		q.Likes++
	}, func(q *models.Question) {
		c.hub.Broadcast(realtime.ViewerScope(q.SessionID), realtime.EventQuestionLiked, realtime.QuestionLikedPayload{
			ID:    q.ID,
			Likes: q.Likes,
		})
	})
}

// AnswerQuestion stores the answer and broadcasts the full question to viewers.
// Callers are expected to have checked the admin role.
func (c *Coordinator) AnswerQuestion(ctx context.Context, questionID uuid.UUID, answer string) error {
	if answer == "" {
		return fmt.Errorf("%w: answer is required", models.ErrValidation)
	}
	if len([]rune(answer)) > models.MaxAnswerLength {
		return fmt.Errorf("%w: answer exceeds %d characters", models.ErrValidation, models.MaxAnswerLength)
	}
	return c.updateQuestion(ctx, questionID, func(q *models.Question) {
		q.IsAnswered = true
		q.Answer = &answer
	}, func(q *models.Question) {
		c.hub.Broadcast(realtime.ViewerScope(q.SessionID), realtime.EventQuestionAnswered, q)
		c.logger.Info("question answered", zap.String("session_id", q.SessionID.String()), zap.String("question_id", q.ID.String()))
	})
}

// updateQuestion re-reads the question under its session lock, applies mutate,
// saves, then calls notify.
func (c *Coordinator) updateQuestion(ctx context.Context, questionID uuid.UUID, mutate, notify func(*models.Question)) error {
	pctx, cancel := c.persistCtx(ctx)
	defer cancel()
	q, err := c.findQuestion(pctx, questionID)
	if err != nil {
		return err
	}

	unlock := c.locks.Lock(q.SessionID)
	defer unlock()

	if q, err = c.findQuestion(pctx, questionID); err != nil {
		return err
	}
	mutate(q)
	q.UpdatedAt = c.now()
	if err := c.store.SaveQuestion(pctx, q); err != nil {
		return persistErr("save question", err)
	}
	notify(q)
	return nil
}

// HighlightProduct sets or clears the session's featured product. A product
// outside the session's product list is rejected.
func (c *Coordinator) HighlightProduct(ctx context.Context, sessionID uuid.UUID, productID *uuid.UUID) error {
	unlock := c.locks.Lock(sessionID)
	defer unlock()

	pctx, cancel := c.persistCtx(ctx)
	defer cancel()
	s, err := c.findSession(pctx, sessionID)
	if err != nil {
		return err
	}
	if productID != nil && !s.HasProduct(*productID) {
		return fmt.Errorf("%w: product %s is not part of this session", models.ErrValidation, productID)
	}

	prev := s.HighlightedProduct
	s.HighlightedProduct = productID
	s.ObserveViewers(c.presence.Count(sessionID))
	if err := c.store.SaveSession(pctx, s); err != nil {
		s.HighlightedProduct = prev
		return persistErr("save session", err)
	}

	c.hub.Broadcast(realtime.ViewerScope(sessionID), realtime.EventProductHighlighted, realtime.ProductHighlightedPayload{
		ProductID: productID,
	})
	c.logger.Info("product highlight updated", zap.String("session_id", sessionID.String()), zap.Stringp("product_id", uuidStringPtr(productID)))
	return nil
}

// requireLive rejects events for sessions that are missing or not live.
func (c *Coordinator) requireLive(ctx context.Context, sessionID uuid.UUID) error {
	s, err := c.findSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			return models.ErrSessionNotLive
		}
		return err
	}
	if !s.IsLive() {
		return models.ErrSessionNotLive
	}
	return nil
}

func uuidStringPtr(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
