package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-live/showcase/internal/models"
)

func TestMemory_SaveSessionKeepsPeak(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	s := m.AddSession(&models.Session{Title: "Drop", Status: models.SessionLive})

	s.ObserveViewers(7)
	require.NoError(t, m.SaveSession(ctx, s))

	s.ViewerCount, s.PeakViewers = 2, 3
	require.NoError(t, m.SaveSession(ctx, s))

	got, err := m.FindSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ViewerCount)
	assert.Equal(t, 7, got.PeakViewers)

	assert.ErrorIs(t, m.SaveSession(ctx, &models.Session{ID: uuid.New()}), models.ErrSessionNotFound)
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	pid := uuid.New()
	s := m.AddSession(&models.Session{Title: "Drop", ProductIDs: []uuid.UUID{pid}})

	got, err := m.FindSession(ctx, s.ID)
	require.NoError(t, err)
	got.ProductIDs[0] = uuid.New()
	got.Title = "changed"

	again, err := m.FindSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, pid, again.ProductIDs[0])
	assert.Equal(t, "Drop", again.Title)
}

func TestMemory_CreateBumpsTotals(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	s := m.AddSession(&models.Session{Status: models.SessionLive})

	for i := 0; i < 3; i++ {
		require.NoError(t, m.CreateReaction(ctx, &models.Reaction{ID: uuid.New(), SessionID: s.ID, Type: models.ReactionFire}))
	}
	require.NoError(t, m.CreateQuestion(ctx, &models.Question{ID: uuid.New(), SessionID: s.ID, Text: "size?"}))

	got, err := m.FindSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.TotalReactions)
	assert.Equal(t, 1, got.TotalQuestions)

	assert.ErrorIs(t, m.CreateReaction(ctx, &models.Reaction{SessionID: uuid.New()}), models.ErrSessionNotFound)
	assert.ErrorIs(t, m.CreateQuestion(ctx, &models.Question{SessionID: uuid.New()}), models.ErrSessionNotFound)
}

func TestMemory_Transitions(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	a := m.AddSession(&models.Session{Title: "A"})
	b := m.AddSession(&models.Session{Title: "B"})
	at := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

	live, err := m.Start(ctx, a.ID, at)
	require.NoError(t, err)
	assert.Equal(t, models.SessionLive, live.Status)
	assert.Equal(t, at, live.StartTime)

	_, err = m.Start(ctx, b.ID, at)
	assert.ErrorIs(t, err, models.ErrAnotherLive)
	_, err = m.Start(ctx, a.ID, at)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
	_, err = m.End(ctx, b.ID, at)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
	_, err = m.Start(ctx, uuid.New(), at)
	assert.ErrorIs(t, err, models.ErrSessionNotFound)

	cur, err := m.LiveSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, a.ID, cur.ID)

	ended, err := m.End(ctx, a.ID, at.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, models.SessionEnded, ended.Status)
	require.NotNil(t, ended.EndTime)

	_, err = m.LiveSession(ctx)
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
	_, err = m.Start(ctx, b.ID, at)
	assert.NoError(t, err)
}

func TestMemory_ListSessions(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	older := m.AddSession(&models.Session{Title: "old", CreatedAt: base})
	newer := m.AddSession(&models.Session{Title: "new", CreatedAt: base.Add(time.Hour), Status: models.SessionEnded})

	all, err := m.ListSessions(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, newer.ID, all[0].ID)
	assert.Equal(t, older.ID, all[1].ID)

	ended, err := m.ListSessions(ctx, models.SessionEnded)
	require.NoError(t, err)
	require.Len(t, ended, 1)
	assert.Equal(t, newer.ID, ended[0].ID)
}

func TestMemory_ListQuestionsOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	s := m.AddSession(&models.Session{Status: models.SessionLive})
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	q1 := &models.Question{ID: uuid.New(), SessionID: s.ID, Text: "first", CreatedAt: base}
	q2 := &models.Question{ID: uuid.New(), SessionID: s.ID, Text: "second", CreatedAt: base.Add(time.Minute)}
	q3 := &models.Question{ID: uuid.New(), SessionID: s.ID, Text: "liked", CreatedAt: base.Add(-time.Minute)}
	for _, q := range []*models.Question{q1, q2, q3} {
		require.NoError(t, m.CreateQuestion(ctx, q))
	}
	q3.Likes = 4
	require.NoError(t, m.SaveQuestion(ctx, q3))

	list, err := m.ListQuestions(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"liked", "second", "first"}, []string{list[0].Text, list[1].Text, list[2].Text})

	assert.ErrorIs(t, m.SaveQuestion(ctx, &models.Question{ID: uuid.New()}), models.ErrQuestionNotFound)
	_, err = m.FindQuestion(ctx, uuid.New())
	assert.ErrorIs(t, err, models.ErrQuestionNotFound)
}

func TestMemory_ListReactionsNewestFirst(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	s := m.AddSession(&models.Session{Status: models.SessionLive})
	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		r := &models.Reaction{ID: uuid.New(), SessionID: s.ID, Type: models.ReactionClap}
		ids = append(ids, r.ID)
		require.NoError(t, m.CreateReaction(ctx, r))
	}

	list, err := m.ListReactions(ctx, s.ID, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, ids[4], list[0].ID)
	assert.Equal(t, ids[3], list[1].ID)

	n, err := m.CountReactions(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestMemory_SetTotals(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	s := m.AddSession(&models.Session{TotalReactions: 9})

	require.NoError(t, m.SetTotals(ctx, s.ID, 1, 2))
	got, err := m.FindSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalReactions)
	assert.Equal(t, 2, got.TotalQuestions)
	assert.ErrorIs(t, m.SetTotals(ctx, uuid.New(), 0, 0), models.ErrSessionNotFound)
}
