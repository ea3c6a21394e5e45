// Package store provides the durable record behind the coordinator: a
// Postgres implementation composed of the feature repositories and an
// in-memory implementation for single-process runs and tests.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aura-live/showcase/internal/models"
)

// Memory keeps sessions, reactions and questions in process memory.
// Every method copies values in and out so callers never share state with it.
type Memory struct {
	mu        sync.RWMutex
	sessions  map[uuid.UUID]*models.Session
	reactions map[uuid.UUID][]*models.Reaction
	questions map[uuid.UUID]*models.Question
	order     []uuid.UUID // question ids in insertion order
	now       func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		sessions:  make(map[uuid.UUID]*models.Session),
		reactions: make(map[uuid.UUID][]*models.Reaction),
		questions: make(map[uuid.UUID]*models.Question),
		now:       time.Now,
	}
}

// AddSession seeds a session. A nil ID is replaced with a fresh one.
func (m *Memory) AddSession(s *models.Session) *models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := s.Clone()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = models.SessionScheduled
	}
	now := m.now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	m.sessions[c.ID] = c
	return c.Clone()
}

// CreateSession inserts a scheduled session.
func (m *Memory) CreateSession(_ context.Context, s *models.Session) error {
	s.ID = uuid.Nil
	s.Status = models.SessionScheduled
	created := m.AddSession(s)
	*s = *created
	return nil
}

func (m *Memory) FindSession(_ context.Context, id uuid.UUID) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	return s.Clone(), nil
}

// SaveSession writes viewer count, peak viewers and highlighted product.
func (m *Memory) SaveSession(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.sessions[s.ID]
	if !ok {
		return models.ErrSessionNotFound
	}
	cur.ViewerCount = s.ViewerCount
	if s.PeakViewers > cur.PeakViewers {
		cur.PeakViewers = s.PeakViewers
	}
	if s.HighlightedProduct != nil {
		p := *s.HighlightedProduct
		cur.HighlightedProduct = &p
	} else {
		cur.HighlightedProduct = nil
	}
	cur.UpdatedAt = m.now()
	return nil
}

func (m *Memory) CreateReaction(_ context.Context, r *models.Reaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[r.SessionID]
	if !ok {
		return models.ErrSessionNotFound
	}
	c := *r
	m.reactions[r.SessionID] = append(m.reactions[r.SessionID], &c)
	s.TotalReactions++
	return nil
}

func (m *Memory) CreateQuestion(_ context.Context, q *models.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[q.SessionID]
	if !ok {
		return models.ErrSessionNotFound
	}
	m.questions[q.ID] = cloneQuestion(q)
	m.order = append(m.order, q.ID)
	s.TotalQuestions++
	return nil
}

func (m *Memory) FindQuestion(_ context.Context, id uuid.UUID) (*models.Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.questions[id]
	if !ok {
		return nil, models.ErrQuestionNotFound
	}
	return cloneQuestion(q), nil
}

func (m *Memory) SaveQuestion(_ context.Context, q *models.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.questions[q.ID]; !ok {
		return models.ErrQuestionNotFound
	}
	m.questions[q.ID] = cloneQuestion(q)
	return nil
}

// ListSessions returns sessions newest first, optionally filtered by status.
func (m *Memory) ListSessions(_ context.Context, status models.SessionStatus) ([]*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		if status != "" && s.Status != status {
			continue
		}
		out = append(out, s.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// LiveSession returns the session currently live.
func (m *Memory) LiveSession(_ context.Context) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		if s.IsLive() {
			return s.Clone(), nil
		}
	}
	return nil, models.ErrSessionNotFound
}

// Start moves a scheduled session to live. Only one session may be live.
func (m *Memory) Start(_ context.Context, id uuid.UUID, at time.Time) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	if s.Status != models.SessionScheduled {
		return nil, models.ErrInvalidTransition
	}
	for _, other := range m.sessions {
		if other.IsLive() {
			return nil, models.ErrAnotherLive
		}
	}
	s.Status = models.SessionLive
	s.StartTime = at
	s.UpdatedAt = at
	return s.Clone(), nil
}

// End moves a live session to ended.
func (m *Memory) End(_ context.Context, id uuid.UUID, at time.Time) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	if s.Status != models.SessionLive {
		return nil, models.ErrInvalidTransition
	}
	s.Status = models.SessionEnded
	end := at
	s.EndTime = &end
	s.UpdatedAt = at
	return s.Clone(), nil
}

// ListQuestions returns a session's questions, most liked first, then newest.
func (m *Memory) ListQuestions(_ context.Context, sessionID uuid.UUID) ([]*models.Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Question, 0)
	for _, id := range m.order {
		q := m.questions[id]
		if q.SessionID == sessionID {
			out = append(out, cloneQuestion(q))
		}
	}
	sortQuestions(out)
	return out, nil
}

// ListReactions returns up to limit of a session's most recent reactions, newest first.
func (m *Memory) ListReactions(_ context.Context, sessionID uuid.UUID, limit int) ([]*models.Reaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.reactions[sessionID]
	out := make([]*models.Reaction, 0, min(limit, len(all)))
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		c := *all[i]
		out = append(out, &c)
	}
	return out, nil
}

func (m *Memory) CountReactions(_ context.Context, sessionID uuid.UUID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.reactions[sessionID]), nil
}

func (m *Memory) CountQuestions(_ context.Context, sessionID uuid.UUID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, q := range m.questions {
		if q.SessionID == sessionID {
			n++
		}
	}
	return n, nil
}

func (m *Memory) SetTotals(_ context.Context, sessionID uuid.UUID, reactions, questions int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return models.ErrSessionNotFound
	}
	s.TotalReactions, s.TotalQuestions = reactions, questions
	return nil
}

func cloneQuestion(q *models.Question) *models.Question {
	c := *q
	if q.Answer != nil {
		a := *q.Answer
		c.Answer = &a
	}
	return &c
}

func sortQuestions(qs []*models.Question) {
	sort.SliceStable(qs, func(i, j int) bool {
		if qs[i].Likes != qs[j].Likes {
			return qs[i].Likes > qs[j].Likes
		}
		return qs[i].CreatedAt.After(qs[j].CreatedAt)
	})
}
