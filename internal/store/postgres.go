package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-live/showcase/internal/models"
	"github.com/aura-live/showcase/internal/questions"
	"github.com/aura-live/showcase/internal/reactions"
	"github.com/aura-live/showcase/internal/sessions"
)

// Postgres is the durable store backed by the feature repositories.
type Postgres struct {
	Sessions  *sessions.Repository
	Questions *questions.Repository
	Reactions *reactions.Repository
}

// NewPostgres composes the repositories over one pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{
		Sessions:  sessions.NewRepository(pool),
		Questions: questions.NewRepository(pool),
		Reactions: reactions.NewRepository(pool),
	}
}

func (p *Postgres) FindSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	return p.Sessions.GetByID(ctx, id)
}

func (p *Postgres) SaveSession(ctx context.Context, s *models.Session) error {
	return p.Sessions.SaveCoordinatorFields(ctx, s)
}

func (p *Postgres) CreateReaction(ctx context.Context, r *models.Reaction) error {
	return p.Reactions.Create(ctx, r)
}

func (p *Postgres) CreateQuestion(ctx context.Context, q *models.Question) error {
	return p.Questions.Create(ctx, q)
}

func (p *Postgres) FindQuestion(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	return p.Questions.GetByID(ctx, id)
}

func (p *Postgres) SaveQuestion(ctx context.Context, q *models.Question) error {
	return p.Questions.Update(ctx, q)
}

func (p *Postgres) CreateSession(ctx context.Context, s *models.Session) error {
	return p.Sessions.Create(ctx, s)
}

func (p *Postgres) ListSessions(ctx context.Context, status models.SessionStatus) ([]*models.Session, error) {
	return p.Sessions.List(ctx, status)
}

func (p *Postgres) LiveSession(ctx context.Context) (*models.Session, error) {
	return p.Sessions.GetLive(ctx)
}

func (p *Postgres) Start(ctx context.Context, id uuid.UUID, at time.Time) (*models.Session, error) {
	return p.Sessions.Start(ctx, id, at)
}

func (p *Postgres) End(ctx context.Context, id uuid.UUID, at time.Time) (*models.Session, error) {
	return p.Sessions.End(ctx, id, at)
}

func (p *Postgres) ListQuestions(ctx context.Context, sessionID uuid.UUID) ([]*models.Question, error) {
	return p.Questions.ListBySession(ctx, sessionID)
}

func (p *Postgres) ListReactions(ctx context.Context, sessionID uuid.UUID, limit int) ([]*models.Reaction, error) {
	return p.Reactions.ListRecent(ctx, sessionID, limit)
}

func (p *Postgres) CountReactions(ctx context.Context, sessionID uuid.UUID) (int, error) {
	return p.Reactions.CountBySession(ctx, sessionID)
}

func (p *Postgres) CountQuestions(ctx context.Context, sessionID uuid.UUID) (int, error) {
	return p.Questions.CountBySession(ctx, sessionID)
}

func (p *Postgres) SetTotals(ctx context.Context, sessionID uuid.UUID, reactions, questions int) error {
	return p.Sessions.SetTotals(ctx, sessionID, reactions, questions)
}
