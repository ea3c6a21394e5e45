package questions

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-live/showcase/internal/models"
)

// Repository handles question persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a questions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a question and bumps the session's question total in one transaction.
func (r *Repository) Create(ctx context.Context, q *models.Question) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const bump = `UPDATE sessions SET total_questions = total_questions + 1, updated_at = NOW() WHERE id = $1`
	tag, err := tx.Exec(ctx, bump, q.SessionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrSessionNotFound
	}

	const insert = `INSERT INTO questions (id, session_id, question, user_id, user_name, likes, is_answered, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, FALSE, $6, $6)`
	if _, err := tx.Exec(ctx, insert, q.ID, q.SessionID, q.Text, q.UserID, q.UserName, q.CreatedAt); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const questionColumns = `id, session_id, question, user_id, user_name, likes, is_answered, answer, created_at, updated_at`

func scanQuestion(row pgx.Row) (*models.Question, error) {
	var q models.Question
	err := row.Scan(&q.ID, &q.SessionID, &q.Text, &q.UserID, &q.UserName, &q.Likes, &q.IsAnswered, &q.Answer, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrQuestionNotFound
		}
		return nil, err
	}
	return &q, nil
}

// GetByID returns a question by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	return scanQuestion(r.pool.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = $1`, id))
}

// Update writes likes and answer state.
func (r *Repository) Update(ctx context.Context, q *models.Question) error {
	const query = `UPDATE questions SET likes = $2, is_answered = $3, answer = $4, updated_at = $5 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, q.ID, q.Likes, q.IsAnswered, q.Answer, q.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrQuestionNotFound
	}
	return nil
}

// ListBySession returns a session's questions, most liked first.
func (r *Repository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.Question, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+questionColumns+` FROM questions WHERE session_id = $1 ORDER BY likes DESC, created_at DESC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]*models.Question, 0)
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, q)
	}
	return list, rows.Err()
}

// CountBySession returns the number of questions for a session.
func (r *Repository) CountBySession(ctx context.Context, sessionID uuid.UUID) (int, error) {
	const query = `SELECT COUNT(*) FROM questions WHERE session_id = $1`
	var n int
	err := r.pool.QueryRow(ctx, query, sessionID).Scan(&n)
	return n, err
}
