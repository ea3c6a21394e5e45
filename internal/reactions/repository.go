package reactions

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-live/showcase/internal/models"
)

// Repository handles reaction persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a reactions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a reaction and bumps the session's reaction total in one transaction.
func (r *Repository) Create(ctx context.Context, re *models.Reaction) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const bump = `UPDATE sessions SET total_reactions = total_reactions + 1, updated_at = NOW() WHERE id = $1`
	tag, err := tx.Exec(ctx, bump, re.SessionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrSessionNotFound
	}

	const insert = `INSERT INTO reactions (id, session_id, type, user_id, user_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := tx.Exec(ctx, insert, re.ID, re.SessionID, re.Type, re.UserID, re.UserName, re.CreatedAt); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ListRecent returns up to limit of a session's newest reactions.
func (r *Repository) ListRecent(ctx context.Context, sessionID uuid.UUID, limit int) ([]*models.Reaction, error) {
	const query = `SELECT id, session_id, type, user_id, user_name, created_at
		FROM reactions WHERE session_id = $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]*models.Reaction, 0, limit)
	for rows.Next() {
		var re models.Reaction
		if err := rows.Scan(&re.ID, &re.SessionID, &re.Type, &re.UserID, &re.UserName, &re.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &re)
	}
	return list, rows.Err()
}

// CountBySession returns the number of reactions for a session.
func (r *Repository) CountBySession(ctx context.Context, sessionID uuid.UUID) (int, error) {
	const query = `SELECT COUNT(*) FROM reactions WHERE session_id = $1`
	var n int
	err := r.pool.QueryRow(ctx, query, sessionID).Scan(&n)
	return n, err
}
