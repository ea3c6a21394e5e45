package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-live/showcase/internal/models"
)

// Repository handles session persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a sessions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const sessionColumns = `s.id, s.title, s.description, s.host_name, s.status, s.highlighted_product,
	s.viewer_count, s.peak_viewers, s.total_reactions, s.total_questions,
	s.start_time, s.end_time, s.created_at, s.updated_at,
	COALESCE(ARRAY(SELECT sp.product_id FROM session_products sp WHERE sp.session_id = s.id ORDER BY sp.position), '{}')`

func scanSession(row pgx.Row) (*models.Session, error) {
	var s models.Session
	err := row.Scan(&s.ID, &s.Title, &s.Description, &s.HostName, &s.Status, &s.HighlightedProduct,
		&s.ViewerCount, &s.PeakViewers, &s.TotalReactions, &s.TotalQuestions,
		&s.StartTime, &s.EndTime, &s.CreatedAt, &s.UpdatedAt, &s.ProductIDs)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

// GetByID returns a session with its product ids.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM sessions s WHERE s.id = $1`
	return scanSession(r.pool.QueryRow(ctx, q, id))
}

// GetLive returns the session currently live.
func (r *Repository) GetLive(ctx context.Context) (*models.Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM sessions s WHERE s.status = 'live' LIMIT 1`
	return scanSession(r.pool.QueryRow(ctx, q))
}

// List returns sessions newest first, optionally filtered by status.
func (r *Repository) List(ctx context.Context, status models.SessionStatus) ([]*models.Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM sessions s`
	var args []interface{}
	if status != "" {
		q += ` WHERE s.status = $1`
		args = append(args, status)
	}
	rows, err := r.pool.Query(ctx, q+` ORDER BY s.created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]*models.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// Create inserts a session and its product list.
func (r *Repository) Create(ctx context.Context, s *models.Session) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const q = `INSERT INTO sessions (id, title, description, host_name, status, start_time)
		VALUES (gen_random_uuid(), $1, $2, $3, 'scheduled', $4)
		RETURNING id, status, created_at, updated_at`
	if err := tx.QueryRow(ctx, q, s.Title, s.Description, s.HostName, s.StartTime).
		Scan(&s.ID, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return err
	}
	for i, pid := range s.ProductIDs {
		if _, err := tx.Exec(ctx, `INSERT INTO session_products (session_id, product_id, position) VALUES ($1, $2, $3)`, s.ID, pid, i); err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("%w: unknown product %s", models.ErrValidation, pid)
			}
			return fmt.Errorf("attach product %s: %w", pid, err)
		}
	}
	return tx.Commit(ctx)
}

// SaveCoordinatorFields writes viewer count, peak and highlighted product.
// Peak never decreases and status is left untouched.
func (r *Repository) SaveCoordinatorFields(ctx context.Context, s *models.Session) error {
	const q = `UPDATE sessions
		SET viewer_count = $2, peak_viewers = GREATEST(peak_viewers, $3), highlighted_product = $4, updated_at = NOW()
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, s.ID, s.ViewerCount, s.PeakViewers, s.HighlightedProduct)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrSessionNotFound
	}
	return nil
}

// Start moves a scheduled session to live. At most one session may be live.
func (r *Repository) Start(ctx context.Context, id uuid.UUID, at time.Time) (*models.Session, error) {
	const q = `UPDATE sessions SET status = 'live', start_time = $2, updated_at = $2
		WHERE id = $1 AND status = 'scheduled'
		AND NOT EXISTS (SELECT 1 FROM sessions WHERE status = 'live')`
	tag, err := r.pool.Exec(ctx, q, id, at)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, models.ErrAnotherLive
		}
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, r.transitionError(ctx, id, models.SessionScheduled)
	}
	return r.GetByID(ctx, id)
}

// End moves a live session to ended.
func (r *Repository) End(ctx context.Context, id uuid.UUID, at time.Time) (*models.Session, error) {
	const q = `UPDATE sessions SET status = 'ended', end_time = $2, updated_at = $2
		WHERE id = $1 AND status = 'live'`
	tag, err := r.pool.Exec(ctx, q, id, at)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, r.transitionError(ctx, id, models.SessionLive)
	}
	return r.GetByID(ctx, id)
}

// transitionError explains why a guarded status update matched no row.
func (r *Repository) transitionError(ctx context.Context, id uuid.UUID, from models.SessionStatus) error {
	s, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if s.Status != from {
		return fmt.Errorf("%w: session is %s", models.ErrInvalidTransition, s.Status)
	}
	return models.ErrAnotherLive
}

// SetTotals overwrites the reaction and question totals.
func (r *Repository) SetTotals(ctx context.Context, id uuid.UUID, reactions, questions int) error {
	const q = `UPDATE sessions SET total_reactions = $2, total_questions = $3, updated_at = NOW() WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, id, reactions, questions)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrSessionNotFound
	}
	return nil
}
