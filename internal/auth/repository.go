package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-live/showcase/internal/models"
)

// ErrUserNotFound is returned when no user matches the lookup.
var ErrUserNotFound = errors.New("user not found")

// UserStore looks up and creates platform users.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Create(ctx context.Context, email, passwordHash, name string, role models.Role) (*models.User, error)
}

// Repository handles user persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, email, password, name, role, is_active, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Email, &u.Password, &u.Name, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByEmail returns a user by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, normalizeEmail(email)))
}

// Create inserts a new user.
func (r *Repository) Create(ctx context.Context, email, passwordHash, name string, role models.Role) (*models.User, error) {
	const q = `INSERT INTO users (email, password, name, role)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + userColumns
	return scanUser(r.pool.QueryRow(ctx, q, normalizeEmail(email), passwordHash, name, string(role)))
}

// MemoryUsers is a UserStore kept in process memory.
type MemoryUsers struct {
	mu    sync.RWMutex
	users map[string]*models.User
}

// NewMemoryUsers creates an empty in-memory user store.
func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{users: make(map[string]*models.User)}
}

func (m *MemoryUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[normalizeEmail(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (m *MemoryUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *MemoryUsers) Create(_ context.Context, email, passwordHash, name string, role models.Role) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = normalizeEmail(email)
	if _, ok := m.users[email]; ok {
		return nil, errors.New("email already registered")
	}
	now := time.Now()
	u := &models.User{
		ID:        uuid.New(),
		Email:     email,
		Password:  passwordHash,
		Name:      name,
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.users[email] = u
	c := *u
	return &c, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
