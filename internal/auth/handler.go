package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-live/showcase/internal/models"
	"github.com/aura-live/showcase/pkg/response"
)

// ContextClaims is the gin context key holding validated *Claims.
const ContextClaims = "auth_claims"

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	users  UserStore
	jwt    *JWTService
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(users UserStore, jwt *JWTService, logger *zap.Logger) *Handler {
	return &Handler{users: users, jwt: jwt, logger: logger}
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.users.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			h.logger.Error("lookup user", zap.Error(err))
		}
		response.Unauthorized(c, "invalid email or password")
		return
	}
	if !user.IsActive || !CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	token, err := h.jwt.Generate(user)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	h.logger.Info("user logged in", zap.String("user_id", user.ID.String()), zap.String("role", string(user.Role)))
	response.OK(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// Me handles GET /auth/me.
func (h *Handler) Me(c *gin.Context) {
	v, ok := c.Get(ContextClaims)
	claims, _ := v.(*Claims)
	if !ok || claims == nil {
		response.Unauthorized(c, "missing user context")
		return
	}
	user, err := h.users.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.NotFound(c, "user not found")
		return
	}
	response.OK(c, user.ToPublic())
}

// EnsureAdmin creates the bootstrap admin account when it does not exist yet.
func EnsureAdmin(ctx context.Context, users UserStore, email, password, name string, logger *zap.Logger) (uuid.UUID, error) {
	if email == "" || password == "" {
		return uuid.Nil, nil
	}
	existing, err := users.GetByEmail(ctx, email)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return uuid.Nil, fmt.Errorf("lookup admin: %w", err)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return uuid.Nil, fmt.Errorf("hash admin password: %w", err)
	}
	u, err := users.Create(ctx, email, hash, name, models.RoleAdmin)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create admin: %w", err)
	}
	logger.Info("bootstrap admin created", zap.String("email", u.Email))
	return u.ID, nil
}
