package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/aura-live/showcase/internal/models"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService("secret", 1)
	u := &models.User{ID: uuid.New(), Email: "a@b.c", Role: models.RoleAdmin}

	token, err := svc.Generate(u)
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	role, err := svc.Role(token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, role)
}

func TestJWTService_Rejects(t *testing.T) {
	svc := NewJWTService("secret", 1)
	token, err := svc.Generate(&models.User{Role: models.RoleAdmin})
	require.NoError(t, err)

	_, err = NewJWTService("other", 1).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Role("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_NonAdminRoleIsViewer(t *testing.T) {
	svc := NewJWTService("secret", 1)
	token, err := svc.Generate(&models.User{Role: "moderator"})
	require.NoError(t, err)

	role, err := svc.Role(token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleViewer, role)
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	users := NewMemoryUsers()
	logger := zaptest.NewLogger(t)

	id, err := EnsureAdmin(ctx, users, " Admin@Example.com ", "supersecret", "Admin", logger)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)

	again, err := EnsureAdmin(ctx, users, "admin@example.com", "other", "Admin", logger)
	require.NoError(t, err)
	assert.Equal(t, id, again)

	none, err := EnsureAdmin(ctx, users, "", "", "", logger)
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, none)
}

func TestHandler_Login(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	users := NewMemoryUsers()
	logger := zaptest.NewLogger(t)
	_, err := EnsureAdmin(ctx, users, "admin@example.com", "hunter2hunter2", "Admin", logger)
	require.NoError(t, err)

	svc := NewJWTService("secret", 1)
	h := NewHandler(users, svc, logger)
	r := gin.New()
	r.POST("/auth/login", h.Login)

	post := func(body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		return w
	}

	w := post(`{"email":"admin@example.com","password":"hunter2hunter2"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data TokenResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	role, err := svc.Role(resp.Data.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, role)

	assert.Equal(t, http.StatusUnauthorized, post(`{"email":"admin@example.com","password":"nope"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, post(`{"email":"who@example.com","password":"hunter2hunter2"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`{"email":"not-an-email"}`).Code)
}

func TestPasswords(t *testing.T) {
	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrWeakPassword)

	hash, err := HashPassword("long enough")
	require.NoError(t, err)
	assert.True(t, CheckPassword("long enough", hash))
	assert.False(t, CheckPassword("long enougH", hash))
}
