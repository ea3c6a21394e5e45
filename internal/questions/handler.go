package questions

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-live/showcase/internal/models"
	"github.com/aura-live/showcase/pkg/response"
)

// Actions are the question mutations; they persist and broadcast to the session.
type Actions interface {
	LikeQuestion(ctx context.Context, questionID uuid.UUID) error
	AnswerQuestion(ctx context.Context, questionID uuid.UUID, answer string) error
}

// Finder looks up a single question.
type Finder interface {
	FindQuestion(ctx context.Context, id uuid.UUID) (*models.Question, error)
}

// AnswerRequest is the body for PUT /questions/:id/answer.
type AnswerRequest struct {
	Answer string `json:"answer" binding:"required,max=1000"`
}

// Handler exposes question actions over HTTP for clients without a socket.
type Handler struct {
	finder  Finder
	actions Actions
	logger  *zap.Logger
}

// NewHandler creates a questions handler.
func NewHandler(finder Finder, actions Actions, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{finder: finder, actions: actions, logger: logger}
}

// Get handles GET /questions/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := questionID(c)
	if !ok {
		return
	}
	q, err := h.finder.FindQuestion(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, q)
}

// Like handles POST /questions/:id/like.
func (h *Handler) Like(c *gin.Context) {
	id, ok := questionID(c)
	if !ok {
		return
	}
	if err := h.actions.LikeQuestion(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"id": id})
}

// Answer handles PUT /questions/:id/answer (admin).
func (h *Handler) Answer(c *gin.Context) {
	id, ok := questionID(c)
	if !ok {
		return
	}
	var req AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.actions.AnswerQuestion(c.Request.Context(), id, req.Answer); err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"id": id, "isAnswered": true})
}

func (h *Handler) fail(c *gin.Context, err error) {
	code := models.ErrorCode(err)
	switch {
	case errors.Is(err, models.ErrQuestionNotFound):
		response.Fail(c, http.StatusNotFound, code, "question not found")
	case errors.Is(err, models.ErrValidation):
		response.Fail(c, http.StatusBadRequest, code, err.Error())
	default:
		h.logger.Error("question request", zap.Error(err))
		response.Internal(c, "failed to update question")
	}
}

func questionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid question id")
		return uuid.Nil, false
	}
	return id, true
}
