package sessions

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-live/showcase/internal/models"
	"github.com/aura-live/showcase/pkg/response"
)

const (
	defaultReactionLimit = 20
	maxReactionLimit     = 100
)

// Store is the session data the REST control plane reads and transitions.
type Store interface {
	CreateSession(ctx context.Context, s *models.Session) error
	FindSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	ListSessions(ctx context.Context, status models.SessionStatus) ([]*models.Session, error)
	LiveSession(ctx context.Context) (*models.Session, error)
	Start(ctx context.Context, id uuid.UUID, at time.Time) (*models.Session, error)
	End(ctx context.Context, id uuid.UUID, at time.Time) (*models.Session, error)
	ListQuestions(ctx context.Context, sessionID uuid.UUID) ([]*models.Question, error)
	ListReactions(ctx context.Context, sessionID uuid.UUID, limit int) ([]*models.Reaction, error)
}

// Notifier announces status changes to the realtime coordinator.
type Notifier interface {
	NotifyStatusChange(ctx context.Context, change models.SessionStatusChange) error
}

// ViewerCounter reports live presence.
type ViewerCounter interface {
	ViewerCount(sessionID uuid.UUID) int
}

// ArchiveScheduler queues post-session work.
type ArchiveScheduler interface {
	ScheduleArchive(ctx context.Context, sessionID uuid.UUID, endedAt time.Time) error
}

// ArchiveLinker resolves a download link for a session archive.
type ArchiveLinker interface {
	ArchiveURL(ctx context.Context, sessionID string) (string, error)
}

// CreateRequest is the body for POST /sessions.
type CreateRequest struct {
	Title       string      `json:"title" binding:"required,max=200"`
	Description string      `json:"description" binding:"max=2000"`
	HostName    string      `json:"hostName" binding:"max=100"`
	StartTime   *time.Time  `json:"startTime"`
	Products    []uuid.UUID `json:"products"`
}

// Handler handles session HTTP endpoints.
type Handler struct {
	store    Store
	notifier Notifier
	viewers  ViewerCounter
	archives ArchiveScheduler // optional
	links    ArchiveLinker    // optional
	logger   *zap.Logger
	now      func() time.Time
}

// NewHandler creates a sessions handler. archives and links may be nil.
func NewHandler(store Store, notifier Notifier, viewers ViewerCounter, archives ArchiveScheduler, links ArchiveLinker, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		store:    store,
		notifier: notifier,
		viewers:  viewers,
		archives: archives,
		links:    links,
		logger:   logger,
		now:      time.Now,
	}
}

// List handles GET /sessions?status=.
func (h *Handler) List(c *gin.Context) {
	status := models.SessionStatus(c.Query("status"))
	switch status {
	case "", models.SessionScheduled, models.SessionLive, models.SessionEnded:
	default:
		response.BadRequest(c, "invalid status filter")
		return
	}
	list, err := h.store.ListSessions(c.Request.Context(), status)
	if err != nil {
		h.logger.Error("list sessions", zap.Error(err))
		response.Internal(c, "failed to list sessions")
		return
	}
	response.OK(c, list)
}

// Live handles GET /sessions/live/current.
func (h *Handler) Live(c *gin.Context) {
	s, err := h.store.LiveSession(c.Request.Context())
	if err != nil {
		h.sessionError(c, err)
		return
	}
	response.OK(c, s)
}

// Get handles GET /sessions/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	s, err := h.store.FindSession(c.Request.Context(), id)
	if err != nil {
		h.sessionError(c, err)
		return
	}
	response.OK(c, s)
}

// Create handles POST /sessions (admin).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	s := &models.Session{
		Title:       req.Title,
		Description: req.Description,
		HostName:    req.HostName,
		ProductIDs:  req.Products,
		StartTime:   h.now(),
	}
	if req.StartTime != nil {
		s.StartTime = *req.StartTime
	}
	if err := h.store.CreateSession(c.Request.Context(), s); err != nil {
		if errors.Is(err, models.ErrValidation) {
			response.Fail(c, http.StatusBadRequest, models.ErrorCode(err), err.Error())
			return
		}
		h.logger.Error("create session", zap.Error(err))
		response.Internal(c, "failed to create session")
		return
	}
	response.Created(c, s)
}

// Questions handles GET /sessions/:id/questions.
func (h *Handler) Questions(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	list, err := h.store.ListQuestions(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("list questions", zap.String("session_id", id.String()), zap.Error(err))
		response.Internal(c, "failed to list questions")
		return
	}
	response.OK(c, list)
}

// Reactions handles GET /sessions/:id/reactions?limit=.
func (h *Handler) Reactions(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	limit := defaultReactionLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.BadRequest(c, "limit must be a positive integer")
			return
		}
		limit = min(n, maxReactionLimit)
	}
	list, err := h.store.ListReactions(c.Request.Context(), id, limit)
	if err != nil {
		h.logger.Error("list reactions", zap.String("session_id", id.String()), zap.Error(err))
		response.Internal(c, "failed to list reactions")
		return
	}
	response.OK(c, list)
}

// Viewers handles GET /sessions/:id/viewers.
func (h *Handler) Viewers(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	response.OK(c, gin.H{"sessionId": id, "count": h.viewers.ViewerCount(id)})
}

// Start handles PUT /sessions/:id/start (admin).
func (h *Handler) Start(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	s, err := h.store.Start(c.Request.Context(), id, h.now())
	if err != nil {
		h.sessionError(c, err)
		return
	}
	h.notify(c.Request.Context(), s)
	h.logger.Info("session started", zap.String("session_id", s.ID.String()), zap.String("title", s.Title))
	response.OK(c, s)
}

// End handles PUT /sessions/:id/end (admin).
func (h *Handler) End(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	s, err := h.store.End(c.Request.Context(), id, h.now())
	if err != nil {
		h.sessionError(c, err)
		return
	}
	h.notify(c.Request.Context(), s)
	if h.archives != nil {
		if err := h.archives.ScheduleArchive(c.Request.Context(), s.ID, *s.EndTime); err != nil {
			h.logger.Error("schedule archive", zap.String("session_id", s.ID.String()), zap.Error(err))
		}
	}
	h.logger.Info("session ended", zap.String("session_id", s.ID.String()), zap.Int("peak_viewers", s.PeakViewers))
	response.OK(c, s)
}

// Archive handles GET /sessions/:id/archive (admin).
func (h *Handler) Archive(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	if h.links == nil {
		response.ServiceUnavailable(c, "archive storage is not configured")
		return
	}
	url, err := h.links.ArchiveURL(c.Request.Context(), id.String())
	if err != nil {
		h.logger.Warn("archive link", zap.String("session_id", id.String()), zap.Error(err))
		response.NotFound(c, "archive not found")
		return
	}
	response.OK(c, gin.H{"url": url})
}

// notify publishes the status change. The transition already happened, so a
// failed publish is logged rather than reported to the caller.
func (h *Handler) notify(ctx context.Context, s *models.Session) {
	change := models.SessionStatusChange{SessionID: s.ID, Title: s.Title, Status: s.Status}
	if err := h.notifier.NotifyStatusChange(ctx, change); err != nil {
		h.logger.Error("publish status change", zap.String("session_id", s.ID.String()), zap.Error(err))
	}
}

func (h *Handler) sessionError(c *gin.Context, err error) {
	code := models.ErrorCode(err)
	switch {
	case errors.Is(err, models.ErrSessionNotFound):
		response.Fail(c, http.StatusNotFound, code, "session not found")
	case errors.Is(err, models.ErrInvalidTransition):
		response.Fail(c, http.StatusBadRequest, code, err.Error())
	case errors.Is(err, models.ErrAnotherLive):
		response.Fail(c, http.StatusConflict, code, "another session is already live; end it before starting a new one")
	default:
		h.logger.Error("session request", zap.Error(err))
		response.Internal(c, "internal error")
	}
}

func sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return uuid.Nil, false
	}
	return id, true
}
