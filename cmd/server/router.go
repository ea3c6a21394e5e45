package main

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aura-live/showcase/config"
	"github.com/aura-live/showcase/internal/auth"
	"github.com/aura-live/showcase/internal/coordinator"
	"github.com/aura-live/showcase/internal/middleware"
	"github.com/aura-live/showcase/internal/models"
	"github.com/aura-live/showcase/internal/questions"
	"github.com/aura-live/showcase/internal/realtime"
	"github.com/aura-live/showcase/internal/sessions"
	"github.com/aura-live/showcase/pkg/response"
	"github.com/aura-live/showcase/pkg/validator"
)

// storeDriver is what both persistence drivers provide.
type storeDriver interface {
	coordinator.Store
	sessions.Store
}

// deps are the collaborators the HTTP surface is built from.
type deps struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    storeDriver
	users    auth.UserStore
	jwt      *auth.JWTService
	hub      *realtime.Hub
	coord    *coordinator.Coordinator
	notifier sessions.Notifier
	archives sessions.ArchiveScheduler
	links    sessions.ArchiveLinker
	// redisHealth is nil when running without redis.
	redisHealth func(ctx context.Context) error
}

func newRouter(d deps) *gin.Engine {
	authHandler := auth.NewHandler(d.users, d.jwt, d.logger)
	sessionHandler := sessions.NewHandler(d.store, d.notifier, d.coord, d.archives, d.links, d.logger)
	questionHandler := questions.NewHandler(d.store, d.coord, d.logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(d.cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(d.logger))

	router.GET("/health", func(c *gin.Context) {
		if d.redisHealth != nil {
			if err := d.redisHealth(c.Request.Context()); err != nil {
				d.logger.Warn("health check", zap.Error(err))
				response.ServiceUnavailable(c, "redis unavailable")
				return
			}
		}
		response.OK(c, gin.H{
			"status":          "ok",
			"connections":     d.hub.ConnectedCount(),
			"active_sessions": len(d.coord.ActiveSessions()),
			"store":           d.cfg.Store.Driver,
		})
	})

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.GET("/me", middleware.JWT(d.jwt), authHandler.Me)
	}

	// Public session reads.
	router.GET("/sessions", sessionHandler.List)
	router.GET("/sessions/live/current", sessionHandler.Live)
	router.GET("/sessions/:id", sessionHandler.Get)
	router.GET("/sessions/:id/questions", sessionHandler.Questions)
	router.GET("/sessions/:id/reactions", sessionHandler.Reactions)
	router.GET("/sessions/:id/viewers", sessionHandler.Viewers)
	router.GET("/questions/:id", questionHandler.Get)
	router.POST("/questions/:id/like", questionHandler.Like)

	admin := router.Group("")
	admin.Use(middleware.JWT(d.jwt), middleware.RequireRole(models.RoleAdmin))
	{
		admin.POST("/sessions", sessionHandler.Create)
		admin.PUT("/sessions/:id/start", sessionHandler.Start)
		admin.PUT("/sessions/:id/end", sessionHandler.End)
		admin.GET("/sessions/:id/archive", sessionHandler.Archive)
		admin.PUT("/questions/:id/answer", questionHandler.Answer)
	}

	// WebSocket (token in query is optional; an admin token unlocks admin events)
	decoder := realtime.NewDecoder(validator.New())
	router.GET("/ws", realtime.ServeWs(d.hub, d.coord, decoder, d.jwt.Role, realtime.ServerOptions{
		SendBuffer:     d.cfg.Realtime.SendBuffer,
		InboxBuffer:    d.cfg.Realtime.InboxBuffer,
		AllowedOrigins: d.cfg.Realtime.OriginSet(),
	}, d.logger))

	return router
}
