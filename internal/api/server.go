// Package api serves notification and results views over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nhle/quiz-ledger/internal/ledger"
	"github.com/nhle/quiz-ledger/internal/model"
	"github.com/nhle/quiz-ledger/internal/notify"
	"github.com/nhle/quiz-ledger/internal/results"
)

// Server is the HTTP surface of the ledger.
type Server struct {
	router  *gin.Engine
	cfg     model.ServerConfig
	ledger  *ledger.Ledger
	service *notify.Service
	logger  *zap.Logger
	http    *http.Server
}

// NewServer wires routes for l and svc.
func NewServer(cfg model.ServerConfig, l *ledger.Ledger, svc *notify.Service, logger *zap.Logger) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("server.jwt_secret is required")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}

	router := gin.New()
	router.Use(Recovery(logger))
	router.Use(Logger(logger))

	s := &Server{
		router:  router,
		cfg:     cfg,
		ledger:  l,
		service: svc,
		logger:  logger,
	}
	s.setupRoutes()

	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.http = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", zap.String("addr", s.cfg.Addr))
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "quizledger"})
	})

	api := s.router.Group("/api/v1")
	api.POST("/login", s.handleLogin())

	authed := api.Group("")
	authed.Use(JWTAuth(s.cfg.JWTSecret))
	{
		notifications := authed.Group("/notifications")
		{
			notifications.GET("", s.handleList())
			notifications.POST("/open", s.handleOpen())
			notifications.PUT("/read-all", s.handleMarkAllRead())
			notifications.GET("/unread-count", s.handleUnreadCount())
			notifications.GET("/:id/target", s.handleTarget())
		}
		authed.GET("/results", s.handleResults())
	}
}

type loginRequest struct {
	Email    string     `json:"email" binding:"required,email"`
	Password string     `json:"password" binding:"required"`
	Role     model.Role `json:"role" binding:"omitempty,oneof=student instructor"`
}

type loginResponse struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

// handleLogin exchanges directory credentials for an access token.
func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.Role == "" {
			req.Role = model.RoleStudent
		}

		u, err := s.ledger.Authenticate(c.Request.Context(), req.Email, req.Password, req.Role)
		if err != nil {
			unauthorized(c, "invalid email or password")
			return
		}

		token, err := GenerateToken(s.cfg.JWTSecret, u, s.cfg.TokenTTL)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
			return
		}
		c.JSON(http.StatusOK, loginResponse{Token: token, User: u})
	}
}

// notificationResponse is a notification with its unread flag.
type notificationResponse struct {
	model.Notification
	Unread bool `json:"unread"`
}

type feedResponse struct {
	Notifications []notificationResponse `json:"notifications"`
	Summary       model.Summary          `json:"summary"`
	Unread        int                    `json:"unread"`
	Badge         string                 `json:"badge"`
}

func toFeedResponse(feed notify.Feed) feedResponse {
	ns := make([]notificationResponse, 0, len(feed.Notifications))
	for _, n := range feed.Notifications {
		ns = append(ns, notificationResponse{Notification: n, Unread: feed.IsUnread(n)})
	}
	return feedResponse{
		Notifications: ns,
		Summary:       feed.Summary,
		Unread:        feed.Unread,
		Badge:         notify.BadgeLabel(feed.Unread),
	}
}

// handleList returns the caller's feed without marking anything read.
func (s *Server) handleList() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := CurrentUser(c)
		if !ok {
			unauthorized(c, "no user in token")
			return
		}
		c.JSON(http.StatusOK, toFeedResponse(s.service.Notifications(c.Request.Context(), u.Email)))
	}
}

// handleOpen marks the caller's feed read and returns it.
func (s *Server) handleOpen() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := CurrentUser(c)
		if !ok {
			unauthorized(c, "no user in token")
			return
		}

		feed, err := s.service.Open(c.Request.Context(), u.Email)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not open notifications"})
			return
		}
		c.JSON(http.StatusOK, toFeedResponse(feed))
	}
}

// handleMarkAllRead acknowledges every current notification of the caller.
func (s *Server) handleMarkAllRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := CurrentUser(c)
		if !ok {
			unauthorized(c, "no user in token")
			return
		}

		if err := s.service.MarkAllRead(c.Request.Context(), u.Email); err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not mark notifications read"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"unread": 0})
	}
}

// handleUnreadCount returns the badge value of the caller.
func (s *Server) handleUnreadCount() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := CurrentUser(c)
		if !ok {
			unauthorized(c, "no user in token")
			return
		}

		count, err := s.service.UnreadCount(c.Request.Context(), u.Email)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not count notifications"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"unread": count, "badge": notify.BadgeLabel(count)})
	}
}

// handleTarget resolves a notification click. Pending notifications have no
// target and answer 204.
func (s *Server) handleTarget() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := CurrentUser(c)
		if !ok {
			unauthorized(c, "no user in token")
			return
		}

		n, found := s.service.Notification(c.Request.Context(), u.Email, c.Param("id"))
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
			return
		}

		target, ok := notify.Click(n)
		if !ok {
			c.Status(http.StatusNoContent)
			return
		}
		c.JSON(http.StatusOK, target)
	}
}

// handleResults returns the caller's results view.
func (s *Server) handleResults() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := CurrentUser(c)
		if !ok {
			unauthorized(c, "no user in token")
			return
		}
		c.JSON(http.StatusOK, results.Build(s.service.Records(c.Request.Context(), u.Email)))
	}
}
