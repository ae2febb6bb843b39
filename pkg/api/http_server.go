package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"contactdb/pkg/common"
	"contactdb/pkg/core"

	"github.com/gin-gonic/gin"
)

// Contacts is the part of core.ContactService the HTTP API serves.
type Contacts interface {
	Create(ctx context.Context, in common.ContactInput) (common.Contact, error)
	Get(ctx context.Context, id string) (common.Contact, error)
	Update(ctx context.Context, id string, in common.ContactInput) (common.Contact, error)
	Delete(ctx context.Context, id string) (common.Contact, error)
	List(order core.SortOrder, term string) []common.Contact
	SearchByName(name string) (common.Contact, error)
	Rebuild(ctx context.Context) (int, error)
	Stats() core.Stats
}

type Server struct {
	svc     Contacts
	metrics http.Handler
	logger  *slog.Logger
	router  *gin.Engine
}

// NewServer builds the router. metrics may be nil, which leaves /metrics
// unrouted.
func NewServer(svc Contacts, metrics http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Server{
		svc:     svc,
		metrics: metrics,
		logger:  logger.With("component", "api"),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger(), cors())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Contact Management System Backend is running!"})
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	contacts := r.Group("/contacts")
	contacts.GET("", s.handleList)
	contacts.GET("/newly-added", s.handleNewlyAdded)
	contacts.GET("/most-recent-activity", s.handleMostRecentActivity)
	contacts.GET("/by-name/:name", s.handleSearchByName)
	contacts.GET("/:id", s.handleGet)
	contacts.POST("", s.handleCreate)
	contacts.PUT("/:id", s.handleUpdate)
	contacts.DELETE("/:id", s.handleDelete)

	r.POST("/admin/rebuild-index", s.handleRebuild)
	r.GET("/stats", s.handleStats)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics))
	}
	return r
}

func (s *Server) Router() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
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
		s.logger.Info("HTTP server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start))
	}
}
