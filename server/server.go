package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/meysamhadeli/repoaudit/pipeline"
	"github.com/meysamhadeli/repoaudit/source_acquirer"
)

// Auditor runs one audit.
type Auditor interface {
	Run(ctx context.Context, ref source_acquirer.RepositoryReference, cred source_acquirer.Credential) (*pipeline.Result, error)
}

// Config configures the HTTP server.
type Config struct {
	Addr           string
	RequestTimeout time.Duration
	// DefaultToken is used for github.com URLs when the request has none.
	DefaultToken string
}

// Server exposes the audit pipeline over HTTP.
type Server struct {
	auditor Auditor
	config  Config
	logger  *slog.Logger
}

func New(auditor Auditor, config Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{auditor: auditor, config: config, logger: logger}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handler := NewAnalyzeHandler(s.auditor, s.config.DefaultToken, s.config.RequestTimeout, s.logger)
	router.POST("/analyze", handler.Analyze)

	return router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.config.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.logger.Info("shutting down http server")
	return httpServer.Shutdown(shutdownCtx)
}

// requestLogger logs method, path, status and latency. Bodies are never
// logged because they can carry tokens.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds())
	}
}
