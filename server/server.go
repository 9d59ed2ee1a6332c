package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	logalign "github.com/lucasjlepore/logalign"
	"github.com/lucasjlepore/logalign/config"
	"github.com/lucasjlepore/logalign/pipeline"
	"github.com/lucasjlepore/logalign/store"
)

// Server bundles the router and its dependencies for the formatting API.
type Server struct {
	cfg    config.Config
	align  logalign.Config
	sink   pipeline.Sink
	runs   runLoader
	engine *gin.Engine
}

type runLoader interface {
	LoadRun(ctx context.Context, runID string) (*store.RunSummary, error)
}

// New constructs a server with routes and middleware. sink may be nil.
func New(cfg config.Config, sink pipeline.Sink) (*Server, error) {
	align, err := cfg.Align()
	if err != nil {
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())

	s := &Server{cfg: cfg, align: align, sink: sink, engine: engine}
	if l, ok := sink.(runLoader); ok {
		s.runs = l
	}
	s.registerRoutes()
	return s, nil
}

// Engine exposes the underlying gin engine (for tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts the HTTP server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.ListenAddr(),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := s.engine.Group("/api/v1")
	{
		v1.POST("/format", s.handleFormat)
		if s.runs != nil {
			v1.GET("/runs/:id", s.handleGetRun)
		}
	}
}
