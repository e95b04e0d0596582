package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Server is the JSON API server
type Server struct {
	router  *gin.Engine
	handler *ForecastHandler
}

// NewServer creates a new API server instance
func NewServer(handler *ForecastHandler) *Server {
	s := &Server{
		router:  gin.New(),
		handler: handler,
	}
	s.router.Use(gin.Logger(), gin.Recovery())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/forward", s.handler.Forward)
		v1.POST("/forward/stats", s.handler.ForwardStats)
		v1.POST("/inverse", s.handler.Inverse)
		v1.POST("/inverse/stats", s.handler.InverseStats)
		v1.GET("/table", s.handler.Table)
		v1.GET("/units", s.handler.Units)
		v1.GET("/datasets", s.handler.Datasets)
	}
}

// Handler exposes the router for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then drains in-flight requests
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[Server] Listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Printf("[Server] Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
