// Package httpapi serves the ingestion and question answering operations
// over HTTP with gin.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
	"github.com/custodia-labs/docqa/internal/telemetry"
)

const (
	// maxUploadBytes bounds the multipart form kept in memory.
	maxUploadBytes = 32 << 20

	shutdownTimeout = 5 * time.Second
)

var (
	// ErrMissingQueryService is returned when no query service is wired.
	ErrMissingQueryService = errors.New("query service is required")

	// ErrMissingIngestService is returned when no ingest service is wired.
	ErrMissingIngestService = errors.New("ingest service is required")
)

// Ports holds the driving ports the API calls into.
type Ports struct {
	Query   driving.QueryService
	Ingest  driving.IngestService
	Metrics driving.MetricsService // optional
}

// Validate checks that the required ports are set.
func (p *Ports) Validate() error {
	if p.Query == nil {
		return ErrMissingQueryService
	}
	if p.Ingest == nil {
		return ErrMissingIngestService
	}
	return nil
}

// Server is the HTTP API.
type Server struct {
	ports     *Ports
	telemetry *telemetry.Metrics
	router    *gin.Engine
}

// NewServer builds the router. tm may be nil, in which case request
// metrics and the Prometheus endpoint are not registered.
func NewServer(ports *Ports, tm *telemetry.Metrics) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, err
	}

	router := gin.New()
	router.MaxMultipartMemory = maxUploadBytes
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware())
	if tm != nil {
		router.Use(tm.GinMiddleware())
	}

	s := &Server{ports: ports, telemetry: tm, router: router}
	s.registerRoutes()
	return s, nil
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Debug("shutting down HTTP API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http: %w", err)
	}
	return nil
}

func (s *Server) registerRoutes() {
	r := s.router
	r.GET("/", s.handleIndex)
	r.GET("/health", s.handleHealth)
	r.GET("/stats", s.handleStats)

	r.GET("/documents", s.handleListDocuments)
	r.POST("/upload", s.handleUpload)
	r.DELETE("/documents/:id", s.handleDelete)
	r.DELETE("/delete/:id", s.handleDelete)

	r.POST("/query", s.handleQuery)
	r.POST("/retrieve", s.handleRetrieve)

	r.GET("/metrics", s.handleMetricsReport)
	r.DELETE("/metrics", s.handleMetricsClear)
	if s.telemetry != nil {
		r.GET("/metrics/prometheus", gin.WrapH(s.telemetry.Handler()))
	}
}
