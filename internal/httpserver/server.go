// Package httpserver serves presentation content and collects clickstream
// events over HTTP.
package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tinytelemetry/edetail/internal/backup"
	"github.com/tinytelemetry/edetail/internal/model"
	"github.com/tinytelemetry/edetail/internal/sitemap"
)

// Store is the narrow store contract required by the HTTP API.
type Store interface {
	model.EventReader
	model.SchemaQuerier
}

// Queue accepts tracked events for asynchronous storage.
type Queue interface {
	Add(ev *model.TrackEvent)
}

// Library serves the sitemap and page fragments.
type Library interface {
	Document() (*sitemap.Document, []byte, bool)
	Page(ref string) ([]byte, error)
}

// Snapshots lists database snapshots. Optional.
type Snapshots interface {
	List() ([]backup.Snapshot, error)
}

// Deps are the collaborators behind the routes. Backups may be nil.
type Deps struct {
	Store   Store
	Queue   Queue
	Library Library
	Backups Snapshots
	Logger  *slog.Logger
}

// Server is the content and clickstream HTTP server.
type Server struct {
	addr      string
	deps      Deps
	log       *slog.Logger
	metrics   *Metrics
	server    *http.Server
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// NewServer creates a server listening on addr once started.
func NewServer(addr string, deps Deps) *Server {
	if addr == "" {
		addr = "0.0.0.0:3000"
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:      addr,
		deps:      deps,
		log:       deps.Logger.With("component", "httpserver"),
		metrics:   NewMetrics(),
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
}

// Metrics returns the server's metric set.
func (s *Server) Metrics() *Metrics { return s.metrics }

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/api/health", s.handleHealth)
	r.GET("/js/sitemap.json", s.handleSitemap)
	r.GET("/pages/*ref", s.handlePage)
	r.POST("/api/track", s.handleTrack)
	r.GET("/api/stats/pageviews", s.handlePageviews)
	r.GET("/api/stats/types", s.handleEventTypes)
	r.GET("/api/schema", s.handleSchema)
	r.POST("/api/query", s.handleQuery)
	r.GET("/api/backups", s.handleBackups)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	return r
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)

	s.server = &http.Server{
		Handler:           s.Handler(),
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.startTime = time.Now()
	s.log.Info("httpserver: listening", "addr", listener.Addr().String())

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("httpserver: serve failed", "err", err)
		}
	}()
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
