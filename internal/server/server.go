// file: internal/server/server.go
// version: 2.0.0
// guid: 486e9041-4c4f-405e-ae58-f057bfa30c0c

package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jdfalk/audiobook-catalog/internal/cache"
	"github.com/jdfalk/audiobook-catalog/internal/catalog"
	"github.com/jdfalk/audiobook-catalog/internal/database"
	"github.com/jdfalk/audiobook-catalog/internal/metrics"
	"github.com/jdfalk/audiobook-catalog/internal/models"
	"github.com/jdfalk/audiobook-catalog/internal/query"
	"github.com/jdfalk/audiobook-catalog/internal/realtime"
	"github.com/jdfalk/audiobook-catalog/internal/scanner"
	"github.com/jdfalk/audiobook-catalog/internal/server/middleware"
	"github.com/jdfalk/audiobook-catalog/internal/watcher"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the collaborators the API serves. Watcher may be nil.
type Deps struct {
	Store       database.Store
	Scanner     *scanner.Scanner
	Committer   *catalog.Committer
	Service     *catalog.Service
	Watcher     *watcher.Watcher
	ScanOptions scanner.Options

	// Events receives catalog change notifications; NewServer creates a hub when nil
	Events *realtime.Hub

	// Root is the configured library root, used when a request names none
	Root string

	// CoverRoot holds the covers/ directory served under /covers
	CoverRoot          string
	DatabaseType       string
	SnapshotTTL        time.Duration
	RateLimitPerMinute int
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	deps       Deps
	snapshot   *cache.Snapshot[[]models.Record]
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port         int
	Host         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// GetDefaultServerConfig returns default server configuration
func GetDefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:         8484,
		Host:         "127.0.0.1",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
}

// NewServer creates a new server instance
func NewServer(deps Deps) *Server {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	if deps.RateLimitPerMinute > 0 {
		limiter := middleware.NewIPRateLimiter(deps.RateLimitPerMinute, deps.RateLimitPerMinute/4+1,
			"/api/health", "/metrics", "/covers/")
		router.Use(limiter.Middleware())
	}
	router.Use(middleware.MaxRequestBodySize(1<<20, 64<<20))

	// Register metrics (idempotent)
	metrics.Register()

	ttl := deps.SnapshotTTL
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	s := &Server{
		router: router,
		deps:   deps,
	}
	if s.deps.Events == nil {
		s.deps.Events = realtime.NewHub()
	}
	s.snapshot = cache.NewSnapshot(ttl, deps.Store.GetAll)
	s.setupRoutes()
	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled or SIGINT/SIGTERM arrives, then
// shuts down gracefully.
func (s *Server) Start(ctx context.Context, cfg ServerConfig) error {
	s.httpServer = &http.Server{
		Addr:           fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:        s.router,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[INFO] server: listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	// Heartbeat keeps the catalog gauges current while running
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	s.refreshGauges()

	for {
		select {
		case err := <-errCh:
			return fmt.Errorf("failed to start server: %w", err)
		case <-ticker.C:
			s.refreshGauges()
			continue
		case <-quit:
		case <-ctx.Done():
		}
		break
	}

	log.Println("[INFO] server: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Println("[INFO] server: exited")
	return nil
}

func (s *Server) refreshGauges() {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	metrics.SetMemoryAlloc(mem.Alloc)
	metrics.SetGoroutines(runtime.NumGoroutine())

	records, err := s.snapshot.Get()
	if err != nil {
		log.Printf("[DEBUG] server: heartbeat could not load records: %v", err)
		return
	}
	ov := query.Summarize(records)
	metrics.SetRecords(ov.Records)
	metrics.SetMissing(ov.Missing)
}

// setupRoutes configures all the routes
func (s *Server) setupRoutes() {
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.router.GET("/api/health", s.healthCheck)
	s.router.GET("/api/v1/health", s.healthCheck)

	if s.deps.CoverRoot != "" {
		s.router.Static("/covers", filepath.Join(s.deps.CoverRoot, "covers"))
	}

	api := s.router.Group("/api/v1")
	{
		api.GET("/books", s.listBooks)
		api.POST("/books", s.createBook)
		api.GET("/books/:id", s.getBook)
		api.PATCH("/books/:id", s.updateBook)
		api.DELETE("/books/:id", s.deleteBook)
		api.PUT("/books/:id/narrators/:name", s.rateNarrator)

		api.GET("/series", s.listSeries)

		api.POST("/scan", s.startScan)
		api.POST("/commit", s.commit)

		api.GET("/status", s.getStatus)
		api.GET("/events", s.deps.Events.HandleSSE)
	}
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	resp := gin.H{
		"status":        "ok",
		"timestamp":     time.Now().Unix(),
		"database_type": s.deps.DatabaseType,
	}
	if records, err := s.snapshot.Get(); err == nil {
		resp["records"] = len(records)
	} else {
		resp["partial_error"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// records returns the cached snapshot or writes a 500
func (s *Server) records(c *gin.Context) ([]models.Record, bool) {
	records, err := s.snapshot.Get()
	if err != nil {
		RespondWithInternalError(c, "failed to load catalog: "+err.Error())
		return nil, false
	}
	return records, true
}

// mutated drops cached reads after any write
func (s *Server) mutated() {
	s.snapshot.Invalidate()
}
