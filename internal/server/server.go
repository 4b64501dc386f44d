package server

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

type Server struct {
	Engine *gin.Engine
	Addr   string
	checks map[string]HealthChecker
}

// HealthChecker is an interface for components that can report their health status.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// New creates the HTTP server. checks maps a tenant id to its database; a
// nil checker marks a tenant whose database never opened. Such tenants are
// reported but do not fail the health check, since their runs are skipped.
func New(addr string, mode string, checks map[string]HealthChecker) *Server {
	// Set Gin mode based on configuration
	if mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	s := &Server{
		Engine: r,
		Addr:   addr,
		checks: checks,
	}

	// Health check endpoint with per-tenant database verification
	r.GET("/health", s.healthHandler)

	return s
}

func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	ids := make([]string, 0, len(s.checks))
	for id := range s.checks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	tenants := make(map[string]string, len(ids))
	var unhealthy []string
	for _, id := range ids {
		check := s.checks[id]
		if check == nil {
			tenants[id] = "unavailable"
			continue
		}
		if err := check.Ping(ctx); err != nil {
			slog.Error("Health check failed: tenant database unreachable", "tenant", id, "error", err)
			tenants[id] = "unreachable"
			unhealthy = append(unhealthy, id)
			continue
		}
		tenants[id] = "connected"
	}

	if len(unhealthy) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "unhealthy",
			"tenants":   tenants,
			"unhealthy": unhealthy,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"tenants": tenants,
	})
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("Starting HTTP Server...", "address", s.Addr)

	go func() {
		<-ctx.Done()
		slog.Info("Stopping HTTP Server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP Server forced to shutdown", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
