// Package api exposes the analytics core over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/teampulse/internal/analysis"
	"github.com/ZanzyTHEbar/teampulse/internal/errors"
	"github.com/ZanzyTHEbar/teampulse/internal/middleware"
	"github.com/ZanzyTHEbar/teampulse/internal/monitoring"
	"github.com/ZanzyTHEbar/teampulse/internal/ratelimit"
	"github.com/ZanzyTHEbar/teampulse/internal/security"
)

// Version is reported by /health
var Version = "dev"

// PoolStats reports storage connection pool statistics for /health
type PoolStats interface {
	GetPoolStats() map[string]any
}

// Options wires the router's collaborators. Metrics, Logger, Limiter and
// Pool may be nil.
type Options struct {
	Analyzer *analysis.Analyzer
	Metrics  *monitoring.Metrics
	Logger   *monitoring.Logger
	Limiter  *ratelimit.RateLimiter
	Pool     PoolStats
	Security security.Config
}

// Server holds the HTTP handlers
type Server struct {
	analyzer *analysis.Analyzer
	metrics  *monitoring.Metrics
	pool     PoolStats
	guard    *security.Middleware
	gzip     *middleware.Compression
	started  time.Time
}

// NewRouter builds the gin engine with middleware and routes registered
func NewRouter(opts Options) *gin.Engine {
	s := &Server{
		analyzer: opts.Analyzer,
		metrics:  opts.Metrics,
		pool:     opts.Pool,
		guard:    security.NewMiddleware(opts.Security),
		gzip:     middleware.NewCompression(middleware.DefaultCompressionConfig()),
		started:  time.Now(),
	}

	r := gin.New()
	r.Use(monitoring.MonitoringMiddleware(opts.Metrics, opts.Logger))
	r.Use(s.gzip.Handler())
	r.Use(errors.RecoveryHandler())
	r.Use(errors.ErrorHandler())
	r.Use(s.guard.CORS())
	r.Use(s.guard.SecurityHeaders)

	r.GET("/health", s.health)
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	v1 := r.Group("/api/v1")
	if opts.Limiter != nil {
		v1.Use(opts.Limiter.IPRateLimitMiddleware())
	}
	v1.Use(s.guard.RequestTimeout, s.guard.ValidateParams)
	{
		v1.GET("/members/:id/analytics", s.memberAnalytics)
		v1.GET("/members/:id/collaboration", s.collaboration)
		v1.GET("/projects/:key/analytics", s.projectAnalytics)
		v1.GET("/dashboard", s.dashboard)
		v1.GET("/activities", s.activities)
		v1.POST("/directory/invalidate", s.invalidateDirectory)
	}

	return r
}

func (s *Server) health(c *gin.Context) {
	resp := gin.H{
		"status":         "ok",
		"timestamp":      time.Now().Format(time.RFC3339),
		"version":        Version,
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
		"compression":    s.gzip.Stats(),
	}
	if s.pool != nil {
		resp["database"] = s.pool.GetPoolStats()
	}
	c.JSON(http.StatusOK, resp)
}
