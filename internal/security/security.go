package security

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/teampulse/internal/errors"
)

// Config holds request hardening settings for the analytics API
type Config struct {
	MaxParamLength int           `json:"max_param_length"`
	AllowedOrigins []string      `json:"allowed_origins"`
	RequestTimeout time.Duration `json:"request_timeout"`
	EnableHSTS     bool          `json:"enable_hsts"`
}

// DefaultConfig returns secure defaults
func DefaultConfig() Config {
	return Config{
		MaxParamLength: 200,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		RequestTimeout: 30 * time.Second,
	}
}

// Middleware applies the hardening settings to a router
type Middleware struct {
	config Config
}

// NewMiddleware creates a new security middleware instance
func NewMiddleware(config Config) *Middleware {
	if config.MaxParamLength <= 0 {
		config.MaxParamLength = DefaultConfig().MaxParamLength
	}
	return &Middleware{config: config}
}

// ValidateParam rejects path and query values that cannot be a member id,
// project key, date or name
func (m *Middleware) ValidateParam(value string) error {
	if len(value) > m.config.MaxParamLength {
		return fmt.Errorf("value exceeds maximum length of %d characters", m.config.MaxParamLength)
	}
	if strings.Contains(value, "\x00") {
		return fmt.Errorf("value contains invalid characters")
	}
	if !utf8.ValidString(value) {
		return fmt.Errorf("value contains invalid UTF-8 encoding")
	}
	return nil
}

// ValidateParams checks every path parameter and query value of a request
func (m *Middleware) ValidateParams(c *gin.Context) {
	for _, p := range c.Params {
		if err := m.ValidateParam(p.Value); err != nil {
			c.Error(errors.NewValidationError(err.Error(), p.Key, ""))
			c.Abort()
			return
		}
	}
	for key, values := range c.Request.URL.Query() {
		for _, v := range values {
			if err := m.ValidateParam(v); err != nil {
				c.Error(errors.NewValidationError(err.Error(), key, ""))
				c.Abort()
				return
			}
		}
	}
	c.Next()
}

// SecurityHeaders adds security headers to responses
func (m *Middleware) SecurityHeaders(c *gin.Context) {
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("X-Frame-Options", "DENY")
	c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
	c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
	c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

	if m.config.EnableHSTS || c.Request.TLS != nil {
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
	}

	c.Next()
}

// RequestTimeout bounds the request context. Analysis loads observe it.
func (m *Middleware) RequestTimeout(c *gin.Context) {
	if m.config.RequestTimeout <= 0 {
		c.Next()
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), m.config.RequestTimeout)
	defer cancel()

	c.Request = c.Request.WithContext(ctx)
	c.Header("X-Timeout", strconv.Itoa(int(m.config.RequestTimeout.Seconds())))

	c.Next()
}

// CORS allows read access from the configured dashboard origins
func (m *Middleware) CORS() gin.HandlerFunc {
	cfg := cors.Config{
		AllowOrigins:     m.config.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders:    []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowOrigins) == 0 {
		cfg.AllowOrigins = nil
		cfg.AllowAllOrigins = true
	}
	return cors.New(cfg)
}
