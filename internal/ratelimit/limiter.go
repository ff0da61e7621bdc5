package ratelimit

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ZanzyTHEbar/teampulse/internal/monitoring"
)

// Config holds rate limiter configuration
type Config struct {
	LimitPerMin     int           // requests per client per minute; non-positive disables limiting
	BurstMultiplier int           // burst capacity multiplier
	IdleTTL         time.Duration // idle client buckets older than this are swept
}

// DefaultConfig returns default rate limiting configuration
func DefaultConfig() Config {
	return Config{
		LimitPerMin:     120,
		BurstMultiplier: 2,
		IdleTTL:         10 * time.Minute,
	}
}

// Result represents the result of a rate limit check
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is an in-process token bucket per client key
type RateLimiter struct {
	config  Config
	metrics *monitoring.Metrics

	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time

	stop chan struct{}
	once sync.Once
}

// NewRateLimiter creates a limiter and starts its idle-bucket sweeper
func NewRateLimiter(config Config, metrics *monitoring.Metrics) *RateLimiter {
	rl := &RateLimiter{
		config:  config,
		metrics: metrics,
		buckets: make(map[string]*bucket),
		now:     time.Now,
		stop:    make(chan struct{}),
	}

	if config.IdleTTL > 0 {
		go rl.cleanup()
	}

	return rl
}

// Enabled reports whether requests are limited at all
func (rl *RateLimiter) Enabled() bool {
	return rl.config.LimitPerMin > 0
}

// AllowIP checks whether a client address may make another request
func (rl *RateLimiter) AllowIP(ip string) Result {
	return rl.allow(fmt.Sprintf("ip:%s", ip))
}

func (rl *RateLimiter) allow(key string) Result {
	limit := rl.config.LimitPerMin
	if limit <= 0 {
		return Result{Allowed: true}
	}

	rl.mu.Lock()
	b, exists := rl.buckets[key]
	if !exists {
		burst := limit * rl.config.BurstMultiplier
		if burst < 1 {
			burst = limit
		}
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(float64(limit)/60.0), burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = rl.now()
	rl.mu.Unlock()

	allowed := b.limiter.Allow()
	remaining := int(b.limiter.Tokens())
	if remaining < 0 {
		remaining = 0
	}

	result := Result{Allowed: allowed, Limit: limit, Remaining: remaining}
	if !allowed {
		result.RetryAfter = time.Duration(float64(time.Minute) / float64(limit))
		rl.metrics.IncrementRateLimited()
	}
	return result
}

func (rl *RateLimiter) cleanup() {
	interval := rl.config.IdleTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.sweep()
		}
	}
}

func (rl *RateLimiter) sweep() {
	cutoff := rl.now().Add(-rl.config.IdleTTL)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for key, b := range rl.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(rl.buckets, key)
			removed++
		}
	}
	if removed > 0 {
		slog.Debug("Swept idle rate limit buckets", "removed", removed, "remaining", len(rl.buckets))
	}
}

// Clients returns the number of tracked client buckets
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// Close stops the sweeper
func (rl *RateLimiter) Close() error {
	rl.once.Do(func() { close(rl.stop) })
	return nil
}
