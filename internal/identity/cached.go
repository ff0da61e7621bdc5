package identity

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ZanzyTHEbar/teampulse/internal/cache"
	"github.com/ZanzyTHEbar/teampulse/internal/errors"
	"github.com/ZanzyTHEbar/teampulse/internal/resilience"
	"github.com/ZanzyTHEbar/teampulse/internal/types"
)

const membersCacheKey = "directory:members"

// Directory supplies the member list. It is owned by member management.
type Directory interface {
	Members(ctx context.Context) ([]types.Member, error)
}

// CachedIndex loads the member directory through a TTL cache. Entries are
// dropped on TTL expiry or explicit Invalidate when members change.
type CachedIndex struct {
	dir   Directory
	store cache.Store
	ttl   time.Duration
	retry resilience.RetryConfig
}

// NewCachedIndex creates a cached directory loader
func NewCachedIndex(dir Directory, store cache.Store, ttl time.Duration) *CachedIndex {
	return &CachedIndex{
		dir:   dir,
		store: store,
		ttl:   ttl,
		retry: resilience.DefaultRetryConfig(),
	}
}

// WithRetry overrides the retry policy used for directory loads
func (c *CachedIndex) WithRetry(cfg resilience.RetryConfig) *CachedIndex {
	c.retry = cfg
	return c
}

// Load returns an index over the current member directory. A directory that
// stays unreachable after retries is reported as unavailable.
func (c *CachedIndex) Load(ctx context.Context) (*Index, error) {
	if members, ok := c.cached(ctx); ok {
		return NewIndex(members), nil
	}

	var members []types.Member
	err := resilience.RetryWithConfig(ctx, c.retry, "member_directory", func(ctx context.Context) error {
		var err error
		members, err = c.dir.Members(ctx)
		return err
	})
	if err != nil {
		return nil, errors.NewUnavailableError("member directory", err)
	}

	if c.store != nil {
		if data, err := json.Marshal(members); err == nil {
			if err := c.store.Set(ctx, membersCacheKey, data, c.ttl); err != nil {
				slog.Warn("Failed to cache member directory", "error", err)
			}
		}
	}

	return NewIndex(members), nil
}

func (c *CachedIndex) cached(ctx context.Context) ([]types.Member, bool) {
	if c.store == nil {
		return nil, false
	}

	data, found, err := c.store.Get(ctx, membersCacheKey)
	if err != nil {
		slog.Warn("Member cache read failed, loading directory", "error", err)
		return nil, false
	}
	if !found {
		return nil, false
	}

	var members []types.Member
	if err := json.Unmarshal(data, &members); err != nil {
		slog.Warn("Discarding corrupt member cache entry", "error", err)
		return nil, false
	}
	return members, true
}

// Invalidate drops the cached directory snapshot
func (c *CachedIndex) Invalidate(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	if err := c.store.Delete(ctx, membersCacheKey); err != nil {
		return errors.WrapError(err, "failed to invalidate member cache")
	}
	slog.Info("Member directory cache invalidated")
	return nil
}
