package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/teampulse/internal/cache"
	apperrors "github.com/ZanzyTHEbar/teampulse/internal/errors"
	"github.com/ZanzyTHEbar/teampulse/internal/resilience"
	"github.com/ZanzyTHEbar/teampulse/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDirectory struct {
	members []types.Member
	err     error
	calls   int
}

func (f *fakeDirectory) Members(context.Context) ([]types.Member, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.members, nil
}

func fastRetry() resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = time.Millisecond
	cfg.JitterEnabled = false
	return cfg
}

func TestCachedIndex_CachesUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore(0)
	defer store.Close()

	dir := &fakeDirectory{members: testMembers()}
	ci := NewCachedIndex(dir, store, time.Minute).WithRetry(fastRetry())

	idx, err := ci.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())

	idx, err = ci.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())
	assert.Equal(t, 1, dir.calls)

	// Round-tripped members keep their source identifiers
	res := NewResolver(idx, PolicyFirstMatch).Resolve(types.SourceCode, "alicep")
	assert.Equal(t, "m-alice", res.MemberID)

	require.NoError(t, ci.Invalidate(ctx))
	_, err = ci.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, dir.calls)
}

func TestCachedIndex_UnavailableDirectory(t *testing.T) {
	dir := &fakeDirectory{err: errors.New("connection refused")}
	ci := NewCachedIndex(dir, nil, time.Minute).WithRetry(fastRetry())

	_, err := ci.Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInputUnavailable)
	assert.Equal(t, 3, dir.calls, "transient failures are retried")

	appErr := apperrors.ToAppError(err)
	assert.Equal(t, apperrors.CategoryUnavailable, appErr.Category)
}
