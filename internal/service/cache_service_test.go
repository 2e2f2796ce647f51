package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/studyrhythm/studyrhythm-api/pkg/errors"
)

// memoryCacheRepo stands in for the Redis-backed repository. Values go
// through JSON the same way the real repository serialises them.
type memoryCacheRepo struct {
	entries map[string][]byte
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: map[string][]byte{}}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	return nil
}

func TestCacheServiceGetReportsHit(t *testing.T) {
	cache := NewCacheService(newMemoryCacheRepo(), nil, time.Minute, nil, true)
	ctx := context.Background()

	var got string
	hit, err := cache.Get(ctx, "stats:7", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, cache.Set(ctx, "stats:7", "cached", 0))

	hit, err = cache.Get(ctx, "stats:7", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "cached", got)
}

func TestCacheServiceDisabled(t *testing.T) {
	cache := NewCacheService(newMemoryCacheRepo(), nil, time.Minute, nil, false)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "stats:7", "cached", 0))

	var got string
	hit, err := cache.Get(ctx, "stats:7", &got)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Empty(t, got)
}

func TestCacheServiceInvalidate(t *testing.T) {
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, time.Minute, nil, true)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "progress:7", "a", 0))
	require.NoError(t, cache.Set(ctx, "progress:8", "b", 0))
	require.NoError(t, cache.Invalidate(ctx, "progress:*"))

	assert.Empty(t, repo.entries)
}
