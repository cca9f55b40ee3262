package source

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Guizzs26/go-sync-hr/internal/models"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRemote struct {
	files   []models.RemoteFile
	content map[string][]byte
	lists   int
	fetches int
}

func (r *countingRemote) ListFiles(context.Context) ([]models.RemoteFile, error) {
	r.lists++
	return r.files, nil
}

func (r *countingRemote) Fetch(_ context.Context, name string) ([]byte, error) {
	r.fetches++
	data, ok := r.content[name]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

func newTestCache(t *testing.T, remote Remote) (*CachedSource, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewCachedSource(remote, rdb, time.Minute, logger), mr
}

func TestCachedSource_ServesFromCache(t *testing.T) {
	remote := &countingRemote{
		files:   []models.RemoteFile{{Name: "incidencias.csv", Size: 10}},
		content: map[string][]byte{"incidencias.csv": []byte("EMP\n1\n")},
	}
	cache, _ := newTestCache(t, remote)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		files, err := cache.ListFiles(ctx)
		require.NoError(t, err)
		assert.Equal(t, "incidencias.csv", files[0].Name)

		data, err := cache.Fetch(ctx, "incidencias.csv")
		require.NoError(t, err)
		assert.Equal(t, "EMP\n1\n", string(data))
	}

	assert.Equal(t, 1, remote.lists)
	assert.Equal(t, 1, remote.fetches)
}

func TestCachedSource_ExpiresAndInvalidates(t *testing.T) {
	remote := &countingRemote{content: map[string][]byte{"a.csv": []byte("x")}}
	cache, mr := newTestCache(t, remote)
	ctx := context.Background()

	_, err := cache.Fetch(ctx, "a.csv")
	require.NoError(t, err)
	_, err = cache.ListFiles(ctx)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)
	_, err = cache.Fetch(ctx, "a.csv")
	require.NoError(t, err)
	assert.Equal(t, 2, remote.fetches, "expired entry refetched")

	n, err := cache.Invalidate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = cache.Fetch(ctx, "a.csv")
	require.NoError(t, err)
	assert.Equal(t, 3, remote.fetches)
}

func TestCachedSource_RemoteErrorNotCached(t *testing.T) {
	remote := &countingRemote{content: map[string][]byte{}}
	cache, mr := newTestCache(t, remote)

	_, err := cache.Fetch(context.Background(), "missing.csv")
	assert.Error(t, err)
	assert.False(t, mr.Exists(defaultCachePrefix+"file:missing.csv"))
}
