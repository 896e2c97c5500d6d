package storage

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"btw-buddy/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s TokenStore) {
	ctx := context.Background()

	_, ok, err := s.Get(ctx, AccessTokenKey)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, AccessTokenKey, "access-1"))
	require.NoError(t, s.Set(ctx, RefreshTokenKey, "refresh-1"))
	require.NoError(t, s.Set(ctx, AccessTokenKey, "access-2"))

	v, ok, err := s.Get(ctx, AccessTokenKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "access-2", v)

	require.NoError(t, s.Delete(ctx, AccessTokenKey))
	_, ok, _ = s.Get(ctx, AccessTokenKey)
	assert.False(t, ok)
	v, ok, _ = s.Get(ctx, RefreshTokenKey)
	assert.True(t, ok)
	assert.Equal(t, "refresh-1", v)

	require.NoError(t, s.Delete(ctx, AccessTokenKey, RefreshTokenKey))
	_, ok, _ = s.Get(ctx, RefreshTokenKey)
	assert.False(t, ok)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	exerciseStore(t, NewFileStore(path))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "file removed once empty")
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")

	require.NoError(t, NewFileStore(path).Set(ctx, RefreshTokenKey, "r"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	v, ok, err := NewFileStore(path).Get(ctx, RefreshTokenKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "r", v)
}

func TestFileStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, _, err := NewFileStore(path).Get(context.Background(), AccessTokenKey)
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.Backend = "memory"
	s, err := Open(cfg)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	cfg.Storage.Backend = "file"
	cfg.Storage.File = filepath.Join(t.TempDir(), "s.json")
	s, err = Open(cfg)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	cfg.Storage.Backend = "etcd"
	_, err = Open(cfg)
	assert.Error(t, err)
}

func newRedisStore(t *testing.T, prefix string) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), prefix)
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func TestRedisStore(t *testing.T) {
	s, mr := newRedisStore(t, "")
	exerciseStore(t, s)
	assert.Empty(t, mr.Keys())
}

func TestRedisStore_KeyPrefix(t *testing.T) {
	ctx := context.Background()

	s, mr := newRedisStore(t, "")
	require.NoError(t, s.Set(ctx, AccessTokenKey, "access-1"))
	v, err := mr.Get("btw:session:accessToken")
	require.NoError(t, err)
	assert.Equal(t, "access-1", v)
	assert.Zero(t, mr.TTL("btw:session:accessToken"), "no expiry")

	custom, mr := newRedisStore(t, "office:")
	require.NoError(t, custom.Set(ctx, RefreshTokenKey, "refresh-1"))
	assert.Equal(t, []string{"office:refreshToken"}, mr.Keys())
}

func TestRedisStore_DeleteWithoutKeys(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, "")
	require.NoError(t, s.Set(ctx, RefreshTokenKey, "refresh-1"))

	require.NoError(t, s.Delete(ctx))
	assert.True(t, mr.Exists("btw:session:refreshToken"))
}

func TestRedisStore_ServerDown(t *testing.T) {
	s, mr := newRedisStore(t, "")
	mr.Close()

	_, _, err := s.Get(context.Background(), AccessTokenKey)
	assert.Error(t, err)
}

func TestOpen_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Storage.Backend = "redis"
	cfg.Storage.RedisPrefix = "test:"
	cfg.Redis.Host = mr.Host()
	cfg.Redis.Port = port

	s, err := Open(cfg)
	require.NoError(t, err)
	rs, ok := s.(*RedisStore)
	require.True(t, ok)
	defer rs.Close()

	require.NoError(t, rs.Set(context.Background(), AccessTokenKey, "a"))
	assert.True(t, mr.Exists("test:accessToken"))

	mr.Close()
	_, err = Open(cfg)
	assert.Error(t, err)
}
