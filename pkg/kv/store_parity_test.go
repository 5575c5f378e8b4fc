package kv

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreContractParityAcrossBackends(t *testing.T) {
	type backendFactory struct {
		name  string
		build func(t *testing.T) Store
	}

	backends := []backendFactory{
		{
			name: "memory",
			build: func(t *testing.T) Store {
				t.Helper()
				return NewInMemoryStore()
			},
		},
		{
			name: "file",
			build: func(t *testing.T) Store {
				t.Helper()
				store, err := NewJSONFileStore(filepath.Join(t.TempDir(), "state.json"))
				require.NoError(t, err)
				return store
			},
		},
		{
			name: "sqlite",
			build: func(t *testing.T) Store {
				t.Helper()
				dsn, err := SQLiteDSNForFile(filepath.Join(t.TempDir(), "state.db"))
				require.NoError(t, err)
				store, err := NewSQLiteStore(dsn)
				require.NoError(t, err)
				return store
			},
		},
	}

	if addr := os.Getenv("AGENTVERSE_TEST_REDIS_ADDR"); addr != "" {
		backends = append(backends, backendFactory{
			name: "redis",
			build: func(t *testing.T) Store {
				t.Helper()
				store, err := NewRedisStore(context.Background(), &redis.Options{Addr: addr}, "agentverse-test:"+t.Name()+":")
				require.NoError(t, err)
				return store
			},
		})
	}

	for _, backend := range backends {
		backend := backend
		t.Run(backend.name, func(t *testing.T) {
			ctx := context.Background()
			store := backend.build(t)
			t.Cleanup(func() { _ = store.Close() })

			_, ok, err := store.Get(ctx, KeyChatHistory)
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, store.Set(ctx, KeyChatHistory, `[{"id":"chat-1"}]`))
			v, ok, err := store.Get(ctx, KeyChatHistory)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, `[{"id":"chat-1"}]`, v)

			require.NoError(t, store.Set(ctx, KeyChatHistory, `[]`))
			v, _, err = store.Get(ctx, KeyChatHistory)
			require.NoError(t, err)
			assert.Equal(t, `[]`, v)

			require.NoError(t, store.Remove(ctx, KeyChatHistory))
			_, ok, err = store.Get(ctx, KeyChatHistory)
			require.NoError(t, err)
			assert.False(t, ok)

			// removing twice is fine
			require.NoError(t, store.Remove(ctx, KeyChatHistory))
		})
	}
}

func TestInMemoryStoreRejectsUseAfterClose(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	require.NoError(t, store.Set(ctx, "a", "1"))
	require.NoError(t, store.Close())

	_, _, err := store.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, store.Set(ctx, "a", "2"), ErrClosed)
}

func TestJSONFileStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.json")

	store, err := NewJSONFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, KeyUserProfile, `{"name":"Ada"}`))
	require.NoError(t, store.Set(ctx, KeyAgentSettings, `{"agentName":"Bot"}`))
	require.NoError(t, store.Remove(ctx, KeyAgentSettings))
	require.NoError(t, store.Close())

	reopened, err := NewJSONFileStore(path)
	require.NoError(t, err)
	v, ok, err := reopened.Get(ctx, KeyUserProfile)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"name":"Ada"}`, v)

	_, ok, err = reopened.Get(ctx, KeyAgentSettings)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestJSONFileStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewJSONFileStore(path)
	assert.Error(t, err)
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dsn, err := SQLiteDSNForFile(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)

	store, err := NewSQLiteStore(dsn)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, KeyChatHistory, `[1]`))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	v, ok, err := reopened.Get(ctx, KeyChatHistory)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[1]`, v)
}

func TestOpenSelectsBackend(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Config{})
	require.NoError(t, err)
	assert.IsType(t, &InMemoryStore{}, s)

	s, err = Open(ctx, Config{Type: TypeFile, Path: filepath.Join(t.TempDir(), "s.json")})
	require.NoError(t, err)
	assert.IsType(t, &JSONFileStore{}, s)

	s, err = Open(ctx, Config{Type: TypeSQLite, Path: filepath.Join(t.TempDir(), "s.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	_ = s.Close()

	_, err = Open(ctx, Config{Type: "carrier-pigeon"})
	assert.ErrorIs(t, err, ErrUnknownType)
}
