package dataloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/UkralStul/blog-platform/internal/domain"
	"github.com/UkralStul/blog-platform/internal/storage"
	"github.com/UkralStul/blog-platform/internal/storage/inmemory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// countingStore считает обращения к GetUsersByIDs
type countingStore struct {
	storage.Storage
	calls atomic.Int32
}

func (s *countingStore) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error) {
	s.calls.Add(1)
	return s.Storage.GetUsersByIDs(ctx, ids)
}

// mapCache - кеш авторов в памяти
type mapCache struct {
	mu      sync.Mutex
	entries map[string]domain.Author
}

func newMapCache() *mapCache { return &mapCache{entries: map[string]domain.Author{}} }

func (c *mapCache) GetMany(_ context.Context, ids []string) (map[string]domain.Author, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := map[string]domain.Author{}
	for _, id := range ids {
		if a, ok := c.entries[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

func (c *mapCache) SetMany(_ context.Context, authors map[string]domain.Author) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, a := range authors {
		c.entries[id] = a
	}
	return nil
}

func (c *mapCache) Delete(_ context.Context, ids ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.entries, id)
	}
	return nil
}

func seedUsers(t *testing.T, store storage.Storage, names ...string) []string {
	ids := make([]string, 0, len(names))
	for _, n := range names {
		u, err := store.CreateUser(context.Background(), &domain.User{Username: n, Email: n + "@x.com", Bio: n + " bio"})
		require.NoError(t, err)
		ids = append(ids, u.ID)
	}
	return ids
}

func TestResolver_BatchesWithinRequest(t *testing.T) {
	store := &countingStore{Storage: inmemory.New()}
	ids := seedUsers(t, store, "alice", "bob", "carol")
	resolver := NewResolver(store, nil, zap.NewNop())

	var got map[string]domain.Author
	handler := resolver.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NotNil(t, For(r.Context()))
		var err error
		// дубликаты и разный регистр схлопываются в один ключ
		got, err = resolver.Authors(r.Context(), append(ids, strings.ToUpper(ids[0]), uuid.NewString()))
		require.NoError(t, err)
		_, err = resolver.Authors(r.Context(), ids[:1])
		require.NoError(t, err)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.EqualValues(t, 1, store.calls.Load())
	require.Len(t, got, 3)
	assert.Equal(t, "bob", got[ids[1]].Username)
	require.NotNil(t, got[ids[2]].Bio)
	assert.Equal(t, "carol bio", *got[ids[2]].Bio)
}

func TestResolver_WithoutMiddlewareLoadsDirectly(t *testing.T) {
	store := &countingStore{Storage: inmemory.New()}
	ids := seedUsers(t, store, "alice")
	resolver := NewResolver(store, nil, zap.NewNop())

	assert.Nil(t, For(context.Background()))
	got, err := resolver.Authors(context.Background(), ids)
	require.NoError(t, err)
	assert.Equal(t, "alice", got[ids[0]].Username)
}

func TestResolver_CacheServesSecondLoad(t *testing.T) {
	store := &countingStore{Storage: inmemory.New()}
	ids := seedUsers(t, store, "alice")
	c := newMapCache()
	resolver := NewResolver(store, c, zap.NewNop())
	ctx := context.Background()

	_, err := resolver.Authors(ctx, ids)
	require.NoError(t, err)
	_, err = resolver.Authors(ctx, ids)
	require.NoError(t, err)
	assert.EqualValues(t, 1, store.calls.Load())

	// после изменения профиля запись из кеша удаляется
	resolver.Invalidate(ctx, ids[0])
	got, err := resolver.Authors(ctx, ids)
	require.NoError(t, err)
	assert.EqualValues(t, 2, store.calls.Load())
	assert.Equal(t, "alice", got[ids[0]].Username)
}

func TestResolver_EmptyInput(t *testing.T) {
	store := &countingStore{Storage: inmemory.New()}
	resolver := NewResolver(store, nil, zap.NewNop())

	got, err := resolver.Authors(context.Background(), []string{"", " "})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.EqualValues(t, 0, store.calls.Load())
}
