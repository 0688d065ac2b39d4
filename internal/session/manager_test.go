package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sqlpilot/sqlpilot/internal/warehouse"
)

func newTestManager(t *testing.T) (*Manager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewManagerWithClient(client, time.Hour, zap.NewNop()), mr
}

func testCredentials() warehouse.Credentials {
	return warehouse.Credentials{
		Host:     "warehouse.internal",
		Port:     5432,
		User:     "analyst",
		Password: "secret",
		Database: "analytics",
	}
}

func TestCreateAndGetSession(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	created, err := m.CreateSession(ctx, testCredentials())
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := m.GetSession(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "analytics", got.Credentials.Database)
	assert.Empty(t, got.SelectedTables)
}

func TestGetSessionSurvivesCacheLoss(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	created, err := m.CreateSession(ctx, testCredentials())
	require.NoError(t, err)

	// Drop the local cache to force a Redis round trip.
	m.mu.Lock()
	m.localCache = make(map[string]*Session)
	m.mu.Unlock()

	got, err := m.GetSession(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "warehouse.internal", got.Credentials.Host)
}

func TestGetSessionNotFound(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.GetSession(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestDeleteSession(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	created, err := m.CreateSession(ctx, testCredentials())
	require.NoError(t, err)
	require.NoError(t, m.DeleteSession(ctx, created.ID))

	_, err = m.GetSession(ctx, created.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSelectTablesClearsSchemaCache(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	created, err := m.CreateSession(ctx, testCredentials())
	require.NoError(t, err)

	updated, err := m.SelectTables(ctx, created.ID, []string{"public.orders", "public.users"})
	require.NoError(t, err)
	assert.Equal(t, []string{"public.orders", "public.users"}, updated.SelectedTables)
	assert.Nil(t, updated.Schemas)
}

func TestCachedSchemasDescribesOnce(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	created, err := m.CreateSession(ctx, testCredentials())
	require.NoError(t, err)
	_, err = m.SelectTables(ctx, created.ID, []string{"public.orders"})
	require.NoError(t, err)

	calls := 0
	describe := func(_ context.Context, table string) (*warehouse.TableSchema, error) {
		calls++
		return &warehouse.TableSchema{
			TableName: "orders",
			Database:  "analytics",
			Schema:    "public",
			Columns: []warehouse.ColumnInfo{
				{Name: "id", Type: "integer"},
			},
		}, nil
	}

	first, err := m.CachedSchemas(ctx, created.ID, describe)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, calls)

	second, err := m.CachedSchemas(ctx, created.ID, describe)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, 1, calls, "second call should hit the cache")
}

func TestCachedSchemasPropagatesDescribeError(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	created, err := m.CreateSession(ctx, testCredentials())
	require.NoError(t, err)
	_, err = m.SelectTables(ctx, created.ID, []string{"public.orders"})
	require.NoError(t, err)

	_, err = m.CachedSchemas(ctx, created.ID, func(_ context.Context, table string) (*warehouse.TableSchema, error) {
		return nil, fmt.Errorf("relation %q does not exist", table)
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "public.orders")
}

func TestExpiredSessionIsEvicted(t *testing.T) {
	m, mr := newTestManager(t)
	ctx := context.Background()

	created, err := m.CreateSession(ctx, testCredentials())
	require.NoError(t, err)

	// Expire both the TTL field and the Redis key.
	m.mu.Lock()
	m.localCache[created.ID].ExpiresAt = time.Now().Add(-time.Minute)
	m.mu.Unlock()
	mr.FastForward(2 * time.Hour)

	_, err = m.GetSession(ctx, created.ID)
	assert.ErrorIs(t, err, ErrSessionExpired)
}
