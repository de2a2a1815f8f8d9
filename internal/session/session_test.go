package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/recipehub/config"
	"github.com/pageza/recipehub/internal/database"
	"github.com/pageza/recipehub/internal/models"
	"github.com/pageza/recipehub/internal/testhelpers"
	"github.com/pageza/recipehub/internal/types"
)

// exerciseStore runs the behaviour every backend must share.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, Ping(ctx, store))

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, KeyToken, "one"))
	require.NoError(t, store.Set(ctx, KeyToken, "two"))
	v, err := store.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "two", v)

	require.NoError(t, store.Set(ctx, KeyUser, "{}"))
	require.NoError(t, store.Delete(ctx, KeyToken, KeyUser))
	_, err = store.Get(ctx, KeyUser)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, store.Delete(ctx))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestGormStoreSQLite(t *testing.T) {
	cfg := config.Default()
	cfg.SQLitePath = filepath.Join(t.TempDir(), "session.db")

	store, closeFn, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { closeFn() })
	exerciseStore(t, store)
}

func TestGormStorePostgres(t *testing.T) {
	cfg := testhelpers.SetupPostgres(t)

	db, err := database.OpenPostgres(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })
	require.NoError(t, database.RunMigrations(db, nil, Migration))

	exerciseStore(t, NewGormStore(db))
}

func TestRedisStore(t *testing.T) {
	exerciseStore(t, NewRedisStore(testhelpers.SetupRedis(t)))
}

func TestSessionSaveAndClearKeepsBaseline(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryStore(), nil)

	user := &models.User{ID: "u1", Name: "Ana", Role: models.RoleAdmin}
	require.NoError(t, s.Save(ctx, "tok", user))
	require.NoError(t, s.SetBaseline(ctx, Baseline{Value: 12, At: time.Unix(100, 0).UTC()}))

	got, err := s.User(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.Name)
	assert.True(t, got.IsAdmin())

	require.NoError(t, s.Clear(ctx))
	token, err := s.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
	got, err = s.User(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	b, ok, err := s.Baseline(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 12, b.Value)
}

func TestSessionDiscardsCorruptUser(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Set(ctx, KeyUser, "{not json"))

	u, err := New(store, nil).User(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)
	_, err = store.Get(ctx, KeyUser)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTokenExpired(t *testing.T) {
	now := time.Now()
	sign := func(exp time.Time) string {
		claims := types.SessionClaims{
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)},
			UserID:           "u1",
		}
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
		require.NoError(t, err)
		return s
	}

	assert.True(t, TokenExpired(sign(now.Add(-time.Hour)), now))
	assert.False(t, TokenExpired(sign(now.Add(time.Hour)), now))
	assert.False(t, TokenExpired("opaque-token", now))
	assert.True(t, TokenExpired("", now))
}
